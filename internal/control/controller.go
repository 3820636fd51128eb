// Package control implements the C8 control plane from spec §4.8: it
// aggregates start/stop/pause/resume across the scanner, gabagool engine,
// trade manager, and optimizer, exposes the enter_trade/exit_trade/
// update_config/list_opportunities/list_positions surface from spec §6, and
// assembles the ~2Hz status snapshot pushed to UI subscribers.
package control

import (
	"context"
	"fmt"
	"sync"

	"github.com/polyhft/clob-engine/internal/analyzer"
	"github.com/polyhft/clob-engine/internal/gabagool"
	"github.com/polyhft/clob-engine/internal/gateway"
	"github.com/polyhft/clob-engine/internal/marketcache"
	"github.com/polyhft/clob-engine/internal/optimizer"
	"github.com/polyhft/clob-engine/internal/scanner"
	"github.com/polyhft/clob-engine/internal/trademanager"
	"github.com/polyhft/clob-engine/pkg/types"
	"go.uber.org/zap"
)

// Component names accepted by Start/Stop/Pause/Resume.
const (
	ComponentScanner      = "scanner"
	ComponentGabagool     = "gabagool"
	ComponentTradeManager = "trademanager"
	ComponentOptimizer    = "optimizer"
)

// Breaker reports whether new risk may be taken on, satisfied by
// *circuitbreaker.BalanceCircuitBreaker.
type Breaker interface {
	IsEnabled() bool
}

// Controller is the C8 control plane.
type Controller struct {
	gw        gateway.Gateway
	cache     *marketcache.Cache
	scanner   *scanner.Scanner
	analyzer  *analyzer.Analyzer
	gabagool  *gabagool.Engine
	trades    *trademanager.Manager
	optimizer *optimizer.Optimizer
	breaker   Breaker
	logger    *zap.Logger

	mu     sync.RWMutex
	params types.TradingParams
}

// Config wires a Controller to the components it orchestrates.
type Config struct {
	Gateway   gateway.Gateway
	Cache     *marketcache.Cache
	Scanner   *scanner.Scanner
	Analyzer  *analyzer.Analyzer
	Gabagool  *gabagool.Engine
	Trades    *trademanager.Manager
	Optimizer *optimizer.Optimizer
	Breaker   Breaker // optional
	Logger    *zap.Logger
}

// New constructs a Controller with spec §6's default trading params.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		gw:        cfg.Gateway,
		cache:     cfg.Cache,
		scanner:   cfg.Scanner,
		analyzer:  cfg.Analyzer,
		gabagool:  cfg.Gabagool,
		trades:    cfg.Trades,
		optimizer: cfg.Optimizer,
		breaker:   cfg.Breaker,
		logger:    logger,
		params:    types.DefaultTradingParams(),
	}
}

// StartAll starts every component, in dependency order: scanner first (it
// populates the Market Cache everything else reads from), then gabagool and
// the trade manager, then the optimizer (it needs gabagool running to have
// anything to tune).
func (c *Controller) StartAll(ctx context.Context) error {
	if err := c.scanner.Start(ctx); err != nil {
		return fmt.Errorf("control: start scanner: %w", err)
	}
	if err := c.gabagool.Start(ctx); err != nil {
		return fmt.Errorf("control: start gabagool: %w", err)
	}
	c.trades.Start(ctx)
	c.optimizer.Start(ctx)

	c.logger.Info("control-plane-started-all")
	return nil
}

// StopAll stops every component in the reverse of StartAll's order.
func (c *Controller) StopAll() {
	c.optimizer.Stop()
	c.trades.Stop()
	c.gabagool.Stop()
	c.scanner.Stop()

	c.logger.Info("control-plane-stopped-all")
}

// Start starts a single named component.
func (c *Controller) Start(ctx context.Context, component string) error {
	switch component {
	case ComponentScanner:
		return c.scanner.Start(ctx)
	case ComponentGabagool:
		return c.gabagool.Start(ctx)
	case ComponentTradeManager:
		c.trades.Start(ctx)
		return nil
	case ComponentOptimizer:
		c.optimizer.Start(ctx)
		return nil
	default:
		return fmt.Errorf("control: unknown component %q", component)
	}
}

// Stop stops a single named component.
func (c *Controller) Stop(component string) error {
	switch component {
	case ComponentScanner:
		c.scanner.Stop()
	case ComponentGabagool:
		c.gabagool.Stop()
	case ComponentTradeManager:
		c.trades.Stop()
	case ComponentOptimizer:
		c.optimizer.Stop()
	default:
		return fmt.Errorf("control: unknown component %q", component)
	}
	return nil
}

// Pause pauses a single named component. Only scanner and gabagool support
// pausing: the trade manager must always keep evaluating exits on open risk,
// and the optimizer's MANUAL/SEMI_AUTO modes (via SetOptimizerMode) are its
// equivalent of "paused".
func (c *Controller) Pause(component string) error {
	switch component {
	case ComponentScanner:
		return c.scanner.Pause()
	case ComponentGabagool:
		c.gabagool.Pause()
		return nil
	default:
		return fmt.Errorf("control: component %q does not support pause", component)
	}
}

// Resume resumes a single named component paused via Pause.
func (c *Controller) Resume(component string) error {
	switch component {
	case ComponentScanner:
		return c.scanner.Resume()
	case ComponentGabagool:
		c.gabagool.Resume()
		return nil
	default:
		return fmt.Errorf("control: component %q does not support resume", component)
	}
}

// TradingParams returns the live trading parameters.
func (c *Controller) TradingParams() types.TradingParams {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params
}

// UpdateTradingParams validates and swaps the trading params used by
// ListOpportunities; the previous value is preserved on validation failure
// per spec §7.
func (c *Controller) UpdateTradingParams(p types.TradingParams) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("control: reject trading params update: %w", err)
	}
	for _, w := range p.Warnings() {
		c.logger.Warn("trading-params-warning", zap.String("warning", w))
	}
	c.mu.Lock()
	c.params = p
	c.mu.Unlock()
	return nil
}

// UpdateGabagoolConfig is the update_config(component="gabagool", fields)
// surface from spec §6.
func (c *Controller) UpdateGabagoolConfig(cfg gabagool.Config) error {
	return c.gabagool.UpdateConfig(cfg)
}

// SetOptimizerMode is the update_config(component="optimizer", fields)
// surface from spec §6.
func (c *Controller) SetOptimizerMode(mode optimizer.Mode) {
	c.optimizer.SetMode(mode)
}
