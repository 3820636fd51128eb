// Package optimizer implements the auto-optimizer from spec §4.7: a
// periodic loop that computes a target GabagoolConfig from current market
// conditions and, in FULL_AUTO, applies whichever fields drifted enough to
// matter.
package optimizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/polyhft/clob-engine/internal/gabagool"
	"github.com/polyhft/clob-engine/internal/marketcache"
	"go.uber.org/zap"
)

// Mode is the optimizer's operating mode.
type Mode string

const (
	ModeManual   Mode = "MANUAL"
	ModeSemiAuto Mode = "SEMI_AUTO"
	ModeFullAuto Mode = "FULL_AUTO"
)

const (
	tickInterval       = 5 * time.Second
	relChangeThreshold = 0.01
	eventHistoryCap    = 100
)

// OptimizationEvent records a single applied config field change.
type OptimizationEvent struct {
	ID        string
	Timestamp time.Time
	Param     string
	OldValue  float64
	NewValue  float64
	Reason    string
}

// Optimizer is the auto-optimizer state machine.
type Optimizer struct {
	engine      *gabagool.Engine
	cache       *marketcache.Cache
	vol         *VolatilityClient
	wsConnected func() bool
	logger      *zap.Logger

	mu             sync.RWMutex
	mode           Mode
	lastConditions MarketConditions
	lastSuggestion gabagool.Config
	events         []OptimizationEvent

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config configures an Optimizer.
type Config struct {
	Engine         *gabagool.Engine
	Cache          *marketcache.Cache
	VolatilityFeed VolatilityFeed
	// WSConnected reports whether the scanner's WS path is currently live;
	// nil is treated as always-connected.
	WSConnected func() bool
	Logger      *zap.Logger
}

// New constructs an Optimizer in MANUAL mode.
func New(cfg Config) *Optimizer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	wsConnected := cfg.WSConnected
	if wsConnected == nil {
		wsConnected = func() bool { return true }
	}
	return &Optimizer{
		engine:      cfg.Engine,
		cache:       cfg.Cache,
		vol:         NewVolatilityClient(cfg.VolatilityFeed),
		wsConnected: wsConnected,
		logger:      logger,
		mode:        ModeManual,
	}
}

// Mode returns the optimizer's current operating mode.
func (o *Optimizer) Mode() Mode {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mode
}

// SetMode changes the operating mode; takes effect on the next tick.
func (o *Optimizer) SetMode(mode Mode) {
	o.mu.Lock()
	o.mode = mode
	o.mu.Unlock()
}

// Start launches the ~5s tick loop.
func (o *Optimizer) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go o.tickLoop(runCtx)

	o.logger.Info("optimizer-started")
}

// Stop halts the tick loop.
func (o *Optimizer) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	o.logger.Info("optimizer-stopped")
}

func (o *Optimizer) tickLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Tick(ctx)
		}
	}
}

// Tick runs one optimizer cycle: collect conditions, compute a target
// config, and in FULL_AUTO apply whichever fields drifted past the 1%
// threshold. Exported so tests and a manual "optimize now" control-plane
// command can drive it directly.
func (o *Optimizer) Tick(ctx context.Context) {
	cond := collect(ctx, o.cache, o.engine, o.vol, o.wsConnected())
	target := computeTarget(cond)

	o.mu.Lock()
	o.lastConditions = cond
	o.lastSuggestion = target
	mode := o.mode
	o.mu.Unlock()

	if mode != ModeFullAuto {
		return
	}
	o.apply(target)
}

// apply compares target against the engine's live config and updates only
// the fields whose relative change exceeds 1%, recording an
// OptimizationEvent for each one.
func (o *Optimizer) apply(target gabagool.Config) {
	current := o.engine.Snapshot().Config
	next := current
	var changed bool

	if setIfChanged(&next.MaxPairCost, current.MaxPairCost, target.MaxPairCost) {
		o.recordEvent("max_pair_cost", current.MaxPairCost, target.MaxPairCost)
		changed = true
	}
	if setIfChanged(&next.MinImprovement, current.MinImprovement, target.MinImprovement) {
		o.recordEvent("min_improvement", current.MinImprovement, target.MinImprovement)
		changed = true
	}
	if setIfChanged(&next.OrderSizeUSD, current.OrderSizeUSD, target.OrderSizeUSD) {
		o.recordEvent("order_size_usd", current.OrderSizeUSD, target.OrderSizeUSD)
		changed = true
	}
	if setIfChanged(&next.MaxPositionUSD, current.MaxPositionUSD, target.MaxPositionUSD) {
		o.recordEvent("max_position_usd", current.MaxPositionUSD, target.MaxPositionUSD)
		changed = true
	}
	if setIfChanged(&next.FirstBuyThreshold, current.FirstBuyThreshold, target.FirstBuyThreshold) {
		o.recordEvent("first_buy_threshold", current.FirstBuyThreshold, target.FirstBuyThreshold)
		changed = true
	}

	oldRefresh := current.RefreshInterval.Seconds()
	newRefresh := target.RefreshInterval.Seconds()
	if relChange(oldRefresh, newRefresh) > relChangeThreshold {
		next.RefreshInterval = target.RefreshInterval
		o.recordEvent("refresh_interval", oldRefresh, newRefresh)
		changed = true
	}

	if !changed {
		return
	}

	if err := o.engine.UpdateConfig(next); err != nil {
		o.logger.Warn("optimizer-apply-failed", zap.Error(err))
		return
	}
	OptimizerApplicationsTotal.Inc()
}

// setIfChanged writes target into *field and reports true when old->target
// exceeds the relative-change threshold.
func setIfChanged(field *float64, old, target float64) bool {
	if relChange(old, target) <= relChangeThreshold {
		return false
	}
	*field = target
	return true
}

func relChange(old, next float64) float64 {
	if old == 0 {
		if next == 0 {
			return 0
		}
		return 1
	}
	delta := next - old
	if delta < 0 {
		delta = -delta
	}
	return delta / old
}

func (o *Optimizer) recordEvent(param string, oldValue, newValue float64) {
	event := OptimizationEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Param:     param,
		OldValue:  oldValue,
		NewValue:  newValue,
		Reason:    fmt.Sprintf("relative change %.2f%% exceeds 1%% threshold", relChange(oldValue, newValue)*100),
	}

	o.mu.Lock()
	o.events = append(o.events, event)
	if len(o.events) > eventHistoryCap {
		o.events = o.events[len(o.events)-eventHistoryCap:]
	}
	o.mu.Unlock()

	OptimizationEventsTotal.WithLabelValues(param).Inc()
	o.logger.Info("optimizer-config-updated",
		zap.String("param", param), zap.Float64("old", oldValue), zap.Float64("new", newValue))
}

// Events returns a copy of the event history (most recent last), capped at
// the last 100 applied changes.
func (o *Optimizer) Events() []OptimizationEvent {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]OptimizationEvent, len(o.events))
	copy(out, o.events)
	return out
}

// Suggestion returns the last computed target config and the conditions it
// was derived from, regardless of mode — this is what SEMI_AUTO publishes
// for a human to review.
func (o *Optimizer) Suggestion() (MarketConditions, gabagool.Config) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastConditions, o.lastSuggestion
}
