package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("log-level", a.cfg.LogLevel),
		zap.Float64("gabagool-max-pair-cost", a.cfg.GabagoolMaxPairCost))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("ws-url", a.cfg.PolymarketWSURL))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give the HTTP server a moment to bind before the rest of the
	// pipeline starts issuing requests against it (health checks, etc).
	time.Sleep(100 * time.Millisecond)

	if err := a.wsPool.Start(); err != nil {
		return fmt.Errorf("start websocket pool: %w", err)
	}

	if err := a.scanner.Start(a.ctx); err != nil {
		return fmt.Errorf("start scanner: %w", err)
	}

	if err := a.gabagool.Start(a.ctx); err != nil {
		return fmt.Errorf("start gabagool engine: %w", err)
	}

	a.trades.Start(a.ctx)

	a.wg.Add(1)
	go a.runPriceFastPath()

	a.optimizer.Start(a.ctx)

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// runPriceFastPath feeds Market Cache publishes into the trade manager's
// event-driven exit check, so open trades react to a fresh quote well
// before the manager's 1s polling backstop would catch up. Market Cache
// updates are market-wide (both outcomes share one MarketData record), so
// both sides' best bid are offered; the polling backstop is authoritative
// for correctness, this path only trims latency. Once a second it also
// hands Gabagool's active markets to the scanner as its priority set.
func (a *App) runPriceFastPath() {
	defer a.wg.Done()

	updates := a.cache.Subscribe()
	priorityTick := time.NewTicker(time.Second)
	defer priorityTick.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-priorityTick.C:
			a.scanner.SetPriorityMarkets(a.gabagool.ActiveMarkets())
		case data, ok := <-updates:
			if !ok {
				return
			}
			if data.Market == nil {
				continue
			}
			if data.BestBidYes != nil {
				a.trades.OnPriceUpdate(data.Market.ID, *data.BestBidYes)
			}
			if data.BestBidNo != nil {
				a.trades.OnPriceUpdate(data.Market.ID, *data.BestBidNo)
			}
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
