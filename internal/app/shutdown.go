package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application in dependency order:
// stop accepting new work (HTTP, scanner discovery) before tearing down the
// components that still hold open state (trade manager, storage).
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	a.optimizer.Stop()
	a.gabagool.Stop()
	a.scanner.Stop()
	a.trades.Stop()

	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Error("storage-close-error", zap.Error(err))
		}
	}

	if err := a.wsPool.Close(); err != nil {
		a.logger.Error("websocket-pool-close-error", zap.Error(err))
	}

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")
	return nil
}
