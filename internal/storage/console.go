package storage

import (
	"context"
	"fmt"

	"github.com/polyhft/clob-engine/internal/trademanager"
	"go.uber.org/zap"
)

// ConsoleStorage implements Persister by pretty-printing closed trades to
// console. Useful for paper trading and local debugging.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// SaveTrade pretty-prints a closed trade to console.
func (c *ConsoleStorage) SaveTrade(ctx context.Context, snap trademanager.Snapshot) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("TRADE CLOSED\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ID:       %s\n", snap.ID)
	fmt.Printf("Market:   %s\n", snap.MarketID)
	fmt.Printf("Side:     %s\n", snap.Side)
	fmt.Printf("Reason:   %s\n", snap.CloseReason)
	fmt.Printf("Opened:   %s\n", snap.OpenedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Closed:   %s\n", snap.ClosedAt.Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Entry Price:   %.4f\n", snap.EntryPrice)
	fmt.Printf("  Exit Price:    %.4f\n", snap.ExitPrice)
	fmt.Printf("  Size:          %.2f\n", snap.Size)
	fmt.Printf("  Realized PnL:  $%.2f\n", snap.RealizedPnL)
	if snap.RealizedPnL > 0 {
		fmt.Printf("  ✓ PROFITABLE\n")
	} else {
		fmt.Printf("  ✗ LOSS\n")
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
