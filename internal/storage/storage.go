// Package storage persists closed trades off the trade manager's hot path.
package storage

import (
	"context"

	"github.com/polyhft/clob-engine/internal/trademanager"
)

// Persister is the storage side of trademanager.Persister: both
// implementations here satisfy it structurally so the trade manager never
// imports this package.
type Persister interface {
	SaveTrade(ctx context.Context, snap trademanager.Snapshot) error
	Close() error
}
