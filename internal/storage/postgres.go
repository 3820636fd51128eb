package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/polyhft/clob-engine/internal/trademanager"
	"go.uber.org/zap"
)

// PostgresStorage implements Persister using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// SaveTrade stores a closed trade in PostgreSQL.
func (p *PostgresStorage) SaveTrade(ctx context.Context, snap trademanager.Snapshot) error {
	query := `
		INSERT INTO trades (
			id, market_id, token_id, side, entry_price, size,
			exit_price, realized_pnl, opened_at, closed_at, close_reason,
			stop_loss, take_profit, trailing_stop_pct, max_duration_secs
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		snap.ID,
		snap.MarketID,
		snap.TokenID,
		string(snap.Side),
		snap.EntryPrice,
		snap.Size,
		snap.ExitPrice,
		snap.RealizedPnL,
		snap.OpenedAt,
		snap.ClosedAt,
		string(snap.CloseReason),
		snap.StopLoss,
		snap.TakeProfit,
		snap.TrailingStopPct,
		snap.MaxDurationSecs,
	)

	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}

	p.logger.Debug("trade-persisted",
		zap.String("trade-id", snap.ID),
		zap.String("market-id", snap.MarketID),
		zap.Float64("realized-pnl", snap.RealizedPnL))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
