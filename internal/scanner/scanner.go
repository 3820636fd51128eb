// Package scanner discovers markets, refreshes orderbooks with bounded
// concurrency and priority, and merges WebSocket updates into the Market
// Cache.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polyhft/clob-engine/internal/gateway"
	"github.com/polyhft/clob-engine/internal/marketcache"
	"github.com/polyhft/clob-engine/pkg/cache"
	"go.uber.org/zap"
)

// State is the scanner's lifecycle state.
type State string

const (
	StateStopped  State = "STOPPED"
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
	StatePaused   State = "PAUSED"
	StateError    State = "ERROR"
)

// Config configures a Scanner.
type Config struct {
	// Keywords is the configured keyword set queried on each discovery cycle.
	Keywords []string

	// DiscoveryInterval is markets_refresh_interval (default 60s).
	DiscoveryInterval time.Duration

	// ScanInterval is the orderbook refresh cadence (default 1s).
	ScanInterval time.Duration

	// MaxConcurrentFetches bounds parallel orderbook fetches (default 20).
	MaxConcurrentFetches int

	// MarketLimit bounds how many markets one discovery query returns.
	MarketLimit int

	// EvictionBatchSize bounds how many already-known markets are
	// re-resolved via GetMarket for an Active-status recheck on each
	// discovery cycle (default 50). ListMarkets's active=true filter never
	// reports a market falling inactive once it has dropped out of the
	// result set, so this is the only path that catches it.
	EvictionBatchSize int

	// OrderbookTTL is the TTL cache window sitting in front of the gateway
	// (default 500ms).
	OrderbookTTL time.Duration

	Logger *zap.Logger
}

func (c *Config) setDefaults() {
	if c.DiscoveryInterval <= 0 {
		c.DiscoveryInterval = 60 * time.Second
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = time.Second
	}
	if c.MaxConcurrentFetches <= 0 {
		c.MaxConcurrentFetches = 20
	}
	if c.MarketLimit <= 0 {
		c.MarketLimit = 500
	}
	if c.EvictionBatchSize <= 0 {
		c.EvictionBatchSize = 50
	}
	if c.OrderbookTTL <= 0 {
		c.OrderbookTTL = marketcache.DefaultOrderbookTTL
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Scanner is the C3 component: discovery, bounded-concurrency orderbook
// refresh with priority, and WS ingestion merged into the Market Cache.
type Scanner struct {
	gw    gateway.Gateway
	cache *marketcache.Cache
	cfg   Config

	bookTTL *marketcache.OrderbookTTLCache

	mu               sync.RWMutex
	state            State
	knownMarketIDs   map[string]struct{}
	priorityMarketID map[string]struct{}
	subscribedTokens map[string]struct{}

	consecutiveErrors int
	cycleEMA          float64 // seconds, alpha=0.1

	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *zap.Logger
}

// New creates a Scanner bound to a gateway and a Market Cache.
func New(gw gateway.Gateway, mc *marketcache.Cache, cfg Config) *Scanner {
	cfg.setDefaults()

	ristrettoCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
		Logger:      cfg.Logger,
	})
	if err != nil {
		// Ristretto config is static and small; a construction failure here
		// means a programming error, not a runtime condition.
		panic(fmt.Sprintf("scanner: failed to construct orderbook TTL cache: %v", err))
	}

	return &Scanner{
		gw:               gw,
		cache:            mc,
		cfg:              cfg,
		bookTTL:          marketcache.NewOrderbookTTLCache(ristrettoCache, cfg.OrderbookTTL),
		state:            StateStopped,
		knownMarketIDs:   make(map[string]struct{}),
		priorityMarketID: make(map[string]struct{}),
		subscribedTokens: make(map[string]struct{}),
		logger:           cfg.Logger,
	}
}

// State returns the scanner's current lifecycle state.
func (s *Scanner) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetPriorityMarkets replaces the set of market IDs refreshed first each
// cycle.
func (s *Scanner) SetPriorityMarkets(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priorityMarketID = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.priorityMarketID[id] = struct{}{}
	}
}

// Start transitions STOPPED -> STARTING -> RUNNING and launches the
// discovery and refresh loops. An initial discovery pass runs synchronously
// so Start returns only once the first batch of markets is known; a fatal
// gateway failure (Auth) at this point is reported and the scanner refuses
// to start.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return fmt.Errorf("scanner: cannot start from state %s", s.state)
	}
	s.state = StateStarting
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if err := s.discoverOnce(runCtx); err != nil {
		var gwErr *gateway.Error
		if isAuthError(err, &gwErr) {
			s.mu.Lock()
			s.state = StateError
			s.mu.Unlock()
			cancel()
			return fmt.Errorf("scanner: fatal gateway auth failure on startup: %w", err)
		}
		s.logger.Warn("scanner-initial-discovery-failed", zap.Error(err))
	}

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()

	s.wg.Add(2)
	go s.discoveryLoop(runCtx)
	go s.refreshLoop(runCtx)

	s.logger.Info("scanner-started",
		zap.Duration("discovery-interval", s.cfg.DiscoveryInterval),
		zap.Duration("scan-interval", s.cfg.ScanInterval))

	return nil
}

func isAuthError(err error, target **gateway.Error) bool {
	gwErr, ok := err.(*gateway.Error)
	if !ok {
		return false
	}
	*target = gwErr
	return gwErr.Kind == gateway.KindAuth
}

// Pause suspends orderbook refresh while leaving the WebSocket ingestion
// goroutine active.
func (s *Scanner) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return fmt.Errorf("scanner: cannot pause from state %s", s.state)
	}
	s.state = StatePaused
	return nil
}

// Resume returns the scanner from PAUSED to RUNNING.
func (s *Scanner) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return fmt.Errorf("scanner: cannot resume from state %s", s.state)
	}
	s.state = StateRunning
	return nil
}

// Stop cancels both loops and awaits their graceful termination.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	s.logger.Info("scanner-stopped")
}

func (s *Scanner) isPaused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StatePaused
}
