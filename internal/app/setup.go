package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polyhft/clob-engine/internal/analyzer"
	"github.com/polyhft/clob-engine/internal/circuitbreaker"
	"github.com/polyhft/clob-engine/internal/control"
	"github.com/polyhft/clob-engine/internal/gabagool"
	"github.com/polyhft/clob-engine/internal/gateway"
	"github.com/polyhft/clob-engine/internal/marketcache"
	"github.com/polyhft/clob-engine/internal/optimizer"
	"github.com/polyhft/clob-engine/internal/scanner"
	"github.com/polyhft/clob-engine/internal/storage"
	"github.com/polyhft/clob-engine/internal/trademanager"
	"github.com/polyhft/clob-engine/pkg/config"
	"github.com/polyhft/clob-engine/pkg/healthprobe"
	"github.com/polyhft/clob-engine/pkg/httpserver"
	"github.com/polyhft/clob-engine/pkg/wallet"
	"github.com/polyhft/clob-engine/pkg/websocket"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	wsPool := setupWebSocketPool(cfg, logger)
	gw := setupGateway(cfg, logger, wsPool)
	marketCache := setupMarketCache(logger)

	sc := setupScanner(cfg, logger, gw, marketCache, opts)
	an := setupAnalyzer()
	gb := setupGabagoolEngine(cfg, logger, gw, marketCache)

	persister, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	breaker, err := setupCircuitBreaker(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}
	if breaker != nil {
		gb.SetBreaker(breaker)
	}
	gb.SetFillVerifier(gateway.NewFillTracker(gw, logger, gateway.DefaultFillTrackerConfig()))

	tm := setupTradeManager(gw, persister, breaker, logger)
	opt, err := setupOptimizer(cfg, logger, gb, marketCache, sc)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup optimizer: %w", err)
	}

	ctl := setupController(gw, marketCache, sc, an, gb, tm, opt, breaker, logger)

	httpServer := setupHTTPServer(cfg, logger, healthChecker, marketCache, ctl)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		wsPool:        wsPool,
		gateway:       gw,
		cache:         marketCache,
		scanner:       sc,
		analyzer:      an,
		gabagool:      gb,
		trades:        tm,
		optimizer:     opt,
		breaker:       breaker,
		storage:       persister,
		control:       ctl,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	cache *marketcache.Cache,
	ctl *control.Controller,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Cache:         cache,
		Controller:    ctl,
	})
}

func setupWebSocketPool(cfg *config.Config, logger *zap.Logger) *websocket.Pool {
	return websocket.NewPool(websocket.PoolConfig{
		Size:                  cfg.WSPoolSize,
		WSUrl:                 cfg.PolymarketWSURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		MessageBufferSize:     cfg.WSMessageBufferSize,
		Logger:                logger,
	})
}

func setupGateway(cfg *config.Config, logger *zap.Logger, wsPool *websocket.Pool) gateway.Gateway {
	return gateway.NewHTTPGateway(gateway.HTTPConfig{
		GammaURL: cfg.PolymarketGammaURL,
		CLOBURL:  cfg.PolymarketCLOBURL,
		WSPool:   wsPool,
		Logger:   logger,
		Timeouts: gateway.Timeouts{
			Connect:  cfg.GatewayConnectTimeout,
			Read:     cfg.GatewayReadTimeout,
			Write:    cfg.GatewayWriteTimeout,
			PoolWait: cfg.GatewayPoolWaitTimeout,
		},
		MaxRetries: cfg.GatewayMaxRetries,
	})
}

func setupMarketCache(logger *zap.Logger) *marketcache.Cache {
	return marketcache.New(marketcache.Config{Logger: logger})
}

func setupScanner(cfg *config.Config, logger *zap.Logger, gw gateway.Gateway, mc *marketcache.Cache, opts *Options) *scanner.Scanner {
	keywords := cfg.ScannerKeywords
	if opts.SingleMarket != "" {
		keywords = []string{opts.SingleMarket}
	}

	return scanner.New(gw, mc, scanner.Config{
		Keywords:             keywords,
		DiscoveryInterval:    cfg.ScannerDiscoveryInterval,
		ScanInterval:         cfg.ScannerScanInterval,
		MaxConcurrentFetches: cfg.ScannerMaxConcurrentFetches,
		MarketLimit:          cfg.ScannerMarketLimit,
		OrderbookTTL:         cfg.ScannerOrderbookTTL,
		Logger:               logger,
	})
}

func setupAnalyzer() *analyzer.Analyzer {
	return analyzer.New()
}

func setupGabagoolEngine(cfg *config.Config, logger *zap.Logger, gw gateway.Gateway, mc *marketcache.Cache) *gabagool.Engine {
	gCfg := gabagool.DefaultConfig()
	gCfg.MaxPairCost = cfg.GabagoolMaxPairCost
	gCfg.MinImprovement = cfg.GabagoolMinImprovement
	gCfg.OrderSizeUSD = cfg.GabagoolOrderSizeUSD
	gCfg.MaxPositionUSD = cfg.GabagoolMaxPositionUSD
	gCfg.FirstBuyThreshold = cfg.GabagoolFirstBuyThreshold
	gCfg.RefreshInterval = cfg.GabagoolRefreshInterval

	return gabagool.NewEngine(gw, mc, gCfg, logger)
}

func setupTradeManager(gw gateway.Gateway, persister storage.Persister, breaker *circuitbreaker.BalanceCircuitBreaker, logger *zap.Logger) *trademanager.Manager {
	tmCfg := trademanager.Config{
		Gateway: gw,
		Logger:  logger,
	}
	if persister != nil {
		tmCfg.Persister = persister
	}
	if breaker != nil {
		tmCfg.Breaker = breaker
	}
	return trademanager.New(tmCfg)
}

func setupOptimizer(cfg *config.Config, logger *zap.Logger, gb *gabagool.Engine, mc *marketcache.Cache, sc *scanner.Scanner) (*optimizer.Optimizer, error) {
	var feed optimizer.VolatilityFeed
	if cfg.OptimizerVolatilityFeedURL != "" {
		feed = optimizer.NewHTTPVolatilityFeed(cfg.OptimizerVolatilityFeedURL)
	}

	opt := optimizer.New(optimizer.Config{
		Engine:         gb,
		Cache:          mc,
		VolatilityFeed: feed,
		WSConnected:    func() bool { return sc.State() == scanner.StateRunning },
		Logger:         logger,
	})

	switch cfg.OptimizerInitialMode {
	case "FULL_AUTO":
		opt.SetMode(optimizer.ModeFullAuto)
	case "SEMI_AUTO":
		opt.SetMode(optimizer.ModeSemiAuto)
	default:
		opt.SetMode(optimizer.ModeManual)
	}

	return opt, nil
}

func setupController(
	gw gateway.Gateway,
	mc *marketcache.Cache,
	sc *scanner.Scanner,
	an *analyzer.Analyzer,
	gb *gabagool.Engine,
	tm *trademanager.Manager,
	opt *optimizer.Optimizer,
	breaker *circuitbreaker.BalanceCircuitBreaker,
	logger *zap.Logger,
) *control.Controller {
	ctlCfg := control.Config{
		Gateway:   gw,
		Cache:     mc,
		Scanner:   sc,
		Analyzer:  an,
		Gabagool:  gb,
		Trades:    tm,
		Optimizer: opt,
		Logger:    logger,
	}
	if breaker != nil {
		ctlCfg.Breaker = breaker
	}
	return control.New(ctlCfg)
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Persister, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

// setupCircuitBreaker wires the balance circuit breaker from
// POLYMARKET_PRIVATE_KEY/POLYGON_RPC_URL when enabled, gating both the
// Gabagool engine and the trade manager's entries. A missing/invalid key
// disables the breaker with a warning rather than failing startup, matching
// the teacher's original fail-open posture for this optional safety net.
func setupCircuitBreaker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*circuitbreaker.BalanceCircuitBreaker, error) {
	if !cfg.CircuitBreakerEnabled {
		return nil, nil
	}

	privateKeyHex := os.Getenv("POLYMARKET_PRIVATE_KEY")
	if privateKeyHex == "" {
		logger.Warn("circuit-breaker-disabled-no-private-key",
			zap.String("note", "POLYMARKET_PRIVATE_KEY not set, circuit breaker disabled"))
		return nil, nil
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		logger.Warn("circuit-breaker-disabled-invalid-key", zap.Error(err))
		return nil, nil
	}

	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		logger.Warn("circuit-breaker-disabled-key-cast-failed")
		return nil, nil
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA)

	rpcURL := os.Getenv("POLYGON_RPC_URL")
	if rpcURL == "" {
		rpcURL = "https://polygon-rpc.com"
	}

	walletClient, err := wallet.NewClient(rpcURL, logger)
	if err != nil {
		logger.Warn("circuit-breaker-disabled-wallet-client-failed", zap.Error(err))
		return nil, nil
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.CircuitBreakerCheckInterval,
		TradeMultiplier: cfg.CircuitBreakerTradeMultiplier,
		MinAbsolute:     cfg.CircuitBreakerMinAbsolute,
		HysteresisRatio: cfg.CircuitBreakerHysteresisRatio,
		WalletClient:    walletClient,
		Address:         address,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create circuit breaker: %w", err)
	}

	breaker.Start(ctx)

	logger.Info("circuit-breaker-enabled",
		zap.Duration("check_interval", cfg.CircuitBreakerCheckInterval),
		zap.Float64("trade_multiplier", cfg.CircuitBreakerTradeMultiplier),
		zap.Float64("min_absolute", cfg.CircuitBreakerMinAbsolute),
		zap.Float64("hysteresis_ratio", cfg.CircuitBreakerHysteresisRatio))

	return breaker, nil
}
