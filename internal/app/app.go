package app

import (
	"context"
	"sync"

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
	"github.com/polyhft/clob-engine/pkg/websocket"
	"go.uber.org/zap"
)

// App is the main application orchestrator: it wires the gateway, Market
// Cache, scanner, analyzer, Gabagool engine, trade manager, auto-optimizer
// and control plane into one process and owns their lifecycle.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	wsPool  *websocket.Pool
	gateway gateway.Gateway
	cache   *marketcache.Cache

	scanner   *scanner.Scanner
	analyzer  *analyzer.Analyzer
	gabagool  *gabagool.Engine
	trades    *trademanager.Manager
	optimizer *optimizer.Optimizer
	breaker   *circuitbreaker.BalanceCircuitBreaker
	storage   storage.Persister
	control   *control.Controller

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	SingleMarket string // For debugging: slug of single market to track
}
