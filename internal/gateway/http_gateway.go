package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/polyhft/clob-engine/pkg/types"
	"github.com/polyhft/clob-engine/pkg/websocket"
	"go.uber.org/zap"
)

// HTTPConfig configures HTTPGateway.
type HTTPConfig struct {
	GammaURL    string
	CLOBURL     string
	WSPool      *websocket.Pool
	Logger      *zap.Logger
	Timeouts    Timeouts
	MaxRetries  int
}

// HTTPGateway talks to the real Polymarket Gamma/CLOB REST APIs and reuses
// the pooled WebSocket manager for streaming. It holds no per-market
// business state, per the "polymorphic gateway" design note: it only
// translates calls and classifies failures.
type HTTPGateway struct {
	gammaURL   string
	clobURL    string
	httpClient *http.Client
	wsPool     *websocket.Pool
	logger     *zap.Logger
	maxRetries int
}

// NewHTTPGateway creates a gateway backed by real HTTP/WS endpoints.
func NewHTTPGateway(cfg HTTPConfig) *HTTPGateway {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &HTTPGateway{
		gammaURL: cfg.GammaURL,
		clobURL:  cfg.CLOBURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeouts.Read,
		},
		wsPool:     cfg.WSPool,
		logger:     cfg.Logger,
		maxRetries: maxRetries,
	}
}

// ListMarkets searches the Gamma API by keyword, mirroring
// discovery.Client.FetchActiveMarkets's query-building but filtered to a
// keyword set instead of sorted-by-volume discovery.
func (g *HTTPGateway) ListMarkets(ctx context.Context, query string, limit int) ([]*types.Market, error) {
	endpoint := fmt.Sprintf("%s/markets", g.gammaURL)

	params := url.Values{}
	params.Add("closed", "false")
	params.Add("active", "true")
	params.Add("limit", strconv.Itoa(limit))
	if query != "" {
		params.Add("keyword", query)
	}

	body, err := g.doGet(ctx, fmt.Sprintf("%s?%s", endpoint, params.Encode()))
	if err != nil {
		return nil, err
	}

	var markets []types.Market
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("decode markets: %w", err)}
	}

	out := make([]*types.Market, len(markets))
	for i := range markets {
		out[i] = &markets[i]
	}
	return out, nil
}

// GetMarket fetches one market by condition ID. A 404 is not an error:
// it returns (nil, nil).
func (g *HTTPGateway) GetMarket(ctx context.Context, conditionID string) (*types.Market, error) {
	endpoint := fmt.Sprintf("%s/markets/%s", g.gammaURL, url.PathEscape(conditionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: classifyStatus(resp.StatusCode), StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", string(body))}
	}

	var market types.Market
	if err := json.Unmarshal(body, &market); err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("decode market: %w", err)}
	}

	return &market, nil
}

// GetOrderBook fetches the top of book for a token from the CLOB REST API.
func (g *HTTPGateway) GetOrderBook(ctx context.Context, tokenID string) (bid, ask *types.BookTop, err error) {
	endpoint := fmt.Sprintf("%s/book?token_id=%s", g.clobURL, url.QueryEscape(tokenID))

	body, err := g.doGet(ctx, endpoint)
	if err != nil {
		return nil, nil, err
	}

	var raw struct {
		Bids []types.PriceLevel `json:"bids"`
		Asks []types.PriceLevel `json:"asks"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, &Error{Kind: KindTransport, Err: fmt.Errorf("decode book: %w", err)}
	}

	if len(raw.Bids) > 0 {
		bid, err = toBookTop(raw.Bids[0])
		if err != nil {
			return nil, nil, &Error{Kind: KindTransport, Err: err}
		}
	}
	if len(raw.Asks) > 0 {
		ask, err = toBookTop(raw.Asks[0])
		if err != nil {
			return nil, nil, &Error{Kind: KindTransport, Err: err}
		}
	}

	return bid, ask, nil
}

func toBookTop(level types.PriceLevel) (*types.BookTop, error) {
	price, err := strconv.ParseFloat(level.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	size, err := strconv.ParseFloat(level.Size, 64)
	if err != nil {
		return nil, fmt.Errorf("parse size: %w", err)
	}
	return &types.BookTop{Price: price, Size: size}, nil
}

// Subscribe opens the pooled WebSocket subscription and dispatches parsed
// book/price_change messages to the supplied handlers. A single dispatcher
// goroutine drains the pool's multiplexed channel for the lifetime of ctx.
func (g *HTTPGateway) Subscribe(ctx context.Context, tokenIDs []string, onPrice PriceHandler, onBook BookHandler) error {
	if err := g.wsPool.Subscribe(ctx, tokenIDs); err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}

	go func() {
		msgChan := g.wsPool.MessageChan()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					return
				}
				dispatchMessage(msg, onPrice, onBook)
			}
		}
	}()

	return nil
}

func dispatchMessage(msg *types.OrderbookMessage, onPrice PriceHandler, onBook BookHandler) {
	switch msg.EventType {
	case "book":
		bids := levelsToTops(msg.Bids)
		asks := levelsToTops(msg.Asks)
		if onBook != nil {
			onBook(msg.AssetID, bids, asks)
		}
		if onPrice != nil && len(asks) > 0 {
			onPrice(msg.AssetID, asks[0].Price)
		}
	case "price_change":
		asks := levelsToTops(msg.Asks)
		if onPrice != nil && len(asks) > 0 {
			onPrice(msg.AssetID, asks[0].Price)
		}
		if onBook != nil {
			onBook(msg.AssetID, levelsToTops(msg.Bids), asks)
		}
	}
}

func levelsToTops(levels []types.PriceLevel) []types.BookTop {
	tops := make([]types.BookTop, 0, len(levels))
	for _, l := range levels {
		top, err := toBookTop(l)
		if err != nil {
			continue
		}
		tops = append(tops, *top)
	}
	return tops
}

// PlaceLimitOrder is intentionally unimplemented for real trading: signing
// and wallet custody are out of scope for the core (spec.md §1 Open
// Question). Callers that need to place real orders supply their own
// Gateway implementation wrapping the signing dependency; HTTPGateway only
// demonstrates the read-side REST/WS contract.
func (g *HTTPGateway) PlaceLimitOrder(ctx context.Context, tokenID string, side OrderSide, price, size float64) (*PlacedOrder, error) {
	return nil, &Error{Kind: KindAuth, Err: fmt.Errorf("order placement requires a signing-capable Gateway implementation")}
}

func (g *HTTPGateway) CancelOrder(ctx context.Context, orderID string) error {
	return &Error{Kind: KindAuth, Err: fmt.Errorf("order cancellation requires a signing-capable Gateway implementation")}
}

func (g *HTTPGateway) CancelAll(ctx context.Context) error {
	return &Error{Kind: KindAuth, Err: fmt.Errorf("order cancellation requires a signing-capable Gateway implementation")}
}

// GetOrder is intentionally unimplemented for the same reason as
// PlaceLimitOrder: GET /order requires the same L2 API-key auth headers as
// the write endpoints, which HTTPGateway does not hold.
func (g *HTTPGateway) GetOrder(ctx context.Context, orderID string) (*OrderStatus, error) {
	return nil, &Error{Kind: KindAuth, Err: fmt.Errorf("order status lookup requires a signing-capable Gateway implementation")}
}

// doGet performs a GET with linear-backoff retry on Transport/Status5xx
// failures, mirroring markets.MetadataClient's retry policy.
func (g *HTTPGateway) doGet(ctx context.Context, requestURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, &Error{Kind: KindTransport, Err: ctx.Err()}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, &Error{Kind: KindTransport, Err: err}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			lastErr = &Error{Kind: KindTransport, Err: err}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = &Error{Kind: KindTransport, Err: err}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		gwErr := &Error{Kind: classifyStatus(resp.StatusCode), StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", string(body))}
		if !gwErr.Retryable() {
			return nil, gwErr
		}
		lastErr = gwErr
	}

	return nil, lastErr
}
