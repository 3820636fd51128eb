package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// FillStatus is the verification outcome for a single order, as tracked by
// FillTracker across repeated GetOrder polls.
type FillStatus struct {
	OrderID      string
	Outcome      string
	OriginalSize float64
	Status       string
	SizeFilled   float64
	ActualPrice  float64
	FullyFilled  bool
	VerifiedAt   time.Time
	Err          error
}

// FillTracker verifies order fills with exponential backoff, polling
// Gateway.GetOrder until every order is fully filled or fillTimeout elapses.
type FillTracker struct {
	gw             Gateway
	logger         *zap.Logger
	initialBackoff time.Duration
	maxBackoff     time.Duration
	backoffMult    float64
	fillTimeout    time.Duration
}

// FillTrackerConfig configures a FillTracker's polling schedule.
type FillTrackerConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffMult    float64
	FillTimeout    time.Duration
}

// DefaultFillTrackerConfig matches the cadence a single limit order clears
// at on a liquid CLOB market: start fast, back off quickly, give up after 30s.
func DefaultFillTrackerConfig() FillTrackerConfig {
	return FillTrackerConfig{
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffMult:    2.0,
		FillTimeout:    30 * time.Second,
	}
}

// NewFillTracker builds a tracker that polls gw.GetOrder.
func NewFillTracker(gw Gateway, logger *zap.Logger, cfg FillTrackerConfig) *FillTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FillTracker{
		gw:             gw,
		logger:         logger,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		backoffMult:    cfg.BackoffMult,
		fillTimeout:    cfg.FillTimeout,
	}
}

// VerifyFills polls until every order is fully filled (within a small
// floating-point tolerance) or fillTimeout elapses, whichever comes first.
// A context cancellation returns the partial results alongside ctx.Err().
func (ft *FillTracker) VerifyFills(
	ctx context.Context,
	orderIDs []string,
	outcomes []string,
	expectedSizes []float64,
) ([]FillStatus, error) {
	if len(orderIDs) != len(outcomes) || len(orderIDs) != len(expectedSizes) {
		return nil, fmt.Errorf("mismatched lengths: %d orderIDs, %d outcomes, %d sizes",
			len(orderIDs), len(outcomes), len(expectedSizes))
	}

	startTime := time.Now()
	timeout := time.NewTimer(ft.fillTimeout)
	defer timeout.Stop()

	fillStatuses := make([]FillStatus, len(orderIDs))
	for i := range fillStatuses {
		fillStatuses[i] = FillStatus{
			OrderID:      orderIDs[i],
			Outcome:      outcomes[i],
			OriginalSize: expectedSizes[i],
		}
	}

	const tolerance = 0.001
	backoff := ft.initialBackoff
	attempt := 1

	for {
		allFilled := true
		for i := range fillStatuses {
			if fillStatuses[i].FullyFilled {
				continue
			}

			orderStatus, err := ft.gw.GetOrder(ctx, orderIDs[i])
			if err != nil {
				ft.logger.Warn("order-query-failed-retrying",
					zap.String("order_id", orderIDs[i]), zap.Error(err), zap.Int("attempt", attempt))
				allFilled = false
				continue
			}

			fillStatuses[i].Status = orderStatus.Status
			fillStatuses[i].SizeFilled = orderStatus.SizeFilled
			fillStatuses[i].ActualPrice = orderStatus.Price
			fillStatuses[i].VerifiedAt = time.Now()

			if orderStatus.SizeFilled >= orderStatus.Size-tolerance {
				fillStatuses[i].FullyFilled = true
				ft.logger.Info("order-fully-filled",
					zap.String("order_id", orderIDs[i]), zap.String("outcome", outcomes[i]),
					zap.Float64("size_filled", orderStatus.SizeFilled), zap.Float64("actual_price", orderStatus.Price),
					zap.Duration("duration", time.Since(startTime)))
			} else {
				allFilled = false
			}
		}

		if allFilled {
			ft.logger.Info("all-orders-fully-filled",
				zap.Int("order_count", len(orderIDs)), zap.Duration("total_duration", time.Since(startTime)),
				zap.Int("attempts", attempt))
			return fillStatuses, nil
		}

		select {
		case <-timeout.C:
			ft.logger.Warn("fill-verification-timeout",
				zap.Int("order_count", len(orderIDs)), zap.Duration("timeout", ft.fillTimeout), zap.Int("attempts", attempt))
			for i := range fillStatuses {
				if !fillStatuses[i].FullyFilled {
					fillStatuses[i].Err = fmt.Errorf("fill verification timeout after %s", ft.fillTimeout)
				}
			}
			return fillStatuses, nil

		case <-ctx.Done():
			return fillStatuses, ctx.Err()

		case <-time.After(backoff):
			attempt++
			backoff = time.Duration(float64(backoff) * ft.backoffMult)
			if backoff > ft.maxBackoff {
				backoff = ft.maxBackoff
			}
		}
	}
}
