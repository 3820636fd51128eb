package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testFillTrackerConfig() FillTrackerConfig {
	return FillTrackerConfig{
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		BackoffMult:    2.0,
		FillTimeout:    200 * time.Millisecond,
	}
}

func TestFillTracker_VerifyFills_MismatchedLengths(t *testing.T) {
	ft := NewFillTracker(NewFakeGateway(), zap.NewNop(), testFillTrackerConfig())

	_, err := ft.VerifyFills(context.Background(), []string{"o1", "o2"}, []string{"YES"}, []float64{10})
	require.Error(t, err)
}

func TestFillTracker_VerifyFills_AlreadyFilled(t *testing.T) {
	fg := NewFakeGateway()
	order, err := fg.PlaceLimitOrder(context.Background(), "tok-1", OrderBuy, 0.4, 10)
	require.NoError(t, err)

	ft := NewFillTracker(fg, zap.NewNop(), testFillTrackerConfig())

	statuses, err := ft.VerifyFills(context.Background(), []string{order.OrderID}, []string{"YES"}, []float64{10})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].FullyFilled)
	assert.Equal(t, 10.0, statuses[0].SizeFilled)
}

func TestFillTracker_VerifyFills_ConvergesAfterPartialFill(t *testing.T) {
	fg := NewFakeGateway()
	order, err := fg.PlaceLimitOrder(context.Background(), "tok-1", OrderBuy, 0.4, 10)
	require.NoError(t, err)
	fg.SetOrderFill(order.OrderID, "LIVE", 3)

	go func() {
		time.Sleep(15 * time.Millisecond)
		fg.SetOrderFill(order.OrderID, "FILLED", 10)
	}()

	ft := NewFillTracker(fg, zap.NewNop(), testFillTrackerConfig())

	statuses, err := ft.VerifyFills(context.Background(), []string{order.OrderID}, []string{"YES"}, []float64{10})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].FullyFilled)
}

func TestFillTracker_VerifyFills_TimesOutOnPersistentPartialFill(t *testing.T) {
	fg := NewFakeGateway()
	order, err := fg.PlaceLimitOrder(context.Background(), "tok-1", OrderBuy, 0.4, 10)
	require.NoError(t, err)
	fg.SetOrderFill(order.OrderID, "LIVE", 2)

	ft := NewFillTracker(fg, zap.NewNop(), testFillTrackerConfig())

	statuses, err := ft.VerifyFills(context.Background(), []string{order.OrderID}, []string{"YES"}, []float64{10})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].FullyFilled)
	assert.Error(t, statuses[0].Err)
}

func TestFillTracker_VerifyFills_ContextCancelled(t *testing.T) {
	fg := NewFakeGateway()
	order, err := fg.PlaceLimitOrder(context.Background(), "tok-1", OrderBuy, 0.4, 10)
	require.NoError(t, err)
	fg.SetOrderFill(order.OrderID, "LIVE", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ft := NewFillTracker(fg, zap.NewNop(), testFillTrackerConfig())

	_, err = ft.VerifyFills(ctx, []string{order.OrderID}, []string{"YES"}, []float64{10})
	require.Error(t, err)
}

func TestFillTracker_VerifyFills_UnknownOrderKeepsRetryingUntilTimeout(t *testing.T) {
	ft := NewFillTracker(NewFakeGateway(), zap.NewNop(), testFillTrackerConfig())

	statuses, err := ft.VerifyFills(context.Background(), []string{"never-placed"}, []string{"NO"}, []float64{5})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].FullyFilled)
}
