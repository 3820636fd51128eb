package marketcache

import (
	"testing"
	"time"

	"github.com/polyhft/clob-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMarket(id string) *types.Market {
	return &types.Market{
		ID:          id,
		ConditionID: "cond-" + id,
		Question:    "test question",
		Active:      true,
		Tokens: []types.Token{
			{TokenID: id + "-yes", Outcome: "Yes"},
			{TokenID: id + "-no", Outcome: "No"},
		},
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestCache_UpsertCreatesRecord(t *testing.T) {
	c := New(Config{})
	snapshot := c.Upsert(testMarket("m1"))

	require.NotNil(t, snapshot)
	assert.Equal(t, "m1", snapshot.Market.ID)
	assert.False(t, snapshot.IsValid)
	assert.Equal(t, 1, c.Len())
}

func TestCache_TokenRefResolvesAfterUpsert(t *testing.T) {
	c := New(Config{})
	c.Upsert(testMarket("m1"))

	ref, ok := c.TokenRef("m1-yes")
	require.True(t, ok)
	assert.Equal(t, "m1", ref.MarketID)
	assert.Equal(t, types.SideYes, ref.Side)

	ref, ok = c.TokenRef("m1-no")
	require.True(t, ok)
	assert.Equal(t, types.SideNo, ref.Side)
}

func TestCache_UpdateTop_BecomesValidOnceYesSideComplete(t *testing.T) {
	c := New(Config{})
	c.Upsert(testMarket("m1"))

	c.UpdateTop("m1-yes", floatPtr(0.40), floatPtr(0.45), "rest")

	data, ok := c.Get("m1")
	require.True(t, ok)
	assert.True(t, data.IsValid)
	require.NotNil(t, data.SpreadYes)
	assert.InDelta(t, 0.05, *data.SpreadYes, 1e-9)
	assert.Nil(t, data.SpreadNo)
}

func TestCache_UpdateTop_UnknownTokenIsNoop(t *testing.T) {
	c := New(Config{})
	c.Upsert(testMarket("m1"))

	c.UpdateTop("does-not-exist", floatPtr(0.4), floatPtr(0.45), "ws")

	data, ok := c.Get("m1")
	require.True(t, ok)
	assert.False(t, data.IsValid)
}

func TestCache_Remove_ClearsTokenIndex(t *testing.T) {
	c := New(Config{})
	c.Upsert(testMarket("m1"))
	c.Remove("m1")

	_, ok := c.Get("m1")
	assert.False(t, ok)

	_, ok = c.TokenRef("m1-yes")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Valid_OnlyReturnsValidMarkets(t *testing.T) {
	c := New(Config{})
	c.Upsert(testMarket("m1"))
	c.Upsert(testMarket("m2"))

	c.UpdateTop("m1-yes", floatPtr(0.4), floatPtr(0.45), "rest")

	valid := c.Valid()
	require.Len(t, valid, 1)
	assert.Equal(t, "m1", valid[0].Market.ID)
}

func TestCache_Subscribe_ReceivesPublishedUpdates(t *testing.T) {
	c := New(Config{SubscriberBufferSize: 4})
	ch := c.Subscribe()

	c.Upsert(testMarket("m1"))

	select {
	case data := <-ch:
		assert.Equal(t, "m1", data.Market.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a publish within 1s")
	}
}

func TestCache_Get_ReturnsClone(t *testing.T) {
	c := New(Config{})
	c.Upsert(testMarket("m1"))

	first, _ := c.Get("m1")
	c.UpdateTop("m1-yes", floatPtr(0.4), floatPtr(0.45), "rest")
	second, _ := c.Get("m1")

	assert.Nil(t, first.BestBidYes)
	require.NotNil(t, second.BestBidYes)
	assert.InDelta(t, 0.4, *second.BestBidYes, 1e-9)
}
