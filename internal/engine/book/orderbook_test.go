package book

import (
	"testing"

	"github.com/stretchr/testify/require"

	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
	"github.com/abdoElHodaky/tradSys/internal/engine/types"
)

func newTestOrder(id string, side types.OrderSide, price, qty string) *types.Order {
	p, _ := dec.NewFromString(price)
	q, _ := dec.NewFromString(qty)
	return &types.Order{
		OrderID:           id,
		Symbol:            "BTC-USDT",
		Side:              side,
		Type:              types.TypeLimit,
		TimeInForce:       types.TIFGTC,
		Price:             p,
		Quantity:          q,
		RemainingQuantity: q,
		Status:            types.StatusNew,
	}
}

func TestOrderBook_BestBidAsk(t *testing.T) {
	ob := New("BTC-USDT")
	_, ok := ob.BestBid()
	require.False(t, ok)

	ob.Insert(newTestOrder("b1", types.SideBuy, "100", "1"))
	ob.Insert(newTestOrder("b2", types.SideBuy, "101", "1"))
	ob.Insert(newTestOrder("a1", types.SideSell, "105", "1"))
	ob.Insert(newTestOrder("a2", types.SideSell, "104", "1"))

	bid, ok := ob.BestBid()
	require.True(t, ok)
	require.True(t, bid.Equal(dec.NewFromInt(101)))

	ask, ok := ob.BestAsk()
	require.True(t, ok)
	require.True(t, ask.Equal(dec.NewFromInt(104)))
}

func TestOrderBook_PriceTimePriority(t *testing.T) {
	ob := New("BTC-USDT")
	ob.Insert(newTestOrder("first", types.SideBuy, "100", "1"))
	ob.Insert(newTestOrder("second", types.SideBuy, "100", "1"))

	head := ob.HeadOf(types.SideBuy, dec.NewFromInt(100))
	require.Equal(t, "first", head.OrderID)
}

func TestOrderBook_CancelRemovesLevelWhenEmpty(t *testing.T) {
	ob := New("BTC-USDT")
	ob.Insert(newTestOrder("only", types.SideBuy, "100", "1"))

	order, err := ob.Cancel("only")
	require.NoError(t, err)
	require.Equal(t, "only", order.OrderID)

	_, ok := ob.BestBid()
	require.False(t, ok)

	_, err = ob.Cancel("only")
	require.Error(t, err)
}

func TestOrderBook_AvailableQuantityStopsAtNonCrossable(t *testing.T) {
	ob := New("BTC-USDT")
	ob.Insert(newTestOrder("a1", types.SideSell, "100", "2"))
	ob.Insert(newTestOrder("a2", types.SideSell, "101", "3"))
	ob.Insert(newTestOrder("a3", types.SideSell, "102", "5"))

	limit := dec.NewFromInt(101)
	available := ob.AvailableQuantity(types.SideSell, func(price dec.Decimal) bool {
		return price.LessThanOrEqual(limit)
	}, dec.NewFromInt(100))

	require.True(t, available.Equal(dec.NewFromInt(5)), "expected 2+3=5, got %s", available)
}

func TestOrderBook_RestingOrdersDeterministicOrder(t *testing.T) {
	ob := New("BTC-USDT")
	ob.Insert(newTestOrder("b-low", types.SideBuy, "100", "1"))
	ob.Insert(newTestOrder("b-high", types.SideBuy, "101", "1"))
	ob.Insert(newTestOrder("a-low", types.SideSell, "105", "1"))
	ob.Insert(newTestOrder("a-high", types.SideSell, "106", "1"))

	orders := ob.RestingOrders()
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.OrderID
	}
	require.Equal(t, []string{"b-high", "b-low", "a-low", "a-high"}, ids)
}

func TestOrderBook_RestoreRoundTrips(t *testing.T) {
	ob := New("BTC-USDT")
	ob.Insert(newTestOrder("b1", types.SideBuy, "100", "1"))
	ob.Insert(newTestOrder("a1", types.SideSell, "105", "1"))
	seq := ob.SequenceCounter()
	orders := ob.RestingOrders()

	restored := New("BTC-USDT")
	restored.Restore(orders, seq)

	require.Equal(t, seq, restored.SequenceCounter())
	bid, _ := restored.BestBid()
	require.True(t, bid.Equal(dec.NewFromInt(100)))
	_, err := restored.Cancel("b1")
	require.NoError(t, err)
}
