package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/internal/engine/book"
	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
	"github.com/abdoElHodaky/tradSys/internal/engine/types"
)

type seqAllocator struct {
	trades  uint64
	tickets uint64
}

func (s *seqAllocator) NextTradeID() uint64  { s.trades++; return s.trades }
func (s *seqAllocator) NextTicketID() uint64 { s.tickets++; return s.tickets }

func testSymbol(t *testing.T) *types.Symbol {
	t.Helper()
	sym, err := types.NewSymbol("BTC-USDT", "BTC", "USDT", 2, 4,
		mustDec(t, "0.0001"), mustDec(t, "1000"),
		mustDec(t, "1"), mustDec(t, "1000000"), false)
	require.NoError(t, err)
	return sym
}

func mustOrder(t *testing.T, sym *types.Symbol, id string, side types.OrderSide, typ types.OrderType, tif types.TimeInForce, price, qty string) *types.Order {
	t.Helper()
	o, err := types.NewOrder(id, "acct-"+id, sym, side, typ, tif,
		mustDec(t, price), mustDec(t, qty), dec.Zero, dec.Zero)
	require.NoError(t, err)
	return o
}

func TestMatch_LimitOrderRestsWhenNoCross(t *testing.T) {
	sym := testSymbol(t)
	ob := book.New(sym.Name)
	ids := &seqAllocator{}

	buy := mustOrder(t, sym, "b1", types.SideBuy, types.TypeLimit, types.TIFGTC, "100", "1")
	trades := Match(ob, buy, sym, ids, 1)
	require.Empty(t, trades)
	require.Equal(t, types.StatusNew, buy.Status)

	bid, ok := ob.BestBid()
	require.True(t, ok)
	require.True(t, bid.Equal(dec.NewFromInt(100)))
}

func TestMatch_CrossingLimitOrdersProduceTradePair(t *testing.T) {
	sym := testSymbol(t)
	ob := book.New(sym.Name)
	ids := &seqAllocator{}

	sell := mustOrder(t, sym, "s1", types.SideSell, types.TypeLimit, types.TIFGTC, "100", "1")
	Match(ob, sell, sym, ids, 1)

	buy := mustOrder(t, sym, "b1", types.SideBuy, types.TypeLimit, types.TIFGTC, "101", "1")
	trades := Match(ob, buy, sym, ids, 2)

	require.Len(t, trades, 2)
	require.Equal(t, types.StatusFilled, buy.Status)
	require.True(t, trades[0].Price.Equal(dec.NewFromInt(100)), "trade executes at the resting maker's price")
	require.True(t, trades[0].IsMaker)
	require.False(t, trades[1].IsMaker)

	_, ok := ob.BestAsk()
	require.False(t, ok, "fully filled maker should be gone from the book")
}

func TestMatch_FOKCancelsWhenInsufficientLiquidity(t *testing.T) {
	sym := testSymbol(t)
	ob := book.New(sym.Name)
	ids := &seqAllocator{}

	sell := mustOrder(t, sym, "s1", types.SideSell, types.TypeLimit, types.TIFGTC, "100", "1")
	Match(ob, sell, sym, ids, 1)

	buy := mustOrder(t, sym, "b1", types.SideBuy, types.TypeLimit, types.TIFFOK, "100", "5")
	trades := Match(ob, buy, sym, ids, 2)

	require.Empty(t, trades)
	require.Equal(t, types.StatusCanceled, buy.Status)
	require.True(t, buy.RemainingQuantity.IsZero())
}

func TestMatch_FOKFillsWhenLiquiditySufficient(t *testing.T) {
	sym := testSymbol(t)
	ob := book.New(sym.Name)
	ids := &seqAllocator{}

	Match(ob, mustOrder(t, sym, "s1", types.SideSell, types.TypeLimit, types.TIFGTC, "100", "2"), sym, ids, 1)
	Match(ob, mustOrder(t, sym, "s2", types.SideSell, types.TypeLimit, types.TIFGTC, "101", "2"), sym, ids, 2)

	buy := mustOrder(t, sym, "b1", types.SideBuy, types.TypeLimit, types.TIFFOK, "101", "3")
	trades := Match(ob, buy, sym, ids, 3)

	require.NotEmpty(t, trades)
	require.Equal(t, types.StatusFilled, buy.Status)
}

func TestMatch_LimitMakerRejectsWhenWouldCross(t *testing.T) {
	sym := testSymbol(t)
	ob := book.New(sym.Name)
	ids := &seqAllocator{}

	Match(ob, mustOrder(t, sym, "s1", types.SideSell, types.TypeLimit, types.TIFGTC, "100", "1"), sym, ids, 1)

	maker := mustOrder(t, sym, "m1", types.SideBuy, types.TypeLimitMaker, types.TIFGTC, "100", "1")
	trades := Match(ob, maker, sym, ids, 2)

	require.Empty(t, trades)
	require.Equal(t, types.StatusRejected, maker.Status)
}

func TestMatch_IOCCancelsRemainderInsteadOfResting(t *testing.T) {
	sym := testSymbol(t)
	ob := book.New(sym.Name)
	ids := &seqAllocator{}

	Match(ob, mustOrder(t, sym, "s1", types.SideSell, types.TypeLimit, types.TIFGTC, "100", "1"), sym, ids, 1)

	buy := mustOrder(t, sym, "b1", types.SideBuy, types.TypeLimit, types.TIFIOC, "100", "3")
	trades := Match(ob, buy, sym, ids, 2)

	require.Len(t, trades, 2)
	require.Equal(t, types.StatusCanceled, buy.Status)
	_, ok := ob.BestBid()
	require.False(t, ok, "IOC remainder must never rest in the book")
}

func TestMatch_MarketOrderCrossesRegardlessOfLimitPrice(t *testing.T) {
	sym := testSymbol(t)
	ob := book.New(sym.Name)
	ids := &seqAllocator{}

	Match(ob, mustOrder(t, sym, "s1", types.SideSell, types.TypeLimit, types.TIFGTC, "100", "1"), sym, ids, 1)

	market, err := types.NewOrder("m1", "acct-m1", sym, types.SideBuy, types.TypeMarket, types.TIFIOC,
		dec.Zero, mustDec(t, "1"), dec.Zero, dec.Zero)
	require.NoError(t, err)

	trades := Match(ob, market, sym, ids, 2)
	require.Len(t, trades, 2)
	require.Equal(t, types.StatusFilled, market.Status)
}

func mustDec(t *testing.T, s string) dec.Decimal {
	t.Helper()
	d, err := dec.NewFromString(s)
	require.NoError(t, err)
	return d
}
