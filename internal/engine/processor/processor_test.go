package processor

import (
	"testing"

	"github.com/stretchr/testify/require"

	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
	"github.com/abdoElHodaky/tradSys/internal/engine/types"
	engerrors "github.com/abdoElHodaky/tradSys/internal/errors"
)

func createSymbolCmd(name string) *types.Command {
	sym, _ := types.NewSymbol(name, "BTC", "USDT", 2, 4,
		dec.NewFromInt(0), dec.NewFromInt(1000),
		dec.NewFromInt(0), dec.NewFromInt(1000000), false)
	return &types.Command{Tag: types.CmdCreateSymbol, Symbol: sym}
}

func placeOrderCmd(orderID string, side types.OrderSide, price, qty string, applyTime int64) *types.Command {
	p, _ := dec.NewFromString(price)
	q, _ := dec.NewFromString(qty)
	return &types.Command{
		Tag:            types.CmdPlaceOrder,
		ApplyTimeNanos: applyTime,
		Order: &types.PlaceOrderRequest{
			OrderID:     orderID,
			AccountID:   "acct-" + orderID,
			Symbol:      "BTC-USDT",
			Side:        side,
			Type:        types.TypeLimit,
			TimeInForce: types.TIFGTC,
			Price:       p,
			Quantity:    q,
		},
	}
}

func TestProcessor_CreateSymbolThenPlaceOrder(t *testing.T) {
	p := New(0)

	_, err := p.Apply(createSymbolCmd("BTC-USDT"))
	require.NoError(t, err)

	result, err := p.Apply(placeOrderCmd("o1", types.SideBuy, "100", "1", 1))
	require.NoError(t, err)
	require.Equal(t, int32(engerrors.CodeSuccess), result.Code)
	require.Equal(t, types.StatusNew, result.OrderState.Status)
}

func TestProcessor_DuplicateOrderIDRejected(t *testing.T) {
	p := New(0)
	_, err := p.Apply(createSymbolCmd("BTC-USDT"))
	require.NoError(t, err)

	_, err = p.Apply(placeOrderCmd("o1", types.SideBuy, "100", "1", 1))
	require.NoError(t, err)

	result, err := p.Apply(placeOrderCmd("o1", types.SideBuy, "100", "1", 2))
	require.NoError(t, err)
	require.NotEqual(t, int32(engerrors.CodeSuccess), result.Code)
}

func TestProcessor_PlaceOrderAgainstUnknownSymbolFails(t *testing.T) {
	p := New(0)
	result, err := p.Apply(placeOrderCmd("o1", types.SideBuy, "100", "1", 1))
	require.NoError(t, err)
	require.NotEqual(t, int32(engerrors.CodeSuccess), result.Code)
}

func TestProcessor_CancelAndQueryOrder(t *testing.T) {
	p := New(0)
	_, err := p.Apply(createSymbolCmd("BTC-USDT"))
	require.NoError(t, err)
	_, err = p.Apply(placeOrderCmd("o1", types.SideBuy, "100", "1", 1))
	require.NoError(t, err)

	result, err := p.Apply(&types.Command{Tag: types.CmdCancelOrder, SymbolName: "BTC-USDT", OrderID: "o1"})
	require.NoError(t, err)
	require.Equal(t, types.StatusCanceled, result.OrderState.Status)

	result, err = p.Apply(&types.Command{Tag: types.CmdQueryOrder, SymbolName: "BTC-USDT", OrderID: "o1"})
	require.NoError(t, err)
	require.Equal(t, types.StatusCanceled, result.OrderState.Status)
}

func TestProcessor_QueryUnknownOrderFails(t *testing.T) {
	p := New(0)
	result, err := p.Apply(&types.Command{Tag: types.CmdQueryOrder, SymbolName: "BTC-USDT", OrderID: "missing"})
	require.NoError(t, err)
	require.NotEqual(t, int32(engerrors.CodeSuccess), result.Code)
}

func TestProcessor_OrderIDUniqueOnlyWithinSymbol(t *testing.T) {
	p := New(0)
	require.NoError(t, mustNoErr(p.Apply(createSymbolCmd("BTC-USDT"))))
	require.NoError(t, mustNoErr(p.Apply(createSymbolCmd("ETH-USDT"))))

	result, err := p.Apply(placeOrderCmd("o1", types.SideBuy, "100", "1", 1))
	require.NoError(t, err)
	require.Equal(t, int32(engerrors.CodeSuccess), result.Code)

	other := placeOrderCmd("o1", types.SideBuy, "10", "1", 2)
	other.Order.Symbol = "ETH-USDT"
	result, err = p.Apply(other)
	require.NoError(t, err)
	require.Equal(t, int32(engerrors.CodeSuccess), result.Code, "the same order_id must be usable again under a different symbol")

	queryBTC, err := p.Apply(&types.Command{Tag: types.CmdQueryOrder, SymbolName: "BTC-USDT", OrderID: "o1"})
	require.NoError(t, err)
	require.True(t, queryBTC.OrderState.Price.Equal(mustProcessorDec(t, "100")))

	queryETH, err := p.Apply(&types.Command{Tag: types.CmdQueryOrder, SymbolName: "ETH-USDT", OrderID: "o1"})
	require.NoError(t, err)
	require.True(t, queryETH.OrderState.Price.Equal(mustProcessorDec(t, "10")))
}

func mustNoErr(_ *types.ApplyResult, err error) error { return err }

func mustProcessorDec(t *testing.T, s string) dec.Decimal {
	t.Helper()
	d, err := dec.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestProcessor_HistoryRetentionEvictsOldestTerminalOrder(t *testing.T) {
	p := New(1)
	_, err := p.Apply(createSymbolCmd("BTC-USDT"))
	require.NoError(t, err)

	_, err = p.Apply(placeOrderCmd("o1", types.SideBuy, "100", "1", 1))
	require.NoError(t, err)
	_, err = p.Apply(&types.Command{Tag: types.CmdCancelOrder, SymbolName: "BTC-USDT", OrderID: "o1"})
	require.NoError(t, err)

	_, err = p.Apply(placeOrderCmd("o2", types.SideBuy, "100", "1", 2))
	require.NoError(t, err)
	_, err = p.Apply(&types.Command{Tag: types.CmdCancelOrder, SymbolName: "BTC-USDT", OrderID: "o2"})
	require.NoError(t, err)

	result, err := p.Apply(&types.Command{Tag: types.CmdQueryOrder, SymbolName: "BTC-USDT", OrderID: "o1"})
	require.NoError(t, err)
	require.NotEqual(t, int32(engerrors.CodeSuccess), result.Code, "o1 should have been evicted once retention of 1 was exceeded")

	result, err = p.Apply(&types.Command{Tag: types.CmdQueryOrder, SymbolName: "BTC-USDT", OrderID: "o2"})
	require.NoError(t, err)
	require.Equal(t, int32(engerrors.CodeSuccess), result.Code)
}

func TestLogEntry_EncodeDecodeRoundTrip(t *testing.T) {
	cmd := placeOrderCmd("o1", types.SideSell, "101.50", "2.25", 123456789)
	encoded, err := EncodeEntry(cmd)
	require.NoError(t, err)

	decoded, err := DecodeEntry(encoded)
	require.NoError(t, err)

	require.Equal(t, cmd.Tag, decoded.Tag)
	require.Equal(t, cmd.ApplyTimeNanos, decoded.ApplyTimeNanos)
	require.Equal(t, cmd.Order.OrderID, decoded.Order.OrderID)
	require.True(t, cmd.Order.Price.Equal(decoded.Order.Price))
	require.True(t, cmd.Order.Quantity.Equal(decoded.Order.Quantity))
}

func TestLogEntry_UnknownTagFailsToDecode(t *testing.T) {
	_, err := DecodeEntry([]byte{0, 0, 0, 0, 0, 0, 0, 0, 99, 0, 0, 0, 0})
	require.Error(t, err)
}

// TestProcessor_SnapshotRoundTripsByteIdentical exercises §5's determinism
// requirement directly: applying the same sequence of commands against two
// independent processors must leave them byte-identical once snapshotted.
func TestProcessor_SnapshotRoundTripsByteIdentical(t *testing.T) {
	build := func() *Processor {
		p := New(10)
		mustApply(t, p, createSymbolCmd("BTC-USDT"))
		mustApply(t, p, placeOrderCmd("s1", types.SideSell, "100", "2", 1))
		mustApply(t, p, placeOrderCmd("s2", types.SideSell, "101", "3", 2))
		mustApply(t, p, placeOrderCmd("b1", types.SideBuy, "101", "4", 3))
		return p
	}

	p1 := build()
	p2 := build()

	snap1, err := p1.Snapshot()
	require.NoError(t, err)
	snap2, err := p2.Snapshot()
	require.NoError(t, err)

	require.Equal(t, snap1, snap2, "two processors applying the same commands must produce byte-identical snapshots")
}

func TestProcessor_RestoreReproducesQueryableState(t *testing.T) {
	p1 := New(10)
	mustApply(t, p1, createSymbolCmd("BTC-USDT"))
	mustApply(t, p1, placeOrderCmd("s1", types.SideSell, "100", "2", 1))
	mustApply(t, p1, placeOrderCmd("b1", types.SideBuy, "100", "1", 2))

	snap, err := p1.Snapshot()
	require.NoError(t, err)

	p2 := New(10)
	require.NoError(t, p2.Restore(snap))

	result, err := p2.Apply(&types.Command{Tag: types.CmdQueryOrder, SymbolName: "BTC-USDT", OrderID: "s1"})
	require.NoError(t, err)
	require.Equal(t, int32(engerrors.CodeSuccess), result.Code)
	require.Equal(t, types.StatusPartiallyFilled, result.OrderState.Status)

	snapAgain, err := p2.Snapshot()
	require.NoError(t, err)
	require.Equal(t, snap, snapAgain, "re-snapshotting restored state without further applies must be a no-op")
}

func mustApply(t *testing.T, p *Processor, cmd *types.Command) {
	t.Helper()
	result, err := p.Apply(cmd)
	require.NoError(t, err)
	require.Equal(t, int32(engerrors.CodeSuccess), result.Code, result.Message)
}
