package handler

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
	"github.com/abdoElHodaky/tradSys/internal/engine/processor"
	"github.com/abdoElHodaky/tradSys/internal/replication"
	"github.com/abdoElHodaky/tradSys/proto/trading"
)

// newTestHandler bootstraps a single-voter in-memory Raft group, the
// same way the replication package's own tests do, so Handler can be
// exercised against a real Adapter without a network or disk. Egress is
// left nil: trade sink delivery is covered on its own in the tradesink
// package, and Handler must behave identically whether or not a sink is
// configured.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	proc := processor.New(10)
	_, transport := raft.NewInmemTransport("")

	cfg := raft.DefaultConfig()
	cfg.LocalID = raft.ServerID("node1")
	cfg.HeartbeatTimeout = 50 * time.Millisecond
	cfg.ElectionTimeout = 50 * time.Millisecond
	cfg.LeaderLeaseTimeout = 50 * time.Millisecond
	cfg.CommitTimeout = 5 * time.Millisecond

	logs := raft.NewInmemStore()
	stable := raft.NewInmemStore()
	snaps := raft.NewInmemSnapshotStore()

	fsm := replication.NewFSM(proc)
	r, err := raft.NewRaft(cfg, fsm, logs, stable, snaps, transport)
	require.NoError(t, err)
	future := r.BootstrapCluster(raft.Configuration{
		Servers: []raft.Server{{ID: cfg.LocalID, Address: transport.LocalAddr()}},
	})
	require.NoError(t, future.Error())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && r.State() != raft.Leader {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, raft.Leader, r.State(), "raft node never became leader")
	t.Cleanup(func() { r.Shutdown() })

	adapter := replication.New(r, fsm, zap.NewNop(), time.Second)
	t.Cleanup(adapter.Close)
	return New(adapter, nil, nil, nil)
}

func createTestSymbol(t *testing.T, h *Handler, name string) {
	t.Helper()
	resp, err := h.CreateSymbol(context.Background(), &trading.CreateSymbolRequest{
		Name: name, BaseAsset: "BTC", QuoteAsset: "USDT",
		PricePrecision: 2, QuantityPrecision: 4,
		MinQuantity: dec.NewFromInt(0), MaxQuantity: dec.NewFromInt(1000),
		MinAmount: dec.NewFromInt(0), MaxAmount: dec.NewFromInt(1000000),
	})
	require.NoError(t, err)
	require.Equal(t, int32(0), resp.Result.Code)
}

func TestHandler_CreateSymbolThenPlaceOrderThenQuery(t *testing.T) {
	h := newTestHandler(t)
	createTestSymbol(t, h, "BTC-USDT")

	placeResp, err := h.PlaceOrder(context.Background(), &trading.PlaceOrderRequest{
		OrderID: "o1", AccountID: "acct-1", Symbol: "BTC-USDT",
		Side: "BUY", Type: "LIMIT", TimeInForce: "GTC",
		Price: dec.NewFromInt(100), Quantity: dec.NewFromInt(1),
		MakerFeeRate: dec.Zero, TakerFeeRate: dec.Zero,
	})
	require.NoError(t, err)
	require.Equal(t, int32(0), placeResp.Result.Code)
	require.Equal(t, "NEW", placeResp.Order.Status)
	require.Empty(t, placeResp.Trades)

	queryResp, err := h.QueryOrder(context.Background(), &trading.OrderIDRequest{Symbol: "BTC-USDT", OrderID: "o1"})
	require.NoError(t, err)
	require.Equal(t, int32(0), queryResp.Result.Code)
	require.Equal(t, "o1", queryResp.Order.OrderID)
}

func TestHandler_PlaceOrderCrossingProducesTrades(t *testing.T) {
	h := newTestHandler(t)
	createTestSymbol(t, h, "BTC-USDT")

	_, err := h.PlaceOrder(context.Background(), &trading.PlaceOrderRequest{
		OrderID: "s1", AccountID: "acct-1", Symbol: "BTC-USDT",
		Side: "SELL", Type: "LIMIT", TimeInForce: "GTC",
		Price: dec.NewFromInt(100), Quantity: dec.NewFromInt(1),
		MakerFeeRate: dec.Zero, TakerFeeRate: dec.Zero,
	})
	require.NoError(t, err)

	resp, err := h.PlaceOrder(context.Background(), &trading.PlaceOrderRequest{
		OrderID: "b1", AccountID: "acct-2", Symbol: "BTC-USDT",
		Side: "BUY", Type: "LIMIT", TimeInForce: "GTC",
		Price: dec.NewFromInt(100), Quantity: dec.NewFromInt(1),
		MakerFeeRate: dec.Zero, TakerFeeRate: dec.Zero,
	})
	require.NoError(t, err)
	require.Equal(t, "FILLED", resp.Order.Status)
	require.Len(t, resp.Trades, 2)
}

func TestHandler_CancelOrder(t *testing.T) {
	h := newTestHandler(t)
	createTestSymbol(t, h, "BTC-USDT")
	_, err := h.PlaceOrder(context.Background(), &trading.PlaceOrderRequest{
		OrderID: "o1", AccountID: "acct-1", Symbol: "BTC-USDT",
		Side: "BUY", Type: "LIMIT", TimeInForce: "GTC",
		Price: dec.NewFromInt(100), Quantity: dec.NewFromInt(1),
		MakerFeeRate: dec.Zero, TakerFeeRate: dec.Zero,
	})
	require.NoError(t, err)

	resp, err := h.CancelOrder(context.Background(), &trading.OrderIDRequest{Symbol: "BTC-USDT", OrderID: "o1"})
	require.NoError(t, err)
	require.Equal(t, "CANCELED", resp.Order.Status)
}

func TestHandler_PauseThenRemoveSymbol(t *testing.T) {
	h := newTestHandler(t)
	createTestSymbol(t, h, "BTC-USDT")

	pauseResp, err := h.PauseSymbol(context.Background(), &trading.SymbolNameRequest{Name: "BTC-USDT"})
	require.NoError(t, err)
	require.Equal(t, int32(0), pauseResp.Result.Code)

	removeResp, err := h.RemoveSymbol(context.Background(), &trading.SymbolNameRequest{Name: "BTC-USDT"})
	require.NoError(t, err)
	require.Equal(t, int32(0), removeResp.Result.Code)
}

func TestHandler_QueryUnknownOrderFails(t *testing.T) {
	h := newTestHandler(t)
	resp, err := h.QueryOrder(context.Background(), &trading.OrderIDRequest{Symbol: "BTC-USDT", OrderID: "missing"})
	require.NoError(t, err)
	require.NotEqual(t, int32(0), resp.Result.Code)
}
