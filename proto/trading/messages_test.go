package trading

import (
	"testing"

	"github.com/stretchr/testify/require"

	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
)

func TestPlaceOrderRequest_MarshalUnmarshal(t *testing.T) {
	req := &PlaceOrderRequest{
		OrderID:      "o1",
		AccountID:    "acct-1",
		Symbol:       "BTC-USDT",
		Side:         "BUY",
		Type:         "LIMIT",
		TimeInForce:  "GTC",
		Price:        dec.NewFromInt(100),
		Quantity:     dec.NewFromInt(2),
		MakerFeeRate: dec.Zero,
		TakerFeeRate: dec.Zero,
	}
	data, err := req.Marshal()
	require.NoError(t, err)

	var out PlaceOrderRequest
	require.NoError(t, out.Unmarshal(data))
	require.Equal(t, *req, out)
}

func TestPlaceOrderResponse_MarshalUnmarshalWithTrades(t *testing.T) {
	resp := &PlaceOrderResponse{
		Result: Result{Code: 0, Message: ""},
		Order: OrderState{
			OrderID:           "o1",
			Symbol:            "BTC-USDT",
			Status:            "FILLED",
			Price:             dec.NewFromInt(100),
			Quantity:          dec.NewFromInt(2),
			RemainingQuantity: dec.Zero,
			FilledQuantity:    dec.NewFromInt(2),
		},
		Trades: []TradeRecord{
			{TradeID: 1, TicketID: 1, OrderID: "o1", MatchOrderID: "m1", Side: "BUY", IsMaker: false, Price: dec.NewFromInt(100), Quantity: dec.NewFromInt(1), Amount: dec.NewFromInt(100), Fee: dec.Zero, MatchTimeNanos: 42},
			{TradeID: 2, TicketID: 2, OrderID: "o1", MatchOrderID: "m2", Side: "BUY", IsMaker: false, Price: dec.NewFromInt(100), Quantity: dec.NewFromInt(1), Amount: dec.NewFromInt(100), Fee: dec.Zero, MatchTimeNanos: 43},
		},
	}
	data, err := resp.Marshal()
	require.NoError(t, err)

	var out PlaceOrderResponse
	require.NoError(t, out.Unmarshal(data))
	require.Equal(t, resp.Result, out.Result)
	require.Equal(t, resp.Order, out.Order)
	require.Len(t, out.Trades, 2)
	require.Equal(t, resp.Trades, out.Trades)
}

func TestPlaceOrderResponse_MarshalUnmarshalNoTrades(t *testing.T) {
	resp := &PlaceOrderResponse{Result: Result{Code: 1, Message: "rejected"}}
	data, err := resp.Marshal()
	require.NoError(t, err)

	var out PlaceOrderResponse
	require.NoError(t, out.Unmarshal(data))
	require.Equal(t, resp.Result, out.Result)
	require.Empty(t, out.Trades)
}

func TestCreateSymbolRequest_MarshalUnmarshal(t *testing.T) {
	req := &CreateSymbolRequest{
		Name: "BTC-USDT", BaseAsset: "BTC", QuoteAsset: "USDT",
		PricePrecision: 2, QuantityPrecision: 4,
		MinQuantity: dec.NewFromInt(0), MaxQuantity: dec.NewFromInt(1000),
		MinAmount: dec.NewFromInt(1), MaxAmount: dec.NewFromInt(1000000),
		LargeTick: true,
	}
	data, err := req.Marshal()
	require.NoError(t, err)

	var out CreateSymbolRequest
	require.NoError(t, out.Unmarshal(data))
	require.Equal(t, *req, out)
}

func TestOrderResponse_MarshalUnmarshal(t *testing.T) {
	resp := &OrderResponse{
		Result: Result{Code: 0},
		Order:  OrderState{OrderID: "o1", Status: "CANCELED", Price: dec.Zero, Quantity: dec.Zero, RemainingQuantity: dec.Zero, FilledQuantity: dec.Zero},
	}
	data, err := resp.Marshal()
	require.NoError(t, err)

	var out OrderResponse
	require.NoError(t, out.Unmarshal(data))
	require.Equal(t, *resp, out)
}

func TestSymbolNameRequest_MarshalUnmarshal(t *testing.T) {
	req := &SymbolNameRequest{Name: "BTC-USDT"}
	data, err := req.Marshal()
	require.NoError(t, err)

	var out SymbolNameRequest
	require.NoError(t, out.Unmarshal(data))
	require.Equal(t, *req, out)
}
