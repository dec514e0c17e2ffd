// Package handler implements trading.Server against a replication
// Adapter: it translates wire request/response types into engine
// Commands, proposes state-changing ones through Raft, and answers
// QueryOrder locally. This is the RPC boundary the core treats as
// external -- the mapping and dialing is in scope, the service
// definition and Raft group are not.
package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/hashicorp/raft"

	grpcclient "github.com/abdoElHodaky/tradSys/internal/grpc/client"

	"github.com/abdoElHodaky/tradSys/internal/engine/types"
	engerrors "github.com/abdoElHodaky/tradSys/internal/errors"
	"github.com/abdoElHodaky/tradSys/internal/replication"
	"github.com/abdoElHodaky/tradSys/internal/tradesink"
	"github.com/abdoElHodaky/tradSys/proto/trading"
)

// Handler implements trading.Server.
type Handler struct {
	adapter   *replication.Adapter
	egress    *tradesink.Egress // nil when no trade_sink_url is configured
	forwarder *grpcclient.LeaderForwarder
	peerAddrs map[raft.ServerID]string // raft server id -> peer gRPC address
}

// New returns a Handler bound to adapter. egress may be nil, in which
// case trades are never published to the external sink -- the Raft log
// remains the authoritative record regardless. forwarder and peerAddrs
// may both be nil/empty, in which case a follower fails a
// state-changing RPC outright instead of redirecting it to the leader.
func New(adapter *replication.Adapter, egress *tradesink.Egress, forwarder *grpcclient.LeaderForwarder, peerAddrs map[raft.ServerID]string) *Handler {
	return &Handler{adapter: adapter, egress: egress, forwarder: forwarder, peerAddrs: peerAddrs}
}

var _ trading.Server = (*Handler)(nil)

func (h *Handler) propose(ctx context.Context, cmd *types.Command) (*types.ApplyResult, error) {
	correlationID := uuid.NewString()
	cmd.ApplyTimeNanos = h.stampApplyTime()
	return h.adapter.Propose(cmd, correlationID)
}

// forward redirects a state-changing RPC to the current Raft leader
// over the engine's binary codec (§4.7), for the case where this node
// is only a follower. It returns the NotLeader error unchanged if no
// forwarder is configured or the leader's gRPC address is unknown, so
// the caller can retry elsewhere itself.
func (h *Handler) forward(ctx context.Context, method string, req trading.Marshaler, resp trading.Unmarshaler, notLeaderErr error) error {
	if h.forwarder == nil {
		return notLeaderErr
	}
	_, leaderID := h.adapter.LeaderAddr()
	addr, ok := h.peerAddrs[leaderID]
	if !ok || addr == "" {
		return notLeaderErr
	}
	return h.forwarder.Forward(ctx, addr, method, req, resp)
}

// stampApplyTime is the one and only place this process reads the wall
// clock to produce a Command's apply_time (§4.6): it runs on the
// proposing leader, never inside the apply loop, and the stamped value
// is what every replica (including this one) treats as authoritative.
func (h *Handler) stampApplyTime() int64 {
	return wallClockNanos()
}

func (h *Handler) CreateSymbol(ctx context.Context, req *trading.CreateSymbolRequest) (*trading.SymbolResponse, error) {
	symbol, err := types.NewSymbol(req.Name, req.BaseAsset, req.QuoteAsset, req.PricePrecision, req.QuantityPrecision, req.MinQuantity, req.MaxQuantity, req.MinAmount, req.MaxAmount, req.LargeTick)
	if err != nil {
		return &trading.SymbolResponse{Result: resultFromErr(err)}, nil
	}
	cmd := &types.Command{Tag: types.CmdCreateSymbol, Symbol: symbol}
	result, err := h.propose(ctx, cmd)
	if engerrors.KindOf(err) == engerrors.NotLeader {
		resp := &trading.SymbolResponse{}
		if fwdErr := h.forward(ctx, "CreateSymbol", req, resp, err); fwdErr != nil {
			return nil, fwdErr
		}
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return &trading.SymbolResponse{Result: resultFromApply(result)}, nil
}

func (h *Handler) RemoveSymbol(ctx context.Context, req *trading.SymbolNameRequest) (*trading.SymbolResponse, error) {
	return h.symbolLifecycle(ctx, types.CmdRemoveSymbol, "RemoveSymbol", req)
}

func (h *Handler) PauseSymbol(ctx context.Context, req *trading.SymbolNameRequest) (*trading.SymbolResponse, error) {
	return h.symbolLifecycle(ctx, types.CmdPauseSymbol, "PauseSymbol", req)
}

func (h *Handler) ResumeSymbol(ctx context.Context, req *trading.SymbolNameRequest) (*trading.SymbolResponse, error) {
	return h.symbolLifecycle(ctx, types.CmdResumeSymbol, "ResumeSymbol", req)
}

func (h *Handler) symbolLifecycle(ctx context.Context, tag types.CommandTag, method string, req *trading.SymbolNameRequest) (*trading.SymbolResponse, error) {
	cmd := &types.Command{Tag: tag, SymbolName: req.Name}
	result, err := h.propose(ctx, cmd)
	if engerrors.KindOf(err) == engerrors.NotLeader {
		resp := &trading.SymbolResponse{}
		if fwdErr := h.forward(ctx, method, req, resp, err); fwdErr != nil {
			return nil, fwdErr
		}
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return &trading.SymbolResponse{Result: resultFromApply(result)}, nil
}

func (h *Handler) PlaceOrder(ctx context.Context, req *trading.PlaceOrderRequest) (*trading.PlaceOrderResponse, error) {
	cmd := &types.Command{
		Tag: types.CmdPlaceOrder,
		Order: &types.PlaceOrderRequest{
			OrderID:      req.OrderID,
			AccountID:    req.AccountID,
			Symbol:       req.Symbol,
			Side:         types.OrderSide(req.Side),
			Type:         types.OrderType(req.Type),
			TimeInForce:  types.TimeInForce(req.TimeInForce),
			Price:        req.Price,
			Quantity:     req.Quantity,
			MakerFeeRate: req.MakerFeeRate,
			TakerFeeRate: req.TakerFeeRate,
		},
	}
	result, err := h.propose(ctx, cmd)
	if engerrors.KindOf(err) == engerrors.NotLeader {
		resp := &trading.PlaceOrderResponse{}
		if fwdErr := h.forward(ctx, "PlaceOrder", req, resp, err); fwdErr != nil {
			return nil, fwdErr
		}
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	resp := &trading.PlaceOrderResponse{Result: resultFromApply(result)}
	if result.OrderState != nil {
		resp.Order = toWireOrder(result.OrderState)
	}
	resp.Trades = toWireTrades(result.Trades)
	if h.egress != nil {
		for _, t := range result.Trades {
			h.egress.Publish(t)
		}
	}
	return resp, nil
}

func (h *Handler) CancelOrder(ctx context.Context, req *trading.OrderIDRequest) (*trading.OrderResponse, error) {
	cmd := &types.Command{Tag: types.CmdCancelOrder, SymbolName: req.Symbol, OrderID: req.OrderID}
	result, err := h.propose(ctx, cmd)
	if engerrors.KindOf(err) == engerrors.NotLeader {
		resp := &trading.OrderResponse{}
		if fwdErr := h.forward(ctx, "CancelOrder", req, resp, err); fwdErr != nil {
			return nil, fwdErr
		}
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	resp := &trading.OrderResponse{Result: resultFromApply(result)}
	if result.OrderState != nil {
		resp.Order = toWireOrder(result.OrderState)
	}
	return resp, nil
}

// QueryOrder bypasses the log entirely (§4.6): it is read-only and
// answered directly from this node's local state, leader or follower.
func (h *Handler) QueryOrder(ctx context.Context, req *trading.OrderIDRequest) (*trading.OrderResponse, error) {
	cmd := &types.Command{Tag: types.CmdQueryOrder, SymbolName: req.Symbol, OrderID: req.OrderID}
	result, err := h.adapter.ApplyLocal(cmd)
	if err != nil {
		return nil, err
	}
	resp := &trading.OrderResponse{Result: resultFromApply(result)}
	if result.OrderState != nil {
		resp.Order = toWireOrder(result.OrderState)
	}
	return resp, nil
}

func resultFromApply(r *types.ApplyResult) trading.Result {
	return trading.Result{Code: r.Code, Message: r.Message}
}

func resultFromErr(err error) trading.Result {
	kind := engerrors.KindOf(err)
	return trading.Result{Code: int32(kind.RPCCode()), Message: err.Error()}
}

func toWireOrder(o *types.Order) trading.OrderState {
	return trading.OrderState{
		OrderID:           o.OrderID,
		AccountID:         o.AccountID,
		Symbol:            o.Symbol,
		Side:              string(o.Side),
		Type:              string(o.Type),
		TimeInForce:       string(o.TimeInForce),
		Status:            string(o.Status),
		Price:             o.Price,
		Quantity:          o.Quantity,
		RemainingQuantity: o.RemainingQuantity,
		FilledQuantity:    o.FilledQuantity,
	}
}

func toWireTrades(trades []*types.Trade) []trading.TradeRecord {
	out := make([]trading.TradeRecord, len(trades))
	for i, t := range trades {
		out[i] = trading.TradeRecord{
			TradeID:        t.TradeID,
			TicketID:       t.TicketID,
			OrderID:        t.OrderID,
			MatchOrderID:   t.MatchOrderID,
			Side:           string(t.Side),
			IsMaker:        t.IsMaker,
			Price:          t.Price,
			Quantity:       t.Quantity,
			Amount:         t.Amount,
			Fee:            t.Fee,
			MatchTimeNanos: t.MatchTimeNanos,
		}
	}
	return out
}
