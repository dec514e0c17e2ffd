package processor

import (
	"container/list"

	"github.com/abdoElHodaky/tradSys/internal/engine/matcher"
	"github.com/abdoElHodaky/tradSys/internal/engine/symbols"
	"github.com/abdoElHodaky/tradSys/internal/engine/types"
	engerrors "github.com/abdoElHodaky/tradSys/internal/errors"
)

// Processor is the OrderProcessor of §4.6: the only component allowed to
// mutate engine state, driven exclusively by the single apply loop the
// replication adapter runs. It owns the per-engine monotonic counters
// that must never be shared across goroutines.
type Processor struct {
	symbols *symbols.Manager

	tradeSeq  uint64
	ticketSeq uint64

	history          map[historyKey]*types.Order
	historyOrder     *list.List // of historyKey, oldest first, for FIFO eviction
	historyElems     map[historyKey]*list.Element
	historyRetention int
}

// historyKey scopes order_id lookups to their symbol: §3 defines
// order_id as unique only within a symbol, so two different symbols may
// legitimately reuse the same caller-supplied order_id.
type historyKey struct {
	Symbol  string
	OrderID string
}

// New returns an empty Processor. historyRetention is the configured
// number of terminal orders retained for QueryOrder after they leave
// their book (§6 `history_retention`); zero means unbounded.
func New(historyRetention int) *Processor {
	return &Processor{
		symbols:          symbols.New(),
		history:          make(map[historyKey]*types.Order),
		historyOrder:     list.New(),
		historyElems:     make(map[historyKey]*list.Element),
		historyRetention: historyRetention,
	}
}

func (p *Processor) NextTradeID() uint64 {
	p.tradeSeq++
	return p.tradeSeq
}

func (p *Processor) NextTicketID() uint64 {
	p.ticketSeq++
	return p.ticketSeq
}

var _ matcher.IDAllocator = (*Processor)(nil)

// Apply applies one decoded command deterministically and returns its
// result. It never panics on an expected-shape error: validation
// failures surface as ApplyResult.Code plus an OrderState/Message, per
// §4.6's apply rules. An error return indicates an invariant violation
// the caller must treat as InternalError (see §7's process-abort rule).
func (p *Processor) Apply(cmd *types.Command) (*types.ApplyResult, error) {
	switch cmd.Tag {
	case types.CmdCreateSymbol:
		return p.applyCreateSymbol(cmd)
	case types.CmdRemoveSymbol:
		return p.applyRemoveSymbol(cmd)
	case types.CmdPauseSymbol:
		return p.applyPauseSymbol(cmd)
	case types.CmdResumeSymbol:
		return p.applyResumeSymbol(cmd)
	case types.CmdPlaceOrder:
		return p.applyPlaceOrder(cmd)
	case types.CmdCancelOrder:
		return p.applyCancelOrder(cmd)
	case types.CmdQueryOrder:
		return p.applyQueryOrder(cmd)
	default:
		return nil, engerrors.Newf(engerrors.Internal, "unhandled command tag %d", cmd.Tag)
	}
}

func (p *Processor) applyCreateSymbol(cmd *types.Command) (*types.ApplyResult, error) {
	if err := p.symbols.Create(cmd.Symbol); err != nil {
		return resultFromError(err), nil
	}
	return &types.ApplyResult{Code: int32(engerrors.CodeSuccess)}, nil
}

func (p *Processor) applyRemoveSymbol(cmd *types.Command) (*types.ApplyResult, error) {
	canceled, err := p.symbols.Remove(cmd.SymbolName)
	if err != nil {
		return resultFromError(err), nil
	}
	for _, o := range canceled {
		p.remember(o)
	}
	return &types.ApplyResult{Code: int32(engerrors.CodeSuccess), Trades: nil}, nil
}

func (p *Processor) applyPauseSymbol(cmd *types.Command) (*types.ApplyResult, error) {
	if err := p.symbols.Pause(cmd.SymbolName); err != nil {
		return resultFromError(err), nil
	}
	return &types.ApplyResult{Code: int32(engerrors.CodeSuccess)}, nil
}

func (p *Processor) applyResumeSymbol(cmd *types.Command) (*types.ApplyResult, error) {
	if err := p.symbols.Resume(cmd.SymbolName); err != nil {
		return resultFromError(err), nil
	}
	return &types.ApplyResult{Code: int32(engerrors.CodeSuccess)}, nil
}

func (p *Processor) applyPlaceOrder(cmd *types.Command) (*types.ApplyResult, error) {
	req := cmd.Order

	entry, err := p.symbols.GetActive(req.Symbol)
	if err != nil {
		return resultFromError(err), nil
	}

	if _, exists := p.history[historyKey{req.Symbol, req.OrderID}]; exists {
		err := engerrors.New(engerrors.DuplicateOrderID, "order_id already known").WithOrderID(req.OrderID).WithSymbol(req.Symbol)
		return resultFromError(err), nil
	}

	order, buildErr := types.NewOrder(req.OrderID, req.AccountID, entry.Symbol, req.Side, req.Type, req.TimeInForce, req.Price, req.Quantity, req.MakerFeeRate, req.TakerFeeRate)
	if buildErr != nil {
		p.remember(order)
		return resultFromError(buildErr), nil
	}

	trades := matcher.Match(entry.Book, order, entry.Symbol, p, cmd.ApplyTimeNanos)
	// Resting makers this match filled are terminal now, so they enter the
	// bounded history the same way the incoming order does.
	for _, t := range trades {
		if !t.IsMaker {
			continue
		}
		if maker, ok := p.history[historyKey{t.Symbol, t.OrderID}]; ok {
			p.remember(maker)
		}
	}
	p.remember(order)

	return &types.ApplyResult{
		Code:       int32(engerrors.CodeSuccess),
		OrderState: order,
		Trades:     trades,
	}, nil
}

func (p *Processor) applyCancelOrder(cmd *types.Command) (*types.ApplyResult, error) {
	order, ok := p.history[historyKey{cmd.SymbolName, cmd.OrderID}]
	if !ok {
		err := engerrors.New(engerrors.OrderNotFound, "unknown order_id").WithOrderID(cmd.OrderID).WithSymbol(cmd.SymbolName)
		return resultFromError(err), nil
	}
	if order.Status.IsTerminal() {
		err := engerrors.New(engerrors.OrderNotFound, "order already in a terminal state").WithOrderID(cmd.OrderID)
		return resultFromError(err), nil
	}

	entry, err := p.symbols.Get(order.Symbol)
	if err != nil {
		return resultFromError(err), nil
	}
	if _, cancelErr := entry.Book.Cancel(order.OrderID); cancelErr != nil {
		return resultFromError(cancelErr), nil
	}
	order.Status = types.StatusCanceled
	p.remember(order)

	return &types.ApplyResult{Code: int32(engerrors.CodeSuccess), OrderState: order}, nil
}

func (p *Processor) applyQueryOrder(cmd *types.Command) (*types.ApplyResult, error) {
	order, ok := p.history[historyKey{cmd.SymbolName, cmd.OrderID}]
	if !ok {
		err := engerrors.New(engerrors.OrderNotFound, "unknown order_id").WithOrderID(cmd.OrderID).WithSymbol(cmd.SymbolName)
		return resultFromError(err), nil
	}
	return &types.ApplyResult{Code: int32(engerrors.CodeSuccess), OrderState: order}, nil
}

// remember records an order's latest state in the QueryOrder index,
// evicting the oldest terminal order once historyRetention is exceeded.
// Non-terminal orders are tracked too (so a resting order can be
// queried) but never count against the retention budget while they
// remain live -- only entry into a terminal status starts its
// eviction clock.
func (p *Processor) remember(order *types.Order) {
	key := historyKey{order.Symbol, order.OrderID}
	if elem, ok := p.historyElems[key]; ok {
		p.history[key] = order
		if order.Status.IsTerminal() {
			p.historyOrder.MoveToBack(elem)
		}
		p.evictIfNeeded()
		return
	}
	p.history[key] = order
	if order.Status.IsTerminal() {
		elem := p.historyOrder.PushBack(key)
		p.historyElems[key] = elem
	}
	p.evictIfNeeded()
}

func (p *Processor) evictIfNeeded() {
	if p.historyRetention <= 0 {
		return
	}
	for p.historyOrder.Len() > p.historyRetention {
		front := p.historyOrder.Front()
		key := front.Value.(historyKey)
		p.historyOrder.Remove(front)
		delete(p.historyElems, key)
		delete(p.history, key)
	}
}

func resultFromError(err error) *types.ApplyResult {
	kind := engerrors.KindOf(err)
	return &types.ApplyResult{
		Code:    int32(kind.RPCCode()),
		Message: err.Error(),
	}
}
