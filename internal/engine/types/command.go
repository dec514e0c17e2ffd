package types

import dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"

// CommandTag identifies which command a log entry carries. Values are
// stable across versions: readers must reject unknown tags rather than
// guess at a new command's shape.
type CommandTag uint8

const (
	CmdCreateSymbol CommandTag = iota + 1
	CmdRemoveSymbol
	CmdPauseSymbol
	CmdResumeSymbol
	CmdPlaceOrder
	CmdCancelOrder
	CmdQueryOrder
)

// Command is the decoded, in-memory form of a committed log entry (or, for
// QueryOrder, of a read-only request that may bypass the log entirely).
// ApplyTimeNanos is stamped once by the leader at proposal time and is the
// only source of "now" every replica is allowed to use during apply.
type Command struct {
	Tag            CommandTag
	ApplyTimeNanos int64

	// CreateSymbol
	Symbol *Symbol

	// RemoveSymbol / PauseSymbol / ResumeSymbol
	SymbolName string

	// PlaceOrder
	Order *PlaceOrderRequest

	// CancelOrder / QueryOrder: order_id is unique only within SymbolName
	// (§3), so both fields together identify the order.
	OrderID string
}

// PlaceOrderRequest carries exactly the caller-supplied fields needed to
// construct an Order; precision/limit validation happens against the live
// Symbol at apply time, never at proposal time, so that a symbol whose
// limits changed between propose and commit is judged consistently by
// every replica.
type PlaceOrderRequest struct {
	OrderID      string
	AccountID    string
	Symbol       string
	Side         OrderSide
	Type         OrderType
	TimeInForce  TimeInForce
	Price        dec.Decimal
	Quantity     dec.Decimal
	MakerFeeRate dec.Decimal
	TakerFeeRate dec.Decimal
}

// ApplyResult is what a single command produces once applied. Trades is
// empty for every command but PlaceOrder; OrderState is populated for
// PlaceOrder, CancelOrder and QueryOrder.
type ApplyResult struct {
	Code       int32
	Message    string
	OrderState *Order
	Trades     []*Trade
}
