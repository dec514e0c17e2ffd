package types

import (
	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
)

// Trade is one half-trade: a match always produces exactly two, one for
// the maker and one for the taker, sharing a TicketID.
type Trade struct {
	TradeID        uint64
	TicketID       uint64
	Symbol         string
	OrderID        string
	AccountID      string
	MatchOrderID   string
	MatchAccountID string
	Side           OrderSide
	IsMaker        bool
	Price          dec.Decimal
	Quantity       dec.Decimal
	Amount         dec.Decimal // price * quantity, rounded to quote precision
	Fee            dec.Decimal // amount * fee_rate, rounded to quote precision
	MatchTimeNanos int64       // deterministic, from the command's apply_time
}
