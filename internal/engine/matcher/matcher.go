// Package matcher implements the stateless price-time priority matching
// algorithm described in §4.4: given a new order and the book for its
// symbol, it drives zero or more trades out of the book and returns the
// updated incoming order. It is the generalization of the teacher's
// matchBuyOrder/matchSellOrder pair (its internal/core/matching/order_book.go,
// no longer in this tree) onto the book package's btree ladders and onto decimal arithmetic, with
// FOK/LimitMaker preflight and TIF disposition added per §4.4.
package matcher

import (
	"github.com/abdoElHodaky/tradSys/internal/engine/book"
	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
	"github.com/abdoElHodaky/tradSys/internal/engine/types"
)

// IDAllocator hands out the engine-global, per-engine monotonic trade_id
// and ticket_id counters. A single implementation is shared by every
// symbol's matches so ids are globally, not per-symbol, unique -- exactly
// as the OrderProcessor owns them in §4.6/§5.
type IDAllocator interface {
	NextTradeID() uint64
	NextTicketID() uint64
}

// Match runs the five-step algorithm of §4.4 against ob for the incoming
// order, returning the trades produced (possibly empty) and leaving order
// in its final disposed status. matchTimeNanos is the command's
// deterministic apply time, never the wall clock. symbol supplies the
// quote-precision rounding rule for trade amounts and fees.
func Match(ob *book.OrderBook, order *types.Order, symbol *types.Symbol, ids IDAllocator, matchTimeNanos int64) []*types.Trade {
	opposite := opposingSide(order.Side)

	if order.TimeInForce == types.TIFFOK {
		if !fokCanFill(ob, order) {
			order.Status = types.StatusCanceled
			order.RemainingQuantity = dec.Zero
			return nil
		}
	}

	if order.Type == types.TypeLimitMaker && hasCrossableLiquidity(ob, order) {
		order.Status = types.StatusRejected
		order.RemainingQuantity = dec.Zero
		return nil
	}

	var trades []*types.Trade

	for !order.RemainingQuantity.IsZero() {
		bestPrice, ok := bestOpposite(ob, opposite)
		if !ok || !crosses(order, bestPrice) {
			break
		}
		maker := ob.HeadOf(opposite, bestPrice)
		if maker == nil {
			break
		}

		tradeQty := minDecimal(order.RemainingQuantity, maker.RemainingQuantity)
		tradePrice := maker.Price

		ticketID := ids.NextTicketID()
		amount := symbol.RoundAmount(tradePrice.Mul(tradeQty))

		makerTrade := &types.Trade{
			TradeID:        ids.NextTradeID(),
			TicketID:       ticketID,
			Symbol:         order.Symbol,
			OrderID:        maker.OrderID,
			AccountID:      maker.AccountID,
			MatchOrderID:   order.OrderID,
			MatchAccountID: order.AccountID,
			Side:           maker.Side,
			IsMaker:        true,
			Price:          tradePrice,
			Quantity:       tradeQty,
			Amount:         amount,
			Fee:            dec.Zero,
			MatchTimeNanos: matchTimeNanos,
		}
		makerTrade.Fee = symbol.RoundAmount(amount.Mul(maker.MakerFeeRate))

		takerTrade := &types.Trade{
			TradeID:        ids.NextTradeID(),
			TicketID:       ticketID,
			Symbol:         order.Symbol,
			OrderID:        order.OrderID,
			AccountID:      order.AccountID,
			MatchOrderID:   maker.OrderID,
			MatchAccountID: maker.AccountID,
			Side:           order.Side,
			IsMaker:        false,
			Price:          tradePrice,
			Quantity:       tradeQty,
			Amount:         amount,
			Fee:            symbol.RoundAmount(amount.Mul(order.TakerFeeRate)),
			MatchTimeNanos: matchTimeNanos,
		}

		trades = append(trades, makerTrade, takerTrade)

		maker.Fill(tradeQty)
		order.Fill(tradeQty)
		ob.Reduce(maker.OrderID)
	}

	disposeRemainder(ob, order)
	return trades
}

// disposeRemainder implements step 5 of §4.4: what happens to the
// incoming order once the fill loop stops.
func disposeRemainder(ob *book.OrderBook, order *types.Order) {
	if order.RemainingQuantity.IsZero() {
		order.Status = types.StatusFilled
		return
	}
	switch {
	case order.Type == types.TypeMarket:
		order.Status = types.StatusCanceled
	case order.TimeInForce == types.TIFIOC:
		order.Status = types.StatusCanceled
	default: // Limit+GTC, or LimitMaker having passed its preflight
		ob.Insert(order)
		if order.FilledQuantity.IsZero() {
			order.Status = types.StatusNew
		} else {
			order.Status = types.StatusPartiallyFilled
		}
	}
}

func opposingSide(side types.OrderSide) types.OrderSide {
	if side == types.SideBuy {
		return types.SideSell
	}
	return types.SideBuy
}

func bestOpposite(ob *book.OrderBook, side types.OrderSide) (dec.Decimal, bool) {
	if side == types.SideBuy {
		return ob.BestBid()
	}
	return ob.BestAsk()
}

// crosses reports whether the incoming order is willing to trade at
// bestPrice found on the opposite ladder.
func crosses(order *types.Order, bestOppositePrice dec.Decimal) bool {
	if order.Type == types.TypeMarket {
		return true
	}
	if order.IsBuy() {
		return order.Price.GreaterThanOrEqual(bestOppositePrice)
	}
	return order.Price.LessThanOrEqual(bestOppositePrice)
}

func hasCrossableLiquidity(ob *book.OrderBook, order *types.Order) bool {
	opposite := opposingSide(order.Side)
	best, ok := bestOpposite(ob, opposite)
	if !ok {
		return false
	}
	return crosses(order, best)
}

// fokCanFill scans the opposite ladder, accumulating available quantity at
// crossable prices, and reports whether it covers order.Quantity. It does
// not mutate the book.
func fokCanFill(ob *book.OrderBook, order *types.Order) bool {
	opposite := opposingSide(order.Side)
	available := ob.AvailableQuantity(opposite, func(price dec.Decimal) bool {
		return crosses(order, price)
	}, order.Quantity)
	return available.GreaterThanOrEqual(order.Quantity)
}

func minDecimal(a, b dec.Decimal) dec.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

