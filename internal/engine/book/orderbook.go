// Package book implements the per-symbol limit order book: two
// price-ordered ladders with insertion-ordered (price-time priority)
// queues at each level, and a flat order_id index for cancellation. It is
// the generalization of the teacher's heap-based OrderBook (its
// internal/core/matching/order_book.go, no longer in this tree) onto a btree-backed ladder so that
// price levels -- not individual orders -- are the unit the tree orders,
// matching §4.3's "sorted map from price to a queue of order handles" note.
package book

import (
	"container/list"

	"github.com/google/btree"

	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
	"github.com/abdoElHodaky/tradSys/internal/engine/types"
	engerrors "github.com/abdoElHodaky/tradSys/internal/errors"
)

const btreeDegree = 32

// priceLevel is one price point on a ladder: a FIFO queue of resting
// orders, oldest sequence first.
type priceLevel struct {
	price  dec.Decimal
	orders *list.List // of *types.Order
}

func priceLess(a, b *priceLevel) bool {
	return a.price.LessThan(b.price)
}

// entry is the index value for O(log n) cancellation: which ladder, which
// level, and which list element holds a given order_id.
type entry struct {
	side  types.OrderSide
	level *priceLevel
	elem  *list.Element
}

// OrderBook is the per-symbol book: bids sorted descending by price, asks
// ascending, both with strict sequence-ordered FIFO queues within a level.
type OrderBook struct {
	Symbol string

	bids *btree.BTreeG[*priceLevel] // iterate via Descend: highest price first
	asks *btree.BTreeG[*priceLevel] // iterate via Ascend: lowest price first

	index    map[string]*entry
	sequence uint64
}

// New creates an empty order book for a symbol.
func New(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids:   btree.NewG(btreeDegree, priceLess),
		asks:   btree.NewG(btreeDegree, priceLess),
		index:  make(map[string]*entry),
	}
}

func (b *OrderBook) ladder(side types.OrderSide) *btree.BTreeG[*priceLevel] {
	if side == types.SideBuy {
		return b.bids
	}
	return b.asks
}

// Insert places a resting order at its price level, appended to the tail
// of the level's queue, and assigns its Sequence from the per-book
// monotonic counter.
func (b *OrderBook) Insert(order *types.Order) {
	b.sequence++
	order.Sequence = b.sequence

	ladder := b.ladder(order.Side)
	key := &priceLevel{price: order.Price}
	level, ok := ladder.Get(key)
	if !ok {
		level = &priceLevel{price: order.Price, orders: list.New()}
		ladder.ReplaceOrInsert(level)
	}
	elem := level.orders.PushBack(order)
	b.index[order.OrderID] = &entry{side: order.Side, level: level, elem: elem}
}

// BestBid returns the highest bid price and true, or (Zero, false) if the
// bid side is empty.
func (b *OrderBook) BestBid() (dec.Decimal, bool) {
	if m, ok := b.bids.Max(); ok {
		return m.price, true
	}
	return dec.Zero, false
}

// BestAsk returns the lowest ask price and true, or (Zero, false) if the
// ask side is empty.
func (b *OrderBook) BestAsk() (dec.Decimal, bool) {
	if m, ok := b.asks.Min(); ok {
		return m.price, true
	}
	return dec.Zero, false
}

// HeadOf returns the oldest resting order at the given price on the given
// side, or nil if that level doesn't exist.
func (b *OrderBook) HeadOf(side types.OrderSide, price dec.Decimal) *types.Order {
	level, ok := b.ladder(side).Get(&priceLevel{price: price})
	if !ok || level.orders.Len() == 0 {
		return nil
	}
	return level.orders.Front().Value.(*types.Order)
}

// Reduce removes a resting order from the book if its remaining quantity
// is zero, and otherwise leaves it in place. It does not change any
// quantity itself: the caller (the matcher) updates the order's
// filled/remaining/status fields via Order.Fill before calling Reduce.
func (b *OrderBook) Reduce(orderID string) {
	e, ok := b.index[orderID]
	if !ok {
		return
	}
	order := e.elem.Value.(*types.Order)
	if !order.RemainingQuantity.IsZero() {
		return
	}
	b.removeEntry(orderID, e)
}

// Cancel removes a resting order from the book and returns it. It errors
// with OrderNotFound if the order is not currently resting.
func (b *OrderBook) Cancel(orderID string) (*types.Order, error) {
	e, ok := b.index[orderID]
	if !ok {
		return nil, engerrors.New(engerrors.OrderNotFound, "order not resting in book").WithOrderID(orderID)
	}
	order := e.elem.Value.(*types.Order)
	b.removeEntry(orderID, e)
	return order, nil
}

func (b *OrderBook) removeEntry(orderID string, e *entry) {
	e.level.orders.Remove(e.elem)
	delete(b.index, orderID)
	if e.level.orders.Len() == 0 {
		b.ladder(e.side).Delete(e.level)
	}
}

// Depth returns up to `levels` (price, aggregate remaining quantity) pairs
// per side, best price first -- used for diagnostics, not for matching.
type DepthLevel struct {
	Price    dec.Decimal
	Quantity dec.Decimal
	Orders   int
}

func (b *OrderBook) Depth(levels int) (bids, asks []DepthLevel) {
	collect := func(tree *btree.BTreeG[*priceLevel], descend bool) []DepthLevel {
		out := make([]DepthLevel, 0, levels)
		visit := func(pl *priceLevel) bool {
			if len(out) >= levels {
				return false
			}
			qty := dec.Zero
			for e := pl.orders.Front(); e != nil; e = e.Next() {
				qty = qty.Add(e.Value.(*types.Order).RemainingQuantity)
			}
			out = append(out, DepthLevel{Price: pl.price, Quantity: qty, Orders: pl.orders.Len()})
			return true
		}
		if descend {
			tree.Descend(visit)
		} else {
			tree.Ascend(visit)
		}
		return out
	}
	return collect(b.bids, true), collect(b.asks, false)
}

// AvailableQuantity sums remaining quantity across price levels on side,
// in priority order, stopping as soon as crossable(price) is false or the
// accumulated total already reaches atLeast. It never allocates a
// per-level slice, so it is safe to call against an arbitrarily deep book.
func (b *OrderBook) AvailableQuantity(side types.OrderSide, crossable func(price dec.Decimal) bool, atLeast dec.Decimal) dec.Decimal {
	total := dec.Zero
	visit := func(pl *priceLevel) bool {
		if !crossable(pl.price) {
			return false
		}
		for e := pl.orders.Front(); e != nil; e = e.Next() {
			total = total.Add(e.Value.(*types.Order).RemainingQuantity)
		}
		return total.LessThan(atLeast)
	}
	if side == types.SideBuy {
		b.bids.Descend(visit)
	} else {
		b.asks.Ascend(visit)
	}
	return total
}

// SequenceCounter returns the book's current per-book monotonic counter value,
// used by the processor when composing a snapshot.
func (b *OrderBook) SequenceCounter() uint64 { return b.sequence }

// SetSequenceCounter restores the per-book counter on snapshot restore.
func (b *OrderBook) SetSequenceCounter(v uint64) { b.sequence = v }

// RestingOrders returns every order currently resting in the book, in
// strict deterministic order: bids highest-price-first then sequence
// ascending, followed by asks lowest-price-first then sequence ascending.
// This is the order §4.3 requires and exactly the order Snapshot writes.
func (b *OrderBook) RestingOrders() []*types.Order {
	out := make([]*types.Order, 0, len(b.index))
	b.bids.Descend(func(pl *priceLevel) bool {
		for e := pl.orders.Front(); e != nil; e = e.Next() {
			out = append(out, e.Value.(*types.Order))
		}
		return true
	})
	b.asks.Ascend(func(pl *priceLevel) bool {
		for e := pl.orders.Front(); e != nil; e = e.Next() {
			out = append(out, e.Value.(*types.Order))
		}
		return true
	})
	return out
}

// Restore rebuilds the book from a list of live orders (in the same
// deterministic order RestingOrders produces) and the per-book sequence
// counter at the time of the snapshot. It assumes an empty book.
func (b *OrderBook) Restore(orders []*types.Order, sequence uint64) {
	for _, o := range orders {
		ladder := b.ladder(o.Side)
		key := &priceLevel{price: o.Price}
		level, ok := ladder.Get(key)
		if !ok {
			level = &priceLevel{price: o.Price, orders: list.New()}
			ladder.ReplaceOrInsert(level)
		}
		elem := level.orders.PushBack(o)
		b.index[o.OrderID] = &entry{side: o.Side, level: level, elem: elem}
	}
	b.sequence = sequence
}
