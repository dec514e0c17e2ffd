package processor

import (
	"container/list"
	"fmt"

	"github.com/abdoElHodaky/tradSys/internal/engine/codec"
	"github.com/abdoElHodaky/tradSys/internal/engine/symbols"
	"github.com/abdoElHodaky/tradSys/internal/engine/types"
)

// Snapshot returns a deterministic byte representation of every symbol,
// its book, the trade-id/ticket-id counters, and the bounded terminal-
// order history, per §4.6 and §6. Two processors that have applied the
// same command log in the same order produce byte-identical snapshots.
func (p *Processor) Snapshot() ([]byte, error) {
	w := codec.NewWriter()

	entries := p.symbols.All()
	w.WriteUint32(uint32(len(entries)))
	for _, e := range entries {
		if err := writeSymbol(w, e.Symbol); err != nil {
			return nil, err
		}
		w.WriteUint64(e.Book.SequenceCounter())
		resting := e.Book.RestingOrders()
		w.WriteUint32(uint32(len(resting)))
		for _, o := range resting {
			if err := writeOrder(w, o); err != nil {
				return nil, err
			}
		}
	}

	w.WriteUint64(p.tradeSeq)
	w.WriteUint64(p.ticketSeq)

	w.WriteUint32(uint32(p.historyOrder.Len()))
	for el := p.historyOrder.Front(); el != nil; el = el.Next() {
		key := el.Value.(historyKey)
		if err := writeOrder(w, p.history[key]); err != nil {
			return nil, err
		}
	}

	return w.Bytes(), nil
}

// Restore replaces this Processor's entire state with the state encoded
// in b, as produced by Snapshot. It assumes a freshly constructed,
// otherwise-empty Processor.
func (p *Processor) Restore(b []byte) error {
	r := codec.NewReader(b)

	symbolCount, err := r.ReadUint32()
	if err != nil {
		return fmt.Errorf("read symbol count: %w", err)
	}
	mgr := symbols.New()
	for i := uint32(0); i < symbolCount; i++ {
		sym, err := readSymbol(r)
		if err != nil {
			return fmt.Errorf("read symbol %d: %w", i, err)
		}
		if err := mgr.Create(sym); err != nil {
			return fmt.Errorf("restore symbol %s: %w", sym.Name, err)
		}
		entry, err := mgr.Get(sym.Name)
		if err != nil {
			return err
		}

		seq, err := r.ReadUint64()
		if err != nil {
			return fmt.Errorf("read book sequence for %s: %w", sym.Name, err)
		}
		orderCount, err := r.ReadUint32()
		if err != nil {
			return fmt.Errorf("read resting order count for %s: %w", sym.Name, err)
		}
		orders := make([]*types.Order, 0, orderCount)
		for j := uint32(0); j < orderCount; j++ {
			o, err := readOrder(r)
			if err != nil {
				return fmt.Errorf("read resting order %d for %s: %w", j, sym.Name, err)
			}
			orders = append(orders, o)
		}
		entry.Book.Restore(orders, seq)
	}

	tradeSeq, err := r.ReadUint64()
	if err != nil {
		return fmt.Errorf("read trade_id counter: %w", err)
	}
	ticketSeq, err := r.ReadUint64()
	if err != nil {
		return fmt.Errorf("read ticket_id counter: %w", err)
	}

	historyCount, err := r.ReadUint32()
	if err != nil {
		return fmt.Errorf("read history count: %w", err)
	}

	p.symbols = mgr
	p.tradeSeq = tradeSeq
	p.ticketSeq = ticketSeq
	p.history = make(map[historyKey]*types.Order, historyCount)
	p.historyElems = make(map[historyKey]*list.Element, historyCount)
	p.historyOrder = list.New()
	for i := uint32(0); i < historyCount; i++ {
		o, err := readOrder(r)
		if err != nil {
			return fmt.Errorf("read history order %d: %w", i, err)
		}
		key := historyKey{o.Symbol, o.OrderID}
		p.history[key] = o
		elem := p.historyOrder.PushBack(key)
		p.historyElems[key] = elem
	}
	// Every still-resting order must also be queryable; book restore
	// above populated the books but not the query index.
	for _, e := range mgr.All() {
		for _, o := range e.Book.RestingOrders() {
			p.history[historyKey{o.Symbol, o.OrderID}] = o
		}
	}

	return nil
}

func writeSymbol(w *codec.Writer, s *types.Symbol) error {
	w.WriteString(s.Name)
	w.WriteString(s.BaseAsset)
	w.WriteString(s.QuoteAsset)
	w.WriteInt32(s.PricePrecision)
	w.WriteInt32(s.QuantityPrecision)
	if err := writeDecimals(w, s.MinQuantity, s.MaxQuantity, s.MinAmount, s.MaxAmount); err != nil {
		return err
	}
	w.WriteBool(s.LargeTick)
	w.WriteString(string(s.Status))
	return nil
}

func readSymbol(r *codec.Reader) (*types.Symbol, error) {
	name, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	base, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	quote, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	pricePrecision, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	qtyPrecision, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	ds, err := readDecimals(r, 4)
	if err != nil {
		return nil, err
	}
	largeTick, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	status, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	sym, err := types.NewSymbol(name, base, quote, pricePrecision, qtyPrecision, ds[0], ds[1], ds[2], ds[3], largeTick)
	if err != nil {
		return nil, err
	}
	sym.Status = types.SymbolStatus(status)
	return sym, nil
}

func writeOrder(w *codec.Writer, o *types.Order) error {
	w.WriteString(o.OrderID)
	w.WriteString(o.AccountID)
	w.WriteString(o.Symbol)
	w.WriteString(string(o.Side))
	w.WriteString(string(o.Type))
	w.WriteString(string(o.TimeInForce))
	w.WriteString(string(o.Status))
	w.WriteUint64(o.Sequence)
	return writeDecimals(w, o.Price, o.Quantity, o.RemainingQuantity, o.FilledQuantity, o.MakerFeeRate, o.TakerFeeRate)
}

func readOrder(r *codec.Reader) (*types.Order, error) {
	o := &types.Order{}
	var err error
	if o.OrderID, err = r.ReadString(); err != nil {
		return nil, err
	}
	if o.AccountID, err = r.ReadString(); err != nil {
		return nil, err
	}
	if o.Symbol, err = r.ReadString(); err != nil {
		return nil, err
	}
	side, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	o.Side = types.OrderSide(side)
	typ, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	o.Type = types.OrderType(typ)
	tif, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	o.TimeInForce = types.TimeInForce(tif)
	status, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	o.Status = types.OrderStatus(status)
	if o.Sequence, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	ds, err := readDecimals(r, 6)
	if err != nil {
		return nil, err
	}
	o.Price, o.Quantity, o.RemainingQuantity, o.FilledQuantity, o.MakerFeeRate, o.TakerFeeRate = ds[0], ds[1], ds[2], ds[3], ds[4], ds[5]
	return o, nil
}
