// Package trading defines the hand-written wire types for the engine's
// gRPC surface (§6's RPC surface: CreateSymbol, RemoveSymbol, PlaceOrder,
// CancelOrder, QueryOrder). Protobuf code generation is out of scope, so
// each message implements Marshal/Unmarshal directly against the same
// explicit binary framing the log entry and snapshot codecs use
// (internal/engine/codec), in the spirit of the teacher's hand-rolled
// proto/marketdata convention.
package trading

import (
	"github.com/abdoElHodaky/tradSys/internal/engine/codec"
	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
)

// Marshaler is implemented by every request/response type in this
// package; the RPC codec (internal/grpc/codec) dispatches to it instead
// of reflecting over struct tags.
type Marshaler interface {
	Marshal() ([]byte, error)
}

// Unmarshaler is the Marshaler counterpart used to decode inbound bytes
// into an existing message value.
type Unmarshaler interface {
	Unmarshal([]byte) error
}

// Result carries the §6/§7 RPC result code and message shared by every
// response.
type Result struct {
	Code    int32
	Message string
}

func (r *Result) write(w *codec.Writer) {
	w.WriteInt32(r.Code)
	w.WriteString(r.Message)
}

func (r *Result) read(rd *codec.Reader) error {
	code, err := rd.ReadInt32()
	if err != nil {
		return err
	}
	msg, err := rd.ReadString()
	if err != nil {
		return err
	}
	r.Code, r.Message = code, msg
	return nil
}

// CreateSymbolRequest proposes a new tradable symbol.
type CreateSymbolRequest struct {
	Name              string
	BaseAsset         string
	QuoteAsset        string
	PricePrecision    int32
	QuantityPrecision int32
	MinQuantity       dec.Decimal
	MaxQuantity       dec.Decimal
	MinAmount         dec.Decimal
	MaxAmount         dec.Decimal
	LargeTick         bool
}

func (m *CreateSymbolRequest) Marshal() ([]byte, error) {
	w := codec.NewWriter()
	w.WriteString(m.Name)
	w.WriteString(m.BaseAsset)
	w.WriteString(m.QuoteAsset)
	w.WriteInt32(m.PricePrecision)
	w.WriteInt32(m.QuantityPrecision)
	for _, d := range []dec.Decimal{m.MinQuantity, m.MaxQuantity, m.MinAmount, m.MaxAmount} {
		if err := w.WriteDecimal(d); err != nil {
			return nil, err
		}
	}
	w.WriteBool(m.LargeTick)
	return w.Bytes(), nil
}

func (m *CreateSymbolRequest) Unmarshal(b []byte) error {
	r := codec.NewReader(b)
	var err error
	if m.Name, err = r.ReadString(); err != nil {
		return err
	}
	if m.BaseAsset, err = r.ReadString(); err != nil {
		return err
	}
	if m.QuoteAsset, err = r.ReadString(); err != nil {
		return err
	}
	if m.PricePrecision, err = r.ReadInt32(); err != nil {
		return err
	}
	if m.QuantityPrecision, err = r.ReadInt32(); err != nil {
		return err
	}
	ds := make([]dec.Decimal, 4)
	for i := range ds {
		if ds[i], err = r.ReadDecimal(); err != nil {
			return err
		}
	}
	m.MinQuantity, m.MaxQuantity, m.MinAmount, m.MaxAmount = ds[0], ds[1], ds[2], ds[3]
	if m.LargeTick, err = r.ReadBool(); err != nil {
		return err
	}
	return nil
}

// SymbolNameRequest covers RemoveSymbol/PauseSymbol/ResumeSymbol, which
// all carry only a symbol name.
type SymbolNameRequest struct {
	Name string
}

func (m *SymbolNameRequest) Marshal() ([]byte, error) {
	w := codec.NewWriter()
	w.WriteString(m.Name)
	return w.Bytes(), nil
}

func (m *SymbolNameRequest) Unmarshal(b []byte) error {
	r := codec.NewReader(b)
	name, err := r.ReadString()
	if err != nil {
		return err
	}
	m.Name = name
	return nil
}

// SymbolResponse is the shared response shape for the four symbol RPCs
// (CreateSymbol, RemoveSymbol, PauseSymbol, ResumeSymbol), none of which
// returns an order.
type SymbolResponse struct {
	Result Result
}

func (m *SymbolResponse) Marshal() ([]byte, error) {
	w := codec.NewWriter()
	m.Result.write(w)
	return w.Bytes(), nil
}

func (m *SymbolResponse) Unmarshal(b []byte) error {
	r := codec.NewReader(b)
	return m.Result.read(r)
}

// PlaceOrderRequest submits a new order.
type PlaceOrderRequest struct {
	OrderID      string
	AccountID    string
	Symbol       string
	Side         string
	Type         string
	TimeInForce  string
	Price        dec.Decimal
	Quantity     dec.Decimal
	MakerFeeRate dec.Decimal
	TakerFeeRate dec.Decimal
}

func (m *PlaceOrderRequest) Marshal() ([]byte, error) {
	w := codec.NewWriter()
	w.WriteString(m.OrderID)
	w.WriteString(m.AccountID)
	w.WriteString(m.Symbol)
	w.WriteString(m.Side)
	w.WriteString(m.Type)
	w.WriteString(m.TimeInForce)
	for _, d := range []dec.Decimal{m.Price, m.Quantity, m.MakerFeeRate, m.TakerFeeRate} {
		if err := w.WriteDecimal(d); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func (m *PlaceOrderRequest) Unmarshal(b []byte) error {
	r := codec.NewReader(b)
	var err error
	if m.OrderID, err = r.ReadString(); err != nil {
		return err
	}
	if m.AccountID, err = r.ReadString(); err != nil {
		return err
	}
	if m.Symbol, err = r.ReadString(); err != nil {
		return err
	}
	if m.Side, err = r.ReadString(); err != nil {
		return err
	}
	if m.Type, err = r.ReadString(); err != nil {
		return err
	}
	if m.TimeInForce, err = r.ReadString(); err != nil {
		return err
	}
	ds := make([]dec.Decimal, 4)
	for i := range ds {
		if ds[i], err = r.ReadDecimal(); err != nil {
			return err
		}
	}
	m.Price, m.Quantity, m.MakerFeeRate, m.TakerFeeRate = ds[0], ds[1], ds[2], ds[3]
	return nil
}

// OrderIDRequest covers CancelOrder/QueryOrder. order_id is unique only
// within a symbol (§3), so both must be supplied to identify an order.
type OrderIDRequest struct {
	Symbol  string
	OrderID string
}

func (m *OrderIDRequest) Marshal() ([]byte, error) {
	w := codec.NewWriter()
	w.WriteString(m.Symbol)
	w.WriteString(m.OrderID)
	return w.Bytes(), nil
}

func (m *OrderIDRequest) Unmarshal(b []byte) error {
	r := codec.NewReader(b)
	symbol, err := r.ReadString()
	if err != nil {
		return err
	}
	orderID, err := r.ReadString()
	if err != nil {
		return err
	}
	m.Symbol, m.OrderID = symbol, orderID
	return nil
}

// OrderState mirrors the fields of an engine order that are meaningful
// to an RPC caller.
type OrderState struct {
	OrderID           string
	AccountID         string
	Symbol            string
	Side              string
	Type              string
	TimeInForce       string
	Status            string
	Price             dec.Decimal
	Quantity          dec.Decimal
	RemainingQuantity dec.Decimal
	FilledQuantity    dec.Decimal
}

func (o *OrderState) write(w *codec.Writer) error {
	w.WriteString(o.OrderID)
	w.WriteString(o.AccountID)
	w.WriteString(o.Symbol)
	w.WriteString(o.Side)
	w.WriteString(o.Type)
	w.WriteString(o.TimeInForce)
	w.WriteString(o.Status)
	for _, d := range []dec.Decimal{o.Price, o.Quantity, o.RemainingQuantity, o.FilledQuantity} {
		if err := w.WriteDecimal(d); err != nil {
			return err
		}
	}
	return nil
}

func (o *OrderState) read(r *codec.Reader) error {
	var err error
	if o.OrderID, err = r.ReadString(); err != nil {
		return err
	}
	if o.AccountID, err = r.ReadString(); err != nil {
		return err
	}
	if o.Symbol, err = r.ReadString(); err != nil {
		return err
	}
	if o.Side, err = r.ReadString(); err != nil {
		return err
	}
	if o.Type, err = r.ReadString(); err != nil {
		return err
	}
	if o.TimeInForce, err = r.ReadString(); err != nil {
		return err
	}
	if o.Status, err = r.ReadString(); err != nil {
		return err
	}
	ds := make([]dec.Decimal, 4)
	for i := range ds {
		if ds[i], err = r.ReadDecimal(); err != nil {
			return err
		}
	}
	o.Price, o.Quantity, o.RemainingQuantity, o.FilledQuantity = ds[0], ds[1], ds[2], ds[3]
	return nil
}

// TradeRecord mirrors one half-trade emitted by a match.
type TradeRecord struct {
	TradeID        uint64
	TicketID       uint64
	OrderID        string
	MatchOrderID   string
	Side           string
	IsMaker        bool
	Price          dec.Decimal
	Quantity       dec.Decimal
	Amount         dec.Decimal
	Fee            dec.Decimal
	MatchTimeNanos int64
}

func (t *TradeRecord) write(w *codec.Writer) error {
	w.WriteUint64(t.TradeID)
	w.WriteUint64(t.TicketID)
	w.WriteString(t.OrderID)
	w.WriteString(t.MatchOrderID)
	w.WriteString(t.Side)
	w.WriteBool(t.IsMaker)
	for _, d := range []dec.Decimal{t.Price, t.Quantity, t.Amount, t.Fee} {
		if err := w.WriteDecimal(d); err != nil {
			return err
		}
	}
	w.WriteInt64(t.MatchTimeNanos)
	return nil
}

func (t *TradeRecord) read(r *codec.Reader) error {
	var err error
	if t.TradeID, err = r.ReadUint64(); err != nil {
		return err
	}
	if t.TicketID, err = r.ReadUint64(); err != nil {
		return err
	}
	if t.OrderID, err = r.ReadString(); err != nil {
		return err
	}
	if t.MatchOrderID, err = r.ReadString(); err != nil {
		return err
	}
	if t.Side, err = r.ReadString(); err != nil {
		return err
	}
	if t.IsMaker, err = r.ReadBool(); err != nil {
		return err
	}
	ds := make([]dec.Decimal, 4)
	for i := range ds {
		if ds[i], err = r.ReadDecimal(); err != nil {
			return err
		}
	}
	t.Price, t.Quantity, t.Amount, t.Fee = ds[0], ds[1], ds[2], ds[3]
	if t.MatchTimeNanos, err = r.ReadInt64(); err != nil {
		return err
	}
	return nil
}

// PlaceOrderResponse returns the final order disposition plus any trades
// the match produced.
type PlaceOrderResponse struct {
	Result Result
	Order  OrderState
	Trades []TradeRecord
}

func (m *PlaceOrderResponse) Marshal() ([]byte, error) {
	w := codec.NewWriter()
	m.Result.write(w)
	if err := m.Order.write(w); err != nil {
		return nil, err
	}
	w.WriteUint32(uint32(len(m.Trades)))
	for i := range m.Trades {
		if err := m.Trades[i].write(w); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func (m *PlaceOrderResponse) Unmarshal(b []byte) error {
	r := codec.NewReader(b)
	if err := m.Result.read(r); err != nil {
		return err
	}
	if err := m.Order.read(r); err != nil {
		return err
	}
	n, err := r.ReadUint32()
	if err != nil {
		return err
	}
	m.Trades = make([]TradeRecord, n)
	for i := uint32(0); i < n; i++ {
		if err := m.Trades[i].read(r); err != nil {
			return err
		}
	}
	return nil
}

// OrderResponse is the shared response shape for CancelOrder/QueryOrder.
type OrderResponse struct {
	Result Result
	Order  OrderState
}

func (m *OrderResponse) Marshal() ([]byte, error) {
	w := codec.NewWriter()
	m.Result.write(w)
	if err := m.Order.write(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (m *OrderResponse) Unmarshal(b []byte) error {
	r := codec.NewReader(b)
	if err := m.Result.read(r); err != nil {
		return err
	}
	return m.Order.read(r)
}
