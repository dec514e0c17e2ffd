// Package processor implements the OrderProcessor of §4.6: the single
// entry point applying committed commands against the SymbolManager, plus
// the deterministic log-entry and snapshot codecs of §6. It is the
// generalization of the teacher's engine-level Dispatch/apply methods (its
// internal/core/matching/engine.go, no longer in this tree) onto the closed CommandTag set and the
// explicit binary framing the replication adapter requires.
package processor

import (
	"fmt"

	"github.com/abdoElHodaky/tradSys/internal/engine/codec"
	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
	"github.com/abdoElHodaky/tradSys/internal/engine/types"
)

// EncodeEntry frames a command as a log entry: 8 bytes big-endian
// apply_time_ns, 1 byte command_tag, 4 bytes big-endian payload length,
// payload bytes. This is the only wire representation the replication
// adapter ever hands to the external Raft library's log.
func EncodeEntry(cmd *types.Command) ([]byte, error) {
	payload, err := encodePayload(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode payload for tag %d: %w", cmd.Tag, err)
	}
	w := codec.NewWriter()
	w.WriteInt64(cmd.ApplyTimeNanos)
	w.WriteUint8(uint8(cmd.Tag))
	w.WriteBytes(payload)
	return w.Bytes(), nil
}

// DecodeEntry reverses EncodeEntry. An unrecognized tag is a decode
// error, never a silently-ignored entry -- every replica must either
// apply a command or abort, never skip one (§6).
func DecodeEntry(b []byte) (*types.Command, error) {
	r := codec.NewReader(b)
	applyTime, err := r.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("read apply_time_ns: %w", err)
	}
	tagByte, err := r.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("read command_tag: %w", err)
	}
	payload, err := r.ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	tag := types.CommandTag(tagByte)
	cmd, err := decodePayload(tag, payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload for tag %d: %w", tag, err)
	}
	cmd.Tag = tag
	cmd.ApplyTimeNanos = applyTime
	return cmd, nil
}

func encodePayload(cmd *types.Command) ([]byte, error) {
	w := codec.NewWriter()
	switch cmd.Tag {
	case types.CmdCreateSymbol:
		s := cmd.Symbol
		w.WriteString(s.Name)
		w.WriteString(s.BaseAsset)
		w.WriteString(s.QuoteAsset)
		w.WriteInt32(s.PricePrecision)
		w.WriteInt32(s.QuantityPrecision)
		if err := writeDecimals(w, s.MinQuantity, s.MaxQuantity, s.MinAmount, s.MaxAmount); err != nil {
			return nil, err
		}
		w.WriteBool(s.LargeTick)

	case types.CmdRemoveSymbol, types.CmdPauseSymbol, types.CmdResumeSymbol:
		w.WriteString(cmd.SymbolName)

	case types.CmdPlaceOrder:
		o := cmd.Order
		w.WriteString(o.OrderID)
		w.WriteString(o.AccountID)
		w.WriteString(o.Symbol)
		w.WriteString(string(o.Side))
		w.WriteString(string(o.Type))
		w.WriteString(string(o.TimeInForce))
		if err := writeDecimals(w, o.Price, o.Quantity, o.MakerFeeRate, o.TakerFeeRate); err != nil {
			return nil, err
		}

	case types.CmdCancelOrder, types.CmdQueryOrder:
		w.WriteString(cmd.SymbolName)
		w.WriteString(cmd.OrderID)

	default:
		return nil, fmt.Errorf("unknown command tag %d", cmd.Tag)
	}
	return w.Bytes(), nil
}

func decodePayload(tag types.CommandTag, payload []byte) (*types.Command, error) {
	r := codec.NewReader(payload)
	cmd := &types.Command{}
	switch tag {
	case types.CmdCreateSymbol:
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
		symbol, err := types.NewSymbol(name, base, quote, pricePrecision, qtyPrecision, ds[0], ds[1], ds[2], ds[3], largeTick)
		if err != nil {
			return nil, err
		}
		cmd.Symbol = symbol

	case types.CmdRemoveSymbol, types.CmdPauseSymbol, types.CmdResumeSymbol:
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		cmd.SymbolName = name

	case types.CmdPlaceOrder:
		req := &types.PlaceOrderRequest{}
		var err error
		if req.OrderID, err = r.ReadString(); err != nil {
			return nil, err
		}
		if req.AccountID, err = r.ReadString(); err != nil {
			return nil, err
		}
		if req.Symbol, err = r.ReadString(); err != nil {
			return nil, err
		}
		side, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		req.Side = types.OrderSide(side)
		typ, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		req.Type = types.OrderType(typ)
		tif, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		req.TimeInForce = types.TimeInForce(tif)
		ds, err := readDecimals(r, 4)
		if err != nil {
			return nil, err
		}
		req.Price, req.Quantity, req.MakerFeeRate, req.TakerFeeRate = ds[0], ds[1], ds[2], ds[3]
		cmd.Order = req

	case types.CmdCancelOrder, types.CmdQueryOrder:
		symbolName, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		orderID, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		cmd.SymbolName = symbolName
		cmd.OrderID = orderID

	default:
		return nil, fmt.Errorf("unknown command tag %d", tag)
	}
	return cmd, nil
}

func writeDecimals(w *codec.Writer, ds ...dec.Decimal) error {
	for _, d := range ds {
		if err := w.WriteDecimal(d); err != nil {
			return err
		}
	}
	return nil
}

func readDecimals(r *codec.Reader, n int) ([]dec.Decimal, error) {
	out := make([]dec.Decimal, n)
	for i := 0; i < n; i++ {
		d, err := r.ReadDecimal()
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}
