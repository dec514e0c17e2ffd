// Package codec provides the grpc encoding.Codec used for the trading
// service: since no protobuf message set was generated for it (see
// proto/trading), every request/response type marshals itself directly
// via the engine's explicit binary framing instead of reflection.
package codec

import (
	"fmt"

	"github.com/abdoElHodaky/tradSys/proto/trading"
)

// Name is registered with grpc.ForceServerCodec/grpc.CallContentSubtype.
const Name = "tradsys-binary"

// Codec implements google.golang.org/grpc/encoding.Codec.
type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(trading.Marshaler)
	if !ok {
		return nil, fmt.Errorf("codec: %T does not implement trading.Marshaler", v)
	}
	return m.Marshal()
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(trading.Unmarshaler)
	if !ok {
		return fmt.Errorf("codec: %T does not implement trading.Unmarshaler", v)
	}
	return m.Unmarshal(data)
}

func (Codec) Name() string { return Name }
