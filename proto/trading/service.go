package trading

import (
	"context"

	"google.golang.org/grpc"
)

// Server is the interface the engine node implements: the five RPCs of
// §6's surface plus PauseSymbol and ResumeSymbol. It is handwritten here in place of a generated
// *_grpc.pb.go, matching the service-registration shape protoc-gen-go-grpc
// would otherwise produce.
type Server interface {
	CreateSymbol(context.Context, *CreateSymbolRequest) (*SymbolResponse, error)
	RemoveSymbol(context.Context, *SymbolNameRequest) (*SymbolResponse, error)
	PauseSymbol(context.Context, *SymbolNameRequest) (*SymbolResponse, error)
	ResumeSymbol(context.Context, *SymbolNameRequest) (*SymbolResponse, error)
	PlaceOrder(context.Context, *PlaceOrderRequest) (*PlaceOrderResponse, error)
	CancelOrder(context.Context, *OrderIDRequest) (*OrderResponse, error)
	QueryOrder(context.Context, *OrderIDRequest) (*OrderResponse, error)
}

const serviceName = "trading.Trading"

func handler(newReq func() Unmarshaler, call func(ctx context.Context, srv Server, req Unmarshaler) (interface{}, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		req := newReq()
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, srv.(Server), req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName}
		return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(ctx, srv.(Server), req.(Unmarshaler))
		})
	}
}

// ServiceDesc is the hand-rolled equivalent of the generated
// _Trading_serviceDesc a protoc-gen-go-grpc run would emit.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateSymbol",
			Handler: handler(
				func() Unmarshaler { return &CreateSymbolRequest{} },
				func(ctx context.Context, srv Server, req Unmarshaler) (interface{}, error) {
					return srv.CreateSymbol(ctx, req.(*CreateSymbolRequest))
				},
			),
		},
		{
			MethodName: "RemoveSymbol",
			Handler: handler(
				func() Unmarshaler { return &SymbolNameRequest{} },
				func(ctx context.Context, srv Server, req Unmarshaler) (interface{}, error) {
					return srv.RemoveSymbol(ctx, req.(*SymbolNameRequest))
				},
			),
		},
		{
			MethodName: "PauseSymbol",
			Handler: handler(
				func() Unmarshaler { return &SymbolNameRequest{} },
				func(ctx context.Context, srv Server, req Unmarshaler) (interface{}, error) {
					return srv.PauseSymbol(ctx, req.(*SymbolNameRequest))
				},
			),
		},
		{
			MethodName: "ResumeSymbol",
			Handler: handler(
				func() Unmarshaler { return &SymbolNameRequest{} },
				func(ctx context.Context, srv Server, req Unmarshaler) (interface{}, error) {
					return srv.ResumeSymbol(ctx, req.(*SymbolNameRequest))
				},
			),
		},
		{
			MethodName: "PlaceOrder",
			Handler: handler(
				func() Unmarshaler { return &PlaceOrderRequest{} },
				func(ctx context.Context, srv Server, req Unmarshaler) (interface{}, error) {
					return srv.PlaceOrder(ctx, req.(*PlaceOrderRequest))
				},
			),
		},
		{
			MethodName: "CancelOrder",
			Handler: handler(
				func() Unmarshaler { return &OrderIDRequest{} },
				func(ctx context.Context, srv Server, req Unmarshaler) (interface{}, error) {
					return srv.CancelOrder(ctx, req.(*OrderIDRequest))
				},
			),
		},
		{
			MethodName: "QueryOrder",
			Handler: handler(
				func() Unmarshaler { return &OrderIDRequest{} },
				func(ctx context.Context, srv Server, req Unmarshaler) (interface{}, error) {
					return srv.QueryOrder(ctx, req.(*OrderIDRequest))
				},
			),
		},
	},
	Metadata: "trading.proto",
}

// RegisterServer registers srv against a *grpc.Server configured with
// the Codec from internal/grpc/codec (ForceServerCodec) -- without a
// protobuf message set, the default codec cannot marshal these types.
func RegisterServer(s *grpc.Server, srv Server) {
	s.RegisterService(&ServiceDesc, srv)
}
