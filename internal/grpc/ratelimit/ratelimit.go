// Package ratelimit throttles inbound RPCs before they reach the
// propose path (§5's expansion: "throttling decisions ... happen
// strictly before Raft commit and never affect applied state"). It is
// a per-peer request-rate limit (ulule/limiter's in-memory store) keyed
// on the gRPC peer's host.
package ratelimit

import (
	"context"
	"fmt"
	"net"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Interceptor builds a unary server interceptor enforcing rate against
// every caller identified by peer address. rate is expressed the way
// ulule/limiter expects it, e.g. "50-S" for 50 requests/second.
func Interceptor(rate string) (grpc.UnaryServerInterceptor, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	lim := limiter.New(memory.NewStore(), r)

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		key := peerKey(ctx)
		ctxVal, err := lim.Get(ctx, key)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "rate limiter: %v", err)
		}
		if ctxVal.Reached {
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded for %s", key)
		}
		return handler(ctx, req)
	}, nil
}

func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}
