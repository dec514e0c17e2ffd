// Package client provides the gRPC connections the trading handler uses
// to forward a state-changing RPC to the current Raft leader when it
// lands on a follower (§4.7's "redirect" allowance). Each known peer
// gets its own pooled, auto-reconnecting *grpc.ClientConn; the pool
// itself is adapted from the teacher's connection-pool convention,
// generalized to the engine's own binary codec instead of protobuf.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	grpccodec "github.com/abdoElHodaky/tradSys/internal/grpc/codec"
	"github.com/abdoElHodaky/tradSys/proto/trading"
)

// ConnectionPool is a round-robin pool of connections to a single
// target, with a background goroutine that redials any connection that
// drops into TransientFailure or Shutdown.
type ConnectionPool struct {
	target      string
	connections []*grpc.ClientConn
	index       int
	mu          sync.Mutex
	logger      *zap.Logger
	dialOptions []grpc.DialOption
	stop        chan struct{}
}

// ConnectionPoolOptions contains options for the connection pool.
type ConnectionPoolOptions struct {
	MaxSize           int
	DialTimeout       time.Duration
	KeepAliveTime     time.Duration
	KeepAliveTimeout  time.Duration
	MaxBackoffDelay   time.Duration
	BackoffMultiplier float64
	MinConnectTimeout time.Duration
}

// DefaultConnectionPoolOptions returns default connection pool options.
func DefaultConnectionPoolOptions() ConnectionPoolOptions {
	return ConnectionPoolOptions{
		MaxSize:           2,
		DialTimeout:       5 * time.Second,
		KeepAliveTime:     30 * time.Second,
		KeepAliveTimeout:  10 * time.Second,
		MaxBackoffDelay:   10 * time.Second,
		BackoffMultiplier: 1.5,
		MinConnectTimeout: 1 * time.Second,
	}
}

// NewConnectionPool creates a new connection pool against target,
// forcing the engine's binary codec rather than protobuf since trading
// request/response types marshal themselves (see internal/grpc/codec).
func NewConnectionPool(target string, logger *zap.Logger, options ConnectionPoolOptions) (*ConnectionPool, error) {
	dialOptions := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(grpccodec.Name)),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                options.KeepAliveTime,
			Timeout:             options.KeepAliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithConnectParams(grpc.ConnectParams{
			Backoff: backoff.Config{
				BaseDelay:  100 * time.Millisecond,
				Multiplier: options.BackoffMultiplier,
				Jitter:     0.2,
				MaxDelay:   options.MaxBackoffDelay,
			},
			MinConnectTimeout: options.MinConnectTimeout,
		}),
	}

	pool := &ConnectionPool{
		target:      target,
		connections: make([]*grpc.ClientConn, 0, options.MaxSize),
		logger:      logger,
		dialOptions: dialOptions,
		stop:        make(chan struct{}),
	}

	for i := 0; i < options.MaxSize; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), options.DialTimeout)
		conn, err := grpc.DialContext(ctx, target, dialOptions...)
		cancel()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("dial %s: %w", target, err)
		}
		pool.connections = append(pool.connections, conn)
	}

	go pool.monitorConnections()

	return pool, nil
}

// Get returns the next connection in the pool, round-robin. If that one
// is not Ready, the first Ready connection is returned instead; if none
// is Ready, the round-robin pick is returned as is.
func (p *ConnectionPool) Get() (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.connections) == 0 {
		return nil, ErrNoConnections
	}

	conn := p.connections[p.index%len(p.connections)]
	p.index++

	if conn.GetState() != connectivity.Ready {
		for _, c := range p.connections {
			if c.GetState() == connectivity.Ready {
				conn = c
				break
			}
		}
	}

	return conn, nil
}

// Close closes all connections in the pool and stops its monitor.
func (p *ConnectionPool) Close() {
	close(p.stop)
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, conn := range p.connections {
		conn.Close()
	}
	p.connections = nil
}

func (p *ConnectionPool) monitorConnections() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		for i, conn := range p.connections {
			state := conn.GetState()
			if state == connectivity.TransientFailure || state == connectivity.Shutdown {
				p.logger.Warn("connection in bad state, reconnecting",
					zap.String("target", p.target),
					zap.Int("index", i),
					zap.String("state", state.String()))

				conn.Close()
				newConn, err := grpc.Dial(p.target, p.dialOptions...)
				if err != nil {
					p.logger.Error("failed to reconnect",
						zap.String("target", p.target),
						zap.Int("index", i),
						zap.Error(err))
					continue
				}
				p.connections[i] = newConn
			}
		}
		p.mu.Unlock()
	}
}

// ErrNoConnections is returned when there are no connections in the pool.
var ErrNoConnections = &PoolError{Message: "no connections available in the pool"}

// PoolError represents an error from the connection pool.
type PoolError struct {
	Message string
}

func (e *PoolError) Error() string { return e.Message }

// LeaderForwarder holds one ConnectionPool per peer gRPC address seen so
// far, created lazily as leadership moves around the cluster, and uses
// it to forward a follower's state-changing RPC to whichever node is
// currently leader.
type LeaderForwarder struct {
	mu      sync.Mutex
	pools   map[string]*ConnectionPool
	logger  *zap.Logger
	options ConnectionPoolOptions
}

// NewLeaderForwarder returns a LeaderForwarder with no connections yet.
func NewLeaderForwarder(logger *zap.Logger) *LeaderForwarder {
	return &LeaderForwarder{
		pools:   make(map[string]*ConnectionPool),
		logger:  logger,
		options: DefaultConnectionPoolOptions(),
	}
}

// Forward invokes method (one of the trading.Trading service's RPC
// names) against addr, marshaling req and decoding the response into
// resp via the engine's binary codec.
func (f *LeaderForwarder) Forward(ctx context.Context, addr, method string, req trading.Marshaler, resp trading.Unmarshaler) error {
	pool, err := f.poolFor(addr)
	if err != nil {
		return err
	}
	conn, err := pool.Get()
	if err != nil {
		return fmt.Errorf("get connection to %s: %w", addr, err)
	}
	return conn.Invoke(ctx, "/trading.Trading/"+method, req, resp)
}

func (f *LeaderForwarder) poolFor(addr string) (*ConnectionPool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pool, ok := f.pools[addr]; ok {
		return pool, nil
	}
	pool, err := NewConnectionPool(addr, f.logger, f.options)
	if err != nil {
		return nil, err
	}
	f.pools[addr] = pool
	return pool, nil
}

// Close closes every pool the forwarder has opened.
func (f *LeaderForwarder) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pool := range f.pools {
		pool.Close()
	}
	f.pools = nil
}
