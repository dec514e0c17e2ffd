package tradesink

import (
	"context"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/engine/types"
)

// Egress drains a buffered channel of trades published by the gRPC
// handler and writes them to the Sink on its own goroutine, so a slow or failing
// sink never backs up into Propose latency (§5's "never via shared
// mutable book state" boundary).
type Egress struct {
	sink   *Sink
	trades chan *types.Trade
	log    *zap.Logger
}

// NewEgress starts the egress worker. bufferSize bounds how many
// trades may be queued; once it is reached, Publish drops further trades
// instead of blocking, which is safe since the log is the durable
// record of what happened.
func NewEgress(sink *Sink, bufferSize int, log *zap.Logger) *Egress {
	e := &Egress{sink: sink, trades: make(chan *types.Trade, bufferSize), log: log}
	go e.run()
	return e
}

// Publish enqueues a trade for persistence, or logs and drops it when
// the buffer is full. It is called from the gRPC handler on the node
// that proposed a PlaceOrder, after Propose returns its result.
func (e *Egress) Publish(t *types.Trade) {
	select {
	case e.trades <- t:
	default:
		e.log.Warn("trade sink egress buffer full, dropping trade",
			zap.Uint64("trade_id", t.TradeID))
	}
}

func (e *Egress) run() {
	ctx := context.Background()
	for t := range e.trades {
		if err := e.sink.Write(ctx, t); err != nil {
			e.log.Error("trade sink write failed", zap.Uint64("trade_id", t.TradeID), zap.Error(err))
		}
	}
}

// Close closes the trade channel; the worker goroutine writes whatever
// is still queued and then exits. Close does not wait for that to
// finish. Callers must ensure Publish is no longer invoked concurrently
// before calling Close.
func (e *Egress) Close() {
	close(e.trades)
}
