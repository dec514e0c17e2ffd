package tradesink

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/engine/types"
)

// newUnstartedEgress builds an Egress whose drain goroutine was never
// started, so Publish can be exercised without a live Sink (and thus
// without a database): Sink.Write requires a real connection, but the
// buffer-full drop behavior Publish implements never touches it.
func newUnstartedEgress(bufferSize int) *Egress {
	return &Egress{trades: make(chan *types.Trade, bufferSize), log: zap.NewNop()}
}

func TestEgress_PublishDropsWhenBufferFull(t *testing.T) {
	e := newUnstartedEgress(1)

	e.Publish(&types.Trade{TradeID: 1})
	require.Len(t, e.trades, 1)

	e.Publish(&types.Trade{TradeID: 2})
	require.Len(t, e.trades, 1, "publish must drop rather than block when the buffer is full")

	queued := <-e.trades
	require.Equal(t, uint64(1), queued.TradeID, "the first enqueued trade must survive, the second must be dropped")
}

func TestEgress_PublishAcceptsUntilBufferFull(t *testing.T) {
	e := newUnstartedEgress(2)

	e.Publish(&types.Trade{TradeID: 1})
	e.Publish(&types.Trade{TradeID: 2})
	require.Len(t, e.trades, 2)

	e.Publish(&types.Trade{TradeID: 3})
	require.Len(t, e.trades, 2, "third publish must be dropped once the buffer is at capacity")
}
