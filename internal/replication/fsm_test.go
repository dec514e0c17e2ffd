package replication

import (
	"bytes"
	"io"
	"testing"

	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/require"

	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
	"github.com/abdoElHodaky/tradSys/internal/engine/processor"
	"github.com/abdoElHodaky/tradSys/internal/engine/types"
	engerrors "github.com/abdoElHodaky/tradSys/internal/errors"
)

type fakeSink struct {
	bytes.Buffer
	canceled bool
}

func (s *fakeSink) ID() string     { return "fake" }
func (s *fakeSink) Cancel() error  { s.canceled = true; return nil }
func (s *fakeSink) Close() error   { return nil }

func createSymbolLog(t *testing.T, index uint64) *raft.Log {
	t.Helper()
	sym, err := types.NewSymbol("BTC-USDT", "BTC", "USDT", 2, 4,
		mustDec(t, "0"), mustDec(t, "1000"), mustDec(t, "0"), mustDec(t, "1000000"), false)
	require.NoError(t, err)
	cmd := &types.Command{Tag: types.CmdCreateSymbol, Symbol: sym, ApplyTimeNanos: 1}
	data, err := processor.EncodeEntry(cmd)
	require.NoError(t, err)
	return &raft.Log{Index: index, Term: 1, Type: raft.LogCommand, Data: data}
}

func newTestFSM(t *testing.T, proc *processor.Processor) *FSM {
	t.Helper()
	fsm := NewFSM(proc)
	t.Cleanup(fsm.Close)
	return fsm
}

func TestFSM_ApplyReturnsResultOnSuccess(t *testing.T) {
	fsm := newTestFSM(t, processor.New(0))
	resp := fsm.Apply(createSymbolLog(t, 1))

	result, ok := resp.(*types.ApplyResult)
	require.True(t, ok, "expected *types.ApplyResult, got %T", resp)
	require.Equal(t, int32(engerrors.CodeSuccess), result.Code)
}

func TestFSM_ApplyReturnsErrorOnUndecodableEntry(t *testing.T) {
	fsm := newTestFSM(t, processor.New(0))
	resp := fsm.Apply(&raft.Log{Index: 1, Data: []byte{1, 2, 3}})

	_, isResult := resp.(*types.ApplyResult)
	require.False(t, isResult)
	_, isErr := resp.(error)
	require.True(t, isErr, "a garbled entry must surface as an error, classified Internal by the caller")
}

func TestFSM_ApplyLocalSerializesAgainstApply(t *testing.T) {
	fsm := newTestFSM(t, processor.New(0))
	fsm.Apply(createSymbolLog(t, 1))

	_, err := fsm.ApplyLocal(&types.Command{Tag: types.CmdQueryOrder, SymbolName: "BTC-USDT", OrderID: "missing"})
	require.NoError(t, err)

	_, err = fsm.ApplyLocal(&types.Command{Tag: types.CmdCancelOrder, SymbolName: "BTC-USDT", OrderID: "missing"})
	require.Error(t, err, "ApplyLocal must reject anything but QueryOrder")
}

func TestFSM_SnapshotAndRestoreRoundTrip(t *testing.T) {
	fsm := newTestFSM(t, processor.New(0))
	fsm.Apply(createSymbolLog(t, 1))

	snap, err := fsm.Snapshot()
	require.NoError(t, err)

	sink := &fakeSink{}
	require.NoError(t, snap.Persist(sink))
	require.False(t, sink.canceled)

	restoredFSM := newTestFSM(t, processor.New(0))
	err = restoredFSM.Restore(io.NopCloser(bytes.NewReader(sink.Bytes())))
	require.NoError(t, err)

	resp := restoredFSM.Apply(&raft.Log{
		Index: 2,
		Data: mustEncode(t, &types.Command{Tag: types.CmdQueryOrder, SymbolName: "BTC-USDT", OrderID: "nonexistent"}),
	})
	result, ok := resp.(*types.ApplyResult)
	require.True(t, ok)
	require.NotEqual(t, int32(engerrors.CodeSuccess), result.Code)
}

func mustDec(t *testing.T, s string) dec.Decimal {
	t.Helper()
	d, err := dec.NewFromString(s)
	require.NoError(t, err)
	return d
}

func mustEncode(t *testing.T, cmd *types.Command) []byte {
	t.Helper()
	data, err := processor.EncodeEntry(cmd)
	require.NoError(t, err)
	return data
}
