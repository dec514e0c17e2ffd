// Package replication implements the Replication adapter of §4.7: it
// bridges a hashicorp/raft consensus group to the OrderProcessor,
// decoding each committed log entry in order and invoking Apply exactly
// once per entry, strictly single-threaded. Result correlation back to
// the originating RPC waiter (leader only) lives in adapter.go.
package replication

import (
	"fmt"
	"io"

	"github.com/hashicorp/raft"

	"github.com/abdoElHodaky/tradSys/internal/engine/processor"
	"github.com/abdoElHodaky/tradSys/internal/engine/types"
	engerrors "github.com/abdoElHodaky/tradSys/internal/errors"
)

// FSM adapts a *processor.Processor to raft.FSM. Raft itself serializes
// Apply/Snapshot/Restore onto one internal goroutine, but that guarantee
// only covers calls Raft makes -- QueryOrder needs to read the same
// Processor from an RPC goroutine without racing it (§5's "single-
// threaded... eliminates the need for any per-book locking" invariant).
// FSM closes that gap itself: every access to proc, whether it arrives
// via Apply or via ApplyLocal, is funneled through a single task channel
// drained by one dedicated goroutine, so proc is still only ever touched
// from one place at a time.
type FSM struct {
	proc  *processor.Processor
	tasks chan func()
}

// NewFSM wraps proc for use as a raft.FSM and starts its task loop.
func NewFSM(proc *processor.Processor) *FSM {
	f := &FSM{proc: proc, tasks: make(chan func())}
	go f.run()
	return f
}

// Close stops the task loop. Callers must ensure no further Apply,
// ApplyLocal, Snapshot, or Restore call is in flight once Close returns.
func (f *FSM) Close() {
	close(f.tasks)
}

func (f *FSM) run() {
	for task := range f.tasks {
		task()
	}
}

// applyResult is the shape every task below hands back over its own
// one-shot response channel.
type applyResult struct {
	result *types.ApplyResult
	err    error
}

func (f *FSM) submitApply(cmd *types.Command) applyResult {
	done := make(chan applyResult, 1)
	f.tasks <- func() {
		r, err := f.proc.Apply(cmd)
		done <- applyResult{r, err}
	}
	return <-done
}

// Apply decodes a committed log entry and applies it to the processor.
// It returns *types.ApplyResult on success or an error value the caller
// (via raft.ApplyFuture.Response()) must treat as InternalError -- per
// §7, a replica that cannot make sense of its own committed log must
// abort rather than silently diverge.
func (f *FSM) Apply(entry *raft.Log) interface{} {
	cmd, err := processor.DecodeEntry(entry.Data)
	if err != nil {
		return fmt.Errorf("decode log entry at index %d: %w", entry.Index, err)
	}
	res := f.submitApply(cmd)
	if res.err != nil {
		return fmt.Errorf("apply command at index %d: %w", entry.Index, res.err)
	}
	return res.result
}

// ApplyLocal answers a read-only QueryOrder directly against proc,
// without going through the Raft log, per §4.6's "may bypass the log"
// allowance -- but still through the same task loop as Apply, so it can
// never race a concurrent commit.
func (f *FSM) ApplyLocal(cmd *types.Command) (*types.ApplyResult, error) {
	if cmd.Tag != types.CmdQueryOrder {
		return nil, engerrors.Newf(engerrors.Internal, "ApplyLocal is only valid for QueryOrder, got tag %d", cmd.Tag)
	}
	res := f.submitApply(cmd)
	return res.result, res.err
}

// Snapshot captures the processor's current deterministic byte
// representation. Persist happens later, off the FSM goroutine, so the
// bytes are computed eagerly here rather than lazily in the returned
// FSMSnapshot -- Raft may defer Persist arbitrarily, but applying new
// commands must not mutate a snapshot already taken.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	type snapResult struct {
		bytes []byte
		err   error
	}
	done := make(chan snapResult, 1)
	f.tasks <- func() {
		b, err := f.proc.Snapshot()
		done <- snapResult{b, err}
	}
	res := <-done
	if res.err != nil {
		return nil, fmt.Errorf("build snapshot: %w", res.err)
	}
	return &fsmSnapshot{bytes: res.bytes}, nil
}

// Restore replaces the processor's entire state from a Raft-delivered
// snapshot stream, reversing the zstd framing Persist always applies
// before handing the deterministic bytes to Processor.Restore.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read snapshot stream: %w", err)
	}
	b, err := decompressSnapshot(raw)
	if err != nil {
		return fmt.Errorf("decompress snapshot: %w", err)
	}
	done := make(chan error, 1)
	f.tasks <- func() {
		done <- f.proc.Restore(b)
	}
	if err := <-done; err != nil {
		return engerrors.Newf(engerrors.Internal, "restore snapshot: %v", err)
	}
	return nil
}

type fsmSnapshot struct {
	bytes []byte
}

// Persist writes the zstd-compressed snapshot bytes to the
// sink Raft provides, per the §6 snapshot format expansion.
func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	compressed, err := compressSnapshot(s.bytes)
	if err != nil {
		sink.Cancel()
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if _, err := sink.Write(compressed); err != nil {
		sink.Cancel()
		return fmt.Errorf("write snapshot: %w", err)
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}

var _ raft.FSM = (*FSM)(nil)

// resultOf extracts the typed ApplyResult from a raft.ApplyFuture's
// Response, classifying anything unexpected as an internal error rather
// than risking a silent type-assertion panic at the RPC boundary.
func resultOf(resp interface{}) (*types.ApplyResult, error) {
	switch v := resp.(type) {
	case *types.ApplyResult:
		return v, nil
	case error:
		return nil, v
	default:
		return nil, engerrors.Newf(engerrors.Internal, "unexpected FSM response type %T", resp)
	}
}
