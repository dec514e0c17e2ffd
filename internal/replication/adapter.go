package replication

import (
	"fmt"
	"time"

	"github.com/hashicorp/raft"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/engine/processor"
	"github.com/abdoElHodaky/tradSys/internal/engine/types"
	engerrors "github.com/abdoElHodaky/tradSys/internal/errors"
)

// Adapter is the Replication adapter of §4.7. It owns the Raft handle
// and is the only component the gRPC layer talks to: every
// state-changing RPC becomes a Command, is framed into a log entry, and
// is proposed via Propose. QueryOrder may bypass the log entirely
// (ApplyLocal) since it never mutates state, but it still goes through
// fsm, which serializes it against every committed Apply (see fsm.go).
type Adapter struct {
	raft    *raft.Raft
	fsm     *FSM
	log     *zap.Logger
	timeout time.Duration
}

// New builds an Adapter over an already-configured *raft.Raft (leader
// election, transport, and log store are assembled by the caller --
// those concerns are external per scope) and the FSM it was built with.
func New(r *raft.Raft, fsm *FSM, log *zap.Logger, applyTimeout time.Duration) *Adapter {
	if applyTimeout <= 0 {
		applyTimeout = 5 * time.Second
	}
	return &Adapter{raft: r, fsm: fsm, log: log, timeout: applyTimeout}
}

// Close stops the Adapter's FSM task loop. Call after the underlying
// raft.Raft has been shut down.
func (a *Adapter) Close() {
	a.fsm.Close()
}

// Propose encodes cmd, submits it to the Raft log, and blocks until it
// commits and applies, returning the ApplyResult the FSM produced.
// correlationID is attached only to log lines for request tracing (D9)
// -- it is never part of the log entry and has no bearing on applied
// state, since a UUID is non-deterministic across replicas.
func (a *Adapter) Propose(cmd *types.Command, correlationID string) (*types.ApplyResult, error) {
	if !a.IsLeader() {
		return nil, engerrors.New(engerrors.NotLeader, "propose called on non-leader").WithOrderID(cmd.OrderID)
	}

	entry, err := processor.EncodeEntry(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}

	future := a.raft.Apply(entry, a.timeout)
	if err := future.Error(); err != nil {
		a.log.Error("raft apply failed",
			zap.String("correlation_id", correlationID),
			zap.Uint8("command_tag", uint8(cmd.Tag)),
			zap.Error(err))
		return nil, fmt.Errorf("raft apply: %w", err)
	}

	result, err := resultOf(future.Response())
	if err != nil {
		a.log.Error("command applied with error",
			zap.String("correlation_id", correlationID),
			zap.Uint8("command_tag", uint8(cmd.Tag)),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// ApplyLocal applies a read-only command (QueryOrder) directly against
// this node's Processor without going through the Raft log, per §4.6's
// "may bypass the log" allowance. It is safe on any node, leader or
// follower, including concurrently with other in-flight RPCs and with
// the FSM applying newly committed entries, because fsm serializes it
// against every Apply call.
func (a *Adapter) ApplyLocal(cmd *types.Command) (*types.ApplyResult, error) {
	return a.fsm.ApplyLocal(cmd)
}

// IsLeader reports whether this node currently holds Raft leadership.
func (a *Adapter) IsLeader() bool {
	return a.raft.State() == raft.Leader
}

// LeaderAddr returns the address of the current Raft leader, if known,
// so a follower receiving a state-changing RPC can redirect the caller.
func (a *Adapter) LeaderAddr() (raft.ServerAddress, raft.ServerID) {
	return a.raft.LeaderWithID()
}
