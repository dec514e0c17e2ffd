// Package errors defines the engine's error taxonomy. Every error the core
// can produce is one of a small closed set of Kinds, each mapping onto an
// RPC result code at the boundary (see proto/trading). The taxonomy itself,
// and the severity/context-carrying Error type, are adapted from the
// tradSys pkg/errors convention.
package errors

import (
	"fmt"
)

// Kind is the closed taxonomy from the error handling design.
type Kind string

const (
	// InvalidParameter covers malformed input, unknown symbol references
	// outside SymbolManager lookups, quantity/price outside limits, and
	// precision violations that normalize to zero.
	InvalidParameter Kind = "INVALID_PARAMETER"

	// SymbolNotTradable covers a missing, Paused, or Stopped symbol.
	SymbolNotTradable Kind = "SYMBOL_NOT_TRADABLE"

	// OrderNotFound covers cancel/query of an unknown or long-evicted order.
	OrderNotFound Kind = "ORDER_NOT_FOUND"

	// DuplicateOrderID covers an order_id already known for that symbol.
	DuplicateOrderID Kind = "DUPLICATE_ORDER_ID"

	// Rejected covers LimitMaker-would-match and FOK-cannot-fully-fill: a
	// normal order-lifecycle outcome, not an RPC failure.
	Rejected Kind = "REJECTED"

	// Internal covers invariant violations. internal/replication's
	// FSM.Apply returns such an error as the log entry's response; on the
	// leader Propose hands it back to the caller. Nothing in this module
	// stops the process when one occurs.
	Internal Kind = "INTERNAL_ERROR"

	// NotLeader covers a state-changing command proposed against a node
	// that does not currently hold Raft leadership. The gRPC layer uses
	// this Kind to decide whether to forward the request to the leader
	// rather than fail it outright.
	NotLeader Kind = "NOT_LEADER"
)

// Code is the RPC-level result code from spec §6.
type Code int32

const (
	CodeSuccess          Code = 0
	CodeInvalidParameter Code = 1
	CodeInternalError    Code = 2
	CodeFail             Code = 3
)

// RPCCode maps a Kind onto the RPC surface's result code:
// InvalidParameter and DuplicateOrderID map to CodeInvalidParameter,
// Internal and NotLeader to CodeInternalError, and every other Kind
// (SymbolNotTradable, OrderNotFound, Rejected) to CodeFail. A LimitMaker
// or FOK order that cannot trade is not an error at all: the processor
// returns CodeSuccess and the order's own status carries the outcome.
func (k Kind) RPCCode() Code {
	switch k {
	case InvalidParameter, DuplicateOrderID:
		return CodeInvalidParameter
	case Internal, NotLeader:
		return CodeInternalError
	case SymbolNotTradable, OrderNotFound, Rejected:
		return CodeFail
	default:
		return CodeFail
	}
}

// EngineError is the engine's structured error type: a Kind plus a message
// and optional context, following the tradSys pkg/errors.TradSysError
// pattern (minus severity/tracing fields this engine has no use for).
type EngineError struct {
	Kind    Kind
	Message string
	OrderID string
	Symbol  string
	Cause   error
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Symbol != "" {
		msg += fmt.Sprintf(" (symbol=%s)", e.Symbol)
	}
	if e.OrderID != "" {
		msg += fmt.Sprintf(" (order_id=%s)", e.OrderID)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *EngineError) Unwrap() error { return e.Cause }

// New builds an EngineError of the given kind.
func New(kind Kind, message string) *EngineError {
	return &EngineError{Kind: kind, Message: message}
}

// Newf builds an EngineError with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *EngineError {
	return New(kind, fmt.Sprintf(format, args...))
}

// WithOrderID attaches an order id for diagnostics.
func (e *EngineError) WithOrderID(id string) *EngineError {
	e.OrderID = id
	return e
}

// WithSymbol attaches a symbol for diagnostics.
func (e *EngineError) WithSymbol(symbol string) *EngineError {
	e.Symbol = symbol
	return e
}

// KindOf extracts the Kind from an error, defaulting to Internal for any
// error the engine did not itself construct -- an unclassified error
// reaching the apply boundary is itself an invariant violation.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ee *EngineError
	if As(err, &ee) {
		return ee.Kind
	}
	return Internal
}

// As is a small local helper mirroring errors.As, kept dependency-free of
// the stdlib generic signature changes across Go versions used elsewhere
// in this module.
func As(err error, target **EngineError) bool {
	for err != nil {
		if ee, ok := err.(*EngineError); ok {
			*target = ee
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
