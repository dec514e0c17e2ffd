// Package symbols implements the SymbolManager of §4.5: the mapping from
// symbol name to its Symbol definition and OrderBook, and the symbol
// lifecycle operations every other command validates against. It is the
// generalization of the teacher's engine-level symbol registries (the
// map[string]*OrderBook in its internal/core/matching/engine.go, no
// longer in this tree) onto an
// explicit Alive/Paused/Stopped lifecycle.
package symbols

import (
	"sort"

	"github.com/abdoElHodaky/tradSys/internal/engine/book"
	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
	"github.com/abdoElHodaky/tradSys/internal/engine/types"
	engerrors "github.com/abdoElHodaky/tradSys/internal/errors"
)

// Entry bundles a symbol's static definition with its live order book.
type Entry struct {
	Symbol *types.Symbol
	Book   *book.OrderBook
}

// Manager owns every symbol known to this engine instance. It is not
// safe for concurrent use -- like the rest of the core, it is driven
// exclusively by the single apply loop (§5).
type Manager struct {
	entries map[string]*Entry
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{entries: make(map[string]*Entry)}
}

// Create registers a new symbol with an empty book in Alive status. It
// errors if the symbol already exists, regardless of its status --
// recreating a Stopped symbol requires a distinct name.
func (m *Manager) Create(symbol *types.Symbol) error {
	if _, ok := m.entries[symbol.Name]; ok {
		return engerrors.New(engerrors.InvalidParameter, "symbol already exists").WithSymbol(symbol.Name)
	}
	m.entries[symbol.Name] = &Entry{
		Symbol: symbol,
		Book:   book.New(symbol.Name),
	}
	return nil
}

// Remove sets a symbol's status to Stopped, cancels every resting order
// in its book (the caller is responsible for turning the returned orders
// into Canceled updates -- Remove itself never produces trades), and
// drops the symbol from the active mapping.
func (m *Manager) Remove(name string) ([]*types.Order, error) {
	e, ok := m.entries[name]
	if !ok {
		return nil, engerrors.New(engerrors.SymbolNotTradable, "unknown symbol").WithSymbol(name)
	}
	e.Symbol.Status = types.SymbolStopped
	resting := e.Book.RestingOrders()
	canceled := make([]*types.Order, 0, len(resting))
	for _, o := range resting {
		if _, err := e.Book.Cancel(o.OrderID); err == nil {
			o.Status = types.StatusCanceled
			o.RemainingQuantity = dec.Zero
			canceled = append(canceled, o)
		}
	}
	delete(m.entries, name)
	return canceled, nil
}

// GetActive returns the entry for name iff its symbol is currently
// Alive; any other status (or absence) is reported as SymbolNotTradable,
// matching the uniform rejection rule §4.5 specifies for PlaceOrder
// against a non-Alive symbol.
func (m *Manager) GetActive(name string) (*Entry, error) {
	e, ok := m.entries[name]
	if !ok || e.Symbol.Status != types.SymbolAlive {
		return nil, engerrors.New(engerrors.SymbolNotTradable, "symbol not tradable").WithSymbol(name)
	}
	return e, nil
}

// Get returns the entry for name regardless of status, for operations
// (cancel, query) that are allowed against a Paused symbol. It still
// errors if the symbol was never created or has been Removed.
func (m *Manager) Get(name string) (*Entry, error) {
	e, ok := m.entries[name]
	if !ok {
		return nil, engerrors.New(engerrors.SymbolNotTradable, "unknown symbol").WithSymbol(name)
	}
	return e, nil
}

// Pause moves an Alive symbol to Paused: new orders are refused but
// cancellations remain allowed.
func (m *Manager) Pause(name string) error {
	e, err := m.Get(name)
	if err != nil {
		return err
	}
	if e.Symbol.Status != types.SymbolAlive {
		return engerrors.New(engerrors.InvalidParameter, "symbol is not alive").WithSymbol(name)
	}
	e.Symbol.Status = types.SymbolPaused
	return nil
}

// Resume moves a Paused symbol back to Alive.
func (m *Manager) Resume(name string) error {
	e, err := m.Get(name)
	if err != nil {
		return err
	}
	if e.Symbol.Status != types.SymbolPaused {
		return engerrors.New(engerrors.InvalidParameter, "symbol is not paused").WithSymbol(name)
	}
	e.Symbol.Status = types.SymbolAlive
	return nil
}

// All returns every live (non-removed) entry, sorted by symbol name, for
// deterministic snapshot iteration.
func (m *Manager) All() []*Entry {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Entry, 0, len(names))
	for _, name := range names {
		out = append(out, m.entries[name])
	}
	return out
}
