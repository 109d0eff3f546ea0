// Package utxo manages the set of spendable transaction outputs.
package utxo

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-settle/pkg/tx"
	"github.com/Klingon-tech/klingnet-settle/pkg/types"
)

// ErrNotFound is returned when looking up an output that is not in the pool.
var ErrNotFound = errors.New("utxo not found")

// Entry is one spendable output and the identifier it is keyed by.
type Entry struct {
	ID     types.UTXOID `json:"id"`
	Output tx.Output    `json:"output"`
}

// Pool maps UTXO identifiers to the outputs they denote.
//
// A Pool is not safe for concurrent use. Copy returns an independent pool
// that can be handed to another goroutine.
type Pool struct {
	outputs map[types.UTXOID]tx.Output
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{outputs: make(map[types.UTXOID]tx.Output)}
}

// NewPoolFromEntries creates a pool holding the given entries.
// Later entries overwrite earlier ones with the same identifier.
func NewPoolFromEntries(entries []Entry) *Pool {
	p := &Pool{outputs: make(map[types.UTXOID]tx.Output, len(entries))}
	for _, e := range entries {
		p.outputs[e.ID] = e.Output
	}
	return p
}

// Contains reports whether id is spendable.
func (p *Pool) Contains(id types.UTXOID) bool {
	_, ok := p.outputs[id]
	return ok
}

// Output returns the output denoted by id, or ErrNotFound.
func (p *Pool) Output(id types.UTXOID) (tx.Output, error) {
	out, ok := p.outputs[id]
	if !ok {
		return tx.Output{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return out, nil
}

// Add inserts or overwrites the output for id.
func (p *Pool) Add(id types.UTXOID, out tx.Output) {
	p.outputs[id] = out
}

// Remove deletes id from the pool. It reports whether id was present.
func (p *Pool) Remove(id types.UTXOID) bool {
	if _, ok := p.outputs[id]; !ok {
		return false
	}
	delete(p.outputs, id)
	return true
}

// Len returns the number of spendable outputs.
func (p *Pool) Len() int {
	return len(p.outputs)
}

// Entries returns every entry sorted by identifier.
func (p *Pool) Entries() []Entry {
	entries := make([]Entry, 0, len(p.outputs))
	for id, out := range p.outputs {
		entries = append(entries, Entry{ID: id, Output: out})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID.Compare(entries[j].ID) < 0
	})
	return entries
}

// ForEach calls fn for every entry in unspecified order.
// Return a non-nil error from fn to stop iteration early.
// fn must not modify the pool.
func (p *Pool) ForEach(fn func(Entry) error) error {
	for id, out := range p.outputs {
		if err := fn(Entry{ID: id, Output: out}); err != nil {
			return err
		}
	}
	return nil
}

// Copy returns a pool with an independent mapping. Outputs are shared
// because they are never mutated in place.
func (p *Pool) Copy() *Pool {
	cp := make(map[types.UTXOID]tx.Output, len(p.outputs))
	for id, out := range p.outputs {
		cp[id] = out
	}
	return &Pool{outputs: cp}
}

// TotalValue returns the sum of all output values.
func (p *Pool) TotalValue() (int64, error) {
	var total int64
	for _, out := range p.outputs {
		sum, ok := tx.AddValues(total, out.Value)
		if !ok {
			return 0, tx.ErrValueOverflow
		}
		total = sum
	}
	return total, nil
}
