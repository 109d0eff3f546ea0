package utxo

import (
	"errors"
	"math"
	"testing"

	"github.com/Klingon-tech/klingnet-settle/pkg/crypto"
	"github.com/Klingon-tech/klingnet-settle/pkg/tx"
	"github.com/Klingon-tech/klingnet-settle/pkg/types"
)

func makeID(data string, index uint32) types.UTXOID {
	return types.UTXOIDFromHash(crypto.Hash([]byte(data)), index)
}

func makeOutput(value int64) tx.Output {
	return tx.Output{Value: value, Owner: []byte{0x02, 0x01, 0x02, 0x03}}
}

func TestPool_AddContainsOutput(t *testing.T) {
	p := NewPool()
	id := makeID("tx1", 0)

	if p.Contains(id) {
		t.Error("Contains() should be false before Add()")
	}

	p.Add(id, makeOutput(5000))
	if !p.Contains(id) {
		t.Error("Contains() should be true after Add()")
	}

	out, err := p.Output(id)
	if err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if out.Value != 5000 {
		t.Errorf("Value = %d, want 5000", out.Value)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestPool_OutputNotFound(t *testing.T) {
	p := NewPool()
	_, err := p.Output(makeID("missing", 0))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPool_AddOverwrites(t *testing.T) {
	p := NewPool()
	id := makeID("tx1", 0)
	p.Add(id, makeOutput(1))
	p.Add(id, makeOutput(2))

	out, _ := p.Output(id)
	if out.Value != 2 {
		t.Errorf("Value = %d, want 2", out.Value)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestPool_Remove(t *testing.T) {
	p := NewPool()
	id := makeID("tx1", 0)
	p.Add(id, makeOutput(1))

	if !p.Remove(id) {
		t.Error("Remove() should report a present id")
	}
	if p.Contains(id) {
		t.Error("Contains() should be false after Remove()")
	}
	if p.Remove(id) {
		t.Error("Remove() of an absent id should be a no-op")
	}
}

func TestPool_StructuralKeys(t *testing.T) {
	p := NewPool()
	a, _ := types.NewUTXOID([]byte{0x01, 0x02}, 0)
	p.Add(a, makeOutput(10))

	// A separately built id with the same bytes finds the entry.
	b, _ := types.NewUTXOID([]byte{0x01, 0x02}, 0)
	if !p.Contains(b) {
		t.Error("lookup should be structural, not by identity")
	}
}

func TestPool_Entries_Sorted(t *testing.T) {
	p := NewPool()
	p.Add(makeID("b", 1), makeOutput(1))
	p.Add(makeID("a", 0), makeOutput(2))
	p.Add(makeID("c", 0), makeOutput(3))

	entries := p.Entries()
	if len(entries) != 3 {
		t.Fatalf("Entries() returned %d, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ID.Compare(entries[i].ID) >= 0 {
			t.Errorf("entries not sorted at %d", i)
		}
	}
	if entries[2].ID.Index() != 1 {
		t.Error("index-1 entry should sort last")
	}
}

func TestPool_ForEach(t *testing.T) {
	p := NewPool()
	p.Add(makeID("tx1", 0), makeOutput(1000))
	p.Add(makeID("tx2", 0), makeOutput(2000))

	var count int
	var total int64
	err := p.ForEach(func(e Entry) error {
		count++
		total += e.Output.Value
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if count != 2 || total != 3000 {
		t.Errorf("count = %d total = %d, want 2 and 3000", count, total)
	}

	stop := errors.New("stop")
	if err := p.ForEach(func(Entry) error { return stop }); !errors.Is(err, stop) {
		t.Errorf("ForEach should return the callback error, got %v", err)
	}
}

func TestPool_CopyIndependence(t *testing.T) {
	p := NewPool()
	shared := makeID("shared", 0)
	p.Add(shared, makeOutput(10))

	q := p.Copy()

	// Mutating the copy leaves the source untouched.
	q.Remove(shared)
	q.Add(makeID("only-q", 0), makeOutput(1))
	if !p.Contains(shared) {
		t.Error("Remove on copy affected source")
	}
	if p.Contains(makeID("only-q", 0)) {
		t.Error("Add on copy affected source")
	}

	// And the other way round.
	p.Add(makeID("only-p", 0), makeOutput(1))
	p.Add(shared, makeOutput(99))
	if q.Contains(makeID("only-p", 0)) || q.Contains(shared) {
		t.Error("mutating source affected copy")
	}

	r := p.Copy()
	if out, _ := r.Output(shared); out.Value != 99 {
		t.Errorf("copy Value = %d, want 99", out.Value)
	}
	if Commitment(r) != Commitment(p) {
		t.Error("fresh copy should commit to the same root")
	}
}

func TestNewPoolFromEntries(t *testing.T) {
	id := makeID("g", 0)
	p := NewPoolFromEntries([]Entry{
		{ID: id, Output: makeOutput(1)},
		{ID: id, Output: makeOutput(2)},
		{ID: makeID("g", 1), Output: makeOutput(3)},
	})
	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", p.Len())
	}
	if out, _ := p.Output(id); out.Value != 2 {
		t.Errorf("later entry should win, got %d", out.Value)
	}
}

func TestPool_TotalValue(t *testing.T) {
	p := NewPool()
	p.Add(makeID("a", 0), makeOutput(10))
	p.Add(makeID("b", 0), makeOutput(32))
	if total, err := p.TotalValue(); err != nil || total != 42 {
		t.Errorf("TotalValue() = %d, %v; want 42", total, err)
	}

	p.Add(makeID("c", 0), makeOutput(math.MaxInt64))
	if _, err := p.TotalValue(); !errors.Is(err, tx.ErrValueOverflow) {
		t.Errorf("expected ErrValueOverflow, got %v", err)
	}
}
