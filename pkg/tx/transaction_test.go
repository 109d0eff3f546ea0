package tx

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/Klingon-tech/klingnet-settle/pkg/crypto"
	"github.com/Klingon-tech/klingnet-settle/pkg/types"
)

func testTx() *Transaction {
	return &Transaction{
		Version: 1,
		Inputs:  []Input{{PrevTxHash: []byte{0x01}, OutputIndex: 0}},
		Outputs: []Output{{Value: 1000, Owner: []byte{0x02, 0xaa}}},
	}
}

func TestTransaction_Hash_Deterministic(t *testing.T) {
	tx := testTx()
	h1 := tx.Hash()
	h2 := tx.Hash()
	if h1 != h2 {
		t.Error("Hash() should be deterministic")
	}
	if h1.IsZero() {
		t.Error("Hash() should not be zero")
	}
}

func TestTransaction_Hash_ChangesWithContent(t *testing.T) {
	base := testTx().Hash()

	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"value", func(tx *Transaction) { tx.Outputs[0].Value = 2000 }},
		{"owner", func(tx *Transaction) { tx.Outputs[0].Owner = []byte{0x03} }},
		{"prev hash", func(tx *Transaction) { tx.Inputs[0].PrevTxHash = []byte{0x02} }},
		{"output index", func(tx *Transaction) { tx.Inputs[0].OutputIndex = 1 }},
		{"version", func(tx *Transaction) { tx.Version = 2 }},
		// Length prefixes keep hash/index boundaries unambiguous.
		{"hash boundary", func(tx *Transaction) { tx.Inputs[0].PrevTxHash = []byte{0x01, 0x00} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := testTx()
			tt.mutate(tx)
			if tx.Hash() == base {
				t.Error("mutated transaction should hash differently")
			}
		})
	}
}

func TestTransaction_Hash_IgnoresSignature(t *testing.T) {
	tx := testTx()
	h1 := tx.Hash()
	tx.Inputs[0].Signature = []byte("some signature")
	if tx.Hash() != h1 {
		t.Error("Hash() should not depend on signatures")
	}
}

func TestTransaction_SigningBytes(t *testing.T) {
	tx := testTx()
	tx.Inputs = append(tx.Inputs, Input{PrevTxHash: []byte{0x09}, OutputIndex: 4})

	if bytes.Equal(tx.SigningBytes(0), tx.SigningBytes(1)) {
		t.Error("signing bytes should bind the input position")
	}

	before := tx.SigningBytes(1)
	tx.Inputs[0].Signature = []byte{0x01, 0x02}
	tx.Inputs[1].Signature = []byte{0x03}
	if !bytes.Equal(before, tx.SigningBytes(1)) {
		t.Error("signing bytes should exclude every signature field")
	}

	if tx.SigHash(0) != crypto.Hash(tx.SigningBytes(0)) {
		t.Error("SigHash should be the hash of SigningBytes")
	}
}

func TestTransaction_TotalOutputValue(t *testing.T) {
	tx := &Transaction{Outputs: []Output{{Value: 1000}, {Value: 2000}, {Value: -500}}}
	total, err := tx.TotalOutputValue()
	if err != nil {
		t.Fatalf("TotalOutputValue: %v", err)
	}
	if total != 2500 {
		t.Errorf("total = %d, want 2500", total)
	}

	empty := &Transaction{}
	if total, _ := empty.TotalOutputValue(); total != 0 {
		t.Errorf("empty total = %d, want 0", total)
	}

	overflow := &Transaction{Outputs: []Output{{Value: math.MaxInt64}, {Value: 1}}}
	if _, err := overflow.TotalOutputValue(); !errors.Is(err, ErrValueOverflow) {
		t.Errorf("expected ErrValueOverflow, got %v", err)
	}
}

func TestAddValues(t *testing.T) {
	tests := []struct {
		a, b int64
		want int64
		ok   bool
	}{
		{1, 2, 3, true},
		{math.MaxInt64, 0, math.MaxInt64, true},
		{math.MaxInt64, 1, 0, false},
		{math.MinInt64, -1, 0, false},
		{math.MinInt64, math.MaxInt64, -1, true},
	}
	for _, tt := range tests {
		got, ok := AddValues(tt.a, tt.b)
		if ok != tt.ok || got != tt.want {
			t.Errorf("AddValues(%d, %d) = %d, %v; want %d, %v", tt.a, tt.b, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInput_UTXOID(t *testing.T) {
	in := Input{PrevTxHash: []byte{0xab}, OutputIndex: 2}
	id, err := in.UTXOID()
	if err != nil {
		t.Fatalf("UTXOID: %v", err)
	}
	want, _ := types.NewUTXOID([]byte{0xab}, 2)
	if id != want {
		t.Errorf("UTXOID = %s, want %s", id, want)
	}

	if _, err := (Input{}).UTXOID(); !errors.Is(err, types.ErrNilHash) {
		t.Errorf("expected ErrNilHash, got %v", err)
	}
}

func TestTransaction_JSON(t *testing.T) {
	tx := testTx()
	tx.Inputs[0].Signature = []byte{0xde, 0xad}

	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Transaction
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Hash() != tx.Hash() {
		t.Error("decoded transaction should hash the same")
	}
	if !bytes.Equal(got.Inputs[0].Signature, tx.Inputs[0].Signature) {
		t.Error("signature lost in JSON roundtrip")
	}

	var nilHash Transaction
	if err := json.Unmarshal([]byte(`{"inputs":[{"output_index":1}],"outputs":[]}`), &nilHash); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if nilHash.Inputs[0].PrevTxHash != nil {
		t.Error("missing prev_tx_hash should decode as nil")
	}
}

func TestBuilder_BuildAndSign(t *testing.T) {
	alice, _ := crypto.GenerateKey()
	bob, _ := crypto.GenerateKey()

	b := NewBuilder().
		AddInput([]byte{0x01}, 0).
		Spend(types.UTXOIDFromHash(types.Hash{0x02}, 3)).
		AddOutput(700, bob.PublicKey()).
		AddOutput(300, alice.PublicKey())
	if err := b.Sign(alice); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	transaction := b.Build()

	if len(transaction.Inputs) != 2 || len(transaction.Outputs) != 2 {
		t.Fatalf("unexpected shape: %d inputs, %d outputs", len(transaction.Inputs), len(transaction.Outputs))
	}
	if transaction.Inputs[1].OutputIndex != 3 {
		t.Errorf("Spend index = %d, want 3", transaction.Inputs[1].OutputIndex)
	}
	for i, in := range transaction.Inputs {
		h := transaction.SigHash(i)
		if !crypto.VerifySignature(h[:], in.Signature, alice.PublicKey()) {
			t.Errorf("input %d signature does not verify", i)
		}
	}

	// A signature for one position must not verify at another.
	h1 := transaction.SigHash(1)
	if crypto.VerifySignature(h1[:], transaction.Inputs[0].Signature, alice.PublicKey()) {
		t.Error("signature should be bound to its input position")
	}
}

func TestBuilder_CopiesArguments(t *testing.T) {
	prev := []byte{0x01}
	owner := []byte{0x02}
	transaction := NewBuilder().AddInput(prev, 0).AddOutput(1, owner).Build()

	prev[0], owner[0] = 0xff, 0xff
	if transaction.Inputs[0].PrevTxHash[0] != 0x01 || transaction.Outputs[0].Owner[0] != 0x02 {
		t.Error("builder should copy caller slices")
	}
}

func TestSignInput_OutOfRange(t *testing.T) {
	key, _ := crypto.GenerateKey()
	transaction := NewBuilder().AddInput([]byte{0x01}, 0).Build()

	if err := SignInput(transaction, 1, key); err == nil {
		t.Error("expected error for out-of-range input")
	}
	if err := SignInput(transaction, -1, key); err == nil {
		t.Error("expected error for negative input")
	}
}
