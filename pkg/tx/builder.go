package tx

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-settle/pkg/crypto"
	"github.com/Klingon-tech/klingnet-settle/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{
		tx: &Transaction{Version: 1},
	}
}

// AddInput adds an input claiming output index of the transaction prevHash.
func (b *Builder) AddInput(prevHash []byte, index uint32) *Builder {
	h := make([]byte, len(prevHash))
	copy(h, prevHash)
	b.tx.Inputs = append(b.tx.Inputs, Input{PrevTxHash: h, OutputIndex: index})
	return b
}

// Spend adds an input claiming the output named by id.
func (b *Builder) Spend(id types.UTXOID) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, Input{PrevTxHash: id.TxHash(), OutputIndex: id.Index()})
	return b
}

// AddOutput adds an output paying value to owner.
func (b *Builder) AddOutput(value int64, owner []byte) *Builder {
	o := make([]byte, len(owner))
	copy(o, owner)
	b.tx.Outputs = append(b.tx.Outputs, Output{Value: value, Owner: o})
	return b
}

// SignInput signs input i with key.
func (b *Builder) SignInput(i int, key crypto.Signer) error {
	return SignInput(b.tx, i, key)
}

// Sign signs every input with key (single-owner spending).
func (b *Builder) Sign(key crypto.Signer) error {
	for i := range b.tx.Inputs {
		if err := SignInput(b.tx, i, key); err != nil {
			return err
		}
	}
	return nil
}

// Build returns the constructed transaction.
// Does NOT validate; the settlement handler decides validity.
func (b *Builder) Build() *Transaction {
	return b.tx
}

// SignInput signs input i of transaction with key, replacing any previous
// signature. Signatures never cover other signatures, so inputs can be
// signed in any order.
func SignInput(transaction *Transaction, i int, key crypto.Signer) error {
	if i < 0 || i >= len(transaction.Inputs) {
		return fmt.Errorf("sign input %d: index out of range (%d inputs)", i, len(transaction.Inputs))
	}
	hash := transaction.SigHash(i)
	sig, err := key.Sign(hash[:])
	if err != nil {
		return fmt.Errorf("sign input %d: %w", i, err)
	}
	transaction.Inputs[i].Signature = sig
	return nil
}
