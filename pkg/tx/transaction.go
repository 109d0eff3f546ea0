// Package tx defines the transaction model consumed by the settlement engine.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"

	"github.com/Klingon-tech/klingnet-settle/pkg/crypto"
	"github.com/Klingon-tech/klingnet-settle/pkg/types"
)

// ErrValueOverflow is returned when summing output values overflows int64.
var ErrValueOverflow = errors.New("output values overflow")

// Transaction moves value from previously minted outputs to new ones.
type Transaction struct {
	Version uint32   `json:"version"`
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"outputs"`
}

// Input claims a previous transaction output.
type Input struct {
	PrevTxHash  []byte `json:"prev_tx_hash"`
	OutputIndex uint32 `json:"output_index"`
	Signature   []byte `json:"signature"`
}

// inputJSON is the JSON representation of Input with hex-encoded byte fields.
type inputJSON struct {
	PrevTxHash  *string `json:"prev_tx_hash"`
	OutputIndex uint32  `json:"output_index"`
	Signature   *string `json:"signature,omitempty"`
}

// MarshalJSON encodes the input with hex-encoded hash and signature.
func (in Input) MarshalJSON() ([]byte, error) {
	j := inputJSON{OutputIndex: in.OutputIndex}
	if in.PrevTxHash != nil {
		s := hex.EncodeToString(in.PrevTxHash)
		j.PrevTxHash = &s
	}
	if in.Signature != nil {
		s := hex.EncodeToString(in.Signature)
		j.Signature = &s
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes an input with hex-encoded hash and signature.
// An absent prev_tx_hash stays nil.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	in.OutputIndex = j.OutputIndex
	in.PrevTxHash, in.Signature = nil, nil
	if j.PrevTxHash != nil {
		b, err := hex.DecodeString(*j.PrevTxHash)
		if err != nil {
			return err
		}
		in.PrevTxHash = b
	}
	if j.Signature != nil {
		b, err := hex.DecodeString(*j.Signature)
		if err != nil {
			return err
		}
		in.Signature = b
	}
	return nil
}

// UTXOID returns the identifier of the output this input claims.
func (in Input) UTXOID() (types.UTXOID, error) {
	return types.NewUTXOID(in.PrevTxHash, in.OutputIndex)
}

// Output assigns value to an owner identified by a compressed public key.
// Outputs are never mutated once part of a transaction.
type Output struct {
	Value int64  `json:"value"`
	Owner []byte `json:"owner"`
}

type outputJSON struct {
	Value int64  `json:"value"`
	Owner string `json:"owner"`
}

// MarshalJSON encodes the output with a hex-encoded owner key.
func (out Output) MarshalJSON() ([]byte, error) {
	return json.Marshal(outputJSON{Value: out.Value, Owner: hex.EncodeToString(out.Owner)})
}

// UnmarshalJSON decodes an output with a hex-encoded owner key.
func (out *Output) UnmarshalJSON(data []byte) error {
	var j outputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	owner, err := hex.DecodeString(j.Owner)
	if err != nil {
		return err
	}
	out.Value = j.Value
	out.Owner = owner
	return nil
}

// Hash computes the transaction ID: BLAKE3 of the signature-free body.
// Output i of the transaction is spendable as UTXOIDFromHash(Hash(), i).
func (tx *Transaction) Hash() types.Hash {
	return crypto.Hash(tx.body())
}

// SigningBytes returns the canonical bytes signed for input index.
// Format: body | input_index(4), where body is
// version(4) | input_count(4) | [hash_len(4) + hash + index(4)]... |
// output_count(4) | [value(8) + owner_len(4) + owner]...
// No signature field of any input is included.
func (tx *Transaction) SigningBytes(index int) []byte {
	return binary.LittleEndian.AppendUint32(tx.body(), uint32(index))
}

// SigHash returns the 32-byte message signed for input index.
func (tx *Transaction) SigHash(index int) types.Hash {
	return crypto.Hash(tx.SigningBytes(index))
}

func (tx *Transaction) body() []byte {
	var buf []byte

	buf = binary.LittleEndian.AppendUint32(buf, tx.Version)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(in.PrevTxHash)))
		buf = append(buf, in.PrevTxHash...)
		buf = binary.LittleEndian.AppendUint32(buf, in.OutputIndex)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(out.Value))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(out.Owner)))
		buf = append(buf, out.Owner...)
	}

	return buf
}

// TotalOutputValue returns the sum of all output values.
// Returns ErrValueOverflow if the sum leaves the int64 range.
func (tx *Transaction) TotalOutputValue() (int64, error) {
	var total int64
	for _, out := range tx.Outputs {
		sum, ok := AddValues(total, out.Value)
		if !ok {
			return 0, ErrValueOverflow
		}
		total = sum
	}
	return total, nil
}

// AddValues returns a+b and whether the sum stayed within int64.
func AddValues(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}
