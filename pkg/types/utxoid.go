package types

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/mr-tron/base58"
)

// ErrNilHash is returned when a UTXOID is built without a source hash.
var ErrNilHash = errors.New("utxo id: nil source hash")

// UTXOID identifies one output of one transaction.
//
// The source hash is held as a string so the value is immutable and
// comparable; two UTXOIDs are == exactly when Equal reports true, which
// makes UTXOID usable directly as a map key.
type UTXOID struct {
	txHash string
	index  uint32
}

// NewUTXOID builds an identifier for output index of the transaction with
// the given hash. The hash bytes are copied.
func NewUTXOID(txHash []byte, index uint32) (UTXOID, error) {
	if txHash == nil {
		return UTXOID{}, ErrNilHash
	}
	return UTXOID{txHash: string(txHash), index: index}, nil
}

// UTXOIDFromHash builds an identifier from a fixed-size transaction hash.
func UTXOIDFromHash(h Hash, index uint32) UTXOID {
	return UTXOID{txHash: string(h[:]), index: index}
}

// TxHash returns a copy of the source transaction hash.
func (id UTXOID) TxHash() []byte {
	return []byte(id.txHash)
}

// Index returns the output position within the source transaction.
func (id UTXOID) Index() uint32 {
	return id.index
}

// Equal reports whether both identifiers name the same output.
func (id UTXOID) Equal(other UTXOID) bool {
	return id == other
}

// Compare orders identifiers by output index first, then by hash length,
// then byte-wise by hash with each byte read as signed, so 0x80 sorts
// before 0x01. It returns -1, 0 or +1.
func (id UTXOID) Compare(other UTXOID) int {
	switch {
	case id.index < other.index:
		return -1
	case id.index > other.index:
		return 1
	}
	switch {
	case len(id.txHash) < len(other.txHash):
		return -1
	case len(id.txHash) > len(other.txHash):
		return 1
	}
	for i := 0; i < len(id.txHash); i++ {
		a, b := int8(id.txHash[i]), int8(other.txHash[i])
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// Digest returns a 64-bit hash of the identifier, stable across processes.
// Equal identifiers always produce equal digests.
func (id UTXOID) Digest() uint64 {
	d := xxhash.New()
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], id.index)
	d.Write(idx[:])
	d.WriteString(id.txHash)
	return d.Sum64()
}

// String returns "Tx:<base58 hash>@<index>".
func (id UTXOID) String() string {
	return fmt.Sprintf("Tx:%s@%d", base58.Encode([]byte(id.txHash)), id.index)
}

type utxoIDJSON struct {
	TxHash string `json:"txid"`
	Index  uint32 `json:"index"`
}

// MarshalJSON encodes the identifier with a hex-encoded hash.
func (id UTXOID) MarshalJSON() ([]byte, error) {
	return json.Marshal(utxoIDJSON{
		TxHash: hex.EncodeToString([]byte(id.txHash)),
		Index:  id.index,
	})
}

// UnmarshalJSON decodes an identifier with a hex-encoded hash.
func (id *UTXOID) UnmarshalJSON(data []byte) error {
	var j utxoIDJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	b, err := hex.DecodeString(j.TxHash)
	if err != nil {
		return fmt.Errorf("invalid txid hex: %w", err)
	}
	id.txHash = string(b)
	id.index = j.Index
	return nil
}
