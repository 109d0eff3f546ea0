package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingnet-settle/internal/utxo"
	"github.com/Klingon-tech/klingnet-settle/pkg/crypto"
	"github.com/Klingon-tech/klingnet-settle/pkg/tx"
	"github.com/Klingon-tech/klingnet-settle/pkg/types"
)

// Genesis describes the pool a ledger starts from.
type Genesis struct {
	Name  string          `json:"name,omitempty"`
	Alloc []GenesisOutput `json:"alloc"`
}

// GenesisOutput is one spendable output present before any settlement.
type GenesisOutput struct {
	TxID  string `json:"txid"` // hex source transaction hash
	Index uint32 `json:"index"`
	Value int64  `json:"value"`
	Owner string `json:"owner"` // hex compressed public key
}

// LoadGenesis loads a genesis pool description from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	return &g, nil
}

// Save writes the genesis description to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}

	return nil
}

// Validate checks that every allocation decodes and that no output is
// listed twice.
func (g *Genesis) Validate() error {
	seen := make(map[types.UTXOID]int, len(g.Alloc))
	var total int64
	for i, a := range g.Alloc {
		id, out, err := a.decode()
		if err != nil {
			return fmt.Errorf("alloc[%d]: %w", i, err)
		}
		if first, dup := seen[id]; dup {
			return fmt.Errorf("alloc[%d]: duplicate of alloc[%d] (%s)", i, first, id)
		}
		seen[id] = i

		sum, ok := tx.AddValues(total, out.Value)
		if !ok {
			return fmt.Errorf("alloc[%d]: total value overflows", i)
		}
		total = sum
	}
	return nil
}

// Pool builds the initial UTXO pool.
func (g *Genesis) Pool() (*utxo.Pool, error) {
	entries := make([]utxo.Entry, 0, len(g.Alloc))
	for i, a := range g.Alloc {
		id, out, err := a.decode()
		if err != nil {
			return nil, fmt.Errorf("alloc[%d]: %w", i, err)
		}
		entries = append(entries, utxo.Entry{ID: id, Output: out})
	}
	return utxo.NewPoolFromEntries(entries), nil
}

// Hash returns a BLAKE3 hash of the genesis description.
// Used to detect a persisted ledger being resumed with a different genesis.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}

// Allocate appends an output of value owned by owner, identified by
// (txID, index).
func (g *Genesis) Allocate(txID types.Hash, index uint32, value int64, owner []byte) {
	g.Alloc = append(g.Alloc, GenesisOutput{
		TxID:  txID.String(),
		Index: index,
		Value: value,
		Owner: hex.EncodeToString(owner),
	})
}

func (a GenesisOutput) decode() (types.UTXOID, tx.Output, error) {
	hash, err := hex.DecodeString(a.TxID)
	if err != nil {
		return types.UTXOID{}, tx.Output{}, fmt.Errorf("txid: %w", err)
	}
	if len(hash) == 0 {
		return types.UTXOID{}, tx.Output{}, fmt.Errorf("txid is required")
	}
	id, err := types.NewUTXOID(hash, a.Index)
	if err != nil {
		return types.UTXOID{}, tx.Output{}, err
	}
	if a.Value < 0 {
		return types.UTXOID{}, tx.Output{}, fmt.Errorf("negative value %d", a.Value)
	}
	owner, err := hex.DecodeString(a.Owner)
	if err != nil {
		return types.UTXOID{}, tx.Output{}, fmt.Errorf("owner: %w", err)
	}
	if len(owner) != crypto.PublicKeySize {
		return types.UTXOID{}, tx.Output{}, fmt.Errorf("owner must be a %d-byte compressed public key", crypto.PublicKeySize)
	}
	return id, tx.Output{Value: a.Value, Owner: owner}, nil
}
