package utxo

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/Klingon-tech/klingnet-settle/pkg/crypto"
	"github.com/Klingon-tech/klingnet-settle/pkg/types"
)

// Commitment computes a merkle root over all entries in the pool.
// Each entry is hashed deterministically, the hashes are sorted, and
// a merkle tree is built from them. Returns a zero hash for an empty pool.
// Two pools with the same entries always produce the same root.
func Commitment(pool *Pool) types.Hash {
	entries := pool.Entries()
	hashes := make([]types.Hash, 0, len(entries))
	for _, e := range entries {
		hashes = append(hashes, hashEntry(e))
	}
	if len(hashes) == 0 {
		return types.Hash{}
	}

	// Leaves are ordered by hash, not by identifier.
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})

	return merkleRoot(hashes)
}

// hashEntry produces a deterministic BLAKE3 hash of a pool entry.
// Format: index(4) | hash_len(4) | hash | value(8) | owner_len(4) | owner
func hashEntry(e Entry) types.Hash {
	txHash := e.ID.TxHash()
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, e.ID.Index())
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(txHash)))
	buf = append(buf, txHash...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Output.Value))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.Output.Owner)))
	buf = append(buf, e.Output.Owner...)
	return crypto.Hash(buf)
}

// merkleRoot pairwise-hashes each level, duplicating the last element
// of odd levels, until one hash remains.
func merkleRoot(leaves []types.Hash) types.Hash {
	level := leaves
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashConcat(level[i], level[i+1])
		}
		level = next
	}
	return level[0]
}
