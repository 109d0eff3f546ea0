// Package crypto provides the hashing and signature primitives the
// settlement engine treats as external collaborators.
package crypto

import (
	"github.com/Klingon-tech/klingnet-settle/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// HashConcat hashes the concatenation of two hashes.
// Used for building merkle trees.
func HashConcat(a, b types.Hash) types.Hash {
	h := blake3.New()
	h.Write(a[:])
	h.Write(b[:])
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
