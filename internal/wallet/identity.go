package wallet

import (
	"fmt"

	"github.com/tyler-smith/go-bip32"

	"github.com/Klingon-tech/klingnet-settle/pkg/crypto"
)

// Derivation path constants.
// Identity i lives at m/44'/CoinType'/account'/0/i.
const (
	Purpose = bip32.FirstHardenedChild + 44

	// CoinType separates settlement identities from other uses of the
	// same mnemonic.
	CoinType = bip32.FirstHardenedChild + 8889
)

// Identity is a node of the BIP-32 tree. Leaf identities own outputs.
type Identity struct {
	key *bip32.Key
}

// MasterIdentity returns the root of the tree for seed.
func MasterIdentity(seed []byte) (*Identity, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &Identity{key: master}, nil
}

// Child derives child index. Add bip32.FirstHardenedChild for hardened
// derivation.
func (id *Identity) Child(index uint32) (*Identity, error) {
	child, err := id.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &Identity{key: child}, nil
}

// Derive returns identity index of account.
func (id *Identity) Derive(account, index uint32) (*Identity, error) {
	current := id
	for _, step := range []uint32{Purpose, CoinType, bip32.FirstHardenedChild + account, 0, index} {
		next, err := current.Child(step)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// PublicKey returns the 33-byte compressed public key, the value placed in
// an output's Owner field.
func (id *Identity) PublicKey() []byte {
	pub := id.key.PublicKey().Key
	out := make([]byte, len(pub))
	copy(out, pub)
	return out
}

// Signer returns the private key of the identity.
func (id *Identity) Signer() (*crypto.PrivateKey, error) {
	if !id.key.IsPrivate {
		return nil, fmt.Errorf("identity has no private key")
	}
	// bip32 stores private keys as 33 bytes with a leading zero.
	raw := id.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.PrivateKeyFromBytes(raw)
}

// Public returns a watch-only copy.
func (id *Identity) Public() *Identity {
	return &Identity{key: id.key.PublicKey()}
}

// IsPrivate reports whether the identity can sign.
func (id *Identity) IsPrivate() bool {
	return id.key.IsPrivate
}
