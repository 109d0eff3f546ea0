package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// PublicKeySize is the length of an output owner: a compressed
// secp256k1 public key. Uncompressed encodings are not owners.
const PublicKeySize = 33

// Signer authorizes spends of outputs it owns. tx.SignInput hands it the
// input's SigHash and stores the result as that input's signature.
type Signer interface {
	// Sign produces a 64-byte Schnorr signature over a 32-byte sighash.
	Sign(hash []byte) ([]byte, error)
	// PublicKey returns the owner bytes outputs paid to this signer carry.
	PublicKey() []byte
}

// Verifier is the ownership check of the settlement handler. For input i
// it receives the spending transaction's SigHash(i), the signature carried
// by that input and the Owner of the output the input claims.
// Verify must be deterministic; the handler may call it from several
// epoch workers at once.
type Verifier interface {
	Verify(hash, signature, owner []byte) bool
}

// VerifierFunc lets tests and callers plug a closure in as the handler's
// ownership check.
type VerifierFunc func(hash, signature, publicKey []byte) bool

// Verify calls f.
func (f VerifierFunc) Verify(hash, signature, publicKey []byte) bool {
	return f(hash, signature, publicKey)
}

// PrivateKey is an owner's signing key. Wallet identities derive one per
// account; tests generate them directly.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// Sign produces a Schnorr signature over a 32-byte hash.
func (pk *PrivateKey) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := schnorr.Sign(pk.key, hash)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero clears the private key from memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// VerifySignature reports whether signature is owner's Schnorr signature
// over hash. An owner that is not a compressed key, or a malformed
// signature, never verifies.
func VerifySignature(hash, signature, owner []byte) bool {
	if len(owner) != PublicKeySize {
		return false
	}
	pubKey, err := secp256k1.ParsePubKey(owner)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pubKey)
}

// SchnorrVerifier is the ownership check a handler uses unless
// settle.WithVerifier replaces it.
type SchnorrVerifier struct{}

// Verify implements Verifier.
func (SchnorrVerifier) Verify(hash, signature, owner []byte) bool {
	return VerifySignature(hash, signature, owner)
}
