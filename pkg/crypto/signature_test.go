package crypto

import (
	"bytes"
	"testing"
)

func newKey(t *testing.T) *PrivateKey {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	return key
}

func TestGenerateKey(t *testing.T) {
	key := newKey(t)
	if len(key.PublicKey()) != PublicKeySize {
		t.Errorf("PublicKey() length = %d, want %d", len(key.PublicKey()), PublicKeySize)
	}
	if len(key.Serialize()) != 32 {
		t.Errorf("Serialize() length = %d, want 32", len(key.Serialize()))
	}
	if bytes.Equal(key.Serialize(), newKey(t).Serialize()) {
		t.Error("two generated keys should not be identical")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	original := newKey(t)
	restored, err := PrivateKeyFromBytes(original.Serialize())
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}
	if !bytes.Equal(original.PublicKey(), restored.PublicKey()) {
		t.Error("restored key should have same public key")
	}

	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := PrivateKeyFromBytes(make([]byte, n)); err == nil {
			t.Errorf("PrivateKeyFromBytes(%d bytes) should fail", n)
		}
	}
}

func TestSign_Verify(t *testing.T) {
	key := newKey(t)
	hash := Hash([]byte("test message"))

	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if len(sig) != 64 {
		t.Errorf("signature length = %d, want 64", len(sig))
	}
	if !VerifySignature(hash[:], sig, key.PublicKey()) {
		t.Error("signature should verify against the correct key and hash")
	}

	if _, err := key.Sign([]byte("too short")); err == nil {
		t.Error("Sign() should reject non-32-byte hash")
	}
}

func TestVerify_Rejects(t *testing.T) {
	key := newKey(t)
	other := newKey(t)
	hash := Hash([]byte("message"))
	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	corrupted := append([]byte(nil), sig...)
	corrupted[0] ^= 0x01
	wrongHash := Hash([]byte("different message"))

	tests := []struct {
		name      string
		hash      []byte
		signature []byte
		publicKey []byte
	}{
		{"wrong hash", wrongHash[:], sig, key.PublicKey()},
		{"wrong key", hash[:], sig, other.PublicKey()},
		{"corrupted signature", hash[:], corrupted, key.PublicKey()},
		{"nil hash", nil, sig, key.PublicKey()},
		{"empty signature", hash[:], nil, key.PublicKey()},
		{"empty public key", hash[:], sig, nil},
		{"short signature", hash[:], sig[:10], key.PublicKey()},
		{"garbage public key", hash[:], sig, []byte("bad")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(tt.hash, tt.signature, tt.publicKey) {
				t.Error("verification should fail")
			}
		})
	}
}

func TestPrivateKey_Zero(t *testing.T) {
	key := newKey(t)
	key.Zero()
	if !bytes.Equal(key.Serialize(), make([]byte, 32)) {
		t.Error("Zero() should clear the scalar")
	}
}

func TestVerifierImplementations(t *testing.T) {
	key := newKey(t)
	hash := Hash([]byte("interface"))
	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	var v Verifier = SchnorrVerifier{}
	if !v.Verify(hash[:], sig, key.PublicKey()) {
		t.Error("SchnorrVerifier should accept a valid signature")
	}

	var calls int
	v = VerifierFunc(func(h, s, p []byte) bool {
		calls++
		return bytes.Equal(p, key.PublicKey())
	})
	if !v.Verify(nil, nil, key.PublicKey()) || calls != 1 {
		t.Error("VerifierFunc should delegate to the wrapped function")
	}

	var _ Signer = key
}

func TestVerify_OwnerMustBeCompressed(t *testing.T) {
	key := newKey(t)
	hash := Hash([]byte("spend"))
	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	uncompressed := key.key.PubKey().SerializeUncompressed()
	if len(uncompressed) == PublicKeySize {
		t.Fatalf("uncompressed key unexpectedly %d bytes", PublicKeySize)
	}
	if VerifySignature(hash[:], sig, uncompressed) {
		t.Error("uncompressed owner should not verify")
	}
	if (SchnorrVerifier{}).Verify(hash[:], sig, uncompressed) {
		t.Error("SchnorrVerifier should reject an uncompressed owner")
	}
	if !VerifySignature(hash[:], sig, key.PublicKey()) {
		t.Error("compressed owner should verify")
	}
}
