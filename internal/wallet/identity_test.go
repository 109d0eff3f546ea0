package wallet

import (
	"bytes"
	"testing"

	"github.com/Klingon-tech/klingnet-settle/pkg/crypto"
)

func testMaster(t *testing.T) *Identity {
	t.Helper()
	seed, err := Seed(testMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	master, err := MasterIdentity(seed)
	if err != nil {
		t.Fatalf("MasterIdentity: %v", err)
	}
	return master
}

func TestMasterIdentity_SeedLength(t *testing.T) {
	for _, n := range []int{0, 32, 65} {
		if _, err := MasterIdentity(make([]byte, n)); err == nil {
			t.Errorf("seed of %d bytes should fail", n)
		}
	}
}

func TestIdentity_Derive(t *testing.T) {
	master := testMaster(t)

	a, err := master.Derive(0, 0)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	again, _ := testMaster(t).Derive(0, 0)
	if !bytes.Equal(a.PublicKey(), again.PublicKey()) {
		t.Error("derivation should be deterministic")
	}

	b, _ := master.Derive(0, 1)
	c, _ := master.Derive(1, 0)
	if bytes.Equal(a.PublicKey(), b.PublicKey()) || bytes.Equal(a.PublicKey(), c.PublicKey()) {
		t.Error("different paths should give different keys")
	}
	if len(a.PublicKey()) != crypto.PublicKeySize {
		t.Errorf("public key size = %d, want %d", len(a.PublicKey()), crypto.PublicKeySize)
	}
}

func TestIdentity_Signer(t *testing.T) {
	id, err := testMaster(t).Derive(0, 7)
	if err != nil {
		t.Fatal(err)
	}
	key, err := id.Signer()
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}
	if !bytes.Equal(key.PublicKey(), id.PublicKey()) {
		t.Fatal("signer public key should match identity")
	}

	hash := crypto.Hash([]byte("message"))
	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !crypto.VerifySignature(hash[:], sig, id.PublicKey()) {
		t.Error("signature should verify against the identity")
	}
}

func TestIdentity_Public(t *testing.T) {
	id, _ := testMaster(t).Derive(0, 0)
	pub := id.Public()
	if pub.IsPrivate() || !id.IsPrivate() {
		t.Error("Public() should strip the private key only from the copy")
	}
	if !bytes.Equal(pub.PublicKey(), id.PublicKey()) {
		t.Error("watch-only copy should keep the public key")
	}
	if _, err := pub.Signer(); err == nil {
		t.Error("watch-only identity should not sign")
	}
}
