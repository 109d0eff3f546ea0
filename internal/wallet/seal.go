package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrWrongPassword is returned when sealed data fails authentication.
var ErrWrongPassword = errors.New("wrong password or corrupted data")

const (
	saltSize = 16
	// Sealed layout: salt(16) | time(4) | memory(4) | threads(1) | nonce(24) | ciphertext
	sealHeaderSize = saltSize + 4 + 4 + 1
)

// KDFParams are the Argon2id cost parameters. They are stored alongside the
// ciphertext, so changing the defaults never breaks existing keystores.
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDFParams returns the parameters used for new keystores.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 3, Memory: 64 * 1024, Threads: 4}
}

func (p KDFParams) key(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, chacha20poly1305.KeySize)
}

// Seal encrypts plaintext under password with XChaCha20-Poly1305 and an
// Argon2id derived key.
func Seal(plaintext, password []byte, params KDFParams) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	key := params.key(password, salt)
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, sealHeaderSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = binary.BigEndian.AppendUint32(out, params.Time)
	out = binary.BigEndian.AppendUint32(out, params.Memory)
	out = append(out, params.Threads)
	out = append(out, nonce...)
	// The header is authenticated so cost parameters cannot be swapped.
	return aead.Seal(out, nonce, plaintext, out[:sealHeaderSize]), nil
}

// Open reverses Seal.
func Open(sealed, password []byte) ([]byte, error) {
	minSize := sealHeaderSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	if len(sealed) < minSize {
		return nil, fmt.Errorf("sealed data too short: %d bytes, need at least %d", len(sealed), minSize)
	}

	salt := sealed[:saltSize]
	params := KDFParams{
		Time:    binary.BigEndian.Uint32(sealed[saltSize:]),
		Memory:  binary.BigEndian.Uint32(sealed[saltSize+4:]),
		Threads: sealed[saltSize+8],
	}
	if params.Time == 0 || params.Threads == 0 {
		return nil, fmt.Errorf("invalid kdf parameters in header")
	}
	nonce := sealed[sealHeaderSize : sealHeaderSize+chacha20poly1305.NonceSizeX]
	ciphertext := sealed[sealHeaderSize+chacha20poly1305.NonceSizeX:]

	key := params.key(password, salt)
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, sealed[:sealHeaderSize])
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
