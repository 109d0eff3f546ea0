// Package wallet holds the signing identities that authorize spends.
//
// A wallet is a BIP-39 mnemonic whose seed is kept encrypted on disk.
// Identities are derived from it along BIP-44 style paths; the compressed
// public key of an identity is what an output's Owner field carries.
package wallet

import (
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// Seed and mnemonic sizes.
const (
	// MnemonicEntropyBits yields 24-word mnemonics.
	MnemonicEntropyBits = 256

	// SeedSize is the length of a BIP-39 seed in bytes.
	SeedSize = 64
)

// ErrInvalidMnemonic is returned for mnemonics failing the BIP-39 checks.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// NewMnemonic creates a fresh 24-word BIP-39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidMnemonic reports whether mnemonic has a valid word list and checksum.
func ValidMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// Seed derives the 64-byte seed for mnemonic and an optional passphrase.
func Seed(mnemonic, passphrase string) ([]byte, error) {
	if !ValidMnemonic(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}
