package wallet

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/Klingon-tech/klingnet-settle/internal/log"
	"github.com/Klingon-tech/klingnet-settle/pkg/crypto"
	"github.com/Klingon-tech/klingnet-settle/pkg/tx"
)

// Keystore errors.
var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrWalletNotFound = errors.New("wallet not found")
	ErrInvalidName    = errors.New("invalid wallet name")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// walletFile is the on-disk JSON format of one wallet.
type walletFile struct {
	Version    int            `json:"version"`
	CreatedAt  time.Time      `json:"created_at"`
	SealedSeed []byte         `json:"sealed_seed"`
	Identities []IdentityInfo `json:"identities"`
}

// IdentityInfo is the public record of a derived identity.
type IdentityInfo struct {
	Account   uint32 `json:"account"`
	Index     uint32 `json:"index"`
	PublicKey string `json:"public_key"` // hex compressed key
}

// Keystore manages wallet files in a directory.
type Keystore struct {
	dir    string
	params KDFParams
}

// NewKeystore opens (creating if needed) the keystore in dir.
func NewKeystore(dir string, params KDFParams) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{dir: dir, params: params}, nil
}

func (ks *Keystore) path(name string) string {
	return filepath.Join(ks.dir, name+".wallet")
}

// Create stores a new wallet for mnemonic, sealed under password.
func (ks *Keystore) Create(name, mnemonic string, password []byte) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	path := ks.path(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %q", ErrWalletExists, name)
	}

	seed, err := Seed(mnemonic, "")
	if err != nil {
		return err
	}
	defer wipe(seed)

	sealed, err := Seal(seed, password, ks.params)
	if err != nil {
		return fmt.Errorf("seal seed: %w", err)
	}

	wf := walletFile{
		Version:    1,
		CreatedAt:  time.Now().UTC(),
		SealedSeed: sealed,
		Identities: []IdentityInfo{},
	}
	if err := ks.write(path, &wf); err != nil {
		return err
	}
	log.Wallet.Info().Str("wallet", name).Msg("Wallet created")
	return nil
}

// Unlock decrypts a wallet.
func (ks *Keystore) Unlock(name string, password []byte) (*Wallet, error) {
	wf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	seed, err := Open(wf.SealedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("unlock %q: %w", name, err)
	}
	defer wipe(seed)

	master, err := MasterIdentity(seed)
	if err != nil {
		return nil, err
	}
	return &Wallet{name: name, master: master, ks: ks}, nil
}

// Identities lists the identities recorded for a wallet, in derivation order.
// It does not need the password.
func (ks *Keystore) Identities(name string) ([]IdentityInfo, error) {
	wf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	return wf.Identities, nil
}

// List returns the names of all wallets, sorted.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".wallet" {
			names = append(names, e.Name()[:len(e.Name())-len(ext)])
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	if err := os.Remove(ks.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrWalletNotFound, name)
		}
		return err
	}
	return nil
}

func (ks *Keystore) record(name string, info IdentityInfo) error {
	wf, err := ks.read(name)
	if err != nil {
		return err
	}
	for _, existing := range wf.Identities {
		if existing.Account == info.Account && existing.Index == info.Index {
			return nil
		}
	}
	wf.Identities = append(wf.Identities, info)
	sort.Slice(wf.Identities, func(i, j int) bool {
		a, b := wf.Identities[i], wf.Identities[j]
		if a.Account != b.Account {
			return a.Account < b.Account
		}
		return a.Index < b.Index
	})
	return ks.write(ks.path(name), wf)
}

func (ks *Keystore) write(path string, wf *walletFile) error {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) read(name string) (*walletFile, error) {
	data, err := os.ReadFile(ks.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrWalletNotFound, name)
		}
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if wf.Version != 1 {
		return nil, fmt.Errorf("unsupported wallet version: %d", wf.Version)
	}
	return &wf, nil
}

// Wallet is an unlocked wallet.
type Wallet struct {
	name   string
	master *Identity
	ks     *Keystore
}

// Name returns the wallet name.
func (w *Wallet) Name() string {
	return w.name
}

// Identity derives identity index of account 0 and records its public key
// in the keystore.
func (w *Wallet) Identity(index uint32) (*Identity, error) {
	id, err := w.master.Derive(0, index)
	if err != nil {
		return nil, err
	}
	info := IdentityInfo{Index: index, PublicKey: hex.EncodeToString(id.PublicKey())}
	if err := w.ks.record(w.name, info); err != nil {
		return nil, fmt.Errorf("record identity: %w", err)
	}
	return id, nil
}

// SignInputs signs the listed inputs of transaction with identity index.
// With no inputs listed, every input is signed.
func (w *Wallet) SignInputs(transaction *tx.Transaction, index uint32, inputs ...int) error {
	id, err := w.Identity(index)
	if err != nil {
		return err
	}
	key, err := id.Signer()
	if err != nil {
		return err
	}
	defer key.Zero()

	if len(inputs) == 0 {
		for i := range transaction.Inputs {
			inputs = append(inputs, i)
		}
	}
	for _, i := range inputs {
		if err := tx.SignInput(transaction, i, key); err != nil {
			return err
		}
	}
	log.Wallet.Debug().
		Str("wallet", w.name).
		Uint32("identity", index).
		Ints("inputs", inputs).
		Str("tx", transaction.Hash().String()).
		Msg("Inputs signed")
	return nil
}

// Signer returns the private key of identity index.
func (w *Wallet) Signer(index uint32) (*crypto.PrivateKey, error) {
	id, err := w.Identity(index)
	if err != nil {
		return nil, err
	}
	return id.Signer()
}
