package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingnet-settle/config"
	"github.com/Klingon-tech/klingnet-settle/internal/wallet"
)

func openKeystore(cfg *config.Config) *wallet.Keystore {
	ks, err := wallet.NewKeystore(cfg.KeystoreDir(), wallet.DefaultKDFParams())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	return ks
}

func walletName(cfg *config.Config, name string) string {
	if name == "" {
		name = cfg.Wallet.Default
	}
	if name == "" {
		fatal("--name is required (or set wallet.default)")
	}
	return name
}

func cmdWallet(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: klingnet-settle wallet <create|list|key> [flags]")
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(cfg, args[1:])
	case "list":
		cmdWalletList(cfg)
	case "key":
		cmdWalletKey(cfg, args[1:])
	default:
		fatal("Unknown wallet command: %s\nUsage: klingnet-settle wallet <create|list|key> [flags]", args[0])
	}
}

func cmdWalletCreate(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "Existing BIP-39 mnemonic to import")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: klingnet-settle wallet create --name <name>")
	}

	phrase := *mnemonic
	if phrase == "" {
		var err error
		phrase, err = wallet.NewMnemonic()
		if err != nil {
			fatal("generate mnemonic: %v", err)
		}
		fmt.Println("Mnemonic (write this down!):")
		fmt.Printf("  %s\n\n", phrase)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	ks := openKeystore(cfg)
	if err := ks.Create(*name, phrase, password); err != nil {
		fatal("create wallet: %v", err)
	}

	w, err := ks.Unlock(*name, password)
	if err != nil {
		fatal("unlock wallet: %v", err)
	}
	id, err := w.Identity(0)
	if err != nil {
		fatal("derive identity: %v", err)
	}

	fmt.Printf("Wallet created: %s\n", *name)
	fmt.Printf("Identity 0: %s\n", hex.EncodeToString(id.PublicKey()))
}

func cmdWalletList(cfg *config.Config) {
	ks := openKeystore(cfg)
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets.")
		return
	}
	for _, name := range names {
		ids, err := ks.Identities(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", name, err)
			continue
		}
		fmt.Printf("%s\n", name)
		for _, id := range ids {
			fmt.Printf("  [%d] %s\n", id.Index, id.PublicKey)
		}
	}
}

func cmdWalletKey(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet key", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	index := fs.Uint("index", 0, "Identity index")
	fs.Parse(args)

	w := unlock(cfg, walletName(cfg, *name))
	id, err := w.Identity(uint32(*index))
	if err != nil {
		fatal("derive identity: %v", err)
	}
	fmt.Println(hex.EncodeToString(id.PublicKey()))
}

func cmdSign(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	index := fs.Uint("index", 0, "Identity index")
	txFile := fs.String("tx", "", "Transaction JSON file (rewritten in place)")
	input := fs.Int("input", -1, "Sign only this input (default: all)")
	fs.Parse(args)

	if *txFile == "" {
		fatal("Usage: klingnet-settle sign --name <n> --tx <file> [--index <i>] [--input <k>]")
	}

	transaction, err := readTransaction(*txFile)
	if err != nil {
		fatal("%v", err)
	}

	w := unlock(cfg, walletName(cfg, *name))
	var inputs []int
	if *input >= 0 {
		inputs = append(inputs, *input)
	}
	if err := w.SignInputs(transaction, uint32(*index), inputs...); err != nil {
		fatal("sign: %v", err)
	}
	if err := writeJSON(*txFile, transaction); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Signed %s\n", transaction.Hash())
}

func unlock(cfg *config.Config, name string) *wallet.Wallet {
	password, err := readPassword("Password for " + name + ": ")
	if err != nil {
		fatal("read password: %v", err)
	}
	w, err := openKeystore(cfg).Unlock(name, password)
	if err != nil {
		fatal("%v", err)
	}
	return w
}
