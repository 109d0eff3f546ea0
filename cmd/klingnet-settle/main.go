// klingnet-settle validates and settles batches of UTXO transactions.
//
// Usage:
//
//	klingnet-settle [global flags] <command> [flags]
//	klingnet-settle --help
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Klingon-tech/klingnet-settle/config"
	"github.com/Klingon-tech/klingnet-settle/internal/log"
)

const version = "0.1.0"

// stdin is shared so piped passwords read line by line.
var stdin = bufio.NewReader(os.Stdin)

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		usage()
		return
	}
	if err != nil {
		fatal("%v", err)
	}
	if flags.Version {
		fmt.Printf("klingnet-settle version %s\n", version)
		return
	}

	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	args := flags.Args
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd, cmdArgs := args[0], args[1:]
	log.CLI.Debug().Str("command", cmd).Str("datadir", cfg.DataDir).Msg("Starting")

	switch cmd {
	case "wallet":
		cmdWallet(cfg, cmdArgs)
	case "sign":
		cmdSign(cfg, cmdArgs)
	case "genesis":
		cmdGenesis(cmdArgs)
	case "settle":
		cmdSettle(cfg, cmdArgs)
	case "check":
		cmdCheck(cfg, cmdArgs)
	case "pool":
		cmdPool(cfg, cmdArgs)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: klingnet-settle [global flags] <command> [flags]

Global flags:
  --datadir <path>    Data directory (default: ~/.klingnet-settle)
  --config, -c <file> Config file (default: <datadir>/klingnet-settle.conf)
  --ledger <name>     Ledger namespace (default: main)
  --persist           Save the pool after settle (default: true)
  --workers <n>       Concurrent epochs for check (default: one per CPU)
  --log-level <lvl>   trace, debug, info, warn, error (default: info)
  --log-file <path>   Also write JSON logs to a file
  --log-json          Output logs as JSON
  --version           Show version information

Commands:
  wallet create --name <n> [--mnemonic "..."]
                                  Create a wallet (new mnemonic unless given)
  wallet list                     List wallets
  wallet key --name <n> [--index <i>]
                                  Show the public key of an identity
  sign --name <n> --tx <file> [--index <i>] [--input <k>]
                                  Sign inputs of a transaction file in place
  genesis add --file <f> --owner <hex> --value <v> [--txid <hex>] [--index <i>]
                                  Append an allocation to a genesis file
  settle --genesis <f> --batch <f>
                                  Settle a batch and print the outcome
  check --genesis <f> <batch>...  Dry-run independent batches concurrently
  pool                            List the persisted pool
`)
}

// readPassword prompts on a terminal, or reads one line when stdin is piped.
func readPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
