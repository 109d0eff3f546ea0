// derive_key.go prints the owner key for a hex-encoded private key file,
// in the form genesis allocations and transaction outputs expect.
// Usage: go run scripts/derive_key.go <keyfile> [value]
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Klingon-tech/klingnet-settle/pkg/crypto"
	"github.com/Klingon-tech/klingnet-settle/pkg/tx"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile> [value]")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	key, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer key.Zero()

	var value int64
	if len(os.Args) > 2 {
		if value, err = strconv.ParseInt(os.Args[2], 10, 64); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	out, _ := json.Marshal(tx.Output{Value: value, Owner: key.PublicKey()})
	fmt.Printf("owner=%s\n", hex.EncodeToString(key.PublicKey()))
	fmt.Printf("output=%s\n", out)
}
