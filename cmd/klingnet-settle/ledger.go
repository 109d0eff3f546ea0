package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/Klingon-tech/klingnet-settle/config"
	"github.com/Klingon-tech/klingnet-settle/internal/log"
	"github.com/Klingon-tech/klingnet-settle/internal/settle"
	"github.com/Klingon-tech/klingnet-settle/internal/storage"
	"github.com/Klingon-tech/klingnet-settle/internal/utxo"
	"github.com/Klingon-tech/klingnet-settle/pkg/crypto"
	"github.com/Klingon-tech/klingnet-settle/pkg/tx"
	"github.com/Klingon-tech/klingnet-settle/pkg/types"
)

// errGenesisMismatch is returned when a persisted ledger was started from a
// different genesis than the one given.
var errGenesisMismatch = errors.New("ledger was created from a different genesis")

var keyGenesis = []byte("genesis")

// ledger is one namespace of the ledger database: the pool snapshot plus
// the hash of the genesis it started from, saved together.
type ledger struct {
	store *utxo.Store
}

func newLedger(db storage.DB, name string) *ledger {
	return &ledger{
		store: utxo.NewStore(storage.NewPrefixDB(db, []byte("ledger/"+name+"/"))),
	}
}

// startPool returns the persisted pool when one exists and otherwise the
// genesis pool. A persisted pool must carry the hash of g.
func (l *ledger) startPool(g *config.Genesis) (*utxo.Pool, bool, error) {
	gh, err := g.Hash()
	if err != nil {
		return nil, false, err
	}

	ok, err := l.store.Has()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		pool, err := g.Pool()
		return pool, false, err
	}

	stored, err := l.store.Meta(keyGenesis)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("%w: snapshot has no genesis record", errGenesisMismatch)
	}
	if err != nil {
		return nil, false, err
	}
	if string(stored) != string(gh[:]) {
		return nil, false, errGenesisMismatch
	}
	pool, err := l.store.Load()
	return pool, true, err
}

func (l *ledger) save(g *config.Genesis, pool *utxo.Pool) error {
	gh, err := g.Hash()
	if err != nil {
		return err
	}
	return l.store.Save(pool, storage.KV{Key: keyGenesis, Value: gh[:]})
}

func openDB(cfg *config.Config) storage.DB {
	db, err := storage.NewBadger(cfg.LedgerDir())
	if err != nil {
		fatal("open ledger database: %v", err)
	}
	return db
}

// settleBatch settles candidates on top of pool.
func settleBatch(pool *utxo.Pool, candidates []*tx.Transaction) (*settle.Report, *utxo.Pool) {
	h := settle.New(pool)
	rep := h.SettleReport(candidates)
	return rep, h.Pool()
}

// checkBatches dry-runs each batch independently against pool.
func checkBatches(ctx context.Context, pool *utxo.Pool, batches [][]*tx.Transaction, workers int) ([]settle.EpochResult, error) {
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	epochs := make([]settle.Epoch, len(batches))
	for i, b := range batches {
		epochs[i] = settle.Epoch{Pool: pool, Candidates: b}
	}
	return settle.RunEpochs(ctx, epochs, workers)
}

func cmdGenesis(args []string) {
	if len(args) < 1 || args[0] != "add" {
		fatal("Usage: klingnet-settle genesis add --file <f> --owner <hex> --value <v> [--txid <hex>] [--index <i>]")
	}
	fs := flag.NewFlagSet("genesis add", flag.ExitOnError)
	file := fs.String("file", "", "Genesis file (created if missing)")
	owner := fs.String("owner", "", "Owner public key (hex)")
	value := fs.Int64("value", 0, "Output value")
	txid := fs.String("txid", "", "Source transaction hash (hex, default: BLAKE3(\"genesis\"))")
	index := fs.Int("index", -1, "Output index (default: next free)")
	fs.Parse(args[1:])

	if *file == "" || *owner == "" {
		fatal("--file and --owner are required")
	}

	g := &config.Genesis{}
	if _, err := os.Stat(*file); err == nil {
		if g, err = config.LoadGenesis(*file); err != nil {
			fatal("%v", err)
		}
	}

	ownerKey, err := hex.DecodeString(*owner)
	if err != nil {
		fatal("invalid owner: %v", err)
	}
	src := crypto.Hash([]byte("genesis"))
	if *txid != "" {
		if src, err = types.HexToHash(*txid); err != nil {
			fatal("invalid txid: %v", err)
		}
	}
	idx := uint32(len(g.Alloc))
	if *index >= 0 {
		idx = uint32(*index)
	}

	g.Allocate(src, idx, *value, ownerKey)
	if err := g.Validate(); err != nil {
		fatal("%v", err)
	}
	if err := g.Save(*file); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Allocated %s: %d\n", types.UTXOIDFromHash(src, idx), *value)
}

func cmdSettle(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("settle", flag.ExitOnError)
	genesisFile := fs.String("genesis", "", "Genesis pool file")
	batchFile := fs.String("batch", "", "Candidate batch (JSON array of transactions)")
	fs.Parse(args)

	if *genesisFile == "" || *batchFile == "" {
		fatal("Usage: klingnet-settle settle --genesis <f> --batch <f>")
	}

	g, err := config.LoadGenesis(*genesisFile)
	if err != nil {
		fatal("%v", err)
	}
	batch, err := readBatch(*batchFile)
	if err != nil {
		fatal("%v", err)
	}

	// Without persistence every run starts from genesis.
	var (
		l       *ledger
		pool    *utxo.Pool
		resumed bool
	)
	if cfg.Settle.Persist {
		db := openDB(cfg)
		defer db.Close()
		l = newLedger(db, cfg.Settle.Ledger)
		if pool, resumed, err = l.startPool(g); err != nil {
			fatal("load pool: %v", err)
		}
	} else if pool, err = g.Pool(); err != nil {
		fatal("%v", err)
	}
	log.CLI.Info().
		Str("ledger", cfg.Settle.Ledger).
		Bool("resumed", resumed).
		Int("pool_size", pool.Len()).
		Int("candidates", len(batch)).
		Msg("Settling batch")

	rep, after := settleBatch(pool, batch)
	printReport(rep)
	fmt.Printf("Pool: %d outputs, commitment %s\n", after.Len(), utxo.Commitment(after))

	if l != nil {
		if err := l.save(g, after); err != nil {
			fatal("save pool: %v", err)
		}
	}
}

func cmdCheck(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	genesisFile := fs.String("genesis", "", "Genesis pool file")
	fs.Parse(args)

	if *genesisFile == "" || fs.NArg() == 0 {
		fatal("Usage: klingnet-settle check --genesis <f> <batch>...")
	}
	g, err := config.LoadGenesis(*genesisFile)
	if err != nil {
		fatal("%v", err)
	}
	pool, err := g.Pool()
	if err != nil {
		fatal("%v", err)
	}

	batches := make([][]*tx.Transaction, fs.NArg())
	for i, f := range fs.Args() {
		if batches[i], err = readBatch(f); err != nil {
			fatal("%v", err)
		}
	}

	results, err := checkBatches(context.Background(), pool, batches, cfg.Settle.Workers)
	if err != nil {
		fatal("%v", err)
	}
	for i, r := range results {
		fmt.Printf("%s: %d accepted, %d rejected, commitment %s\n",
			fs.Arg(i), len(r.Report.Accepted), len(r.Report.Rejected), utxo.Commitment(r.Pool))
		for rule, n := range r.Report.RejectedByRule() {
			fmt.Printf("  %s: %d\n", rule, n)
		}
	}
}

func cmdPool(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("pool", flag.ExitOnError)
	fs.Parse(args)

	db := openDB(cfg)
	defer db.Close()
	l := newLedger(db, cfg.Settle.Ledger)

	pool, err := l.store.Load()
	if err != nil {
		fatal("load pool: %v", err)
	}
	for _, e := range pool.Entries() {
		fmt.Printf("%s  %d  %s\n", e.ID, e.Output.Value, hex.EncodeToString(e.Output.Owner))
	}
	fmt.Printf("%d outputs, commitment %s\n", pool.Len(), utxo.Commitment(pool))
}

func printReport(rep *settle.Report) {
	for _, t := range rep.Accepted {
		fmt.Printf("accepted  %s\n", t.Hash())
	}
	for _, r := range rep.Rejected {
		fmt.Printf("rejected  #%d %s (%s): %v\n", r.Index, r.Hash, r.Rule(), r.Err)
	}
	fmt.Printf("%d accepted, %d rejected, %d spent, %d minted, surplus %d\n",
		len(rep.Accepted), len(rep.Rejected), rep.Spent, rep.Minted, rep.Surplus)
}

func readTransaction(path string) (*tx.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transaction: %w", err)
	}
	var t tx.Transaction
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing transaction: %w", err)
	}
	return &t, nil
}

func readBatch(path string) ([]*tx.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch: %w", err)
	}
	var batch []*tx.Transaction
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parsing batch %s: %w", path, err)
	}
	return batch, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
