// Package settle validates batches of candidate transactions against a UTXO
// pool and commits the accepted ones.
//
// A Handler owns a private copy of the pool it was built from. Candidates
// are examined strictly in the order given; each accepted transaction is
// committed before the next candidate is checked, so a transaction may
// spend outputs minted earlier in the same batch but never later ones.
package settle

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-settle/internal/log"
	"github.com/Klingon-tech/klingnet-settle/internal/utxo"
	"github.com/Klingon-tech/klingnet-settle/pkg/crypto"
	"github.com/Klingon-tech/klingnet-settle/pkg/tx"
	"github.com/Klingon-tech/klingnet-settle/pkg/types"
)

// Handler is the transaction validator and settler for one ledger.
//
// Every exported method runs as a single critical section, so concurrent
// callers can never both observe an output as spendable and both consume it.
type Handler struct {
	mu       sync.Mutex
	pool     *utxo.Pool
	verifier crypto.Verifier
	logger   zerolog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithVerifier replaces the Schnorr signature verifier.
func WithVerifier(v crypto.Verifier) Option {
	return func(h *Handler) {
		if v != nil {
			h.verifier = v
		}
	}
}

// WithLogger sets the logger rejections and epoch summaries are written to.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// New creates a handler working on an independent copy of pool.
// Later changes to pool are not seen by the handler and vice versa.
// A nil pool starts the handler empty.
func New(pool *utxo.Pool, opts ...Option) *Handler {
	working := utxo.NewPool()
	if pool != nil {
		working = pool.Copy()
	}
	h := &Handler{
		pool:     working,
		verifier: crypto.SchnorrVerifier{},
		logger:   log.Settle,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Validate reports whether transaction is valid against the current pool.
func (h *Handler) Validate(transaction *tx.Transaction) bool {
	return h.Check(transaction) == nil
}

// Check validates transaction against the current pool and returns nil or
// an error wrapping the sentinel of the first rule that failed. Rules are
// checked in order: existence of every claimed output, input signatures,
// no output claimed twice, non-negative outputs, inputs cover outputs.
func (h *Handler) Check(transaction *tx.Transaction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, _, err := h.check(transaction)
	return err
}

// Settle processes candidates in order and returns those accepted.
// Rejected candidates are skipped silently; the pool afterwards reflects
// every accepted transaction and carries over to later calls.
func (h *Handler) Settle(candidates []*tx.Transaction) []*tx.Transaction {
	return h.SettleReport(candidates).Accepted
}

// SettleReport is Settle with a per-candidate account of the outcome.
func (h *Handler) SettleReport(candidates []*tx.Transaction) *Report {
	h.mu.Lock()
	defer h.mu.Unlock()

	rep := &Report{Accepted: make([]*tx.Transaction, 0, len(candidates))}
	for i, transaction := range candidates {
		claimed, surplus, err := h.check(transaction)
		if err != nil {
			rej := Rejection{Index: i, Tx: transaction, Err: err}
			if transaction != nil {
				rej.Hash = transaction.Hash()
			}
			rep.Rejected = append(rep.Rejected, rej)
			h.logger.Debug().
				Int("index", i).
				Str("tx", rej.Hash.String()).
				Stringer("rule", RuleOf(err)).
				Err(err).
				Msg("Transaction rejected")
			continue
		}

		h.commit(transaction, claimed)
		rep.Accepted = append(rep.Accepted, transaction)
		rep.Spent += len(claimed)
		rep.Minted += len(transaction.Outputs)
		if sum, ok := tx.AddValues(rep.Surplus, surplus); ok {
			rep.Surplus = sum
		} else {
			rep.Surplus = math.MaxInt64
		}
	}

	h.logger.Info().
		Int("candidates", len(candidates)).
		Int("accepted", len(rep.Accepted)).
		Int("rejected", len(rep.Rejected)).
		Int("pool_size", h.pool.Len()).
		Msg("Epoch settled")
	return rep
}

// Pool returns an independent copy of the working pool.
func (h *Handler) Pool() *utxo.Pool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.Copy()
}

// Contains reports whether id is currently spendable.
func (h *Handler) Contains(id types.UTXOID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.Contains(id)
}

// Len returns the number of spendable outputs.
func (h *Handler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.Len()
}

// check runs the validity rules and returns the claimed identifiers and the
// surplus of inputs over outputs. Callers hold h.mu.
func (h *Handler) check(transaction *tx.Transaction) ([]types.UTXOID, int64, error) {
	if transaction == nil {
		return nil, 0, fmt.Errorf("%w: nil transaction", ErrMalformedInput)
	}

	// Existence.
	claimed := make([]types.UTXOID, 0, len(transaction.Inputs))
	for i, in := range transaction.Inputs {
		id, err := in.UTXOID()
		if err != nil {
			return nil, 0, fmt.Errorf("input %d: %w: %v", i, ErrMalformedInput, err)
		}
		if !h.pool.Contains(id) {
			return nil, 0, fmt.Errorf("input %d (%s): %w", i, id, ErrMissingInput)
		}
		claimed = append(claimed, id)
	}

	// Authorization. Every claimed output is known to exist here.
	var totalInput int64
	inputOverflow := false
	for i, in := range transaction.Inputs {
		out, err := h.pool.Output(claimed[i])
		if err != nil {
			return nil, 0, fmt.Errorf("input %d: %w", i, err)
		}
		hash := transaction.SigHash(i)
		if !h.verifier.Verify(hash[:], in.Signature, out.Owner) {
			return nil, 0, fmt.Errorf("input %d (%s): %w", i, claimed[i], ErrInvalidSignature)
		}
		if sum, ok := tx.AddValues(totalInput, out.Value); ok {
			totalInput = sum
		} else {
			inputOverflow = true
		}
	}

	// No double claim.
	seen := make(map[types.UTXOID]int, len(claimed))
	for i, id := range claimed {
		if first, dup := seen[id]; dup {
			return nil, 0, fmt.Errorf("inputs %d and %d (%s): %w", first, i, id, ErrDoubleClaim)
		}
		seen[id] = i
	}

	// Non-negative outputs.
	for i, out := range transaction.Outputs {
		if out.Value < 0 {
			return nil, 0, fmt.Errorf("output %d (value %d): %w", i, out.Value, ErrNegativeOutput)
		}
	}

	// Conservation.
	if inputOverflow {
		return nil, 0, fmt.Errorf("%w: input values overflow", ErrValueInflation)
	}
	totalOutput, err := transaction.TotalOutputValue()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrValueInflation, err)
	}
	if totalOutput > totalInput {
		return nil, 0, fmt.Errorf("%w: inputs=%d outputs=%d", ErrValueInflation, totalInput, totalOutput)
	}

	return claimed, totalInput - totalOutput, nil
}

// commit spends the claimed outputs and mints one entry per output.
// Callers hold h.mu.
func (h *Handler) commit(transaction *tx.Transaction, claimed []types.UTXOID) {
	for _, id := range claimed {
		h.pool.Remove(id)
	}
	txHash := transaction.Hash()
	for i, out := range transaction.Outputs {
		h.pool.Add(types.UTXOIDFromHash(txHash, uint32(i)), out)
	}
}
