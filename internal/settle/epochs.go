package settle

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/klingnet-settle/internal/utxo"
	"github.com/Klingon-tech/klingnet-settle/pkg/tx"
)

// Epoch is a candidate batch paired with the pool it settles against.
type Epoch struct {
	Pool       *utxo.Pool
	Candidates []*tx.Transaction
}

// EpochResult is the outcome of settling one Epoch.
type EpochResult struct {
	Report *Report
	Pool   *utxo.Pool // pool after settlement
}

// RunEpochs settles independent epochs concurrently, each on its own
// Handler and its own copy of the epoch's pool, so no spendable output is
// shared between them. At most workers epochs run at once (unlimited when
// workers <= 0). Results are in input order. Epochs not yet started when
// ctx is cancelled are skipped and the context error is returned.
func RunEpochs(ctx context.Context, epochs []Epoch, workers int, opts ...Option) ([]EpochResult, error) {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	results := make([]EpochResult, len(epochs))
	for i, ep := range epochs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h := New(ep.Pool, opts...)
			results[i] = EpochResult{
				Report: h.SettleReport(ep.Candidates),
				Pool:   h.Pool(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
