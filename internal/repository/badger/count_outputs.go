package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// CountOutputs reports how many tracked outputs are currently unspent.
func (r *Repository) CountOutputs(ctx context.Context) (count uint64, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("count_outputs", err, started)
	}()

	err = r.store.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count outputs: %w", err)
	}
	return count, nil
}
