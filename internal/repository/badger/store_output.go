package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/dgraph-io/badger/v3"
)

// StoreOutput records an unspent tracked output. Re-storing an outpoint
// overwrites the identical value, which makes block replay safe.
func (r *Repository) StoreOutput(ctx context.Context, outpoint wire.OutPoint, value int64) (err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("store_output", err, started)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}

	if err = r.store.Update(func(txn *badger.Txn) error {
		return txn.Set(outpointKey(outpoint), encoded)
	}); err != nil {
		return fmt.Errorf("store output %s: %w", outpoint.String(), err)
	}
	return nil
}
