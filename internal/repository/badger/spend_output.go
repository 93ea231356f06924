package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/dgraph-io/badger/v3"
)

// SpendOutput removes an outpoint from the set and returns its value. A miss
// is not an error: almost every input spends an output the tracker never
// recorded, and coinbase inputs reference the null outpoint.
func (r *Repository) SpendOutput(ctx context.Context, outpoint wire.OutPoint) (value int64, spent bool, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("spend_output", err, started)
	}()

	if err = ctx.Err(); err != nil {
		return 0, false, err
	}

	key := outpointKey(outpoint)
	err = r.store.Update(func(txn *badger.Txn) error {
		item, getErr := txn.Get(key)
		if getErr != nil {
			return getErr
		}

		raw, valErr := item.ValueCopy(nil)
		if valErr != nil {
			return valErr
		}
		decoded, decErr := decodeValue(raw)
		if decErr != nil {
			return decErr
		}

		if delErr := txn.Delete(key); delErr != nil {
			return delErr
		}

		value = decoded
		spent = true
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		err = nil
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("spend output %s: %w", outpoint.String(), err)
	}
	return value, spent, nil
}
