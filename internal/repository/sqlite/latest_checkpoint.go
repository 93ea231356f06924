package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

// LatestCheckpoint returns the row with the highest block height, or
// (nil, nil) when no block has been processed yet.
func (r *Repository) LatestCheckpoint(ctx context.Context) (cp *model.Checkpoint, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("latest_checkpoint", err, start)
	}()

	query := fmt.Sprintf(`
SELECT block_height, block_hash, date, total_utxos, total_sats
FROM %s
ORDER BY block_height DESC
LIMIT 1`, r.table)

	var (
		height       int64
		hash         string
		date         string
		totalOutputs int64
		totalSats    float64
	)
	if err = r.db.QueryRowContext(ctx, query).Scan(&height, &hash, &date, &totalOutputs, &totalSats); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return nil, nil
		}
		return nil, fmt.Errorf("scan latest checkpoint: %w", err)
	}

	at, err := time.Parse(model.CheckpointTimeLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parse checkpoint date %q: %w", date, err)
	}

	return &model.Checkpoint{
		Height:       uint64(height),
		Hash:         hash,
		Time:         at,
		TotalOutputs: totalOutputs,
		TotalValue:   btcutil.Amount(math.Round(totalSats)),
	}, nil
}
