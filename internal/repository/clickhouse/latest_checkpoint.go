package clickhouse

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

// LatestCheckpoint returns the row with the highest block height for the
// repository's network, or (nil, nil) when no block has been processed yet.
func (r *Repository) LatestCheckpoint(ctx context.Context) (cp *model.Checkpoint, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("latest_checkpoint", err, start)
	}()

	query := fmt.Sprintf(`
SELECT block_height, block_hash, date, total_utxos, total_sats
FROM %s
WHERE network = ?
ORDER BY block_height DESC
LIMIT 1`, r.table)

	rows, err := r.conn.Query(ctx, query, string(r.network))
	if err != nil {
		return nil, fmt.Errorf("query latest checkpoint: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			cp = nil
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate latest checkpoint: %w", err)
		}
		return nil, nil
	}

	var (
		height       uint64
		hash         string
		date         time.Time
		totalOutputs int64
		totalSats    float64
	)
	if err = rows.Scan(&height, &hash, &date, &totalOutputs, &totalSats); err != nil {
		return nil, fmt.Errorf("scan latest checkpoint: %w", err)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest checkpoint: %w", err)
	}

	return &model.Checkpoint{
		Height:       height,
		Hash:         hash,
		Time:         date,
		TotalOutputs: totalOutputs,
		TotalValue:   btcutil.Amount(math.Round(totalSats)),
	}, nil
}
