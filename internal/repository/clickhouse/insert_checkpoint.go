package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

// InsertCheckpoint appends one aggregate row for a processed block.
func (r *Repository) InsertCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_checkpoint", err, start)
	}()

	query := fmt.Sprintf(`
INSERT INTO %s (
	network,
	block_height,
	block_hash,
	date,
	total_utxos,
	total_sats
) VALUES`, r.table)

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare checkpoint batch: %w", err)
	}

	if err = batch.Append(
		string(r.network),
		cp.Height,
		cp.Hash,
		cp.Time.UTC(),
		cp.TotalOutputs,
		float64(cp.TotalValue),
	); err != nil {
		return fmt.Errorf("append checkpoint: %w", err)
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}
