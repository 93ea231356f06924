package sqlite

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
INSERT INTO %s (block_height, block_hash, date, total_utxos, total_sats)
VALUES (?, ?, ?, ?, ?)`, r.table)

	if _, err = r.db.ExecContext(ctx, query,
		int64(cp.Height),
		cp.Hash,
		cp.Time.UTC().Format(model.CheckpointTimeLayout),
		cp.TotalOutputs,
		float64(cp.TotalValue),
	); err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}
