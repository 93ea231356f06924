package model

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
)

// CheckpointTimeLayout renders block timestamps for the checkpoint date
// column and notification payloads. Times are always rendered in UTC.
const CheckpointTimeLayout = "2006-01-02 15:04:05 MST"

// Checkpoint captures the running tally after one block has been applied.
type Checkpoint struct {
	Height uint64
	Hash   string
	Time   time.Time
	// TotalOutputs counts tracked outputs that are still unspent across the
	// whole scanned prefix of the chain, not just this block.
	TotalOutputs int64
	TotalValue   btcutil.Amount
}

// TallyDelta is the net effect of a single block on the running tally.
// Either field may be negative when a block spends more than it creates.
type TallyDelta struct {
	Outputs int64
	Value   btcutil.Amount
}
