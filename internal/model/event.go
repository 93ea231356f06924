package model

// CheckpointEvent is the notification payload published after each block.
// Field names and formats are part of the consumer contract.
type CheckpointEvent struct {
	Date        string  `json:"date"`
	BlockHeight uint64  `json:"block_height"`
	BlockHash   string  `json:"block_hash"`
	TotalUTXOs  int64   `json:"total_utxos"`
	TotalSats   float64 `json:"total_sats"`
}

// NewCheckpointEvent renders a checkpoint into its notification form.
func NewCheckpointEvent(cp Checkpoint) CheckpointEvent {
	return CheckpointEvent{
		Date:        cp.Time.UTC().Format(CheckpointTimeLayout),
		BlockHeight: cp.Height,
		BlockHash:   cp.Hash,
		TotalUTXOs:  cp.TotalOutputs,
		TotalSats:   float64(cp.TotalValue),
	}
}
