package tracker

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

// ResumePlan carries the height to fetch next and the running totals as of
// the last durable checkpoint.
type ResumePlan struct {
	NextHeight uint64
	Outputs    int64
	Value      btcutil.Amount
}

// resumePlanner reconstructs pipeline state from the checkpoint store. The
// delta store is not rebuilt: it is written in lockstep with the checkpoint
// store and already reflects the still-open outputs at the planned height.
type resumePlanner struct {
	checkpoints CheckpointRepository
}

// Plan reads the newest checkpoint row and resumes one height past it. An
// empty store plans from genesis: tracked outputs must be tallied from their
// first possible occurrence, so starting at the current tip would undercount
// everything that came before.
func (p *resumePlanner) Plan(ctx context.Context) (ResumePlan, error) {
	latest, err := p.checkpoints.LatestCheckpoint(ctx)
	if err != nil {
		return ResumePlan{}, fmt.Errorf("read latest checkpoint: %w", err)
	}
	if latest == nil {
		return ResumePlan{}, nil
	}

	return ResumePlan{
		NextHeight: latest.Height + 1,
		Outputs:    latest.TotalOutputs,
		Value:      latest.TotalValue,
	}, nil
}
