package tracker

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/goodnatureofminers/p2pk-tracker/internal/chain"
	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// ChainProvider is the chain-sync surface the pipeline consumes. Blocks
	// arrive asynchronously on Blocks in the order they were requested; the
	// provider is never asked to hold more than one outstanding request.
	ChainProvider interface {
		WaitForPeers(ctx context.Context, min int) error
		Tip(ctx context.Context) (uint64, error)
		BlockHash(ctx context.Context, height uint64) (*chainhash.Hash, error)
		RequestBlock(ctx context.Context, height uint64, hash *chainhash.Hash) error
		Blocks() <-chan chain.BlockEvent
		Shutdown() error
	}

	// DeltaRepository holds the currently-unspent tracked outputs.
	DeltaRepository interface {
		StoreOutput(ctx context.Context, outpoint wire.OutPoint, value int64) error
		SpendOutput(ctx context.Context, outpoint wire.OutPoint) (int64, bool, error)
		CountOutputs(ctx context.Context) (uint64, error)
	}

	// CheckpointRepository persists one aggregate row per processed block.
	CheckpointRepository interface {
		InsertCheckpoint(ctx context.Context, cp model.Checkpoint) error
		LatestCheckpoint(ctx context.Context) (*model.Checkpoint, error)
	}

	// ScriptMatcher decides whether an output script belongs to the tracked
	// pattern.
	ScriptMatcher interface {
		Match(pkScript []byte) bool
		Pattern() model.ScriptPattern
	}

	// EventPublisher fans one checkpoint event out per processed block.
	// Publishing is best-effort and must never block the pipeline.
	EventPublisher interface {
		Publish(ev model.CheckpointEvent)
	}

	// BlockScanner computes one block's net effect on the running tally.
	BlockScanner interface {
		Scan(ctx context.Context, block *btcutil.Block) (model.TallyDelta, error)
	}

	// ResumePlanner decides where processing restarts after a launch.
	ResumePlanner interface {
		Plan(ctx context.Context) (ResumePlan, error)
	}

	// Metrics records metrics for the pipeline roles.
	Metrics interface {
		ObserveRequestBlock(err error, started time.Time)
		ObserveProcessBlock(err error, height uint64, started time.Time)
		SetChainTip(height uint64)
		SetRunningTotals(outputs int64, sats float64)
	}
)
