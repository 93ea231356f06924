// Package tracker runs the block-aggregation pipeline: a fetch role walks
// the chain one height at a time while a process role folds each delivered
// block into the running tally, checkpoints it, and republishes it.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goodnatureofminers/p2pk-tracker/internal/chain"
	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

var (
	// ErrCaughtUp reports that the fetch role ran out of blocks: the chain
	// tip was reached and did not advance. A follower exhausting its
	// upstream means the provider stopped producing, which is an abnormal
	// condition, not success.
	ErrCaughtUp = errors.New("chain tip reached")

	// ErrDeliveryClosed reports that the provider closed the delivery
	// channel while the pipeline still expected blocks.
	ErrDeliveryClosed = errors.New("block delivery channel closed")

	// ErrAckMismatch reports an acknowledgement for a height other than the
	// one requested: the handoff protocol is broken and the running totals
	// can no longer be trusted.
	ErrAckMismatch = errors.New("acknowledged height does not match requested height")

	// ErrOutOfOrderDelivery reports a delivered block whose height is not
	// the next expected height.
	ErrOutOfOrderDelivery = errors.New("block delivered out of order")
)

// Config tunes a Service.
type Config struct {
	// MinPeers gates startup until the node reports at least that many
	// connected peers; 0 disables the gate.
	MinPeers int
}

// Service coordinates the fetch and process roles over one rendezvous
// channel. The running totals are owned by the process role alone and are
// reconstructible from the checkpoint store, so they never outlive the
// process.
type Service struct {
	cfg         Config
	logger      *zap.Logger
	network     model.Network
	pattern     model.ScriptPattern
	provider    ChainProvider
	delta       DeltaRepository
	checkpoints CheckpointRepository
	scanner     BlockScanner
	planner     ResumePlanner
	publisher   EventPublisher
	metrics     Metrics
}

// NewService wires a pipeline over its collaborators.
func NewService(
	cfg Config,
	provider ChainProvider,
	delta DeltaRepository,
	checkpoints CheckpointRepository,
	matcher ScriptMatcher,
	publisher EventPublisher,
	metrics Metrics,
	network model.Network,
	logger *zap.Logger,
) (*Service, error) {
	if provider == nil {
		return nil, errors.New("chain provider is required")
	}
	if delta == nil {
		return nil, errors.New("delta repository is required")
	}
	if checkpoints == nil {
		return nil, errors.New("checkpoint repository is required")
	}
	if matcher == nil {
		return nil, errors.New("script matcher is required")
	}
	if publisher == nil {
		return nil, errors.New("event publisher is required")
	}
	if metrics == nil {
		return nil, errors.New("tracker metrics is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &Service{
		cfg: cfg,
		logger: logger.With(
			zap.String("network", string(network)),
			zap.String("pattern", string(matcher.Pattern())),
		),
		network:     network,
		pattern:     matcher.Pattern(),
		provider:    provider,
		delta:       delta,
		checkpoints: checkpoints,
		scanner:     &blockScanner{delta: delta, matcher: matcher},
		planner:     &resumePlanner{checkpoints: checkpoints},
		publisher:   publisher,
		metrics:     metrics,
	}, nil
}

// Run executes the pipeline until ctx is canceled or a fatal error occurs.
// It never returns nil: reaching the chain tip surfaces ErrCaughtUp, and
// only external cancellation is a clean exit. The provider is shut down on
// every path out.
func (s *Service) Run(ctx context.Context) error {
	defer func() {
		if err := s.provider.Shutdown(); err != nil {
			s.logger.Error("provider shutdown failed", zap.Error(err))
		}
	}()

	if s.cfg.MinPeers > 0 {
		s.logger.Info("waiting for node peers", zap.Int("min_peers", s.cfg.MinPeers))
		if err := s.provider.WaitForPeers(ctx, s.cfg.MinPeers); err != nil {
			return fmt.Errorf("wait for peers: %w", err)
		}
	}

	plan, err := s.planner.Plan(ctx)
	if err != nil {
		return fmt.Errorf("plan resume: %w", err)
	}
	s.logger.Info("resuming pipeline",
		zap.Uint64("next_height", plan.NextHeight),
		zap.Int64("total_utxos", plan.Outputs),
		zap.Int64("total_sats", int64(plan.Value)),
	)
	s.probeDeltaConsistency(ctx, plan)

	tip, err := s.provider.Tip(ctx)
	if err != nil {
		return fmt.Errorf("get chain tip: %w", err)
	}
	s.metrics.SetChainTip(tip)
	s.logger.Info("following chain", zap.Uint64("tip", tip))

	group, groupCtx := errgroup.WithContext(ctx)
	processed := make(chan uint64, ackCapacity)

	group.Go(func() error {
		return s.fetchBlocks(groupCtx, plan.NextHeight, tip, processed)
	})
	group.Go(func() error {
		return s.processBlocks(groupCtx, plan, processed)
	})

	return group.Wait()
}

// probeDeltaConsistency compares the delta store's entry count against the
// resumed totals. A mismatch means the two stores diverged (for example a
// crash between a delta write and its checkpoint write); the pipeline cannot
// repair that locally, so it is surfaced for the operator and processing
// continues.
func (s *Service) probeDeltaConsistency(ctx context.Context, plan ResumePlan) {
	count, err := s.delta.CountOutputs(ctx)
	if err != nil {
		s.logger.Warn("delta store consistency probe failed", zap.Error(err))
		return
	}
	if plan.Outputs < 0 || count != uint64(plan.Outputs) {
		s.logger.Warn("delta store diverges from resumed totals",
			zap.Uint64("delta_entries", count),
			zap.Int64("total_utxos", plan.Outputs),
		)
	}
}

// fetchBlocks is the fetch role: it requests blocks in strictly increasing
// height order and blocks on the acknowledgement of each before requesting
// the next, so at most one block is ever in flight. The tip is re-queried
// after every acknowledgement because the chain keeps growing while the
// pipeline catches up.
func (s *Service) fetchBlocks(ctx context.Context, next, tip uint64, processed <-chan uint64) error {
	for height := next; height <= tip; height++ {
		if err := s.requestAndAwait(ctx, height, processed); err != nil {
			return err
		}

		newTip, err := s.provider.Tip(ctx)
		if err != nil {
			return fmt.Errorf("refresh chain tip: %w", err)
		}
		if newTip > tip {
			s.logger.Info("chain tip advanced", zap.Uint64("from", tip), zap.Uint64("to", newTip))
			tip = newTip
			s.metrics.SetChainTip(newTip)
		}
	}

	return fmt.Errorf("%w: no blocks beyond height %d", ErrCaughtUp, tip)
}

func (s *Service) requestAndAwait(ctx context.Context, height uint64, processed <-chan uint64) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveRequestBlock(err, started)
	}()

	hash, err := s.provider.BlockHash(ctx, height)
	if err != nil {
		// A missing header below the believed tip breaks the provider
		// contract; skipping the height would corrupt the running totals.
		return fmt.Errorf("resolve block at height %d: %w", height, err)
	}

	if err = s.provider.RequestBlock(ctx, height, hash); err != nil {
		return fmt.Errorf("request block %d: %w", height, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ack := <-processed:
		if ack != height {
			return fmt.Errorf("%w: got %d, requested %d", ErrAckMismatch, ack, height)
		}
	}
	return nil
}

// processBlocks is the process role: it consumes deliveries in order, folds
// each block into the running totals, writes the checkpoint row, publishes
// the event, and only then acknowledges the height back to the fetch role.
func (s *Service) processBlocks(ctx context.Context, plan ResumePlan, processed chan<- uint64) error {
	next := plan.NextHeight
	outputs := plan.Outputs
	value := plan.Value

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.provider.Blocks():
			if !ok {
				return ErrDeliveryClosed
			}
			if ev.Err != nil {
				return fmt.Errorf("deliver block %d: %w", ev.Height, ev.Err)
			}
			if ev.Height != next {
				return fmt.Errorf("%w: got %d, expected %d", ErrOutOfOrderDelivery, ev.Height, next)
			}

			// A block being applied always runs to completion, even when
			// shutdown begins mid-block; cancellation is honored again at
			// the next receive.
			started := time.Now()
			cp, err := s.applyBlock(context.WithoutCancel(ctx), ev, outputs, value)
			s.metrics.ObserveProcessBlock(err, ev.Height, started)
			if err != nil {
				return fmt.Errorf("process block %d: %w", ev.Height, err)
			}

			next++
			outputs = cp.TotalOutputs
			value = cp.TotalValue

			s.publisher.Publish(model.NewCheckpointEvent(cp))
			s.metrics.SetRunningTotals(cp.TotalOutputs, float64(cp.TotalValue))
			s.logger.Info("processed block",
				zap.Uint64("height", cp.Height),
				zap.Int("transactions", len(ev.Block.Transactions())),
				zap.Int64("total_utxos", cp.TotalOutputs),
				zap.Int64("total_sats", int64(cp.TotalValue)),
			)

			select {
			case processed <- ev.Height:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// applyBlock scans one block and writes its checkpoint row. The row is
// written only after the block's delta mutations completed, so a crash
// between the two re-scans the block on the next run instead of skipping it.
func (s *Service) applyBlock(ctx context.Context, ev chain.BlockEvent, outputs int64, value btcutil.Amount) (model.Checkpoint, error) {
	delta, err := s.scanner.Scan(ctx, ev.Block)
	if err != nil {
		return model.Checkpoint{}, fmt.Errorf("scan block: %w", err)
	}

	cp := model.Checkpoint{
		Height:       ev.Height,
		Hash:         ev.Block.Hash().String(),
		Time:         ev.Block.MsgBlock().Header.Timestamp,
		TotalOutputs: outputs + delta.Outputs,
		TotalValue:   value + delta.Value,
	}
	if err = s.checkpoints.InsertCheckpoint(ctx, cp); err != nil {
		return model.Checkpoint{}, fmt.Errorf("insert checkpoint: %w", err)
	}
	return cp, nil
}
