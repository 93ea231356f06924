package bitcoin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2pk-tracker/internal/chain"
	"github.com/goodnatureofminers/p2pk-tracker/internal/clock"
	"github.com/goodnatureofminers/p2pk-tracker/pkg/safe"
)

const defaultPeerPollInterval = 5 * time.Second

// ErrProviderClosed is returned by RequestBlock after Shutdown.
var ErrProviderClosed = errors.New("chain provider is closed")

// Provider serves chain data from a bitcoin node over JSON-RPC. Block
// retrieval is asynchronous: RequestBlock enqueues at most one retrieval and
// the result arrives on Blocks. All node calls share one rate limiter.
type Provider struct {
	rpc          RPCClient
	limiter      ratelimit.Limiter
	logger       *zap.Logger
	sleep        func(context.Context, time.Duration) error
	pollInterval time.Duration

	requests chan blockRequest
	events   chan chain.BlockEvent

	quit      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

type blockRequest struct {
	height uint64
	hash   *chainhash.Hash
}

// ProviderOption tunes a Provider.
type ProviderOption func(*Provider)

// WithPeerPollInterval overrides how often WaitForPeers re-checks the node.
func WithPeerPollInterval(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.pollInterval = d
	}
}

// NewProvider builds a Provider. Start must be called before RequestBlock.
func NewProvider(rpc RPCClient, limiter ratelimit.Limiter, logger *zap.Logger, opts ...ProviderOption) (*Provider, error) {
	if rpc == nil {
		return nil, errors.New("rpc client is required")
	}
	if limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	p := &Provider{
		rpc:          rpc,
		limiter:      limiter,
		logger:       logger.Named("chainProvider"),
		sleep:        clock.SleepWithContext,
		pollInterval: defaultPeerPollInterval,
		requests:     make(chan blockRequest, 1),
		events:       make(chan chain.BlockEvent),
		quit:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start launches the delivery goroutine. Subsequent calls are no-ops.
func (p *Provider) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.deliver(ctx)
		}()
	})
}

func (p *Provider) deliver(ctx context.Context) {
	defer close(p.events)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case req := <-p.requests:
			p.limiter.Take()
			ev := p.fetch(req)
			select {
			case p.events <- ev:
			case <-ctx.Done():
				return
			case <-p.quit:
				return
			}
		}
	}
}

func (p *Provider) fetch(req blockRequest) chain.BlockEvent {
	msgBlock, err := p.rpc.GetBlock(req.hash)
	if err != nil {
		return chain.BlockEvent{Height: req.height, Err: fmt.Errorf("get block %s: %w", req.hash, err)}
	}

	height, err := safe.Int32(req.height)
	if err != nil {
		return chain.BlockEvent{Height: req.height, Err: fmt.Errorf("block height overflow: %w", err)}
	}

	block := btcutil.NewBlock(msgBlock)
	block.SetHeight(height)
	return chain.BlockEvent{Height: req.height, Block: block}
}

// WaitForPeers blocks until the node reports at least min connected peers,
// polling at the configured interval.
func (p *Provider) WaitForPeers(ctx context.Context, min int) error {
	for {
		count, err := p.rpc.GetConnectionCount()
		if err != nil {
			return fmt.Errorf("get connection count: %w", err)
		}
		if count >= int64(min) {
			p.logger.Info("peer gate satisfied", zap.Int64("peers", count), zap.Int("min", min))
			return nil
		}

		p.logger.Debug("waiting for node peers", zap.Int64("peers", count), zap.Int("min", min))
		if err := p.sleep(ctx, p.pollInterval); err != nil {
			return err
		}
	}
}

// Tip returns the node's best block height.
func (p *Provider) Tip(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count, err := p.rpc.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("get block count: %w", err)
	}
	height, err := safe.Uint64(count)
	if err != nil {
		return 0, fmt.Errorf("block count overflow: %w", err)
	}
	return height, nil
}

// BlockHash returns the hash of the block at height.
func (p *Provider) BlockHash(ctx context.Context, height uint64) (*chainhash.Hash, error) {
	if height > math.MaxInt64 {
		return nil, fmt.Errorf("block height %d exceeds rpc limit", height)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := p.rpc.GetBlockHash(int64(height))
	if err != nil {
		return nil, fmt.Errorf("get block hash at height %d: %w", height, err)
	}
	return hash, nil
}

// RequestBlock enqueues retrieval of the block at height with the given
// hash. The result is delivered on Blocks.
func (p *Provider) RequestBlock(ctx context.Context, height uint64, hash *chainhash.Hash) error {
	select {
	case p.requests <- blockRequest{height: height, hash: hash}:
		return nil
	case <-p.quit:
		return ErrProviderClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Blocks is the delivery channel. It is closed when the provider stops.
func (p *Provider) Blocks() <-chan chain.BlockEvent {
	return p.events
}

// Shutdown stops the delivery goroutine and waits for it to exit. Safe to
// call more than once.
func (p *Provider) Shutdown() error {
	p.stopOnce.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
	return nil
}
