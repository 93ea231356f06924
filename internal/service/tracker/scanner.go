package tracker

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
	"github.com/goodnatureofminers/p2pk-tracker/pkg/safe"
)

// blockScanner folds blocks into the delta store one at a time. Within each
// transaction, outputs are recorded before inputs are resolved, so an output
// created and spent inside the same block still cancels out.
type blockScanner struct {
	delta   DeltaRepository
	matcher ScriptMatcher
}

// Scan walks block in transaction order, storing new tracked outputs and
// removing spent ones, and returns the block's net effect on the tally.
// The first store failure aborts the scan; mutations already applied stay
// applied, and the caller must not write a checkpoint for the block.
func (s *blockScanner) Scan(ctx context.Context, block *btcutil.Block) (model.TallyDelta, error) {
	var delta model.TallyDelta

	for _, tx := range block.Transactions() {
		txHash := tx.Hash()

		for idx, txOut := range tx.MsgTx().TxOut {
			if !s.matcher.Match(txOut.PkScript) {
				continue
			}

			vout, err := safe.Uint32(idx)
			if err != nil {
				return model.TallyDelta{}, fmt.Errorf("tx %s output index overflow: %w", txHash, err)
			}

			outpoint := wire.OutPoint{Hash: *txHash, Index: vout}
			if err = s.delta.StoreOutput(ctx, outpoint, txOut.Value); err != nil {
				return model.TallyDelta{}, fmt.Errorf("record output of tx %s: %w", txHash, err)
			}

			delta.Outputs++
			delta.Value += btcutil.Amount(txOut.Value)
		}

		for _, txIn := range tx.MsgTx().TxIn {
			// Misses are the common case: most inputs spend outputs the
			// tracker never recorded, and coinbase inputs reference the
			// null outpoint.
			value, spent, err := s.delta.SpendOutput(ctx, txIn.PreviousOutPoint)
			if err != nil {
				return model.TallyDelta{}, fmt.Errorf("resolve input of tx %s: %w", txHash, err)
			}
			if !spent {
				continue
			}

			delta.Outputs--
			delta.Value -= btcutil.Amount(value)
		}
	}

	return delta, nil
}
