// Package chain defines the types shared between chain providers and their
// consumers.
package chain

import (
	"github.com/btcsuite/btcd/btcutil"
)

// BlockEvent is one asynchronous block delivery. Exactly one of Block or Err
// is set; a delivery carrying Err means retrieval failed and the pipeline
// cannot continue past Height.
type BlockEvent struct {
	Height uint64
	Block  *btcutil.Block
	Err    error
}
