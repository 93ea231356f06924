package bitcoin

import (
	"github.com/btcsuite/btcd/txscript"

	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

// PubKeyMatcher classifies bare pay-to-pubkey output scripts.
type PubKeyMatcher struct{}

// NewPubKeyMatcher creates a matcher for the p2pk script pattern.
func NewPubKeyMatcher() *PubKeyMatcher {
	return &PubKeyMatcher{}
}

// Match reports whether pkScript is a canonical pay-to-pubkey script: a
// compressed or uncompressed public key push followed by OP_CHECKSIG.
// Unparseable scripts and every other script class are not tracked.
func (PubKeyMatcher) Match(pkScript []byte) bool {
	return txscript.GetScriptClass(pkScript) == txscript.PubKeyTy
}

// Pattern names the script family this matcher tracks.
func (PubKeyMatcher) Pattern() model.ScriptPattern {
	return model.PatternP2PK
}
