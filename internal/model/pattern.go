package model

// ScriptPattern names the family of output scripts a pipeline tracks. It
// parameterizes checkpoint table names and metric labels.
type ScriptPattern string

var (
	// PatternP2PK tracks bare pay-to-pubkey outputs.
	PatternP2PK ScriptPattern = "p2pk"
)
