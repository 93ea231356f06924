// Package model defines domain models for the P2PK UTXO tracker.
package model

import "fmt"

type Network string

var (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Signet  Network = "signet"
	Regtest Network = "regtest"
)

// ParseNetwork maps a configuration value onto a known network.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case Mainnet, Testnet, Signet, Regtest:
		return Network(s), nil
	default:
		return "", fmt.Errorf("unknown network %q", s)
	}
}
