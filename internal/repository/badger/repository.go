// Package badger implements the delta store: one entry per currently
// unspent tracked output, keyed by outpoint.
package badger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2pk-tracker/pkg/safe"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Metrics records metrics for delta store operations.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

// loggerWrapper adapts zap to badger's logger contract.
type loggerWrapper struct {
	*zap.SugaredLogger
}

func (l loggerWrapper) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}

// Repository stores unspent tracked outputs. Keys are `{txid}:{vout}` with
// the txid rendered big-endian; values are 8-byte little-endian satoshis.
type Repository struct {
	store   *badger.DB
	metrics Metrics
}

// NewRepository opens the delta store at dir, creating it when absent.
// Writes are synchronous: a returned write survives a process crash.
func NewRepository(dir string, metrics Metrics, logger *zap.Logger) (*Repository, error) {
	if dir == "" {
		return nil, errors.New("delta store dir is required")
	}
	if metrics == nil {
		return nil, errors.New("delta store metrics is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(loggerWrapper{logger.Named("deltaStore").Sugar()}).
		WithLoggingLevel(badger.ERROR).
		WithSyncWrites(true)

	store, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open delta store: %w", err)
	}

	return &Repository{store: store, metrics: metrics}, nil
}

// Close flushes and closes the underlying store.
func (r *Repository) Close() error {
	return r.store.Close()
}

func outpointKey(outpoint wire.OutPoint) []byte {
	return []byte(outpoint.String())
}

func encodeValue(value int64) ([]byte, error) {
	sats, err := safe.Uint64(value)
	if err != nil {
		return nil, fmt.Errorf("output value out of range: %w", err)
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, sats)
	return buf, nil
}

func decodeValue(raw []byte) (int64, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("malformed output value of %d bytes", len(raw))
	}
	return int64(binary.LittleEndian.Uint64(raw)), nil
}
