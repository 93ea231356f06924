package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Conn interface {
		Query(ctx context.Context, query string, args ...any) (Rows, error)
		PrepareBatch(ctx context.Context, query string) (Batch, error)
		Close() error
	}

	Rows interface {
		Next() bool
		Scan(dest ...any) error
		Err() error
		Close() error
	}

	Batch interface {
		Append(v ...any) error
		Send() error
	}

	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

// tableNamePattern guards the table name derived from the script pattern,
// which is interpolated into SQL statements.
var tableNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

type Repository struct {
	conn    Conn
	table   string
	network model.Network
	metrics Metrics
}

func NewRepository(dsn string, network model.Network, pattern model.ScriptPattern, metrics Metrics) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("clickhouse dsn is required")
	}
	if network == "" {
		return nil, errors.New("network is required")
	}
	if metrics == nil {
		return nil, errors.New("metrics is required")
	}
	if !tableNamePattern.MatchString(string(pattern)) {
		return nil, fmt.Errorf("invalid script pattern %q", pattern)
	}

	options, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	return &Repository{
		conn:    driverConn{conn},
		table:   fmt.Sprintf("%s_utxo_block_aggregates", pattern),
		network: network,
		metrics: metrics,
	}, nil
}

func (r *Repository) Close() error {
	return r.conn.Close()
}

// driverConn narrows the native connection to the package Conn interface.
type driverConn struct {
	conn driver.Conn
}

func (c driverConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return c.conn.Query(ctx, query, args...)
}

func (c driverConn) PrepareBatch(ctx context.Context, query string) (Batch, error) {
	return c.conn.PrepareBatch(ctx, query)
}

func (c driverConn) Close() error {
	return c.conn.Close()
}
