// Package sqlite persists block checkpoints in a local SQLite database.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

// tableNamePattern guards the table name derived from the script pattern,
// which is interpolated into SQL statements.
var tableNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

type Repository struct {
	db      *sql.DB
	table   string
	metrics Metrics
}

func NewRepository(path string, pattern model.ScriptPattern, metrics Metrics) (*Repository, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if metrics == nil {
		return nil, errors.New("metrics is required")
	}
	if !tableNamePattern.MatchString(string(pattern)) {
		return nil, fmt.Errorf("invalid script pattern %q", pattern)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create checkpoint store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("ping checkpoint store: %w", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		return nil, fmt.Errorf("set checkpoint store pragmas: %w", err)
	}

	table := fmt.Sprintf("%s_utxo_block_aggregates", pattern)
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	block_height INTEGER NOT NULL,
	block_hash TEXT PRIMARY KEY,
	date TEXT NOT NULL,
	total_utxos INTEGER NOT NULL,
	total_sats REAL NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]s_block_height ON %[1]s (block_height DESC);`, table)

	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create checkpoint schema: %w", err)
	}

	return &Repository{db: db, table: table, metrics: metrics}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
