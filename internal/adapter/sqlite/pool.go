package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/guillermoBallester/querylens/internal/core/port"
	_ "modernc.org/sqlite"
)

// PoolConfig sizes the database/sql pool backing a Pool.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool hands out dedicated connections to an existing SQLite database file.
type Pool struct {
	db *sql.DB
}

var _ port.ConnPool = (*Pool)(nil)

// Open connects to the database at path. The file must already exist; SQLite
// would otherwise create an empty database and every query would fail later.
func Open(ctx context.Context, path string, cfg PoolConfig) (*Pool, error) {
	file := strings.TrimPrefix(path, "file:")
	if i := strings.IndexByte(file, '?'); i >= 0 {
		file = file[:i]
	}
	if file != ":memory:" {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("opening database %q: %w", file, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(int(cfg.MinConns))
	}
	if cfg.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database (10s timeout): %w", err)
	}

	return &Pool{db: db}, nil
}

// Acquire checks out one physical connection.
func (p *Pool) Acquire(ctx context.Context) (port.Conn, error) {
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &conn{c: c}, nil
}

// Release returns conn to the pool. Connections from another pool are ignored.
func (p *Pool) Release(c port.Conn) {
	if sc, ok := c.(*conn); ok {
		_ = sc.c.Close()
	}
}

// DB exposes the underlying handle for schema setup in tests and tooling.
func (p *Pool) DB() *sql.DB {
	return p.db
}

func (p *Pool) Close() error {
	return p.db.Close()
}

type conn struct {
	c *sql.Conn
}

func (c *conn) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := c.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return rowsToMaps(rows)
}
