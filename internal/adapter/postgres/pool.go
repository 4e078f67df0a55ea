package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/guillermoBallester/querylens/internal/core/domain"
	"github.com/guillermoBallester/querylens/internal/core/port"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig carries the pgxpool sizing knobs exposed through configuration.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool adapts a pgxpool.Pool to port.ConnPool.
type Pool struct {
	pool *pgxpool.Pool
}

var _ port.ConnPool = (*Pool)(nil)

func NewPool(ctx context.Context, databaseURL string, cfg PoolConfig) (*Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		config.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		config.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database (10s timeout): %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Wrap adapts an existing pgxpool.Pool. The caller keeps ownership of it.
func Wrap(pool *pgxpool.Pool) *Pool {
	return &Pool{pool: pool}
}

func (p *Pool) Acquire(ctx context.Context) (port.Conn, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &conn{c: c}, nil
}

func (p *Pool) Release(c port.Conn) {
	if pc, ok := c.(*conn); ok {
		pc.c.Release()
	}
}

func (p *Pool) Close() error {
	p.pool.Close()
	return nil
}

type conn struct {
	c *pgxpool.Conn
}

// Query accepts both "?" and "$n" placeholders.
func (c *conn) Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	rows, err := c.c.Query(ctx, domain.RebindDollar(sql), args...)
	if err != nil {
		return nil, err
	}
	return collectMaps(rows)
}
