package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/infrastructure/lazy"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the part of *pgxpool.Pool the repositories query through.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// dbSource is resolved per call so the pool is only dialed when a query runs.
type dbSource func(ctx context.Context) (DB, error)

const connectTimeout = 10 * time.Second

func NewPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 1 * time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

// Connector is the process-wide pool handle. The pool is dialed on first
// use; see lazy.Resource for the sharing rules.
type Connector struct {
	res *lazy.Resource[*pgxpool.Pool]
}

func NewConnector(databaseURL string, maxConns int32) *Connector {
	return &Connector{
		res: lazy.New(func(ctx context.Context) (*pgxpool.Pool, error) {
			return NewPool(ctx, databaseURL, maxConns)
		}, func(p *pgxpool.Pool) error {
			p.Close()
			return nil
		}, connectTimeout),
	}
}

func (c *Connector) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := c.res.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	return pool, nil
}

// DB returns the pool as a DB.
func (c *Connector) DB(ctx context.Context) (DB, error) {
	pool, err := c.Pool(ctx)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func (c *Connector) Ping(ctx context.Context) error {
	pool, err := c.Pool(ctx)
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

func (c *Connector) Close() error {
	return c.res.Close()
}
