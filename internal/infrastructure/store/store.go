// Package store opens the configured backend and hands out its repositories.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ErlanBelekov/hdnotes/internal/infrastructure/mongodb"
	"github.com/ErlanBelekov/hdnotes/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/hdnotes/internal/repository"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongodb"
)

type Store struct {
	Driver string
	Users  repository.UserRepository
	Notes  repository.NoteRepository

	db interface {
		Ping(ctx context.Context) error
		Close() error
	}
}

// DriverFor maps a connection URL to a backend by scheme.
func DriverFor(databaseURL string) (string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(databaseURL, "mongodb://"), strings.HasPrefix(databaseURL, "mongodb+srv://"):
		return DriverMongo, nil
	default:
		return "", fmt.Errorf("unsupported database url scheme")
	}
}

// Open builds the store for databaseURL and prepares its schema. The
// connection itself is shared and lazily dialed; schema preparation is the
// first use.
func Open(ctx context.Context, databaseURL string, maxConns int, logger *slog.Logger) (*Store, error) {
	driver, err := DriverFor(databaseURL)
	if err != nil {
		return nil, err
	}
	logger = logger.With("component", "store", "driver", driver)

	switch driver {
	case DriverMongo:
		conn, err := mongodb.NewConnector(databaseURL, uint64(maxConns))
		if err != nil {
			return nil, err
		}
		if err := conn.EnsureIndexes(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		logger.Info("indexes ensured")
		return &Store{
			Driver: driver,
			Users:  mongodb.NewUserRepository(conn),
			Notes:  mongodb.NewNoteRepository(conn),
			db:     conn,
		}, nil
	default:
		conn := postgres.NewConnector(databaseURL, int32(maxConns))
		if err := conn.Migrate(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied")
		return &Store{
			Driver: driver,
			Users:  postgres.NewUserRepository(conn),
			Notes:  postgres.NewNoteRepository(conn),
			db:     conn,
		}, nil
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
