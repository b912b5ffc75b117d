package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/niksmo/prodmng/internal/core/port"
)

type sqldb interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PingContext(ctx context.Context) error
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Close() error
}

// SQLSlots keeps slots in the overlay_slots table of a PostgreSQL database.
// The table is created by the migrator.
type SQLSlots struct {
	sqldb sqldb
}

func NewSQLSlots(ctx context.Context, dsn string) (SQLSlots, error) {
	const op = "NewSQLSlots"

	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return SQLSlots{}, fmt.Errorf("%s: %w", op, err)
	}
	connStr := stdlib.RegisterConnConfig(connConfig)
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return SQLSlots{}, fmt.Errorf("%s: %w", op, err)
	}

	s := SQLSlots{db}
	if err := s.ping(ctx); err != nil {
		_ = db.Close()
		return SQLSlots{}, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (s SQLSlots) ping(ctx context.Context) error {
	const op = "SQLSlots.ping"
	if err := s.sqldb.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: database unavailable: %w", op, err)
	}
	slog.Info("database is available", "op", op)
	return nil
}

func (s SQLSlots) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "SQLSlots.Get"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT payload FROM overlay_slots WHERE slot_key = $1;`

	var payload []byte
	err := s.sqldb.QueryRowContext(ctx, query, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %q: %w", op, key, port.ErrSlotNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payload, nil
}

func (s SQLSlots) Put(ctx context.Context, key string, value []byte) error {
	const op = "SQLSlots.Put"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
		INSERT INTO overlay_slots (slot_key, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (slot_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at;
	`

	if _, err := s.sqldb.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}
	return nil
}

func (s SQLSlots) Close() {
	const op = "SQLSlots.Close"
	log := slog.With("op", op)

	log.Info("closing sql database...")

	if err := s.sqldb.Close(); err != nil {
		log.Error("failed to close", "err", err)
		return
	}
	log.Info("sql database is closed")
}
