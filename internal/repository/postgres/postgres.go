package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"reservation-settlement-backend/internal/logger"
	"reservation-settlement-backend/internal/repository"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var Schema string

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type Store struct {
	db *sql.DB
	repository.Repositories
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		Repositories: *newRepositories(db),
	}
}

func newRepositories(q DBTX) *repository.Repositories {
	return &repository.Repositories{
		Reservations:  NewReservationRepository(q),
		Negotiations:  NewNegotiationRepository(q),
		Commissions:   NewCommissionRepository(q),
		Distributions: NewDistributionRepository(q),
		Financing:     NewFinancingRepository(q),
	}
}

// InTx implements repository.TxRunner on top of database/sql transactions.
func (s *Store) InTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newRepositories(tx)); err != nil {
		logger.Debug("Transaction rolled back", "error", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// EnsureSchema creates the tables and indexes when they do not exist yet.
func EnsureSchema(ctx context.Context, db DBTX) error {
	logger.DatabaseCall("EnsureSchema", "schema.sql")
	_, err := db.ExecContext(ctx, Schema)
	logger.DatabaseResult("EnsureSchema", 0, err)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
