// Package repository provides PostgreSQL access to the lock history store.
package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// HistoryTable is the table written by the lock recorder.
const HistoryTable = "lock_history"

//go:embed migrations/*.sql
var migrations embed.FS

type PostgresLockHistoryRepository struct {
	db *sql.DB
}

func NewPostgresLockHistoryRepository(connectionString string) (*PostgresLockHistoryRepository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresLockHistoryRepository{db: db}, nil
}

// CountRecords counts every raw history row, ignoring the report filters.
func (r *PostgresLockHistoryRepository) CountRecords(ctx context.Context) (int, error) {
	query := `SELECT COUNT(id) FROM ` + HistoryTable

	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count lock history: %w", err)
	}

	return total, nil
}

// CountTaskRecords counts the raw history rows recorded for one task.
func (r *PostgresLockHistoryRepository) CountTaskRecords(ctx context.Context, taskID int64) (int, error) {
	query := `SELECT COUNT(id) FROM ` + HistoryTable + ` WHERE taskid = $1`

	var total int
	if err := r.db.QueryRowContext(ctx, query, taskID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count lock history for task %d: %w", taskID, err)
	}

	return total, nil
}

// Migrate applies the embedded schema migrations.
func (r *PostgresLockHistoryRepository) Migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.Up(r.db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

func (r *PostgresLockHistoryRepository) DB() *sql.DB {
	return r.db
}

func (r *PostgresLockHistoryRepository) Close() error {
	return r.db.Close()
}
