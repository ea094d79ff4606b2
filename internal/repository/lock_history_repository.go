package repository

import (
	"context"
	"database/sql"
)

type LockHistoryRepository interface {
	CountRecords(ctx context.Context) (int, error)
	CountTaskRecords(ctx context.Context, taskID int64) (int, error)
	DB() *sql.DB
	Close() error
}
