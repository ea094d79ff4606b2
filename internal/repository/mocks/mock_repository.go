// Package mocks provides in-memory stand-ins for repository interfaces.
package mocks

import (
	"context"
	"database/sql"
	"sync"
)

type MockLockHistoryRepository struct {
	mu                   sync.Mutex
	Total                int
	TaskTotals           map[int64]int
	CountRecordsErr      error
	CountRecordsCalls    int
	CountTaskRecordCalls []int64
	Closed               bool
	Conn                 *sql.DB
}

func NewMockLockHistoryRepository(db *sql.DB, total int) *MockLockHistoryRepository {
	return &MockLockHistoryRepository{
		Conn:       db,
		Total:      total,
		TaskTotals: make(map[int64]int),
	}
}

func (m *MockLockHistoryRepository) CountRecords(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CountRecordsCalls++
	if m.CountRecordsErr != nil {
		return 0, m.CountRecordsErr
	}

	return m.Total, nil
}

func (m *MockLockHistoryRepository) CountTaskRecords(ctx context.Context, taskID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CountTaskRecordCalls = append(m.CountTaskRecordCalls, taskID)
	if m.CountRecordsErr != nil {
		return 0, m.CountRecordsErr
	}

	return m.TaskTotals[taskID], nil
}

func (m *MockLockHistoryRepository) DB() *sql.DB {
	return m.Conn
}

func (m *MockLockHistoryRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true
	return nil
}

// CountRecordsCallCount reads CountRecordsCalls under the lock for callers
// polling from another goroutine.
func (m *MockLockHistoryRepository) CountRecordsCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.CountRecordsCalls
}
