package testing

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/elasticom/internal/domain"
)

// MockTransactionStore is an in-memory implementation of domain.TransactionQuerier
type MockTransactionStore struct {
	mu      sync.RWMutex
	records []domain.TransactionRecord
	err     error
	queries int
}

// NewMockTransactionStore creates a new mock store holding records
func NewMockTransactionStore(records ...domain.TransactionRecord) *MockTransactionStore {
	return &MockTransactionStore{
		records: append([]domain.TransactionRecord{}, records...),
	}
}

// SetRecords replaces the stored records
func (m *MockTransactionStore) SetRecords(records []domain.TransactionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]domain.TransactionRecord{}, records...)
}

// SetError sets the error returned by Query
func (m *MockTransactionStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Queries returns how many times Query was called
func (m *MockTransactionStore) Queries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queries
}

// Query returns the stored records matching filter
func (m *MockTransactionStore) Query(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	if m.err != nil {
		return nil, m.err
	}
	return domain.FilterRecords(m.records, filter), nil
}

// FixedClock returns a domain.Clock that always reports t
func FixedClock(t time.Time) domain.Clock {
	return func() time.Time { return t }
}
