package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

var _ Storage = (*MockStorage)(nil)

// LoadSeries implements the Storage interface
func (m *MockStorage) LoadSeries(ctx context.Context, seriesID string) (*Record, error) {
	args := m.Called(ctx, seriesID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Record), args.Error(1)
}

// ListRecords implements the Storage interface
func (m *MockStorage) ListRecords(ctx context.Context, ownerID string) ([]*Record, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Record), args.Error(1)
}

// Apply implements the Storage interface
func (m *MockStorage) Apply(ctx context.Context, batch *Batch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

// --- Helper methods for creating test data ---

// NewMockRecord wraps a series with the given exceptions
func NewMockRecord(series *Series, exceptions ...*Exception) *Record {
	return &Record{Series: series, Exceptions: exceptions}
}
