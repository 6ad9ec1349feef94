// memory based implementation for testing purposes
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cyp0633/schedcore/server/storage"
)

// Store implements storage.Storage with an arena of series rows and a sparse
// exception index keyed by (series id, occurrence date).
type Store struct {
	mu         sync.RWMutex
	series     map[string]*storage.Series                             // key: series id
	exceptions map[string]map[storage.ExceptionKey]*storage.Exception // key: series id
	closed     bool
}

var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		series:     make(map[string]*storage.Series),
		exceptions: make(map[string]map[storage.ExceptionKey]*storage.Exception),
	}
}

// Close makes every later call fail with storage.ErrStorageUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneException(ex *storage.Exception) *storage.Exception {
	c := *ex
	return &c
}

// record builds a copy of the series and its exceptions. Caller holds s.mu.
func (s *Store) record(series *storage.Series) *storage.Record {
	rec := &storage.Record{Series: series.Clone()}
	for _, ex := range s.exceptions[series.ID] {
		rec.Exceptions = append(rec.Exceptions, cloneException(ex))
	}
	sort.Slice(rec.Exceptions, func(i, j int) bool {
		return rec.Exceptions[i].OccurrenceDate.Before(rec.Exceptions[j].OccurrenceDate)
	})
	return rec
}

func (s *Store) LoadSeries(ctx context.Context, seriesID string) (*storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageUnavailable
	}
	series, ok := s.series[seriesID]
	if !ok {
		return nil, fmt.Errorf("series %s: %w", seriesID, storage.ErrNotFound)
	}
	return s.record(series), nil
}

func (s *Store) ListRecords(ctx context.Context, ownerID string) ([]*storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageUnavailable
	}
	var records []*storage.Record
	for _, series := range s.series {
		if series.OwnerID == ownerID {
			records = append(records, s.record(series))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Series.ID < records[j].Series.ID
	})
	return records, nil
}

// Apply validates the whole batch against the current state before touching
// anything, so a rejected batch leaves the store unchanged.
func (s *Store) Apply(ctx context.Context, batch *storage.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if batch.Empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageUnavailable
	}

	exists := func(id string) bool {
		_, ok := s.series[id]
		return ok
	}
	putIDs := make(map[string]bool, len(batch.PutSeries))
	for _, series := range batch.PutSeries {
		if series == nil || series.ID == "" {
			return fmt.Errorf("series without id: %w", storage.ErrInvalidInput)
		}
		putIDs[series.ID] = true
	}
	for _, ex := range batch.PutExceptions {
		if ex.Kind != storage.ExceptionDeleted && ex.Kind != storage.ExceptionModified {
			return fmt.Errorf("exception kind %d: %w", ex.Kind, storage.ErrInvalidInput)
		}
		if !exists(ex.SeriesID) && !putIDs[ex.SeriesID] {
			return fmt.Errorf("exception for unknown series %s: %w", ex.SeriesID, storage.ErrInvalidInput)
		}
	}
	for _, id := range batch.DeleteSeries {
		if !exists(id) && !putIDs[id] {
			return fmt.Errorf("series %s: %w", id, storage.ErrNotFound)
		}
	}

	for _, key := range batch.DeleteExceptions {
		delete(s.exceptions[key.SeriesID], key)
	}
	for _, series := range batch.PutSeries {
		s.series[series.ID] = series.Clone()
	}
	for _, ex := range batch.PutExceptions {
		idx, ok := s.exceptions[ex.SeriesID]
		if !ok {
			idx = make(map[storage.ExceptionKey]*storage.Exception)
			s.exceptions[ex.SeriesID] = idx
		}
		idx[ex.Key()] = cloneException(ex)
	}
	for _, id := range batch.DeleteSeries {
		delete(s.series, id)
		delete(s.exceptions, id)
	}
	return nil
}

// Stats reports the number of stored series and exceptions.
func (s *Store) Stats() (series, exceptions int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, idx := range s.exceptions {
		exceptions += len(idx)
	}
	return len(s.series), exceptions
}
