package storage

import (
	"context"
	"errors"
	"time"
)

// Storage persists series rows and their sparse exception index. Reads return
// copies; callers never share memory with the backend.
type Storage interface {
	// LoadSeries returns the series and all of its exceptions as one
	// consistent read. It returns ErrNotFound for unknown ids.
	LoadSeries(ctx context.Context, seriesID string) (*Record, error)
	// ListRecords returns every series owned by ownerID with its exceptions.
	ListRecords(ctx context.Context, ownerID string) ([]*Record, error)
	// Apply commits a batch atomically. Either every change in the batch is
	// visible afterwards or none is.
	Apply(ctx context.Context, batch *Batch) error
}

// Batch is a unit of work against the store. Within Apply, exception
// deletions run first, then series puts, exception puts, and finally series
// deletions, which cascade to the series' exceptions.
type Batch struct {
	PutSeries        []*Series
	DeleteSeries     []string
	PutExceptions    []*Exception
	DeleteExceptions []ExceptionKey
}

// Empty reports whether the batch carries no changes.
func (b *Batch) Empty() bool {
	return b == nil || (len(b.PutSeries) == 0 && len(b.DeleteSeries) == 0 &&
		len(b.PutExceptions) == 0 && len(b.DeleteExceptions) == 0)
}

// SeriesIDs lists every series the batch touches, without duplicates.
func (b *Batch) SeriesIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, s := range b.PutSeries {
		add(s.ID)
	}
	for _, id := range b.DeleteSeries {
		add(id)
	}
	for _, ex := range b.PutExceptions {
		add(ex.SeriesID)
	}
	for _, key := range b.DeleteExceptions {
		add(key.SeriesID)
	}
	return ids
}

// Stamp sets Modified on every series put by the batch and bumps its
// revision. Series without a Created time get one too.
func (b *Batch) Stamp(now time.Time) {
	for _, s := range b.PutSeries {
		if s.Created.IsZero() {
			s.Created = now
		}
		s.Modified = now
		s.Revision++
	}
}

var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput is returned when the input parameters are invalid
	ErrInvalidInput = errors.New("invalid input parameters")
	// ErrStorageUnavailable is returned when the storage backend is unavailable
	ErrStorageUnavailable = errors.New("storage unavailable")
)
