package occurrence

import (
	"testing"
	"time"

	"github.com/cyp0633/schedcore/server/recurrence"
	"github.com/cyp0633/schedcore/server/storage"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func dailySeries(id string) *storage.Series {
	return &storage.Series{
		ID:          id,
		OwnerID:     "alice",
		Title:       "Journal",
		Domain:      storage.DomainPersonal,
		AnchorStart: at(2025, 3, 1, 7, 0),
		AnchorEnd:   at(2025, 3, 1, 7, 30),
		Recurrence:  recurrence.Daily(),
	}
}

func march() (time.Time, time.Time) {
	return at(2025, 3, 1, 0, 0), at(2025, 3, 31, 23, 59)
}

func TestMaterialize_ModifiedSingleOccurrence(t *testing.T) {
	x := NewExpander(nil)
	series := dailySeries("s1")
	rec := storage.NewMockRecord(series, &storage.Exception{
		SeriesID:       "s1",
		OccurrenceDate: at(2025, 3, 5, 7, 0),
		Kind:           storage.ExceptionModified,
		Override:       storage.Override{Title: mo.Some("Long journal")},
	})

	ws, we := march()
	occs, err := x.Materialize(rec, ws, we)
	require.NoError(t, err)
	require.Len(t, occs, 31)

	for _, o := range occs {
		if o.Start.Day() == 5 {
			assert.Equal(t, "Long journal", o.Title)
			assert.True(t, o.IsException)
			continue
		}
		assert.Equal(t, "Journal", o.Title, o.Start)
		assert.False(t, o.IsException)
	}
}

func TestMaterialize_TruncatedSeries(t *testing.T) {
	x := NewExpander(nil)
	series := dailySeries("s1")
	series.RecurrenceEnd = mo.Some(at(2025, 3, 10, 7, 0))

	ws, we := march()
	occs, err := x.Materialize(storage.NewMockRecord(series), ws, we)
	require.NoError(t, err)
	require.Len(t, occs, 9)
	assert.Equal(t, 9, occs[len(occs)-1].Start.Day())
}

func TestMaterialize_DeletedNeverAppears(t *testing.T) {
	x := NewExpander(nil)
	series := dailySeries("s1")
	deleted := at(2025, 3, 3, 7, 0)
	rec := storage.NewMockRecord(series, &storage.Exception{
		SeriesID: "s1", OccurrenceDate: deleted, Kind: storage.ExceptionDeleted,
	})

	windows := [][2]time.Time{
		{at(2025, 3, 1, 0, 0), at(2025, 3, 31, 0, 0)},
		{at(2025, 3, 3, 0, 0), at(2025, 3, 3, 23, 0)},
		{deleted, deleted},
	}
	for _, w := range windows {
		occs, err := x.Materialize(rec, w[0], w[1])
		require.NoError(t, err)
		for _, o := range occs {
			assert.False(t, o.OccurrenceDate.Equal(deleted))
		}
	}

	_, ok, err := x.At(rec, deleted)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMaterialize_OverrideMovesOccurrence(t *testing.T) {
	x := NewExpander(nil)
	series := dailySeries("s1")
	series.RecurrenceEnd = mo.Some(at(2025, 3, 4, 0, 0))
	// The 2nd is moved to the 10th, after the series has ended.
	rec := storage.NewMockRecord(series, &storage.Exception{
		SeriesID:       "s1",
		OccurrenceDate: at(2025, 3, 2, 7, 0),
		Kind:           storage.ExceptionModified,
		Override:       storage.Override{Start: mo.Some(at(2025, 3, 10, 18, 0))},
	})

	occs, err := x.Materialize(rec, at(2025, 3, 9, 0, 0), at(2025, 3, 11, 0, 0))
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, at(2025, 3, 10, 18, 0), occs[0].Start)
	assert.Equal(t, at(2025, 3, 10, 18, 30), occs[0].End, "duration is kept")
	assert.Equal(t, at(2025, 3, 2, 7, 0), occs[0].OccurrenceDate)

	occs, err = x.Materialize(rec, at(2025, 3, 2, 0, 0), at(2025, 3, 2, 23, 0))
	require.NoError(t, err)
	assert.Empty(t, occs, "moved occurrence no longer shows on its original date")
}

func TestMaterialize_StaleExceptionIgnored(t *testing.T) {
	x := NewExpander(nil)
	series := dailySeries("s1")
	rec := storage.NewMockRecord(series, &storage.Exception{
		SeriesID:       "s1",
		OccurrenceDate: at(2025, 3, 2, 8, 0), // rule produces 07:00
		Kind:           storage.ExceptionModified,
		Override:       storage.Override{Title: mo.Some("ghost")},
	})

	occs, err := x.Materialize(rec, at(2025, 3, 2, 0, 0), at(2025, 3, 2, 23, 0))
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, "Journal", occs[0].Title)
}

func TestMaterialize_AllDayIntersection(t *testing.T) {
	x := NewExpander(nil)
	trip := &storage.Series{
		ID:          "trip",
		OwnerID:     "alice",
		Title:       "Conference",
		Domain:      storage.DomainTravel,
		AnchorStart: at(2025, 4, 28, 0, 0),
		AnchorEnd:   time.Date(2025, 5, 2, 23, 59, 59, 0, time.UTC),
		IsAllDay:    true,
	}

	tests := []struct {
		name        string
		windowStart time.Time
		windowEnd   time.Time
		want        int
	}{
		{"window covers tail only", at(2025, 5, 1, 0, 0), at(2025, 5, 31, 23, 59), 1},
		{"window covers head only", at(2025, 4, 1, 0, 0), at(2025, 4, 28, 0, 0), 1},
		{"window after", at(2025, 5, 3, 0, 0), at(2025, 5, 10, 0, 0), 0},
		{"window in another zone", time.Date(2025, 5, 3, 0, 0, 0, 0, time.FixedZone("UTC+9", 9*3600)),
			time.Date(2025, 5, 4, 0, 0, 0, 0, time.FixedZone("UTC+9", 9*3600)), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occs, err := x.Materialize(storage.NewMockRecord(trip), tt.windowStart, tt.windowEnd)
			require.NoError(t, err)
			assert.Len(t, occs, tt.want)
		})
	}
}

func TestMaterialize_TimedStartMustBeInWindow(t *testing.T) {
	x := NewExpander(nil)
	series := dailySeries("s1")

	occs, err := x.Materialize(storage.NewMockRecord(series), at(2025, 3, 2, 7, 15), at(2025, 3, 3, 7, 0))
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, at(2025, 3, 3, 7, 0), occs[0].Start)
}

func TestMaterializeAll_OrderAndDeterminism(t *testing.T) {
	x := NewExpander(nil)
	a, b := dailySeries("b-series"), dailySeries("a-series")
	records := []*storage.Record{storage.NewMockRecord(a), storage.NewMockRecord(b)}

	first, err := x.MaterializeAll(records, at(2025, 3, 1, 0, 0), at(2025, 3, 3, 23, 0))
	require.NoError(t, err)
	second, err := x.MaterializeAll(records, at(2025, 3, 1, 0, 0), at(2025, 3, 3, 23, 0))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 6)
	for i := 0; i < len(first); i += 2 {
		assert.Equal(t, "a-series", first[i].SeriesID, "ties broken by series id")
		assert.Equal(t, "b-series", first[i+1].SeriesID)
		assert.True(t, first[i].Start.Equal(first[i+1].Start))
	}
	for i := 1; i < len(first); i++ {
		assert.False(t, first[i].Start.Before(first[i-1].Start))
	}
}

func TestAt(t *testing.T) {
	x := NewExpander(nil)
	series := dailySeries("s1")
	rec := storage.NewMockRecord(series, &storage.Exception{
		SeriesID:       "s1",
		OccurrenceDate: at(2025, 3, 4, 7, 0),
		Kind:           storage.ExceptionModified,
		Override:       storage.Override{Location: mo.Some("Cafe")},
	})

	o, ok, err := x.At(rec, at(2025, 3, 4, 7, 0))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Cafe", o.Location)
	assert.True(t, o.IsException)

	_, ok, err = x.At(rec, at(2025, 3, 4, 7, 1))
	require.NoError(t, err)
	assert.False(t, ok)
}
