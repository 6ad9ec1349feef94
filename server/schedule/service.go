// Package schedule applies create, update and delete requests to recurring
// series. Mutations on one series are serialized; reads work on point-in-time
// snapshots from storage and never wait on a mutation.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cyp0633/schedcore/server/occurrence"
	"github.com/cyp0633/schedcore/server/storage"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Config tunes the service.
type Config struct {
	// DefaultLocation is used for series created without a time zone.
	DefaultLocation *time.Location
	// ConflictHorizon bounds how far ahead a recurring write is checked for
	// conflicts.
	ConflictHorizon time.Duration
	// MaxWindow caps list queries. Zero disables the cap.
	MaxWindow time.Duration
}

// DefaultConfig is used when no WithConfig option is given.
var DefaultConfig = Config{
	DefaultLocation: time.UTC,
	ConflictHorizon: 31 * 24 * time.Hour,
	MaxWindow:       62 * 24 * time.Hour,
}

// Service orchestrates scoped mutations and window queries.
type Service struct {
	store    storage.Storage
	expander *occurrence.Expander
	locks    *keyedMutex
	logger   *slog.Logger
	config   Config
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConfig replaces DefaultConfig. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.DefaultLocation != nil {
			s.config.DefaultLocation = cfg.DefaultLocation
		}
		if cfg.ConflictHorizon > 0 {
			s.config.ConflictHorizon = cfg.ConflictHorizon
		}
		if cfg.MaxWindow >= 0 {
			s.config.MaxWindow = cfg.MaxWindow
		}
	}
}

// WithClock sets the time source used to stamp writes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator sets the series id source. The default issues random UUIDs.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a service over store. A nil expander gets a default one.
func NewService(store storage.Storage, expander *occurrence.Expander, opts ...Option) *Service {
	if expander == nil {
		expander = occurrence.NewExpander(nil)
	}
	s := &Service{
		store:    store,
		expander: expander,
		locks:    newKeyedMutex(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		config:   DefaultConfig,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new series and reports the owner's occurrences that overlap
// it within the conflict horizon.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Result, error) {
	series, err := s.newSeries(req)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(series.ID)
	defer unlock()

	if err := s.commit(ctx, &storage.Batch{PutSeries: []*storage.Series{series}}); err != nil {
		return nil, err
	}

	rec := &storage.Record{Series: series}
	conflicts := s.seriesConflicts(ctx, rec, series.AnchorStart, occurrence.Exclusion{Series: []string{series.ID}})
	s.logger.Info("series created",
		"series_id", series.ID,
		"owner_id", series.OwnerID,
		"recurrence", series.Recurrence.Freq.String(),
		"conflicts", len(conflicts))

	return &Result{
		Series:    series,
		Event:     s.eventAt(rec, series.AnchorStart),
		Conflicts: conflicts,
	}, nil
}

// Update applies req.Changes to the occurrences req.Scope selects. A nil scope
// means All.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Result, error) {
	if req.Scope == nil {
		req.Scope = All{}
	}
	if err := req.Changes.validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(req.SeriesID)
	defer unlock()

	rec, err := s.load(ctx, req.OwnerID, req.SeriesID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("update request received",
		"series_id", req.SeriesID,
		"owner_id", req.OwnerID,
		"scope", req.Scope.String())

	switch scope := req.Scope.(type) {
	case This:
		return s.updateThis(ctx, rec, scope, req.Changes)
	case ThisAndFollowing:
		return s.updateFollowing(ctx, rec, scope, req.Changes)
	case All:
		return s.updateAll(ctx, rec, scope, req.Changes)
	default:
		return nil, invalid("scope", "unsupported scope %T", req.Scope)
	}
}

// Delete removes the occurrences req.Scope selects. A nil scope means All.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) error {
	if req.Scope == nil {
		req.Scope = All{}
	}

	unlock := s.locks.Lock(req.SeriesID)
	defer unlock()

	rec, err := s.load(ctx, req.OwnerID, req.SeriesID)
	if err != nil {
		return err
	}
	series := rec.Series

	batch := &storage.Batch{}
	switch scope := req.Scope.(type) {
	case All:
		batch.DeleteSeries = []string{series.ID}

	case This:
		date, err := s.target(rec, scope, scope.OccurrenceDate)
		if IsInvalidScope(err) && s.deletedAt(rec, scope.OccurrenceDate) {
			s.logger.Debug("occurrence already deleted",
				"series_id", series.ID,
				"occurrence_date", scope.OccurrenceDate)
			return nil
		}
		if err != nil {
			return err
		}
		batch.PutSeries = []*storage.Series{series.Clone()}
		batch.PutExceptions = []*storage.Exception{{
			SeriesID:       series.ID,
			OccurrenceDate: date,
			Kind:           storage.ExceptionDeleted,
		}}

	case ThisAndFollowing:
		date, err := s.target(rec, scope, scope.OccurrenceDate)
		if IsInvalidScope(err) && s.truncatedAt(rec, scope.OccurrenceDate) {
			s.logger.Debug("series already ends before occurrence",
				"series_id", series.ID,
				"occurrence_date", scope.OccurrenceDate)
			return nil
		}
		if err != nil {
			return err
		}
		first, err := s.isFirst(series, date)
		if err != nil {
			return err
		}
		if first {
			batch.DeleteSeries = []string{series.ID}
			break
		}
		truncated := series.Clone()
		truncated.RecurrenceEnd = mo.Some(date)
		batch.PutSeries = []*storage.Series{truncated}
		batch.DeleteExceptions = keysFrom(rec.Exceptions, date)

	default:
		return invalid("scope", "unsupported scope %T", req.Scope)
	}

	if err := s.commit(ctx, batch); err != nil {
		return err
	}
	s.logger.Info("series deleted",
		"series_id", series.ID,
		"owner_id", series.OwnerID,
		"scope", req.Scope.String(),
		"hard_delete", len(batch.DeleteSeries) > 0)
	return nil
}

// ListOccurrences materializes every series of ownerID in [start, end].
func (s *Service) ListOccurrences(ctx context.Context, ownerID string, start, end time.Time) ([]occurrence.Occurrence, error) {
	if start.IsZero() {
		return nil, invalid("start", "is required")
	}
	if end.IsZero() {
		return nil, invalid("end", "is required")
	}
	if end.Before(start) {
		return nil, invalid("end", "must not be before start")
	}
	if s.config.MaxWindow > 0 && end.Sub(start) > s.config.MaxWindow {
		return nil, invalid("end", "window exceeds %d days", int(s.config.MaxWindow.Hours()/24))
	}

	records, err := s.store.ListRecords(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	occs, err := s.expander.MaterializeAll(records, start, end)
	if err != nil {
		return nil, fmt.Errorf("materialize: %w", err)
	}
	return occs, nil
}

// Get returns a series owned by ownerID with its exceptions.
func (s *Service) Get(ctx context.Context, ownerID, seriesID string) (*storage.Record, error) {
	return s.load(ctx, ownerID, seriesID)
}

// CheckConflicts reports the owner's occurrences overlapping a span without
// writing anything.
func (s *Service) CheckConflicts(ctx context.Context, q ConflictQuery) ([]occurrence.Occurrence, error) {
	if q.Domain != "" && !q.Domain.Valid() {
		return nil, invalid("domain", "unknown domain %q", q.Domain)
	}
	loc, err := s.location(q.TimeZone)
	if err != nil {
		return nil, err
	}
	start, end, err := normalizeSpan(q.Start, q.End, q.IsAllDay, loc)
	if err != nil {
		return nil, err
	}

	candidate := occurrence.Occurrence{
		OwnerID:        q.OwnerID,
		OccurrenceDate: start,
		Start:          start,
		End:            end,
		IsAllDay:       q.IsAllDay,
		Domain:         q.Domain,
	}
	var exclude occurrence.Exclusion
	if q.ExcludeSeries != "" {
		if date, ok := q.ExcludeOccurrence.Get(); ok {
			exclude.Occurrences = []occurrence.Ref{{SeriesID: q.ExcludeSeries, OccurrenceDate: date}}
		} else {
			exclude.Series = []string{q.ExcludeSeries}
		}
	}
	return s.conflictsFor(ctx, q.OwnerID, []occurrence.Occurrence{candidate}, exclude)
}

func (s *Service) newSeries(req CreateRequest) (*storage.Series, error) {
	if req.OwnerID == "" {
		return nil, invalid("ownerId", "is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	if !req.Domain.Valid() {
		return nil, invalid("domain", "unknown domain %q", req.Domain)
	}
	if err := req.Recurrence.Validate(); err != nil {
		return nil, invalid("recurrence", "%v", err)
	}
	loc, err := s.location(req.TimeZone)
	if err != nil {
		return nil, err
	}
	start, end, err := normalizeSpan(req.Start, req.End, req.IsAllDay, loc)
	if err != nil {
		return nil, err
	}
	until, err := normalizeUntil(req.Recurrence, req.RecurrenceEnd, start)
	if err != nil {
		return nil, err
	}

	return &storage.Series{
		ID:             s.newID(),
		OwnerID:        req.OwnerID,
		Title:          title,
		Domain:         req.Domain,
		Location:       req.Location,
		Description:    req.Description,
		AnchorStart:    start,
		AnchorEnd:      end,
		IsAllDay:       req.IsAllDay,
		Recurrence:     req.Recurrence,
		RecurrenceEnd:  until,
		HideFromAgenda: req.HideFromAgenda,
		TimeZone:       loc.String(),
	}, nil
}

func (s *Service) location(name string) (*time.Location, error) {
	if name == "" {
		return s.config.DefaultLocation, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, invalid("timeZone", "unknown time zone %q", name)
	}
	return loc, nil
}

// load reads a series and hides series owned by someone else.
func (s *Service) load(ctx context.Context, ownerID, seriesID string) (*storage.Record, error) {
	rec, err := s.store.LoadSeries(ctx, seriesID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, seriesID)
	}
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", seriesID, err)
	}
	if rec.Series.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, seriesID)
	}
	return rec, nil
}

// target checks that a single-occurrence scope addresses a live occurrence
// and returns its date in the series' zone.
func (s *Service) target(rec *storage.Record, scope Scope, occurrenceDate time.Time) (time.Time, error) {
	series := rec.Series
	if !series.Recurrence.IsRecurring() {
		return time.Time{}, invalidScope(scope, "series does not repeat")
	}
	date := occurrenceDate.In(series.AnchorStart.Location())
	ok, err := s.expander.Engine().Produces(series.Recurrence, series.AnchorStart, series.RecurrenceEnd, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("evaluate series %s: %w", series.ID, err)
	}
	if !ok {
		return time.Time{}, invalidScope(scope, "series has no occurrence at %s", occurrenceDate.Format(time.RFC3339))
	}
	if ex := rec.ExceptionAt(date); ex != nil && ex.Kind == storage.ExceptionDeleted {
		return time.Time{}, invalidScope(scope, "occurrence at %s was deleted", occurrenceDate.Format(time.RFC3339))
	}
	return date, nil
}

// deletedAt reports whether the occurrence at occurrenceDate carries a
// Deleted exception.
func (s *Service) deletedAt(rec *storage.Record, occurrenceDate time.Time) bool {
	ex := rec.ExceptionAt(occurrenceDate.In(rec.Series.AnchorStart.Location()))
	return ex != nil && ex.Kind == storage.ExceptionDeleted
}

// truncatedAt reports whether the series already ends at or before
// occurrenceDate.
func (s *Service) truncatedAt(rec *storage.Record, occurrenceDate time.Time) bool {
	end, ok := rec.Series.RecurrenceEnd.Get()
	return ok && rec.Series.Recurrence.IsRecurring() && !occurrenceDate.Before(end)
}

// isFirst reports whether date is the first occurrence of the series. The
// anchor itself is not one when it misses the rule's selectors.
func (s *Service) isFirst(series *storage.Series, date time.Time) (bool, error) {
	first, err := s.firstOccurrence(series)
	if err != nil {
		return false, err
	}
	return date.Equal(first), nil
}

// firstOccurrence returns the start of the first occurrence, or the anchor
// when the series produces none.
func (s *Service) firstOccurrence(series *storage.Series) (time.Time, error) {
	first, err := s.expander.Engine().First(series.Recurrence, series.AnchorStart, series.RecurrenceEnd)
	if err != nil {
		return time.Time{}, fmt.Errorf("evaluate series %s: %w", series.ID, err)
	}
	return first.OrElse(series.AnchorStart), nil
}

func (s *Service) commit(ctx context.Context, batch *storage.Batch) error {
	batch.Stamp(s.now())
	if err := s.store.Apply(ctx, batch); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// eventAt materializes the occurrence at date, falling back to the first
// visible one after it and finally to the unmodified date.
func (s *Service) eventAt(rec *storage.Record, date time.Time) occurrence.Occurrence {
	if o, ok, err := s.expander.At(rec, date); err == nil && ok {
		return o
	}
	occs, err := s.expander.Materialize(rec, date, date.Add(s.config.ConflictHorizon))
	if err == nil && len(occs) > 0 {
		return occs[0]
	}
	return occurrence.Base(rec.Series, date)
}

// seriesConflicts checks the occurrences rec produces within the conflict
// horizon from from. Failures are logged rather than returned because the
// write they advise on has already succeeded.
func (s *Service) seriesConflicts(ctx context.Context, rec *storage.Record, from time.Time, exclude occurrence.Exclusion) []occurrence.Occurrence {
	candidates, err := s.expander.Materialize(rec, from, from.Add(s.config.ConflictHorizon))
	if err == nil {
		var conflicts []occurrence.Occurrence
		conflicts, err = s.conflictsFor(ctx, rec.Series.OwnerID, candidates, exclude)
		if err == nil {
			return conflicts
		}
	}
	s.logger.Warn("conflict check failed", "series_id", rec.Series.ID, "error", err)
	return nil
}

func (s *Service) occurrenceConflicts(ctx context.Context, o occurrence.Occurrence, exclude occurrence.Exclusion) []occurrence.Occurrence {
	conflicts, err := s.conflictsFor(ctx, o.OwnerID, []occurrence.Occurrence{o}, exclude)
	if err != nil {
		s.logger.Warn("conflict check failed", "series_id", o.SeriesID, "error", err)
		return nil
	}
	return conflicts
}

// conflictsFor expands the owner's schedule around the candidates and returns
// what overlaps them. The lookback covers the longest stored span so an
// occurrence that started well before a candidate is still seen.
func (s *Service) conflictsFor(ctx context.Context, ownerID string, candidates []occurrence.Occurrence, exclude occurrence.Exclusion) ([]occurrence.Occurrence, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	lo, hi := candidates[0].Start, candidates[0].End
	for _, c := range candidates[1:] {
		if c.Start.Before(lo) {
			lo = c.Start
		}
		if c.End.After(hi) {
			hi = c.End
		}
	}

	records, err := s.store.ListRecords(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	lookback := longestSpan(records) + 24*time.Hour
	existing, err := s.expander.MaterializeAll(records, lo.Add(-lookback), hi.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	return occurrence.FindConflicts(candidates, existing, exclude), nil
}

func longestSpan(records []*storage.Record) time.Duration {
	var longest time.Duration
	for _, rec := range records {
		longest = max(longest, rec.Series.Duration())
		for _, ex := range rec.Exceptions {
			start, okStart := ex.Override.Start.Get()
			end, okEnd := ex.Override.End.Get()
			switch {
			case okStart && okEnd:
				longest = max(longest, end.Sub(start))
			case okEnd:
				longest = max(longest, end.Sub(ex.OccurrenceDate))
			}
		}
	}
	return longest
}

// keysFrom lists the keys of exceptions dated at or after date.
func keysFrom(exceptions []*storage.Exception, date time.Time) []storage.ExceptionKey {
	var keys []storage.ExceptionKey
	for _, ex := range exceptions {
		if !ex.OccurrenceDate.Before(date) {
			keys = append(keys, ex.Key())
		}
	}
	return keys
}
