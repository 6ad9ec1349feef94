package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cyp0633/schedcore/internal/xml"
	"github.com/cyp0633/schedcore/protocol"
	"github.com/cyp0633/schedcore/server/auth"
	"github.com/cyp0633/schedcore/server/schedule"
	"github.com/cyp0633/schedcore/server/storage"
	"github.com/samber/mo"
)

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(headerContentType, "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := queryTime(q.Get("start"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: start: %v", errBadRequest, err))
		return
	}
	end, err := queryTime(q.Get("end"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: end: %v", errBadRequest, err))
		return
	}

	occs, err := s.service.ListOccurrences(r.Context(), owner(r), start.OrZero(), end.OrZero())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, protocol.ListEventsResponse{Events: toEvents(occs)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Get(r.Context(), owner(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set(headerETag, etag(rec.Series))
	s.writeJSON(w, http.StatusOK, protocol.SeriesResponse{Event: toSeries(rec)})
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Get(r.Context(), owner(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := storage.RecordToICS(rec, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set(headerContentType, mimeTypeCalendar)
	w.Header().Set(headerETag, etag(rec.Series))
	io.WriteString(w, body)
}

func (s *Server) handleXCal(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Get(r.Context(), owner(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := xml.Write(&buf, rec, s.now()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set(headerContentType, mimeTypeXCal)
	w.Header().Set(headerETag, etag(rec.Series))
	w.Write(buf.Bytes())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body protocol.CreateEventRequest
	if err := decode(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := createRequest(owner(r), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.service.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/events/"+res.Series.ID)
	s.writeJSON(w, http.StatusCreated, toEventResponse(res))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body protocol.UpdateEventRequest
	if err := decode(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	scope, err := schedule.ParseScope(body.EditScope, body.OccurrenceDate.Option())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	changes, err := changesFrom(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.service.Update(r.Context(), schedule.UpdateRequest{
		OwnerID:  owner(r),
		SeriesID: r.PathValue("id"),
		Scope:    scope,
		Changes:  changes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toEventResponse(res))
}

// handleDelete reads the scope from the body, or from the deleteScope and
// occurrenceDate query parameters when the body is empty.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var body protocol.DeleteEventRequest
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	} else {
		q := r.URL.Query()
		body.DeleteScope = q.Get("deleteScope")
		if body.OccurrenceDate, err = queryTime(q.Get("occurrenceDate")); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: occurrenceDate: %v", errBadRequest, err))
			return
		}
	}

	scope, err := schedule.ParseScope(body.DeleteScope, body.OccurrenceDate.Option())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	err = s.service.Delete(r.Context(), schedule.DeleteRequest{
		OwnerID:  owner(r),
		SeriesID: r.PathValue("id"),
		Scope:    scope,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	var body protocol.ConflictCheckRequest
	if err := decode(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	conflicts, err := s.service.CheckConflicts(r.Context(), schedule.ConflictQuery{
		OwnerID:           owner(r),
		Start:             body.StartDate.OrZero(),
		End:               body.EndDate.OrZero(),
		IsAllDay:          body.IsAllDay,
		Domain:            storage.Domain(body.Domain),
		TimeZone:          body.TimeZone,
		ExcludeSeries:     body.ExcludeSeriesID,
		ExcludeOccurrence: body.OccurrenceDate.Option(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, protocol.ConflictsResponse{Conflicts: toEvents(conflicts)})
}

func owner(r *http.Request) string {
	if p := auth.GetPrincipalFromContext(r.Context()); p != nil {
		return p.ID
	}
	return ""
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

func queryTime(s string) (protocol.OptionalTime, error) {
	if s == "" {
		return protocol.OptionalTime{}, nil
	}
	t, err := protocol.ParseTime(strings.TrimSpace(s))
	if err != nil {
		return protocol.OptionalTime{}, err
	}
	return protocol.SomeTime(t), nil
}

func etag(s *storage.Series) string {
	return `"` + s.ID + "-" + strconv.FormatInt(s.Revision, 10) + `"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, mimeTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps service errors onto status codes. Unexpected errors are
// logged and hidden from the caller.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := http.StatusInternalServerError, protocol.CodeInternal, "internal server error"
	switch {
	case errors.Is(err, errBadRequest):
		status, code, msg = http.StatusBadRequest, protocol.CodeBadRequest, err.Error()
	case schedule.IsValidation(err):
		status, code, msg = http.StatusBadRequest, protocol.CodeValidation, err.Error()
	case schedule.IsInvalidScope(err):
		status, code, msg = http.StatusUnprocessableEntity, protocol.CodeInvalidScope, err.Error()
	case errors.Is(err, schedule.ErrNotFound):
		status, code, msg = http.StatusNotFound, protocol.CodeNotFound, "event not found"
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
	}
	s.writeJSON(w, status, protocol.ErrorResponse{Error: msg, Code: code})
}

// optionOf converts a nil-able pointer into an Option.
func optionOf[T any](p *T) mo.Option[T] {
	if p == nil {
		return mo.None[T]()
	}
	return mo.Some(*p)
}
