package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-rego6xx/internal/audit"
	"github.com/nerrad567/gray-logic-rego6xx/internal/endpoint"
)

// SetValueRequest is the body of PUT /endpoints/{id}/value.
type SetValueRequest struct {
	Value *float64 `json:"value"`
}

// WriteResponse acknowledges a queued write.
type WriteResponse struct {
	ID     string  `json:"id"`
	Value  float64 `json:"value"`
	Status string  `json:"status"`
}

const statusQueued = "queued"

// handleListEndpoints returns every endpoint in registration order.
// The optional kind query parameter filters by endpoint kind.
func (s *Server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	kind := endpoint.Kind(r.URL.Query().Get("kind"))

	states := s.registry.Snapshot()
	out := make([]endpoint.State, 0, len(states))
	for _, st := range states {
		if kind != "" && st.Descriptor.Kind != kind {
			continue
		}
		out = append(out, st)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"endpoints": out,
		"count":     len(out),
	})
}

func (s *Server) handleGetEndpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st, err := s.registry.Get(id)
	if err != nil {
		writeNotFound(w, "endpoint not found")
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// handleSetValue stores a pending write for a number endpoint.
//
// Responses:
//   - 202: value queued, body carries the rounded value
//   - 400: malformed body or endpoint not a number
//   - 404: unknown endpoint
//   - 422: value outside [min, max]
func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value field is required")
		return
	}

	q, err := s.writer.SetPendingWrite(id, *req.Value)
	if err != nil {
		s.record(audit.Entry{
			Action:     audit.ActionSet,
			EndpointID: id,
			Value:      req.Value,
			Status:     audit.StatusRejected,
			Error:      err.Error(),
		})
		s.writeRegistryError(w, err)
		return
	}

	s.record(audit.Entry{
		Action:     audit.ActionSet,
		EndpointID: id,
		Value:      &q,
		Status:     audit.StatusAccepted,
	})
	writeJSON(w, http.StatusAccepted, WriteResponse{ID: id, Value: q, Status: statusQueued})
}

// handlePress queues a button press.
func (s *Server) handlePress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.writer.Press(id); err != nil {
		s.record(audit.Entry{
			Action:     audit.ActionPress,
			EndpointID: id,
			Status:     audit.StatusRejected,
			Error:      err.Error(),
		})
		s.writeRegistryError(w, err)
		return
	}

	var value float64
	if d, err := s.registry.Descriptor(id); err == nil {
		value = float64(d.ButtonValue)
	}
	s.record(audit.Entry{
		Action:     audit.ActionPress,
		EndpointID: id,
		Value:      &value,
		Status:     audit.StatusAccepted,
	})
	writeJSON(w, http.StatusAccepted, WriteResponse{ID: id, Value: value, Status: statusQueued})
}

// writeRegistryError maps registry errors to HTTP responses.
func (s *Server) writeRegistryError(w http.ResponseWriter, err error) {
	var rangeErr *endpoint.OutOfRangeError
	switch {
	case errors.As(err, &rangeErr):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, rangeErr.Error())
	case errors.Is(err, endpoint.ErrUnknownEndpoint):
		writeNotFound(w, "endpoint not found")
	case errors.Is(err, endpoint.ErrNotWritable):
		writeError(w, http.StatusBadRequest, ErrCodeNotWritable, err.Error())
	default:
		s.logger.Error("endpoint write failed", "error", err)
		writeInternalError(w, "failed to queue write")
	}
}

func (s *Server) record(e audit.Entry) {
	if s.audit == nil {
		return
	}
	e.Source = audit.SourceAPI
	s.audit.Record(e)
}
