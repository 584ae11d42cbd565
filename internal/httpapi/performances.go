package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"gigmap/internal/app/performances"
	"gigmap/internal/logging"
	"gigmap/internal/models"
	"gigmap/internal/store"
	"gigmap/internal/uploads"
)

func (s *Server) handleListPerformances(w http.ResponseWriter, r *http.Request) {
	list, err := s.performances.List(r.Context())
	if err != nil {
		s.writeError(w, r, err, "list performances")
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: list})
}

func (s *Server) handleListByProvince(w http.ResponseWriter, r *http.Request) {
	list, err := s.performances.ListByProvince(r.Context(), pathParam(r, "province"))
	if err != nil {
		s.writeError(w, r, err, "list performances by province")
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: list})
}

func (s *Server) handleListByArtist(w http.ResponseWriter, r *http.Request) {
	list, err := s.performances.ListByArtist(r.Context(), pathParam(r, "artist"))
	if err != nil {
		s.writeError(w, r, err, "list performances by artist")
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: list})
}

func (s *Server) handleListArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := s.performances.Artists(r.Context())
	if err != nil {
		s.writeError(w, r, err, "list artists")
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: artists})
}

func (s *Server) handleCreatePerformance(w http.ResponseWriter, r *http.Request) {
	form, err := s.intake.Parse(r)
	if err != nil {
		s.writeError(w, r, err, "read performance form")
		return
	}

	created, err := s.performances.Create(r.Context(), fieldsFromValues(form.Values), form.PosterPath())
	if err != nil {
		s.writeError(w, r, err, "create performance")
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Message: "performance created", Data: created})
}

func (s *Server) handleUpdatePerformance(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	form, err := s.intake.Parse(r)
	if err != nil {
		s.writeError(w, r, err, "read performance form")
		return
	}

	updated, err := s.performances.Update(r.Context(), id, fieldsFromValues(form.Values), form.PosterPath())
	if err != nil {
		s.writeError(w, r, err, "update performance")
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Message: "performance updated", Data: updated})
}

func (s *Server) handleDeletePerformance(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.performances.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err, "delete performance")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "performance deleted"})
}

func (s *Server) handleCheckSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.performances.Schema(r.Context())
	if err != nil {
		s.writeError(w, r, err, "read schema")
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{Success: true, Schema: schema})
}

// writeError maps domain failures to status codes. Internal detail is logged,
// never returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var verr *performances.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: verr.Error()})
	case errors.Is(err, store.ErrInvalidPerformance), errors.Is(err, performances.ErrInvalidPerformance):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid performance data"})
	case errors.Is(err, store.ErrPerformanceNotFound):
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "performance not found"})
	case errors.Is(err, uploads.ErrUnsupportedType):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: uploads.ErrUnsupportedType.Error()})
	case errors.Is(err, uploads.ErrFileTooLarge):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: uploads.ErrFileTooLarge.Error()})
	case errors.Is(err, uploads.ErrUnexpectedFile):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: uploads.ErrUnexpectedFile.Error()})
	case errors.Is(err, uploads.ErrMalformedForm):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: uploads.ErrMalformedForm.Error()})
	case errors.Is(err, context.Canceled):
		logging.FromContext(r.Context()).Warn().Err(err).Str("action", action).Msg("request cancelled")
	default:
		logging.FromContext(r.Context()).Error().Err(err).Str("action", action).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "failed to " + action})
	}
}

// parseID rejects non-numeric ids only. Integers that cannot match a row
// reach the store and answer 404.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid performance id"})
		return 0, false
	}
	return id, true
}

// pathParam returns a decoded path parameter. chi matches on the raw path
// when the URL carries escapes that differ from the default encoding.
func pathParam(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value
	}
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}

// fieldsFromValues trims every value; blank optional fields become NULL.
func fieldsFromValues(values url.Values) models.PerformanceFields {
	return models.PerformanceFields{
		Artist:   strings.TrimSpace(values.Get("artist")),
		Type:     strings.TrimSpace(values.Get("type")),
		Province: strings.TrimSpace(values.Get("province")),
		City:     optional(values.Get("city")),
		Venue:    optional(values.Get("venue")),
		Notes:    optional(values.Get("notes")),
		Date:     optional(values.Get("date")),
	}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
