package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scenegen/internal/domain"
)

const maxAdminBody = 4 << 10

// Pregenerate queues a generate-all run. An empty body regenerates nothing
// that already succeeded and covers every combination.
func (a *App) Pregenerate(w http.ResponseWriter, r *http.Request) {
	if a.Jobs == nil {
		a.error(w, http.StatusServiceUnavailable, "not_configured", "job queue not configured")
		return
	}
	var req pregenerateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAdminBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.PortraitID = normalize(req.PortraitID)
	req.BuildType = normalize(req.BuildType)
	if err := a.validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", validationMessage(err))
		return
	}

	job, err := a.Jobs.Enqueue(r.Context(), req.toDomain())
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateOperation) {
			a.error(w, http.StatusConflict, "busy", "a pregeneration run is already in progress")
			return
		}
		a.Logger.Error().Err(err).Msg("http: enqueue pregeneration failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}
	a.Logger.Info().
		Str("job_id", job.ID).
		Bool("force", req.Force).
		Str("portrait_id", req.PortraitID).
		Str("build_type", req.BuildType).
		Msg("http: pregeneration queued")
	a.json(w, http.StatusAccepted, newJobResponse(job))
}

func (a *App) PregenerateStatus(w http.ResponseWriter, r *http.Request) {
	if a.Jobs == nil {
		a.error(w, http.StatusServiceUnavailable, "not_configured", "job queue not configured")
		return
	}
	job, err := a.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Msg("http: load pregeneration job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, newJobResponse(job))
}
