package handlers

import (
	"net/http"
	"time"

	"scenegen/internal/domain"
)

// FirstScene always answers 200 with a playable scene once the query is
// valid; generation failures surface as the placeholder source.
func (a *App) FirstScene(w http.ResponseWriter, r *http.Request) {
	q := firstSceneQuery{
		PortraitID: normalize(r.URL.Query().Get("portrait_id")),
		BuildType:  normalize(r.URL.Query().Get("build_type")),
	}
	if err := a.validate.Struct(q); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", validationMessage(err))
		return
	}
	scene := a.Scenes.FirstScene(r.Context(), q.combination())
	a.json(w, http.StatusOK, scene)
}

type sceneStatus struct {
	PortraitID domain.PortraitID `json:"portrait_id"`
	BuildType  domain.BuildType  `json:"build_type"`
	Status     string            `json:"status"`
	RetryCount int               `json:"retry_count"`
	LastError  string            `json:"last_error,omitempty"`
	HasImage   bool              `json:"has_image"`
	HasAudio   bool              `json:"has_audio"`
	UpdatedAt  *time.Time        `json:"updated_at,omitempty"`
}

type statusSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Missing    int `json:"missing"`
}

// SceneStatus lists every preset combination with its stored outcome.
func (a *App) SceneStatus(w http.ResponseWriter, r *http.Request) {
	rows, err := a.Store.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: list scenes failed")
		a.error(w, http.StatusServiceUnavailable, "store_unavailable", "scene store unavailable")
		return
	}
	byKey := make(map[string]domain.PersistedScene, len(rows))
	for _, row := range rows {
		byKey[row.Combination().Key()] = row
	}

	combos := domain.AllCombinations()
	items := make([]sceneStatus, 0, len(combos))
	summary := statusSummary{Total: len(combos)}
	for _, combo := range combos {
		item := sceneStatus{PortraitID: combo.PortraitID, BuildType: combo.BuildType, Status: "missing"}
		row, ok := byKey[combo.Key()]
		switch {
		case !ok:
			summary.Missing++
		case row.IsSuccessful:
			item.Status = "successful"
			summary.Successful++
		default:
			item.Status = "failed"
			summary.Failed++
		}
		if ok {
			item.RetryCount = row.RetryCount
			item.LastError = row.LastError
			item.HasImage = row.ImageURL != ""
			item.HasAudio = row.AudioURL != ""
			updated := row.UpdatedAt
			item.UpdatedAt = &updated
		}
		items = append(items, item)
	}
	a.json(w, http.StatusOK, map[string]any{"summary": summary, "items": items})
}
