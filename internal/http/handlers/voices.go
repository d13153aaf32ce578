package handlers

import (
	"net/http"

	"scenegen/internal/providers/speech"
)

func (a *App) Voices(w http.ResponseWriter, r *http.Request) {
	voices := []speech.Voice{}
	if a.VoiceCatalog != nil {
		list, err := a.VoiceCatalog.Voices(r.Context())
		if err != nil {
			a.Logger.Warn().Err(err).Msg("http: list voices failed")
			a.error(w, http.StatusBadGateway, "provider_failure", "voice provider unavailable")
			return
		}
		if list != nil {
			voices = list
		}
	}
	a.json(w, http.StatusOK, map[string]any{"voices": voices})
}
