package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
	"scenegen/internal/middleware"
	"scenegen/internal/providers/speech"
)

type sceneServer interface {
	FirstScene(ctx context.Context, combo domain.Combination) domain.Scene
}

type voiceLister interface {
	Voices(ctx context.Context) ([]speech.Voice, error)
}

// Deps are the collaborators the handlers call. Jobs and VoiceCatalog may be
// nil.
type Deps struct {
	Scenes       sceneServer
	Store        domain.SceneStore
	Jobs         domain.PregenJobQueue
	VoiceCatalog voiceLister
	StoryReady   bool
	Logger       *infra.Logger
}

type App struct {
	Deps
	validate *validator.Validate
}

func NewApp(d Deps) *App {
	if d.Logger == nil {
		d.Logger = infra.NopLogger()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &App{Deps: d, validate: v}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	middleware.WriteError(w, code, errCode, message)
}
