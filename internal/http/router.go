package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"scenegen/internal/http/handlers"
	"scenegen/internal/infra"
	"scenegen/internal/middleware"
)

// RouterOptions carries the cross-cutting settings of the HTTP surface.
type RouterOptions struct {
	Logger          infra.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
	AdminToken      string
	// StaticDir is served at /static when set; it backs filesystem blob URLs.
	StaticDir string
}

func NewRouter(app *handlers.App, opts RouterOptions) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.RequestIDHeader,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
	)

	// Health
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/readyz", app.Ready)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, 10*time.Minute))
		r.Get("/v1/scenes/first", app.FirstScene)
		r.Get("/v1/scenes/status", app.SceneStatus)
		r.Get("/v1/voices", app.Voices)
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(middleware.AdminToken(opts.AdminToken))
		r.Post("/pregenerate", app.Pregenerate)
		r.Get("/pregenerate/{id}", app.PregenerateStatus)
	})

	if opts.StaticDir != "" {
		fs := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(opts.StaticDir)))
		r.Handle("/static/*", fs)
	}

	r.NotFound(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		middleware.WriteError(w, stdhttp.StatusNotFound, "not_found", "route not found")
	})
	return r
}
