package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"scenegen/internal/bootstrap"
	httpapi "scenegen/internal/http"
	"scenegen/internal/http/handlers"
	"scenegen/internal/infra"
	"scenegen/internal/pregen"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLoggerWithFile(cfg.AppEnv, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: bootstrap failed")
	}
	defer svc.Close(context.Background())

	resolver := pregen.NewResolver(svc.Store, &logger)
	app := handlers.NewApp(handlers.Deps{
		Scenes:       pregen.NewLiveFallback(resolver, svc.Engine, &logger),
		Store:        svc.Store,
		Jobs:         svc.JobQueue(ctx),
		VoiceCatalog: svc.Speech,
		StoryReady:   svc.StoryReady(),
		Logger:       &logger,
	})

	origins := []string{"*"}
	if cfg.IsProduction() {
		origins = []string{cfg.FrontendURL}
	}
	opts := httpapi.RouterOptions{
		Logger:          logger,
		AllowedOrigins:  origins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AdminToken:      cfg.AdminToken,
	}
	if svc.Files != nil {
		opts.StaticDir = svc.Files.BasePath()
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, opts))
	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("scene_store", cfg.SceneStore).
			Str("blob_store", cfg.BlobStore).
			Bool("story_ready", svc.StoryReady()).
			Msg("api: listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), infra.ShutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}
	logger.Info().Msg("api: server stopped")
}
