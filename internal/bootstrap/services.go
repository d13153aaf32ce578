package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/supabase-community/supabase-go"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
	"scenegen/internal/infra/credentials"
	"scenegen/internal/jobqueue"
	"scenegen/internal/pregen"
	"scenegen/internal/providers/genai"
	"scenegen/internal/providers/image"
	"scenegen/internal/providers/speech"
	"scenegen/internal/providers/story"
	"scenegen/internal/scenestore"
	"scenegen/internal/storage"
)

// sceneBackend is what every scene store implementation offers: the row
// store itself plus the character_builds lookup for base portraits.
type sceneBackend interface {
	domain.SceneStore
	domain.BaseImageLookup
}

// Services is the dependency graph shared by the API, the CLI and the worker.
type Services struct {
	Config *infra.Config
	Logger *infra.Logger

	// Pool and SQL are nil when DATABASE_URL is unset.
	Pool *pgxpool.Pool
	SQL  *infra.SQLRunner

	Store  domain.SceneStore
	Blobs  domain.BlobStore
	Files  *storage.FileStore
	Story  *story.GeminiGenerator
	Speech *speech.ElevenLabs
	Engine *pregen.Engine

	closers []func(context.Context) error
}

// Build wires stores and providers from cfg. Missing provider keys degrade
// the engine instead of failing: no story key leaves Story nil and every
// generation fails; no speech key yields scenes without audio.
func Build(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (*Services, error) {
	if logger == nil {
		logger = infra.NopLogger()
	}
	s := &Services{Config: cfg, Logger: logger}
	if err := s.build(ctx); err != nil {
		s.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return s, nil
}

func (s *Services) build(ctx context.Context) error {
	cfg := s.Config

	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			if cfg.SceneStore == infra.SceneStorePostgres {
				return err
			}
			s.Logger.Warn().Err(err).Msg("bootstrap: database unavailable, continuing without it")
		} else {
			s.Pool = pool
			s.SQL = infra.NewSQLRunner(pool, *s.Logger)
			s.closers = append(s.closers, func(context.Context) error { pool.Close(); return nil })
			if err := scenestore.NewPostgres(s.SQL).EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
		}
	}

	var creds *credentials.Store
	if s.SQL != nil {
		creds = credentials.NewStore(s.SQL)
	}
	geminiKey := s.resolveKey(ctx, creds, credentials.ProviderGemini, cfg.GeminiAPIKey)
	elevenKey := s.resolveKey(ctx, creds, credentials.ProviderElevenLabs, cfg.ElevenLabsAPIKey)

	var supa *supabase.Client
	if cfg.SupabaseURL != "" && cfg.SupabaseKey() != "" {
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey(), &supabase.ClientOptions{})
		if err != nil {
			return fmt.Errorf("supabase client: %w", err)
		}
		supa = client
	}

	backend, err := s.openStore(ctx, supa)
	if err != nil {
		return err
	}
	s.Store = backend

	if err := s.openBlobs(supa); err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: infra.ImageTimeout}
	ports := pregen.Ports{
		Portraits: storage.NewPortraitFetcher(backend, cfg.ImageSourceAllowlist, cfg.BaseImageCacheTTL, httpClient, s.Logger),
		Blobs:     s.Blobs,
		Store:     backend,
	}

	if geminiKey == "" {
		s.Logger.Warn().Msg("bootstrap: gemini api key missing, story and image generation disabled")
	} else {
		gen, err := story.NewGeminiGenerator(ctx, story.Options{
			APIKey: geminiKey,
			Model:  cfg.GeminiStoryModel,
			Logger: s.Logger,
		})
		if err != nil {
			return err
		}
		s.Story = gen
		s.closers = append(s.closers, func(context.Context) error { return gen.Close() })
		ports.Story = gen

		imageClient, err := genai.NewClient(genai.Options{
			APIKey:     geminiKey,
			BaseURL:    cfg.GeminiBaseURL,
			Model:      cfg.GeminiImageModel,
			HTTPClient: httpClient,
			Logger:     s.Logger,
		})
		if err != nil {
			return err
		}
		ports.Images = image.NewGeminiGenerator(imageClient, s.Logger)
	}

	s.Speech = speech.New(speech.Options{
		APIKey:  elevenKey,
		BaseURL: cfg.ElevenLabsBaseURL,
		VoiceID: cfg.ElevenLabsVoiceID,
		Model:   cfg.ElevenLabsModel,
		Logger:  s.Logger,
	})
	if s.Speech.Configured() {
		ports.Speech = s.Speech
	} else {
		s.Logger.Warn().Msg("bootstrap: elevenlabs api key missing, narration audio disabled")
	}

	s.Engine = pregen.New(ports, pregen.Options{
		BatchSize:  cfg.PregenBatchSize,
		BatchDelay: cfg.PregenBatchDelay,
		OwnerKey:   cfg.SystemOwnerID,
		VoiceID:    cfg.ElevenLabsVoiceID,
		Logger:     s.Logger,
	})
	return nil
}

func (s *Services) resolveKey(ctx context.Context, creds *credentials.Store, provider, fromEnv string) string {
	key, err := creds.Resolve(ctx, provider, fromEnv)
	if err != nil {
		s.Logger.Warn().Err(err).Str("provider", provider).Msg("bootstrap: failed to load api key from store")
		return ""
	}
	return key
}

func (s *Services) openStore(ctx context.Context, supa *supabase.Client) (sceneBackend, error) {
	cfg := s.Config
	switch cfg.SceneStore {
	case infra.SceneStorePostgres:
		if s.SQL == nil {
			return nil, errors.New("postgres scene store requires a database connection")
		}
		return scenestore.NewPostgres(s.SQL), nil
	case infra.SceneStoreSupabase:
		return scenestore.NewSupabase(supa)
	case infra.SceneStoreSQLite:
		db, err := scenestore.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func(context.Context) error { return db.Close() })
		return db, nil
	case infra.SceneStoreMongo:
		db, err := scenestore.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		return db, nil
	case infra.SceneStoreMemory:
		s.Logger.Warn().Msg("bootstrap: in-memory scene store, results are lost on exit")
		return scenestore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported scene store %q", cfg.SceneStore)
	}
}

func (s *Services) openBlobs(supa *supabase.Client) error {
	cfg := s.Config
	switch cfg.BlobStore {
	case infra.BlobStoreSupabase:
		store, err := storage.NewSupabaseStore(supa, cfg.SupabaseBucket)
		if err != nil {
			return err
		}
		s.Blobs = store
	default:
		files, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return fmt.Errorf("configure storage: %w", err)
		}
		s.Files = files
		s.Blobs = files
	}
	return nil
}

// StoryReady reports whether scene text can be generated.
func (s *Services) StoryReady() bool {
	return s.Story != nil
}

// JobQueue returns the Postgres queue when a database is connected, otherwise
// an in-process runner bound to ctx.
func (s *Services) JobQueue(ctx context.Context) domain.PregenJobQueue {
	if s.SQL != nil {
		return jobqueue.NewPostgres(s.SQL)
	}
	return pregen.NewRunner(ctx, s.Engine, s.Logger)
}

// Close releases connections in reverse order of creation.
func (s *Services) Close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.Logger.Warn().Err(err).Msg("bootstrap: close failed")
		}
	}
	s.closers = nil
}
