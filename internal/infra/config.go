package infra

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Scene store backends.
const (
	SceneStorePostgres = "postgres"
	SceneStoreSupabase = "supabase"
	SceneStoreSQLite   = "sqlite"
	SceneStoreMongo    = "mongo"
	SceneStoreMemory   = "memory"
)

// Blob store backends.
const (
	BlobStoreFilesystem = "filesystem"
	BlobStoreSupabase   = "supabase"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	Port    string `env:"PORT" envDefault:"8080"`
	LogFile string `env:"LOG_FILE"`

	DatabaseURL   string `env:"DATABASE_URL"`
	SceneStore    string `env:"SCENE_STORE" envDefault:"postgres"`
	BlobStore     string `env:"BLOB_STORE" envDefault:"filesystem"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"./data/scenes.db"`
	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"scenegen"`

	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_KEY"`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY"`
	SupabaseBucket     string `env:"SUPABASE_BUCKET" envDefault:"character-images"`

	StoragePath      string   `env:"STORAGE_PATH" envDefault:"./storage"`
	StorageBaseURL   string   `env:"STORAGE_BASE_URL"`
	ImageSourceHosts []string `env:"IMAGE_SOURCE_HOST_ALLOWLIST" envSeparator:","`
	// ImageSourceAllowlist is derived: storage and Supabase hosts plus
	// IMAGE_SOURCE_HOST_ALLOWLIST, sorted and deduplicated.
	ImageSourceAllowlist []string `env:"-"`

	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GeminiBaseURL    string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiStoryModel string `env:"GEMINI_STORY_MODEL" envDefault:"gemini-2.0-flash-exp"`
	GeminiImageModel string `env:"GEMINI_IMAGE_MODEL" envDefault:"gemini-2.5-flash-image-preview"`

	ElevenLabsAPIKey  string `env:"ELEVENLABS_API_KEY"`
	ElevenLabsBaseURL string `env:"ELEVENLABS_BASE_URL" envDefault:"https://api.elevenlabs.io/v1"`
	ElevenLabsVoiceID string `env:"ELEVENLABS_VOICE_ID" envDefault:"21m00Tcm4TlvDq8ikWAM"`
	ElevenLabsModel   string `env:"ELEVENLABS_MODEL" envDefault:"eleven_monolingual_v1"`

	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	AdminToken  string `env:"ADMIN_TOKEN"`

	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RateLimitPerMin  int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`

	PregenBatchSize    int           `env:"PREGEN_BATCH_SIZE" envDefault:"4"`
	PregenBatchDelay   time.Duration `env:"PREGEN_BATCH_DELAY" envDefault:"3s"`
	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"2s"`
	BaseImageCacheTTL  time.Duration `env:"BASE_IMAGE_CACHE_TTL" envDefault:"30m"`
	SystemOwnerID      string        `env:"SYSTEM_OWNER_ID" envDefault:"00000000-0000-0000-0000-000000000001"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.SceneStore = strings.ToLower(strings.TrimSpace(cfg.SceneStore))
	cfg.BlobStore = strings.ToLower(strings.TrimSpace(cfg.BlobStore))
	cfg.SupabaseURL = strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")
	if strings.TrimSpace(cfg.StorageBaseURL) == "" {
		cfg.StorageBaseURL = fmt.Sprintf("http://localhost:%s/static", cfg.Port)
	}
	cfg.StorageBaseURL = strings.TrimRight(cfg.StorageBaseURL, "/")
	cfg.ImageSourceAllowlist = buildAllowlist(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// SupabaseKey prefers the service key and falls back to the anon key.
func (c *Config) SupabaseKey() string {
	if c.SupabaseServiceKey != "" {
		return c.SupabaseServiceKey
	}
	return c.SupabaseAnonKey
}

func (c *Config) validate() error {
	var errs []error
	switch c.SceneStore {
	case SceneStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres scene store"))
		}
	case SceneStoreSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey() == "" {
			errs = append(errs, errors.New("SUPABASE_URL and a Supabase key are required for the supabase scene store"))
		}
	case SceneStoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite scene store"))
		}
	case SceneStoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo scene store"))
		}
	case SceneStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported SCENE_STORE %q", c.SceneStore))
	}

	switch c.BlobStore {
	case BlobStoreFilesystem:
	case BlobStoreSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey() == "" {
			errs = append(errs, errors.New("SUPABASE_URL and a Supabase key are required for the supabase blob store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported BLOB_STORE %q", c.BlobStore))
	}

	if c.PregenBatchSize <= 0 {
		errs = append(errs, errors.New("PREGEN_BATCH_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

func buildAllowlist(cfg *Config) []string {
	seen := make(map[string]struct{})
	add := func(host string) {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			seen[host] = struct{}{}
		}
	}
	for _, raw := range []string{cfg.StorageBaseURL, cfg.SupabaseURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err == nil {
			add(u.Hostname())
		}
	}
	for _, host := range cfg.ImageSourceHosts {
		add(host)
	}
	out := make([]string, 0, len(seen))
	for host := range seen {
		out = append(out, host)
	}
	sort.Strings(out)
	return out
}
