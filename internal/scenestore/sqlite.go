package scenestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"scenegen/internal/domain"
)

// SQLite is a single-file scene store for local pre-generation runs.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens the database at path, creating parent directories and
// applying embedded migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("scenestore: sqlite path is required")
	}
	clean := filepath.Clean(path)
	if dir := filepath.Dir(clean); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("scenestore: ensure sqlite dir: %w", err)
		}
	}
	dsn := "file:" + clean + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("scenestore: open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("scenestore: ping sqlite: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("scenestore: migrate sqlite: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Upsert(ctx context.Context, scene domain.PersistedScene) error {
	choices, err := marshalChoices(scene.Choices)
	if err != nil {
		return err
	}
	now := s.now().UTC().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO first_scenes (
    id, portrait_id, build_type, narration, visual_scene, image_url, audio_url,
    choices, retry_count, last_error, is_successful, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (portrait_id, build_type) DO UPDATE SET
    narration = excluded.narration,
    visual_scene = excluded.visual_scene,
    image_url = excluded.image_url,
    audio_url = excluded.audio_url,
    choices = excluded.choices,
    retry_count = excluded.retry_count,
    last_error = excluded.last_error,
    is_successful = excluded.is_successful,
    updated_at = excluded.updated_at`,
		uuid.NewString(),
		string(scene.PortraitID),
		string(scene.BuildType),
		scene.Narration,
		scene.VisualScene,
		scene.ImageURL,
		scene.AudioURL,
		string(choices),
		scene.RetryCount,
		scene.LastError,
		scene.IsSuccessful,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("scenestore: upsert %s: %w", scene.Combination(), err)
	}
	return nil
}

const sqliteSceneColumns = `id, portrait_id, build_type, narration, visual_scene, image_url, audio_url,
    choices, retry_count, last_error, is_successful, created_at, updated_at`

func (s *SQLite) Get(ctx context.Context, combo domain.Combination) (*domain.PersistedScene, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteSceneColumns+`
FROM first_scenes
WHERE portrait_id = ? AND build_type = ? AND is_successful = 1
LIMIT 1`, string(combo.PortraitID), string(combo.BuildType))
	scene, err := scanSQLiteScene(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scenestore: get %s: %w", combo, err)
	}
	return scene, nil
}

func (s *SQLite) Exists(ctx context.Context, combo domain.Combination) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM first_scenes
WHERE portrait_id = ? AND build_type = ? AND is_successful = 1`,
		string(combo.PortraitID), string(combo.BuildType)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("scenestore: exists %s: %w", combo, err)
	}
	return n > 0, nil
}

func (s *SQLite) List(ctx context.Context) ([]domain.PersistedScene, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteSceneColumns+`
FROM first_scenes
ORDER BY portrait_id ASC, build_type ASC`)
	if err != nil {
		return nil, fmt.Errorf("scenestore: list: %w", err)
	}
	defer rows.Close()

	var out []domain.PersistedScene
	for rows.Next() {
		scene, err := scanSQLiteScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scenestore: scan scene: %w", err)
		}
		out = append(out, *scene)
	}
	return out, rows.Err()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AddBuildImage records a base portrait URL for a combination.
func (s *SQLite) AddBuildImage(ctx context.Context, combo domain.Combination, url string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO character_builds (id, portrait_id, build_type, image_url, created_at)
VALUES (?, ?, ?, ?, ?)`, uuid.NewString(), string(combo.PortraitID), string(combo.BuildType), url, s.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("scenestore: add character build %s: %w", combo, err)
	}
	return nil
}

func (s *SQLite) BaseImageURL(ctx context.Context, combo domain.Combination) (string, error) {
	var url string
	err := s.db.QueryRowContext(ctx, `SELECT image_url FROM character_builds
WHERE portrait_id = ? AND build_type = ? AND image_url <> ''
ORDER BY created_at DESC
LIMIT 1`, string(combo.PortraitID), string(combo.BuildType)).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scenestore: character build %s: %w", combo, err)
	}
	return url, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteScene(row rowScanner) (*domain.PersistedScene, error) {
	var (
		scene            domain.PersistedScene
		pid, build       string
		choices          string
		created, updated int64
	)
	if err := row.Scan(
		&scene.ID,
		&pid,
		&build,
		&scene.Narration,
		&scene.VisualScene,
		&scene.ImageURL,
		&scene.AudioURL,
		&choices,
		&scene.RetryCount,
		&scene.LastError,
		&scene.IsSuccessful,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}
	scene.PortraitID = domain.PortraitID(pid)
	scene.BuildType = domain.BuildType(build)
	scene.CreatedAt = time.UnixMilli(created).UTC()
	scene.UpdatedAt = time.UnixMilli(updated).UTC()
	parsed, err := unmarshalChoices([]byte(choices))
	if err != nil {
		return nil, err
	}
	scene.Choices = parsed
	return &scene, nil
}

var (
	_ domain.SceneStore      = (*SQLite)(nil)
	_ domain.BaseImageLookup = (*SQLite)(nil)
)
