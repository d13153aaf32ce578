package scenestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
	"scenegen/internal/sqlinline"
)

// Postgres stores scenes in the first_scenes table through marker-tagged
// inline SQL.
type Postgres struct {
	sql infra.SQLExecutor
}

// NewPostgres returns a store that runs its queries on sql.
func NewPostgres(sql infra.SQLExecutor) *Postgres {
	return &Postgres{sql: sql}
}

// EnsureSchema creates the tables used by the Postgres backend.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.sql.Exec(ctx, sqlinline.QEnsureSchema); err != nil {
		return fmt.Errorf("scenestore: ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, scene domain.PersistedScene) error {
	choices, err := marshalChoices(scene.Choices)
	if err != nil {
		return err
	}
	_, err = p.sql.Exec(ctx, sqlinline.QUpsertFirstScene,
		string(scene.PortraitID),
		string(scene.BuildType),
		scene.Narration,
		scene.VisualScene,
		scene.ImageURL,
		scene.AudioURL,
		choices,
		scene.RetryCount,
		scene.LastError,
		scene.IsSuccessful,
	)
	if err != nil {
		return fmt.Errorf("scenestore: upsert %s: %w", scene.Combination(), err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, combo domain.Combination) (*domain.PersistedScene, error) {
	row := p.sql.QueryRow(ctx, sqlinline.QSelectSuccessfulFirstScene, string(combo.PortraitID), string(combo.BuildType))
	scene, err := scanScene(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scenestore: get %s: %w", combo, err)
	}
	return scene, nil
}

func (p *Postgres) Exists(ctx context.Context, combo domain.Combination) (bool, error) {
	var exists bool
	if err := p.sql.QueryRow(ctx, sqlinline.QExistsSuccessfulFirstScene, string(combo.PortraitID), string(combo.BuildType)).Scan(&exists); err != nil {
		return false, fmt.Errorf("scenestore: exists %s: %w", combo, err)
	}
	return exists, nil
}

func (p *Postgres) List(ctx context.Context) ([]domain.PersistedScene, error) {
	rows, err := p.sql.Query(ctx, sqlinline.QListFirstScenes)
	if err != nil {
		return nil, fmt.Errorf("scenestore: list: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PersistedScene, 0, len(domain.PresetPortraits)*len(domain.BuildTypes))
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scenestore: scan scene: %w", err)
		}
		out = append(out, *scene)
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
	var one int
	return p.sql.QueryRow(ctx, sqlinline.QPing).Scan(&one)
}

// BaseImageURL implements domain.BaseImageLookup over character_builds.
func (p *Postgres) BaseImageURL(ctx context.Context, combo domain.Combination) (string, error) {
	var url string
	err := p.sql.QueryRow(ctx, sqlinline.QSelectCharacterBuildImage, string(combo.PortraitID), string(combo.BuildType)).Scan(&url)
	if err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("scenestore: character build %s: %w", combo, err)
	}
	return url, nil
}

func scanScene(row pgx.Row) (*domain.PersistedScene, error) {
	var (
		scene   domain.PersistedScene
		pid     string
		build   string
		choices []byte
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
		&scene.CreatedAt,
		&scene.UpdatedAt,
	); err != nil {
		return nil, err
	}
	scene.PortraitID = domain.PortraitID(pid)
	scene.BuildType = domain.BuildType(build)
	parsed, err := unmarshalChoices(choices)
	if err != nil {
		return nil, err
	}
	scene.Choices = parsed
	return &scene, nil
}

func marshalChoices(choices []domain.Choice) ([]byte, error) {
	if choices == nil {
		choices = []domain.Choice{}
	}
	data, err := json.Marshal(choices)
	if err != nil {
		return nil, fmt.Errorf("scenestore: encode choices: %w", err)
	}
	return data, nil
}

func unmarshalChoices(data []byte) ([]domain.Choice, error) {
	out := []domain.Choice{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("scenestore: decode choices: %w", err)
	}
	return out, nil
}

var (
	_ domain.SceneStore      = (*Postgres)(nil)
	_ domain.BaseImageLookup = (*Postgres)(nil)
)
