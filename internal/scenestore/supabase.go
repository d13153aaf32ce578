package scenestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"scenegen/internal/domain"
)

// tableClient is the postgrest entry point of *supabase.Client.
type tableClient interface {
	From(table string) *postgrest.QueryBuilder
}

type supabaseScene struct {
	ID           string          `json:"id,omitempty"`
	PortraitID   string          `json:"portrait_id"`
	BuildType    string          `json:"build_type"`
	Narration    string          `json:"narration"`
	VisualScene  string          `json:"visual_scene"`
	ImageURL     *string         `json:"image_url"`
	AudioURL     *string         `json:"audio_url"`
	Choices      []domain.Choice `json:"choices"`
	RetryCount   int             `json:"retry_count"`
	LastError    *string         `json:"last_error"`
	IsSuccessful bool            `json:"is_successful"`
	CreatedAt    *time.Time      `json:"created_at,omitempty"`
	UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r supabaseScene) toDomain() domain.PersistedScene {
	scene := domain.PersistedScene{
		ID:           r.ID,
		PortraitID:   domain.PortraitID(r.PortraitID),
		BuildType:    domain.BuildType(r.BuildType),
		Narration:    r.Narration,
		VisualScene:  r.VisualScene,
		ImageURL:     deref(r.ImageURL),
		AudioURL:     deref(r.AudioURL),
		Choices:      r.Choices,
		RetryCount:   r.RetryCount,
		LastError:    deref(r.LastError),
		IsSuccessful: r.IsSuccessful,
	}
	if scene.Choices == nil {
		scene.Choices = []domain.Choice{}
	}
	if r.CreatedAt != nil {
		scene.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		scene.UpdatedAt = *r.UpdatedAt
	}
	return scene
}

// Supabase stores scenes through the PostgREST API of a Supabase project.
// The tables are expected to match the Postgres schema.
type Supabase struct {
	client tableClient
	now    func() time.Time
}

// NewSupabase wraps an existing Supabase client.
func NewSupabase(client *supabase.Client) (*Supabase, error) {
	if client == nil {
		return nil, errors.New("scenestore: supabase client is required")
	}
	return &Supabase{client: client, now: time.Now}, nil
}

func (s *Supabase) Upsert(ctx context.Context, scene domain.PersistedScene) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := s.now().UTC()
	choices := scene.Choices
	if choices == nil {
		choices = []domain.Choice{}
	}
	row := supabaseScene{
		PortraitID:   string(scene.PortraitID),
		BuildType:    string(scene.BuildType),
		Narration:    scene.Narration,
		VisualScene:  scene.VisualScene,
		ImageURL:     nullable(scene.ImageURL),
		AudioURL:     nullable(scene.AudioURL),
		Choices:      choices,
		RetryCount:   scene.RetryCount,
		LastError:    nullable(scene.LastError),
		IsSuccessful: scene.IsSuccessful,
		UpdatedAt:    &now,
	}
	_, _, err := s.client.From("first_scenes").
		Upsert(row, "portrait_id,build_type", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("scenestore: upsert %s: %w", scene.Combination(), err)
	}
	return nil
}

func (s *Supabase) successful(combo domain.Combination, columns string) *postgrest.FilterBuilder {
	return s.client.From("first_scenes").
		Select(columns, "", false).
		Eq("portrait_id", string(combo.PortraitID)).
		Eq("build_type", string(combo.BuildType)).
		Eq("is_successful", strconv.FormatBool(true)).
		Limit(1, "")
}

func (s *Supabase) Get(ctx context.Context, combo domain.Combination) (*domain.PersistedScene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []supabaseScene
	if _, err := s.successful(combo, "*").ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("scenestore: get %s: %w", combo, err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	scene := rows[0].toDomain()
	return &scene, nil
}

func (s *Supabase) Exists(ctx context.Context, combo domain.Combination) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var rows []struct {
		ID string `json:"id"`
	}
	if _, err := s.successful(combo, "id").ExecuteTo(&rows); err != nil {
		return false, fmt.Errorf("scenestore: exists %s: %w", combo, err)
	}
	return len(rows) > 0, nil
}

func (s *Supabase) List(ctx context.Context) ([]domain.PersistedScene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []supabaseScene
	_, err := s.client.From("first_scenes").
		Select("*", "", false).
		Order("portrait_id", &postgrest.OrderOpts{Ascending: true}).
		Order("build_type", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("scenestore: list: %w", err)
	}
	out := make([]domain.PersistedScene, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Supabase) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From("first_scenes").Select("id", "", false).Limit(1, "").Execute()
	return err
}

func (s *Supabase) BaseImageURL(ctx context.Context, combo domain.Combination) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var rows []struct {
		ImageURL string `json:"image_url"`
	}
	_, err := s.client.From("character_builds").
		Select("image_url", "", false).
		Eq("portrait_id", string(combo.PortraitID)).
		Eq("build_type", string(combo.BuildType)).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return "", fmt.Errorf("scenestore: character build %s: %w", combo, err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].ImageURL, nil
}

var (
	_ domain.SceneStore      = (*Supabase)(nil)
	_ domain.BaseImageLookup = (*Supabase)(nil)
)
