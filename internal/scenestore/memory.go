package scenestore

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scenegen/internal/domain"
)

// Memory keeps scenes in process. It backs local runs without a database
// and the tests of packages that depend on a SceneStore.
type Memory struct {
	mu     sync.RWMutex
	scenes map[string]domain.PersistedScene
	builds map[string]string
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		scenes: make(map[string]domain.PersistedScene),
		builds: make(map[string]string),
		now:    time.Now,
	}
}

// SetBuildImage records the base portrait URL for a combination.
func (m *Memory) SetBuildImage(combo domain.Combination, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builds[combo.Key()] = url
}

func (m *Memory) Upsert(ctx context.Context, scene domain.PersistedScene) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := scene.Combination().Key()
	now := m.now().UTC()
	if prev, ok := m.scenes[key]; ok {
		scene.ID = prev.ID
		scene.CreatedAt = prev.CreatedAt
	} else {
		scene.ID = uuid.NewString()
		scene.CreatedAt = now
	}
	scene.UpdatedAt = now
	scene.Choices = slices.Clone(scene.Choices)
	if scene.Choices == nil {
		scene.Choices = []domain.Choice{}
	}
	m.scenes[key] = scene
	return nil
}

func (m *Memory) Get(ctx context.Context, combo domain.Combination) (*domain.PersistedScene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	scene, ok := m.scenes[combo.Key()]
	if !ok || !scene.IsSuccessful {
		return nil, domain.ErrNotFound
	}
	scene.Choices = slices.Clone(scene.Choices)
	return &scene, nil
}

func (m *Memory) Exists(ctx context.Context, combo domain.Combination) (bool, error) {
	_, err := m.Get(ctx, combo)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *Memory) List(ctx context.Context) ([]domain.PersistedScene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.PersistedScene, 0, len(m.scenes))
	for _, s := range m.scenes {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b domain.PersistedScene) int {
		if c := strings.Compare(string(a.PortraitID), string(b.PortraitID)); c != 0 {
			return c
		}
		return strings.Compare(string(a.BuildType), string(b.BuildType))
	})
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) BaseImageURL(ctx context.Context, combo domain.Combination) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.builds[combo.Key()], nil
}

var (
	_ domain.SceneStore      = (*Memory)(nil)
	_ domain.BaseImageLookup = (*Memory)(nil)
)
