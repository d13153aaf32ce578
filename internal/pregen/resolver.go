package pregen

import (
	"context"
	"errors"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
)

// Resolver serves pre-generated scenes on the request path.
type Resolver struct {
	store domain.SceneStore
	log   *infra.Logger
}

func NewResolver(store domain.SceneStore, logger *infra.Logger) *Resolver {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Resolver{store: store, log: logger}
}

// GetScene returns the successful stored scene for the combination, or nil.
// Custom portraits return nil without touching the store, and store errors
// are logged and treated as a miss.
func (r *Resolver) GetScene(ctx context.Context, combo domain.Combination) *domain.PersistedScene {
	if !combo.IsPreset() || r.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, infra.StoreTimeout)
	defer cancel()
	scene, err := r.store.Get(ctx, combo)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.log.Warn().Err(err).Str("combination", combo.Key()).Msg("resolver: store read failed, treating as miss")
		}
		return nil
	}
	return scene
}
