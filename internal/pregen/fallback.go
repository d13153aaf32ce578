package pregen

import (
	"context"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
)

// PlaceholderNarration is served when neither a stored nor a live scene is
// available.
const PlaceholderNarration = "You wake in a quiet forest clearing. Sunlight filters through the leaves, " +
	"and for a moment you cannot remember how you came to be here. " +
	"Somewhere nearby, a stream murmurs softly."

const placeholderVisual = "A peaceful forest clearing at dawn with soft light through tall trees and a small stream."

var placeholderChoices = []string{
	"Look around the clearing",
	"Follow the sound of the stream",
	"Check your belongings",
	"Try to remember what happened",
}

// PlaceholderScene returns the fixed fallback scene for a combination.
func PlaceholderScene(combo domain.Combination) domain.Scene {
	return domain.Scene{
		PortraitID:  combo.PortraitID,
		BuildType:   combo.BuildType,
		Narration:   PlaceholderNarration,
		VisualScene: placeholderVisual,
		Choices:     domain.ChoicesFromTexts(placeholderChoices),
		Source:      domain.SceneSourcePlaceholder,
	}
}

// liveGenerator is the part of Engine used for request-time generation.
type liveGenerator interface {
	GenerateLive(ctx context.Context, combo domain.Combination) domain.GenerationTask
}

// LiveFallback answers first-scene requests: stored scene, then live
// generation, then the placeholder. It never fails.
type LiveFallback struct {
	resolver *Resolver
	live     liveGenerator
	log      *infra.Logger
}

func NewLiveFallback(resolver *Resolver, live liveGenerator, logger *infra.Logger) *LiveFallback {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &LiveFallback{resolver: resolver, live: live, log: logger}
}

// FirstScene returns a playable scene for the combination.
func (f *LiveFallback) FirstScene(ctx context.Context, combo domain.Combination) domain.Scene {
	if f.resolver != nil {
		if stored := f.resolver.GetScene(ctx, combo); stored != nil {
			return domain.SceneFromPersisted(*stored)
		}
	}
	if f.live != nil {
		task := f.live.GenerateLive(ctx, combo)
		if task.IsSuccessful {
			return domain.SceneFromLiveTask(task)
		}
		f.log.Warn().
			Str("combination", combo.Key()).
			Str("last_error", task.LastError).
			Msg("fallback: live generation exhausted, serving placeholder")
	}
	return PlaceholderScene(combo)
}
