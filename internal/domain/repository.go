package domain

import "context"

// StoryGenerator produces narration, a visual scene, and four choices.
// Errors may carry content-safety keywords in their message.
type StoryGenerator interface {
	Generate(ctx context.Context, req StoryRequest) (*StoryScene, error)
}

// ImageRequest pairs a base portrait with a text prompt.
type ImageRequest struct {
	BaseImage     []byte
	BaseMIMEType  string
	Prompt        string
	CorrelationID string
}

// ImageResult is a generated image.
type ImageResult struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator renders an image from a base image and a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// SpeechSynthesizer turns text into audio bytes. An empty voice id selects
// the provider default. Empty output with a nil error means "no audio".
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// BlobStore uploads bytes and returns a public URL.
type BlobStore interface {
	Upload(ctx context.Context, ownerKey string, data []byte, filename, contentType string) (string, error)
}

// SceneStore persists the latest attempt per (portrait_id, build_type).
type SceneStore interface {
	// Upsert writes the row for the scene's combination, replacing any previous one.
	Upsert(ctx context.Context, scene PersistedScene) error
	// Get returns the successful row for the combination or ErrNotFound.
	Get(ctx context.Context, combo Combination) (*PersistedScene, error)
	// Exists reports whether a successful row exists.
	Exists(ctx context.Context, combo Combination) (bool, error)
	// List returns every row, successful or not.
	List(ctx context.Context) ([]PersistedScene, error)
	Ping(ctx context.Context) error
}

// BaseImageLookup locates the previously generated build portrait. An empty
// URL with a nil error means none exists.
type BaseImageLookup interface {
	BaseImageURL(ctx context.Context, combo Combination) (string, error)
}

// BaseImageSource returns the base portrait bytes, or nil when absent.
type BaseImageSource interface {
	Fetch(ctx context.Context, combo Combination) ([]byte, string, error)
}

// PregenJobQueue persists generate_all requests for asynchronous execution.
type PregenJobQueue interface {
	Enqueue(ctx context.Context, req PregenRequest) (*PregenJob, error)
	Get(ctx context.Context, id string) (*PregenJob, error)
}
