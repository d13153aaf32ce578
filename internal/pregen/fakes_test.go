package pregen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"scenegen/internal/domain"
)

func goodScene() *domain.StoryScene {
	return &domain.StoryScene{
		Narration:   "My head throbs as I sit up among the ferns.",
		VisualScene: "A misty forest clearing with scattered belongings.",
		Choices:     []string{"Stand up", "Search the grass", "Call out", "Rest a moment"},
	}
}

// scriptedStory returns results in order; the last one repeats.
type scriptedStory struct {
	mu       sync.Mutex
	results  []error
	requests []domain.StoryRequest
}

func (s *scriptedStory) Generate(ctx context.Context, req domain.StoryRequest) (*domain.StoryScene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.requests)
	s.requests = append(s.requests, req)
	var err error
	if len(s.results) > 0 {
		err = s.results[min(i, len(s.results)-1)]
	}
	if err != nil {
		return nil, err
	}
	return goodScene(), nil
}

func (s *scriptedStory) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type fakeImages struct {
	err  error
	reqs []domain.ImageRequest
	mu   sync.Mutex
}

func (f *fakeImages) Generate(ctx context.Context, req domain.ImageRequest) (*domain.ImageResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ImageResult{Data: []byte("scene-png"), MIMEType: "image/png"}, nil
}

type fakePortraits struct {
	data []byte
	err  error
}

func (f fakePortraits) Fetch(ctx context.Context, combo domain.Combination) ([]byte, string, error) {
	return f.data, "image/png", f.err
}

type fakeSpeech struct {
	audio []byte
	err   error
}

func (f fakeSpeech) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	return f.audio, f.err
}

type fakeBlobs struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (f *fakeBlobs) Upload(ctx context.Context, ownerKey string, data []byte, filename, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, filename)
	return fmt.Sprintf("https://blobs.test/%s/%s", ownerKey, filename), nil
}

// failingStore fails every call; it also counts calls.
type failingStore struct {
	mu    sync.Mutex
	calls int
}

func (f *failingStore) hit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("connection refused")
}

func (f *failingStore) Upsert(ctx context.Context, scene domain.PersistedScene) error {
	return f.hit()
}

func (f *failingStore) Get(ctx context.Context, combo domain.Combination) (*domain.PersistedScene, error) {
	return nil, f.hit()
}

func (f *failingStore) Exists(ctx context.Context, combo domain.Combination) (bool, error) {
	return false, f.hit()
}

func (f *failingStore) List(ctx context.Context) ([]domain.PersistedScene, error) {
	return nil, f.hit()
}

func (f *failingStore) Ping(ctx context.Context) error { return f.hit() }

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func testOptions(sleeps *sleepRecorder) Options {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return Options{
		Sleep: sleeps.sleep,
		Now:   func() time.Time { return fixed },
		NewID: func() uuid.UUID { return uuid.MustParse("abcdef12-0000-4000-8000-000000000000") },
	}
}
