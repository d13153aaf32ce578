package pregen

import (
	"bytes"
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
	"scenegen/internal/sanitizer"
	"scenegen/internal/storage"
)

// MaxRetries bounds the attempts made by GenerateOne.
const MaxRetries = 3

// RetryDelays is the fixed wait before attempt n+1. No delay follows the
// final attempt.
var RetryDelays = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

const (
	DefaultBatchSize  = 4
	DefaultBatchDelay = 3 * time.Second
)

// Ports groups the external capabilities the engine drives. Story and Store
// are required; the media ports may be nil, which disables that step.
type Ports struct {
	Story     domain.StoryGenerator
	Images    domain.ImageGenerator
	Portraits domain.BaseImageSource
	Speech    domain.SpeechSynthesizer
	Blobs     domain.BlobStore
	Store     domain.SceneStore
}

// Options tunes batching and provides seams for tests.
type Options struct {
	BatchSize   int
	BatchDelay  time.Duration
	RetryDelays []time.Duration
	OwnerKey    string
	VoiceID     string
	Classifier  ErrorClassifier
	Logger      *infra.Logger

	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
	NewID func() uuid.UUID
}

// Engine pre-generates first scenes. It holds no mutable state between calls
// so one instance may serve the CLI, the worker, and live requests at once.
type Engine struct {
	ports Ports
	opts  Options
	log   *infra.Logger
}

// New wires an engine. Zero options fall back to the package defaults; a
// negative BatchDelay disables the pause between batches.
func New(ports Ports, opts Options) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	switch {
	case opts.BatchDelay == 0:
		opts.BatchDelay = DefaultBatchDelay
	case opts.BatchDelay < 0:
		opts.BatchDelay = 0
	}
	if len(opts.RetryDelays) == 0 {
		opts.RetryDelays = RetryDelays
	}
	if opts.Classifier == nil {
		opts.Classifier = KeywordClassifier{}
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.New
	}
	if opts.OwnerKey == "" {
		opts.OwnerKey = "00000000-0000-0000-0000-000000000001"
	}
	log := opts.Logger
	if log == nil {
		log = infra.NopLogger()
	}
	return &Engine{ports: ports, opts: opts, log: log}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GenerateOne runs the retry state machine for one combination and persists
// every attempt.
func (e *Engine) GenerateOne(ctx context.Context, combo domain.Combination) domain.GenerationTask {
	return e.generate(ctx, combo, true)
}

// GenerateLive is GenerateOne for request-time fallback. Custom portraits are
// generated but never written to the store.
func (e *Engine) GenerateLive(ctx context.Context, combo domain.Combination) domain.GenerationTask {
	return e.generate(ctx, combo, combo.IsPreset())
}

func (e *Engine) generate(ctx context.Context, combo domain.Combination, persist bool) domain.GenerationTask {
	start := e.opts.Now()
	var task domain.GenerationTask
	for n := 0; n < MaxRetries; n++ {
		task = e.attempt(ctx, combo, n, persist)
		if task.IsSuccessful || n == MaxRetries-1 {
			break
		}
		delay := e.retryDelay(n)
		e.log.Info().
			Str("combination", combo.Key()).
			Int("attempt", n+1).
			Dur("delay", delay).
			Msg("pregen: retrying")
		if err := e.opts.Sleep(ctx, delay); err != nil {
			break
		}
	}
	task.Duration = e.opts.Now().Sub(start)
	return task
}

func (e *Engine) retryDelay(n int) time.Duration {
	if n < len(e.opts.RetryDelays) {
		return e.opts.RetryDelays[n]
	}
	return e.opts.RetryDelays[len(e.opts.RetryDelays)-1]
}

// attempt runs one try. A panic in any port becomes a failed, persisted task.
func (e *Engine) attempt(ctx context.Context, combo domain.Combination, n int, persist bool) (task domain.GenerationTask) {
	defer func() {
		if r := recover(); r != nil {
			task = domain.GenerationTask{Combination: combo, RetryCount: n, LastError: fmt.Sprintf("panic: %v", r)}
			e.log.Error().
				Str("combination", combo.Key()).
				Int("attempt", n+1).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("pregen: attempt panicked")
			if persist {
				e.persist(ctx, task)
			}
		}
	}()
	task = domain.GenerationTask{Combination: combo, RetryCount: n}

	story, err := e.story(ctx, combo, n)
	if err != nil {
		task.LastError = err.Error()
		e.log.Error().Err(err).
			Str("combination", combo.Key()).
			Int("attempt", n+1).
			Str("class", e.opts.Classifier.Classify(err).String()).
			Msg("pregen: story generation failed")
		if persist {
			e.persist(ctx, task)
		}
		return task
	}

	task.IsSuccessful = true
	task.Narration = story.Narration
	task.VisualScene = story.VisualScene
	task.Choices = append([]string(nil), story.Choices...)
	task.ImageURL = e.renderImage(ctx, combo, story)
	task.AudioURL = e.narrate(ctx, combo, story.Narration)

	if persist {
		e.persist(ctx, task)
	}
	e.log.Info().
		Str("combination", combo.Key()).
		Int("retry_count", n).
		Bool("has_image", task.ImageURL != "").
		Bool("has_audio", task.AudioURL != "").
		Msg("pregen: scene generated")
	return task
}

// story calls the generator and, on a safety rejection, retries once with
// progressively sanitized inputs without consuming an attempt.
func (e *Engine) story(ctx context.Context, combo domain.Combination, n int) (*domain.StoryScene, error) {
	if e.ports.Story == nil {
		return nil, fmt.Errorf("story generator: %w", domain.ErrNotConfigured)
	}
	req := domain.StoryRequest{
		CharacterDescription: combo.CharacterDescription(),
		SceneContext:         domain.SceneContext,
	}
	scene, err := e.callStory(ctx, req)
	if err == nil {
		return scene, nil
	}
	if e.opts.Classifier.Classify(err) != ClassSafety {
		return nil, err
	}

	e.log.Warn().Err(err).
		Str("combination", combo.Key()).
		Int("level", n).
		Msg("pregen: safety filter triggered, sanitizing")
	req.CharacterDescription = e.sanitize(combo, "character_description", req.CharacterDescription, n)
	req.SceneContext = e.sanitize(combo, "scene_context", req.SceneContext, n)
	return e.callStory(ctx, req)
}

func (e *Engine) sanitize(combo domain.Combination, field, text string, level int) string {
	out := sanitizer.ApplyProgressive(text, level)
	rep := sanitizer.NewReport(text, out)
	e.log.Debug().
		Str("combination", combo.Key()).
		Str("field", field).
		Int("level", level).
		Int("original_length", rep.OriginalLength).
		Int("sanitized_length", rep.SanitizedLength).
		Int("changes", len(rep.Changes)).
		Bool("is_safe", rep.IsSafe).
		Msg("pregen: sanitization report")
	return out
}

func (e *Engine) callStory(ctx context.Context, req domain.StoryRequest) (*domain.StoryScene, error) {
	scene, err := e.ports.Story.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !scene.Complete() {
		return nil, domain.ErrIncompleteStoryText
	}
	return scene, nil
}

func (e *Engine) renderImage(ctx context.Context, combo domain.Combination, story *domain.StoryScene) string {
	if e.ports.Images == nil || e.ports.Portraits == nil || e.ports.Blobs == nil {
		return ""
	}
	logger := e.log.With().Str("combination", combo.Key()).Logger()

	base, mime, err := e.ports.Portraits.Fetch(ctx, combo)
	if err != nil {
		logger.Warn().Err(err).Msg("pregen: base portrait unavailable")
		return ""
	}
	if len(base) == 0 {
		logger.Warn().Msg("pregen: no character build image, skipping scene image")
		return ""
	}

	imgCtx, cancel := context.WithTimeout(ctx, infra.ImageTimeout)
	defer cancel()
	prompt := story.VisualScene
	if prompt == "" {
		prompt = story.Narration
	}
	img, err := e.ports.Images.Generate(imgCtx, domain.ImageRequest{
		BaseImage:     base,
		BaseMIMEType:  mime,
		Prompt:        prompt,
		CorrelationID: combo.Key(),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("pregen: scene image generation failed")
		return ""
	}
	if img == nil || len(img.Data) == 0 || bytes.Equal(img.Data, base) {
		logger.Warn().Msg("pregen: image generator returned no new image")
		return ""
	}

	name := storage.SceneImageFilename(combo, e.opts.Now(), e.opts.NewID())
	return e.upload(ctx, logger, img.Data, name, firstNonEmpty(img.MIMEType, "image/png"))
}

func (e *Engine) narrate(ctx context.Context, combo domain.Combination, narration string) string {
	if e.ports.Speech == nil || e.ports.Blobs == nil {
		return ""
	}
	logger := e.log.With().Str("combination", combo.Key()).Logger()

	speechCtx, cancel := context.WithTimeout(ctx, infra.SpeechTimeout)
	defer cancel()
	audio, err := e.ports.Speech.Synthesize(speechCtx, narration, e.opts.VoiceID)
	if err != nil {
		logger.Warn().Err(err).Msg("pregen: narration synthesis failed")
		return ""
	}
	if len(audio) == 0 {
		return ""
	}
	return e.upload(ctx, logger, audio, storage.NarrationFilename(e.opts.Now(), e.opts.NewID()), "audio/mpeg")
}

func (e *Engine) upload(ctx context.Context, logger infra.Logger, data []byte, filename, contentType string) string {
	upCtx, cancel := context.WithTimeout(ctx, infra.BlobUploadTimeout)
	defer cancel()
	url, err := e.ports.Blobs.Upload(upCtx, e.opts.OwnerKey, data, filename, contentType)
	if err != nil {
		logger.Warn().Err(err).Str("filename", filename).Msg("pregen: upload failed")
		return ""
	}
	return url
}

// persist writes the attempt outcome. Store errors are logged, never returned:
// a lost diagnostic row must not turn a generated scene into a failure.
func (e *Engine) persist(ctx context.Context, task domain.GenerationTask) {
	if e.ports.Store == nil {
		return
	}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), infra.StoreTimeout)
	defer cancel()
	if err := e.ports.Store.Upsert(storeCtx, domain.SceneFromTask(task)); err != nil {
		e.log.Error().Err(err).
			Str("combination", task.Key()).
			Bool("is_successful", task.IsSuccessful).
			Msg("pregen: persist failed")
	}
}

// Plan is the outcome of the skip check for one batch invocation.
type Plan struct {
	Total            int
	AlreadyGenerated int
	Pending          []domain.Combination
}

// Plan checks the store for each combination. Existing successful scenes are
// skipped unless force is set; a failed check counts as needing generation.
func (e *Engine) Plan(ctx context.Context, combos []domain.Combination, force bool) Plan {
	if combos == nil {
		combos = domain.AllCombinations()
	}
	plan := Plan{Total: len(combos)}
	for _, combo := range combos {
		if force || e.ports.Store == nil {
			plan.Pending = append(plan.Pending, combo)
			continue
		}
		exists, err := e.ports.Store.Exists(ctx, combo)
		if err != nil {
			e.log.Warn().Err(err).Str("combination", combo.Key()).Msg("pregen: existence check failed")
		}
		if exists {
			plan.AlreadyGenerated++
			continue
		}
		plan.Pending = append(plan.Pending, combo)
	}
	return plan
}

// TaskHook observes each finished task.
type TaskHook func(task domain.GenerationTask)

// GenerateAll plans and executes every combination in combos, or the full
// cross product when combos is nil. It never returns an error: failures are
// reported in the BatchRun.
func (e *Engine) GenerateAll(ctx context.Context, combos []domain.Combination, force bool, hook TaskHook) domain.BatchRun {
	start := e.opts.Now()
	plan := e.Plan(ctx, combos, force)
	run := e.Execute(ctx, plan, hook)
	run.Duration = e.opts.Now().Sub(start)
	run.DurationSeconds = run.Duration.Seconds()
	return run
}

// Execute runs the pending combinations in fixed-size batches. Tasks inside a
// batch run concurrently; batches run in order with BatchDelay between them.
func (e *Engine) Execute(ctx context.Context, plan Plan, hook TaskHook) domain.BatchRun {
	start := e.opts.Now()
	run := domain.BatchRun{Total: plan.Total, AlreadyGenerated: plan.AlreadyGenerated}
	if len(plan.Pending) == 0 {
		e.log.Info().Int("total", plan.Total).Msg("pregen: all scenes already generated")
		return e.finish(run, start)
	}

	size := e.opts.BatchSize
	batches := (len(plan.Pending) + size - 1) / size
	var mu sync.Mutex
	// Hooks run under mu so observers never see concurrent calls.
	record := func(task domain.GenerationTask) {
		mu.Lock()
		defer mu.Unlock()
		run.Results = append(run.Results, task)
		if task.IsSuccessful {
			run.NewlyGenerated++
		} else {
			run.Failed++
		}
		if hook != nil {
			hook(task)
		}
	}

	for i := 0; i < len(plan.Pending); i += size {
		end := min(i+size, len(plan.Pending))
		batch := plan.Pending[i:end]
		if ctx.Err() != nil {
			e.abandon(ctx, plan.Pending[i:], record)
			break
		}
		e.log.Info().
			Int("batch", i/size+1).
			Int("batches", batches).
			Int("size", len(batch)).
			Msg("pregen: processing batch")

		var g errgroup.Group
		for _, combo := range batch {
			g.Go(func() error {
				record(e.GenerateOne(ctx, combo))
				return nil
			})
		}
		_ = g.Wait()

		if end < len(plan.Pending) {
			if err := e.opts.Sleep(ctx, e.opts.BatchDelay); err != nil {
				e.abandon(ctx, plan.Pending[end:], record)
				break
			}
		}
	}
	return e.finish(run, start)
}

// ExecuteSequential runs the pending combinations one at a time.
func (e *Engine) ExecuteSequential(ctx context.Context, plan Plan, hook TaskHook) domain.BatchRun {
	start := e.opts.Now()
	run := domain.BatchRun{Total: plan.Total, AlreadyGenerated: plan.AlreadyGenerated}
	for i, combo := range plan.Pending {
		var task domain.GenerationTask
		if ctx.Err() != nil {
			for _, rest := range plan.Pending[i:] {
				task = domain.GenerationTask{Combination: rest, LastError: context.Cause(ctx).Error()}
				run.Results = append(run.Results, task)
				run.Failed++
				if hook != nil {
					hook(task)
				}
			}
			break
		}
		task = e.GenerateOne(ctx, combo)
		run.Results = append(run.Results, task)
		if task.IsSuccessful {
			run.NewlyGenerated++
		} else {
			run.Failed++
		}
		if hook != nil {
			hook(task)
		}
	}
	return e.finish(run, start)
}

func (e *Engine) abandon(ctx context.Context, rest []domain.Combination, record func(domain.GenerationTask)) {
	e.log.Warn().Int("remaining", len(rest)).Msg("pregen: batch run interrupted")
	for _, combo := range rest {
		record(domain.GenerationTask{Combination: combo, LastError: context.Cause(ctx).Error()})
	}
}

func (e *Engine) finish(run domain.BatchRun, start time.Time) domain.BatchRun {
	run.Duration = e.opts.Now().Sub(start)
	run.DurationSeconds = run.Duration.Seconds()
	e.log.Info().
		Int("total", run.Total).
		Int("already_generated", run.AlreadyGenerated).
		Int("newly_generated", run.NewlyGenerated).
		Int("failed", run.Failed).
		Dur("duration", run.Duration).
		Msg("pregen: run completed")
	return run
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
