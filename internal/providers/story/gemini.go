package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
)

// ErrMissingAPIKey indicates that the generator was configured without credentials.
var ErrMissingAPIKey = errors.New("story: gemini api key is required")

const defaultModel = "gemini-2.0-flash-exp"

// Options configures the Gemini story generator.
type Options struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	Logger      *infra.Logger
}

// contentModel is the slice of *genai.GenerativeModel the generator uses.
type contentModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator implements domain.StoryGenerator over the Gemini SDK.
type GeminiGenerator struct {
	client    *genai.Client
	model     contentModel
	modelName string
	timeout   time.Duration
	logger    *infra.Logger
}

// NewGeminiGenerator dials the Gemini API. Call Close when done.
func NewGeminiGenerator(ctx context.Context, opts Options) (*GeminiGenerator, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("story: create gemini client: %w", err)
	}

	name := strings.TrimSpace(opts.Model)
	if name == "" {
		name = defaultModel
	}
	model := client.GenerativeModel(name)
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = 0.9
	}
	model.SetTemperature(temperature)
	model.SetCandidateCount(1)
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
	}

	g := newGenerator(model, name, opts)
	g.client = client
	return g, nil
}

func newGenerator(model contentModel, name string, opts Options) *GeminiGenerator {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = infra.StoryTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &GeminiGenerator{model: model, modelName: name, timeout: timeout, logger: logger}
}

// Model returns the configured model identifier.
func (g *GeminiGenerator) Model() string {
	return g.modelName
}

// Close releases the underlying SDK client.
func (g *GeminiGenerator) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Generate asks the model for a scene and parses the line protocol. Prompts
// or candidates rejected by the safety filter wrap domain.ErrContentBlocked.
func (g *GeminiGenerator) Generate(ctx context.Context, req domain.StoryRequest) (*domain.StoryScene, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(buildPrompt(req)))
	if err != nil {
		return nil, wrapError(err)
	}
	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("story: empty response from %s", g.modelName)
	}
	scene, err := ParseScene(text)
	if err != nil {
		g.logger.Warn().Err(err).Str("model", g.modelName).Int("chars", len(text)).Msg("story: unparseable response")
		return nil, err
	}
	g.logger.Debug().Str("model", g.modelName).Dur("elapsed", time.Since(start)).Msg("story: scene generated")
	return scene, nil
}

func wrapError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("story: %w: %w", domain.ErrContentBlocked, err)
	}
	return fmt.Errorf("story: %w", err)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

var _ domain.StoryGenerator = (*GeminiGenerator)(nil)
