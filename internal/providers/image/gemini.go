package image

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
	"scenegen/internal/providers/genai"
	"scenegen/internal/sanitizer"
)

// editor is the part of the Gemini REST client the generator depends on.
type editor interface {
	EditImage(ctx context.Context, req genai.EditRequest) (*genai.ImageAsset, error)
	Model() string
}

// GeminiGenerator composes a first-person scene around a base portrait.
type GeminiGenerator struct {
	client editor
	logger *infra.Logger
}

// NewGeminiGenerator wraps a configured Gemini client.
func NewGeminiGenerator(client *genai.Client, logger *infra.Logger) *GeminiGenerator {
	return newGenerator(client, logger)
}

func newGenerator(client editor, logger *infra.Logger) *GeminiGenerator {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &GeminiGenerator{client: client, logger: logger}
}

// Generate implements domain.ImageGenerator. The prompt is treated as the
// environment description and is sanitized before it leaves the process.
func (g *GeminiGenerator) Generate(ctx context.Context, req domain.ImageRequest) (*domain.ImageResult, error) {
	if g == nil || g.client == nil {
		return nil, domain.ErrNotConfigured
	}
	if len(req.BaseImage) == 0 {
		return nil, errors.New("image: base portrait is required")
	}
	scene := sanitizer.Sanitize(req.Prompt)
	rep := sanitizer.NewReport(req.Prompt, scene)
	g.logger.Debug().
		Str("correlation_id", req.CorrelationID).
		Int("original_length", rep.OriginalLength).
		Int("sanitized_length", rep.SanitizedLength).
		Int("changes", len(rep.Changes)).
		Bool("is_safe", rep.IsSafe).
		Msg("image: sanitization report")

	asset, err := g.client.EditImage(ctx, genai.EditRequest{
		Prompt:        scenePrompt(scene),
		Image:         req.BaseImage,
		MIMEType:      req.BaseMIMEType,
		CorrelationID: req.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("image: %s: %w", g.client.Model(), err)
	}
	g.logger.Debug().
		Str("correlation_id", req.CorrelationID).
		Int("width", asset.Width).
		Int("height", asset.Height).
		Msg("image: scene rendered")
	return &domain.ImageResult{Data: asset.Data, MIMEType: asset.Format}, nil
}

// BuildScenePrompt wraps a visual scene description in the composition
// instructions used for every scene render.
func BuildScenePrompt(visualScene string) string {
	return scenePrompt(sanitizer.Sanitize(visualScene))
}

func scenePrompt(scene string) string {
	var b strings.Builder
	b.WriteString("Create a first-person RPG scene image showing this character in an environment.\n\n")
	b.WriteString("ENVIRONMENT DESCRIPTION:\n")
	b.WriteString(scene)
	b.WriteString(`

CHARACTER PLACEMENT:
- Show the character from behind or at a 3/4 angle
- Character positioned in lower third of the image
- Character facing into the scene
- Maintain exact appearance, clothing, and equipment from reference image

VISUAL COMPOSITION:
- First-person RPG perspective, slightly behind and above the character
- Cinematic wide shot showing both character and environment
- Depth with foreground, midground, and background elements

ARTISTIC STYLE:
- Medieval dark fantasy atmosphere
- Dramatic lighting with strong contrast
- Game-ready cinematic digital artwork`)
	return b.String()
}

var _ domain.ImageGenerator = (*GeminiGenerator)(nil)
