package story

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"scenegen/internal/domain"
)

type fakeModel struct {
	resp    *genai.GenerateContentResponse
	err     error
	prompts []string
}

func (f *fakeModel) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	for _, p := range parts {
		if t, ok := p.(genai.Text); ok {
			f.prompts = append(f.prompts, string(t))
		}
	}
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
		}},
	}
}

const wellFormed = `NARRATION: My head throbs. Where am I?
VISUAL_SCENE: A misty forest clearing with broken barrels.
CHOICE_1: Stand up slowly
CHOICE_2: Check my belongings
CHOICE_3: Listen for sounds
CHOICE_4: Try to remember`

func TestGenerate(t *testing.T) {
	model := &fakeModel{resp: textResponse(wellFormed)}
	gen := newGenerator(model, "test-model", Options{})

	scene, err := gen.Generate(context.Background(), domain.StoryRequest{
		CharacterDescription: "a mage female",
		SceneContext:         domain.SceneContext,
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if scene.Narration != "My head throbs. Where am I?" {
		t.Fatalf("Narration = %q", scene.Narration)
	}
	if len(scene.Choices) != 4 || scene.Choices[3] != "Try to remember" {
		t.Fatalf("Choices = %#v", scene.Choices)
	}
	if len(model.prompts) != 1 {
		t.Fatalf("prompts sent = %d, want 1", len(model.prompts))
	}
	if !strings.Contains(model.prompts[0], "CHARACTER: a mage female") || !strings.Contains(model.prompts[0], "SITUATION: "+domain.SceneContext) {
		t.Fatalf("prompt missing request fields:\n%s", model.prompts[0])
	}
	if strings.Contains(model.prompts[0], "PREVIOUS CHOICE") {
		t.Fatalf("prompt should omit empty previous choice")
	}
}

func TestGenerateBlockedWrapsContentBlocked(t *testing.T) {
	model := &fakeModel{err: &genai.BlockedError{
		PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
	}}
	gen := newGenerator(model, "test-model", Options{})

	_, err := gen.Generate(context.Background(), domain.StoryRequest{CharacterDescription: "x"})
	if !errors.Is(err, domain.ErrContentBlocked) {
		t.Fatalf("Generate error = %v, want ErrContentBlocked", err)
	}
	var blocked *genai.BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("Generate error should keep the SDK error: %v", err)
	}
}

func TestGenerateOtherErrors(t *testing.T) {
	gen := newGenerator(&fakeModel{err: errors.New("rpc error: code = Unavailable")}, "m", Options{})
	_, err := gen.Generate(context.Background(), domain.StoryRequest{})
	if err == nil || errors.Is(err, domain.ErrContentBlocked) {
		t.Fatalf("Generate error = %v, want plain wrapped error", err)
	}

	gen = newGenerator(&fakeModel{resp: &genai.GenerateContentResponse{}}, "m", Options{})
	if _, err := gen.Generate(context.Background(), domain.StoryRequest{}); err == nil || !strings.Contains(err.Error(), "empty response") {
		t.Fatalf("Generate error = %v, want empty response", err)
	}
}

func TestParseScene(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantErr    bool
		wantVisual string
		wantChoice int
	}{
		{name: "well formed", in: wellFormed, wantVisual: "A misty forest clearing with broken barrels.", wantChoice: 4},
		{
			name:       "markdown and fence",
			in:         "```text\n**NARRATION:** I wake in a tavern.\n**CHOICE_1:** a\nchoice_2: b\nCHOICE_3: c\nCHOICE_4: d\nCHOICE_5: e\n```",
			wantVisual: "Dimly lit tavern with wooden tables and chairs. Warm firelight glows from the hearth. Shadows dance on weathered stone walls.",
			wantChoice: 4,
		},
		{name: "too few choices", in: "NARRATION: hi\nVISUAL_SCENE: v\nCHOICE_1: a\nCHOICE_2: b", wantErr: true},
		{name: "no narration", in: "VISUAL_SCENE: v\nCHOICE_1: a\nCHOICE_2: b\nCHOICE_3: c\nCHOICE_4: d", wantErr: true},
		{name: "blank choices skipped", in: "NARRATION: n\nVISUAL_SCENE: v\nCHOICE_1:\nCHOICE_2: b\nCHOICE_3: c\nCHOICE_4: d", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene, err := ParseScene(tt.in)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrIncompleteStoryText) {
					t.Fatalf("ParseScene error = %v, want ErrIncompleteStoryText", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseScene error: %v", err)
			}
			if scene.VisualScene != tt.wantVisual {
				t.Fatalf("VisualScene = %q, want %q", scene.VisualScene, tt.wantVisual)
			}
			if len(scene.Choices) != tt.wantChoice {
				t.Fatalf("len(Choices) = %d, want %d", len(scene.Choices), tt.wantChoice)
			}
		})
	}
}

func TestFallbackVisualScene(t *testing.T) {
	tests := []struct {
		narration string
		wantPart  string
	}{
		{"Tall trees surround me", "Dense forest"},
		{"A cold stone floor", "Dark stone chamber"},
		{"The road stretches on", "Winding dirt path"},
		{"Smoke rises from the town", "Medieval village"},
		{"The tower looms", "Grand castle courtyard"},
		{"Nothing familiar", "Mysterious medieval environment"},
	}
	for _, tt := range tests {
		if got := FallbackVisualScene(tt.narration); !strings.HasPrefix(got, tt.wantPart) {
			t.Fatalf("FallbackVisualScene(%q) = %q, want prefix %q", tt.narration, got, tt.wantPart)
		}
	}
}
