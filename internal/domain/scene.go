package domain

import (
	"fmt"
	"time"
)

// SceneContext is the fixed premise every first scene starts from.
const SceneContext = "Awakening in forest clearing after bandit attack, amnesia scenario"

// FailedSceneText is stored in place of narration and visual scene when an
// attempt does not produce story text.
const FailedSceneText = "Generation failed"

// ChoicesPerScene is the number of choices a successful scene carries.
const ChoicesPerScene = 4

// StoryRequest is the input to a story generator call.
type StoryRequest struct {
	CharacterDescription string
	SceneContext         string
	PreviousChoice       string
}

// StoryScene is the structured output of a story generator call.
type StoryScene struct {
	Narration   string
	VisualScene string
	Choices     []string
}

// Complete reports whether the story carries narration, a visual scene, and
// exactly the expected number of non-empty choices.
func (s *StoryScene) Complete() bool {
	if s == nil || s.Narration == "" || s.VisualScene == "" || len(s.Choices) != ChoicesPerScene {
		return false
	}
	for _, c := range s.Choices {
		if c == "" {
			return false
		}
	}
	return true
}

// GenerationTask is the mutable record of one generate_one attempt.
type GenerationTask struct {
	Combination
	RetryCount   int           `json:"retry_count"`
	LastError    string        `json:"last_error,omitempty"`
	IsSuccessful bool          `json:"is_successful"`
	Narration    string        `json:"narration,omitempty"`
	VisualScene  string        `json:"visual_scene,omitempty"`
	ImageURL     string        `json:"image_url,omitempty"`
	AudioURL     string        `json:"audio_url,omitempty"`
	Choices      []string      `json:"choices,omitempty"`
	Duration     time.Duration `json:"-"`
}

// Choice is the persisted form of a scene choice.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ChoicesFromTexts numbers choice texts as choice_1..choice_n.
func ChoicesFromTexts(texts []string) []Choice {
	out := make([]Choice, 0, len(texts))
	for i, t := range texts {
		out = append(out, Choice{ID: fmt.Sprintf("choice_%d", i+1), Text: t})
	}
	return out
}

// PersistedScene is the durable row keyed by (portrait_id, build_type).
type PersistedScene struct {
	ID           string
	PortraitID   PortraitID
	BuildType    BuildType
	Narration    string
	VisualScene  string
	ImageURL     string
	AudioURL     string
	Choices      []Choice
	RetryCount   int
	LastError    string
	IsSuccessful bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Combination returns the row key.
func (s PersistedScene) Combination() Combination {
	return Combination{PortraitID: s.PortraitID, BuildType: s.BuildType}
}

// SceneFromTask converts the outcome of an attempt into the row written to the
// store. Failed attempts keep diagnostics but no playable content.
func SceneFromTask(task GenerationTask) PersistedScene {
	scene := PersistedScene{
		PortraitID:   task.PortraitID,
		BuildType:    task.BuildType,
		RetryCount:   task.RetryCount,
		LastError:    task.LastError,
		IsSuccessful: task.IsSuccessful,
		Choices:      []Choice{},
	}
	if !task.IsSuccessful {
		scene.Narration = FailedSceneText
		scene.VisualScene = FailedSceneText
		return scene
	}
	scene.Narration = task.Narration
	scene.VisualScene = task.VisualScene
	scene.ImageURL = task.ImageURL
	scene.AudioURL = task.AudioURL
	scene.Choices = ChoicesFromTexts(task.Choices)
	return scene
}

// SceneSource tells clients where a served scene came from.
type SceneSource string

const (
	SceneSourcePregenerated SceneSource = "pregenerated"
	SceneSourceLive         SceneSource = "live"
	SceneSourcePlaceholder  SceneSource = "placeholder"
)

// Scene is the player-facing payload.
type Scene struct {
	PortraitID  PortraitID  `json:"portrait_id"`
	BuildType   BuildType   `json:"build_type"`
	Narration   string      `json:"narration"`
	VisualScene string      `json:"visual_scene"`
	ImageURL    string      `json:"image_url,omitempty"`
	AudioURL    string      `json:"audio_url,omitempty"`
	Choices     []Choice    `json:"choices"`
	Source      SceneSource `json:"source"`
}

// SceneFromPersisted builds the player payload from a stored row.
func SceneFromPersisted(s PersistedScene) Scene {
	return Scene{
		PortraitID:  s.PortraitID,
		BuildType:   s.BuildType,
		Narration:   s.Narration,
		VisualScene: s.VisualScene,
		ImageURL:    s.ImageURL,
		AudioURL:    s.AudioURL,
		Choices:     s.Choices,
		Source:      SceneSourcePregenerated,
	}
}

// SceneFromLiveTask builds the player payload from a successful live attempt.
func SceneFromLiveTask(task GenerationTask) Scene {
	return Scene{
		PortraitID:  task.PortraitID,
		BuildType:   task.BuildType,
		Narration:   task.Narration,
		VisualScene: task.VisualScene,
		ImageURL:    task.ImageURL,
		AudioURL:    task.AudioURL,
		Choices:     ChoicesFromTexts(task.Choices),
		Source:      SceneSourceLive,
	}
}

// BatchRun summarizes one generate_all invocation.
type BatchRun struct {
	Total            int              `json:"total"`
	AlreadyGenerated int              `json:"already_generated"`
	NewlyGenerated   int              `json:"newly_generated"`
	Failed           int              `json:"failed"`
	DurationSeconds  float64          `json:"duration_seconds"`
	Results          []GenerationTask `json:"results"`
	Duration         time.Duration    `json:"-"`
}

// Attempted is the number of combinations that went through generation.
func (b BatchRun) Attempted() int {
	return b.Total - b.AlreadyGenerated
}

// SuccessRate is newly generated over attempted, with attempted floored at 1.
func (b BatchRun) SuccessRate() float64 {
	attempted := b.Attempted()
	if attempted < 1 {
		attempted = 1
	}
	return float64(b.NewlyGenerated) / float64(attempted)
}

// Failures returns the failed task results in completion order.
func (b BatchRun) Failures() []GenerationTask {
	var out []GenerationTask
	for _, r := range b.Results {
		if !r.IsSuccessful {
			out = append(out, r)
		}
	}
	return out
}
