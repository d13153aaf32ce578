package domain

import (
	"errors"
	"testing"
)

func TestAllCombinations(t *testing.T) {
	combos := AllCombinations()
	if len(combos) != 32 {
		t.Fatalf("len(AllCombinations()) = %d, want 32", len(combos))
	}
	seen := make(map[string]struct{}, len(combos))
	for _, c := range combos {
		if !c.IsPreset() {
			t.Fatalf("combination %s is not a preset", c)
		}
		if _, dup := seen[c.Key()]; dup {
			t.Fatalf("duplicate combination %s", c)
		}
		seen[c.Key()] = struct{}{}
	}
}

func TestFilterCombinations(t *testing.T) {
	tests := []struct {
		name     string
		portrait PortraitID
		build    BuildType
		want     int
	}{
		{name: "no filters", want: 32},
		{name: "portrait only", portrait: PortraitF3, want: 4},
		{name: "build only", build: BuildMage, want: 8},
		{name: "both", portrait: PortraitM1, build: BuildWarrior, want: 1},
		{name: "custom portrait", portrait: "custom", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterCombinations(tt.portrait, tt.build)
			if len(got) != tt.want {
				t.Fatalf("FilterCombinations(%q, %q) = %d, want %d", tt.portrait, tt.build, len(got), tt.want)
			}
		})
	}
}

func TestCharacterDescription(t *testing.T) {
	tests := []struct {
		combo Combination
		want  string
	}{
		{
			combo: Combination{PortraitID: PortraitM1, BuildType: BuildWarrior},
			want:  "a warrior male with early twenties, brown eyes, fair skin, short black hair",
		},
		{
			combo: Combination{PortraitID: PortraitF3, BuildType: BuildMage},
			want:  "a mage female with early thirties, amber eyes, deep brown skin, braided black hair",
		},
		{
			combo: Combination{PortraitID: "custom", BuildType: BuildRogue},
			want:  "a rogue male",
		},
	}
	for _, tt := range tests {
		if got := tt.combo.CharacterDescription(); got != tt.want {
			t.Fatalf("CharacterDescription(%s) = %q, want %q", tt.combo, got, tt.want)
		}
	}
}

func TestParseBuildType(t *testing.T) {
	b, err := ParseBuildType(" Ranger ")
	if err != nil {
		t.Fatalf("ParseBuildType error: %v", err)
	}
	if b != BuildRanger {
		t.Fatalf("ParseBuildType = %q, want %q", b, BuildRanger)
	}
	if b.Title() != "Ranger" {
		t.Fatalf("Title = %q, want Ranger", b.Title())
	}
	if _, err := ParseBuildType("bard"); !errors.Is(err, ErrInvalidCombination) {
		t.Fatalf("ParseBuildType(bard) error = %v, want ErrInvalidCombination", err)
	}
	if _, err := ParsePortraitID("  "); !errors.Is(err, ErrInvalidCombination) {
		t.Fatalf("ParsePortraitID(blank) error = %v, want ErrInvalidCombination", err)
	}
}

func TestSceneFromTask(t *testing.T) {
	combo := Combination{PortraitID: PortraitM2, BuildType: BuildRogue}

	failed := SceneFromTask(GenerationTask{Combination: combo, RetryCount: 2, LastError: "boom"})
	if failed.Narration != FailedSceneText || failed.VisualScene != FailedSceneText {
		t.Fatalf("failed scene text = %q/%q, want %q", failed.Narration, failed.VisualScene, FailedSceneText)
	}
	if len(failed.Choices) != 0 || failed.IsSuccessful {
		t.Fatalf("failed scene should have no choices and not be successful: %+v", failed)
	}

	ok := SceneFromTask(GenerationTask{
		Combination:  combo,
		IsSuccessful: true,
		Narration:    "You wake.",
		VisualScene:  "A clearing.",
		Choices:      []string{"a", "b", "c", "d"},
		AudioURL:     "https://cdn/audio.mp3",
	})
	if len(ok.Choices) != 4 || ok.Choices[3].ID != "choice_4" || ok.Choices[0].Text != "a" {
		t.Fatalf("choices = %+v", ok.Choices)
	}
	if ok.ImageURL != "" || ok.AudioURL == "" {
		t.Fatalf("media urls = %q/%q", ok.ImageURL, ok.AudioURL)
	}
}

func TestBatchRunSuccessRate(t *testing.T) {
	tests := []struct {
		name string
		run  BatchRun
		want float64
	}{
		{name: "all new", run: BatchRun{Total: 4, NewlyGenerated: 4}, want: 1},
		{name: "half", run: BatchRun{Total: 6, AlreadyGenerated: 2, NewlyGenerated: 2, Failed: 2}, want: 0.5},
		{name: "nothing attempted", run: BatchRun{Total: 3, AlreadyGenerated: 3}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.run.SuccessRate(); got != tt.want {
				t.Fatalf("SuccessRate = %v, want %v", got, tt.want)
			}
		})
	}
}
