package sanitizer

import (
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "gore", in: "The blood-soaked corpse lay in agony", want: "The red marks-soaked fallen figure lay in difficulty"},
		{name: "case insensitive", in: "A sudden ATTACK at the Battle", want: "A sudden approach at the encounter"},
		{name: "extreme pattern", in: "An execution at dawn", want: "An [intense scene] at dawn"},
		{name: "table before extreme", in: "torture and torturing", want: "ordeal and [intense scene]"},
		{name: "intensifiers and whitespace", in: "  An extremely   dark\tcave ", want: "An very dark cave"},
		{name: "fullwidth normalized", in: "ｂｌｏｏｄ on the road", want: "red marks on the road"},
		{name: "substrings untouched", in: "A warden in the warmth", want: "A warden in the warmth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeIsStableOnSecondPass(t *testing.T) {
	inputs := []string{
		"The bloody massacre left corpses and zombies in the haunted keep",
		"A terribly painful wound from the brutal attack; suicidal despair",
		"Necromancy, war, siege, and the dying skeletons of the cursed army",
		"Awakening in forest clearing after bandit attack, amnesia scenario",
		"a dead  body lies\nnear the dead\tbodies",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Fatalf("second pass changed text:\n once: %q\ntwice: %q", once, twice)
		}
		if !IsProbablySafe(once) {
			t.Fatalf("IsProbablySafe(%q) = false after sanitizing", once)
		}
	}
}

func TestSanitizeMatchesAcrossWhitespaceRuns(t *testing.T) {
	got := Sanitize("a dead  body lies\nnear the dead\tbodies")
	if want := "a still figure lies near the still figures"; got != want {
		t.Fatalf("Sanitize = %q, want %q", got, want)
	}
}

func TestIsProbablySafe(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "", want: true},
		{in: "A calm forest at dusk", want: true},
		{in: "blood and war", want: true},
		{in: "blood blood blood", want: true},
		{in: "blood, war, and death", want: false},
		{in: "the genocide of the valley", want: false},
		{in: "dead\tbody, blood  and war", want: false},
	}
	for _, tt := range tests {
		if got := IsProbablySafe(tt.in); got != tt.want {
			t.Fatalf("IsProbablySafe(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewReport(t *testing.T) {
	original := "blood and more blood, then war"
	sanitized := Sanitize(original)
	rep := NewReport(original, sanitized)

	if rep.OriginalLength != len(original) {
		t.Fatalf("OriginalLength = %d, want %d", rep.OriginalLength, len(original))
	}
	if rep.SanitizedLength != len(sanitized) {
		t.Fatalf("SanitizedLength = %d, want %d", rep.SanitizedLength, len(sanitized))
	}
	if len(rep.Changes) != 2 {
		t.Fatalf("len(Changes) = %d, want 2: %+v", len(rep.Changes), rep.Changes)
	}
	if rep.Changes[0].Replacement != "red marks" || rep.Changes[0].Count != 2 {
		t.Fatalf("Changes[0] = %+v", rep.Changes[0])
	}
	if rep.Changes[1].Replacement != "conflict" || rep.Changes[1].Count != 1 {
		t.Fatalf("Changes[1] = %+v", rep.Changes[1])
	}
	if !rep.IsSafe {
		t.Fatalf("IsSafe = false, want true")
	}
}

func TestApplyProgressive(t *testing.T) {
	const context = "Awakening in forest clearing after bandit attack, amnesia scenario"
	tests := []struct {
		name  string
		in    string
		level int
		want  string
	}{
		{name: "level zero sanitizes", in: context, level: 0, want: "Awakening in forest clearing after bandit approach, amnesia scenario"},
		{name: "level one euphemisms", in: context, level: 1, want: "Awakening in forest clearing after unexpected event, memory loss scenario"},
		{name: "level one keeps words containing hit", in: "a white cloak, hit hard", level: 1, want: "a white cloak, affected hard"},
		{name: "level one across line break", in: "after a bandit\n attack", level: 1, want: "after a unexpected event"},
		{name: "level two ignores input", in: context, level: 2, want: ForestFallback},
		{name: "level above two", in: "anything at all", level: 7, want: ForestFallback},
		{name: "level two empty input", in: "", level: 2, want: ForestFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyProgressive(tt.in, tt.level); got != tt.want {
				t.Fatalf("ApplyProgressive(%q, %d) = %q, want %q", tt.in, tt.level, got, tt.want)
			}
		})
	}
}
