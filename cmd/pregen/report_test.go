package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"scenegen/internal/domain"
	"scenegen/internal/pregen"
)

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name     string
		portrait string
		build    string
		want     int
		wantErr  bool
	}{
		{name: "no filters", want: 32},
		{name: "portrait only", portrait: "M1", want: 4},
		{name: "build only", build: " mage ", want: 8},
		{name: "both", portrait: "f3", build: "rogue", want: 1},
		{name: "custom portrait", portrait: "upload-123", wantErr: true},
		{name: "unknown build", build: "bard", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combos, err := parseFilters(tt.portrait, tt.build)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidCombination) {
					t.Fatalf("parseFilters error = %v, want ErrInvalidCombination", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFilters error: %v", err)
			}
			if len(combos) != tt.want {
				t.Fatalf("len(combos) = %d, want %d", len(combos), tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		run  domain.BatchRun
		want int
	}{
		{name: "clean", run: domain.BatchRun{Total: 32, NewlyGenerated: 32}, want: exitOK},
		{name: "nothing to do", run: domain.BatchRun{Total: 32, AlreadyGenerated: 32}, want: exitOK},
		{name: "half succeeded", run: domain.BatchRun{Total: 4, NewlyGenerated: 2, Failed: 2}, want: exitPartial},
		{name: "mostly failed", run: domain.BatchRun{Total: 4, NewlyGenerated: 1, Failed: 3}, want: exitFailed},
		{name: "skips excluded from rate", run: domain.BatchRun{Total: 32, AlreadyGenerated: 30, NewlyGenerated: 1, Failed: 1}, want: exitPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.run); got != tt.want {
				t.Fatalf("exitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 150)
	if got := truncate(long, 100); len([]rune(got)) != 100 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate(long) = %q", got)
	}
	if got := truncate("a\n  b", 100); got != "a b" {
		t.Fatalf("truncate collapses whitespace = %q, want %q", got, "a b")
	}
	if got := truncate("héllo wörld", 8); got != "héllo..." {
		t.Fatalf("truncate(runes) = %q, want %q", got, "héllo...")
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := newProgressBar(&buf, 2)
	bar.advance(domain.GenerationTask{
		Combination:  domain.Combination{PortraitID: "m1", BuildType: domain.BuildWarrior},
		IsSuccessful: true,
	})
	bar.advance(domain.GenerationTask{
		Combination: domain.Combination{PortraitID: "m1", BuildType: domain.BuildMage},
	})
	out := buf.String()
	if !strings.Contains(out, "1/2 m1_warrior") || !strings.Contains(out, "2/2 m1_mage") {
		t.Fatalf("progress output = %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("progress bar should end the line when done")
	}
	if bar.ok != 1 {
		t.Fatalf("ok = %d, want 1", bar.ok)
	}
}

func TestWriteSummaryListsFirstFailures(t *testing.T) {
	run := domain.BatchRun{Total: 8, Failed: 7, NewlyGenerated: 1, Duration: 8 * time.Second}
	for i := 0; i < 7; i++ {
		run.Results = append(run.Results, domain.GenerationTask{
			Combination: domain.Combination{PortraitID: domain.PresetPortraits[i], BuildType: domain.BuildRogue},
			LastError:   strings.Repeat("e", 120),
		})
	}

	var buf bytes.Buffer
	writeSummary(&buf, run)
	out := buf.String()

	for _, want := range []string{"Newly generated", "Failed", "1s", "Success rate", "and 2 more"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, strings.Repeat("e", 101)) {
		t.Fatalf("summary should truncate errors:\n%s", out)
	}
	if strings.Count(out, "_rogue:") != maxListedFailures {
		t.Fatalf("listed failures = %d, want %d", strings.Count(out, "_rogue:"), maxListedFailures)
	}
}

func TestWritePlan(t *testing.T) {
	var buf bytes.Buffer
	writePlan(&buf, pregen.Plan{
		Total:            4,
		AlreadyGenerated: 3,
		Pending:          []domain.Combination{{PortraitID: "f2", BuildType: domain.BuildRanger}},
	})
	if !strings.Contains(buf.String(), "1 pending") || !strings.Contains(buf.String(), "- f2_ranger") {
		t.Fatalf("plan output = %q", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	rows := []domain.PersistedScene{
		{PortraitID: "m1", BuildType: domain.BuildWarrior, IsSuccessful: true},
		{PortraitID: "m2", BuildType: domain.BuildMage, RetryCount: 2, LastError: "blocked"},
	}
	var buf bytes.Buffer
	writeStatus(&buf, rows)
	out := buf.String()
	if !strings.Contains(out, "1/32 scenes ready") {
		t.Fatalf("status footer missing:\n%s", out)
	}
	if strings.Count(out, "missing") != 30 {
		t.Fatalf("missing rows = %d, want 30", strings.Count(out, "missing"))
	}
	if !strings.Contains(out, "blocked") {
		t.Fatalf("status should show last error:\n%s", out)
	}
}
