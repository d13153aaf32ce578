package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"scenegen/internal/domain"
	"scenegen/internal/pregen"
)

const (
	maxListedFailures = 5
	maxErrorLength    = 100
	progressWidth     = 30
)

// parseFilters turns the flag values into the combinations to consider.
// Filtering applies to preset portraits only.
func parseFilters(portraitRaw, buildRaw string) ([]domain.Combination, error) {
	var (
		portrait domain.PortraitID
		build    domain.BuildType
		err      error
	)
	if strings.TrimSpace(portraitRaw) != "" {
		if portrait, err = domain.ParsePortraitID(portraitRaw); err != nil {
			return nil, err
		}
		if !portrait.IsPreset() {
			return nil, fmt.Errorf("%w: %q is not a preset portrait", domain.ErrInvalidCombination, portraitRaw)
		}
	}
	if strings.TrimSpace(buildRaw) != "" {
		if build, err = domain.ParseBuildType(buildRaw); err != nil {
			return nil, err
		}
	}
	return domain.FilterCombinations(portrait, build), nil
}

// exitCode maps a finished run onto the tiered shell status.
func exitCode(run domain.BatchRun) int {
	switch {
	case run.Failed == 0:
		return exitOK
	case run.SuccessRate() >= 0.5:
		return exitPartial
	default:
		return exitFailed
	}
}

type progressBar struct {
	out   io.Writer
	total int
	done  int
	ok    int
}

func newProgressBar(out io.Writer, total int) *progressBar {
	return &progressBar{out: out, total: total}
}

// advance is a pregen.TaskHook. The engine serializes hook calls.
func (p *progressBar) advance(task domain.GenerationTask) {
	p.done++
	status := "failed"
	if task.IsSuccessful {
		p.ok++
		status = "ok"
	}
	filled := 0
	if p.total > 0 {
		filled = p.done * progressWidth / p.total
	}
	fmt.Fprintf(p.out, "\r[%s%s] %d/%d %-14s %-6s",
		strings.Repeat("#", filled),
		strings.Repeat(".", progressWidth-filled),
		p.done, p.total, task.Key(), status)
	if p.done >= p.total {
		fmt.Fprintln(p.out)
	}
}

func writePlan(w io.Writer, plan pregen.Plan) {
	fmt.Fprintf(w, "Dry run: %d combinations, %d already generated, %d pending\n",
		plan.Total, plan.AlreadyGenerated, len(plan.Pending))
	for _, combo := range plan.Pending {
		fmt.Fprintf(w, "  - %s\n", combo.Key())
	}
}

func writeSummary(w io.Writer, run domain.BatchRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nGeneration summary")
	fmt.Fprintf(tw, "Total combinations\t%d\n", run.Total)
	fmt.Fprintf(tw, "Already existed\t%d\n", run.AlreadyGenerated)
	fmt.Fprintf(tw, "Newly generated\t%d\n", run.NewlyGenerated)
	fmt.Fprintf(tw, "Failed\t%d\n", run.Failed)
	fmt.Fprintf(tw, "Duration\t%s\n", run.Duration.Round(time.Millisecond))
	fmt.Fprintf(tw, "Average per scene\t%s\n", averagePerScene(run).Round(time.Millisecond))
	fmt.Fprintf(tw, "Success rate\t%.0f%%\n", run.SuccessRate()*100)
	_ = tw.Flush()

	failures := run.Failures()
	if len(failures) == 0 {
		return
	}
	fmt.Fprintln(w, "\nFailures:")
	for i, task := range failures {
		if i == maxListedFailures {
			fmt.Fprintf(w, "  ... and %d more\n", len(failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(w, "  %s: %s\n", task.Key(), truncate(task.LastError, maxErrorLength))
	}
}

func averagePerScene(run domain.BatchRun) time.Duration {
	attempted := run.Attempted()
	if attempted < 1 {
		return 0
	}
	return run.Duration / time.Duration(attempted)
}

func writeStatus(w io.Writer, rows []domain.PersistedScene) {
	byKey := make(map[string]domain.PersistedScene, len(rows))
	for _, row := range rows {
		byKey[row.Combination().Key()] = row
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PORTRAIT\tBUILD\tSTATUS\tRETRIES\tUPDATED\tLAST ERROR")
	var successful int
	for _, combo := range domain.AllCombinations() {
		row, ok := byKey[combo.Key()]
		if !ok {
			fmt.Fprintf(tw, "%s\t%s\tmissing\t-\t-\t\n", combo.PortraitID, combo.BuildType)
			continue
		}
		status := "failed"
		if row.IsSuccessful {
			status = "successful"
			successful++
		}
		updated := "-"
		if !row.UpdatedAt.IsZero() {
			updated = row.UpdatedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			combo.PortraitID, combo.BuildType, status, row.RetryCount, updated,
			truncate(row.LastError, maxErrorLength))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d/%d scenes ready\n", successful, len(domain.AllCombinations()))
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
