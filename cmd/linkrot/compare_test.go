package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/linkrot/internal/database"
	"github.com/nao1215/linkrot/internal/model"
)

// Note: runCompareCmd always resolves the history database through the
// XDG data directory, and the xdg package caches XDG_DATA_HOME when the
// process starts, so t.Setenv cannot redirect it. The command helpers
// below therefore take the database as a parameter and are tested
// against database.Open(t.TempDir()).

// TestNewCompareCmd tests the compare command creation.
func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "compare [seed-url]" {
			t.Errorf("expected use 'compare [seed-url]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has expected flags with shorthands", func(t *testing.T) {
		t.Parallel()
		shorthands := map[string]string{
			"list-runs":   "l",
			"list":        "L",
			"with-run-id": "i",
			"since":       "s",
			"json":        "j",
		}
		for name, shorthand := range shorthands {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				t.Errorf("expected %s flag", name)
				continue
			}
			if flag.Shorthand != shorthand {
				t.Errorf("expected %s shorthand %q, got %q", name, shorthand, flag.Shorthand)
			}
		}
	})

	t.Run("does not have db-dir flag (uses XDG)", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("db-dir")
		if flag != nil {
			t.Error("db-dir flag should not exist (always uses XDG data directory)")
		}
	})
}

// TestRunCompareCmdRequiresSeed tests argument validation before any
// database access.
func TestRunCompareCmdRequiresSeed(t *testing.T) {
	t.Parallel()

	t.Run("errors without a seed URL", func(t *testing.T) {
		t.Parallel()
		cmd := NewCompareCmd()
		cmd.SetArgs([]string{})

		err := cmd.Execute()
		if err == nil {
			t.Fatal("expected error for missing seed URL")
		}
		if !strings.Contains(err.Error(), "seed URL is required") {
			t.Errorf("expected 'seed URL is required' error, got %v", err)
		}
	})

	t.Run("errors for an invalid seed URL", func(t *testing.T) {
		t.Parallel()
		cmd := NewCompareCmd()
		cmd.SetArgs([]string{"ftp://example.com/"})

		err := cmd.Execute()
		if err == nil {
			t.Fatal("expected error for invalid seed URL")
		}
		if !strings.Contains(err.Error(), "invalid seed URL") {
			t.Errorf("expected 'invalid seed URL' error, got %v", err)
		}
	})
}

// buildRunReport builds a report whose link lists are fully under the
// test's control.
func buildRunReport(root string, okURLs, brokenURLs []string) *model.Report {
	rep := model.NewReport([]string{root})
	rep.Elapsed = 900 * time.Millisecond
	for _, u := range okURLs {
		rep.Add(&model.FetchResult{
			Target:     model.Target{Home: root, URL: u, Depth: model.UnlimitedDepth},
			StatusCode: http.StatusOK,
			Elapsed:    10 * time.Millisecond,
		})
	}
	for _, u := range brokenURLs {
		rep.Add(&model.FetchResult{
			Target:     model.Target{Home: root, URL: u, Depth: model.UnlimitedDepth},
			StatusCode: http.StatusNotFound,
			Err:        &model.ResponseError{StatusCode: http.StatusNotFound},
			Elapsed:    5 * time.Millisecond,
		})
	}
	return rep
}

// TestCompareRuns tests the run diff itself.
func TestCompareRuns(t *testing.T) {
	t.Parallel()

	const root = "https://example.com/"

	meta := func(id int64, report *model.Report) database.RunSummary {
		return database.RunSummary{
			ID:        id,
			Root:      root,
			StartedAt: report.StartedAt,
			Total:     report.Total(),
			Broken:    report.BrokenCount(),
		}
	}

	t.Run("classifies newly broken, fixed, and still broken links", func(t *testing.T) {
		t.Parallel()

		previous := buildRunReport(root, []string{root + "c"}, []string{root + "a", root + "b"})
		current := buildRunReport(root, []string{root + "a"}, []string{root + "b", root + "c"})

		result := compareRuns(meta(1, previous), meta(2, current), previous, current)

		if len(result.NewlyBroken) != 1 || result.NewlyBroken[0].URL != root+"c" {
			t.Errorf("expected newly broken [%sc], got %+v", root, result.NewlyBroken)
		}
		if len(result.Fixed) != 1 || result.Fixed[0].URL != root+"a" {
			t.Errorf("expected fixed [%sa], got %+v", root, result.Fixed)
		}
		if len(result.StillBroken) != 1 || result.StillBroken[0].URL != root+"b" {
			t.Errorf("expected still broken [%sb], got %+v", root, result.StillBroken)
		}
		if result.Root != root {
			t.Errorf("expected root %q, got %q", root, result.Root)
		}
	})

	t.Run("direction improves when broken links drop", func(t *testing.T) {
		t.Parallel()

		previous := buildRunReport(root, nil, []string{root + "a", root + "b"})
		current := buildRunReport(root, []string{root + "a"}, []string{root + "b"})

		result := compareRuns(meta(1, previous), meta(2, current), previous, current)
		if result.Direction != healthImproved {
			t.Errorf("expected direction %q, got %q", healthImproved, result.Direction)
		}
	})

	t.Run("direction worsens when broken links grow", func(t *testing.T) {
		t.Parallel()

		previous := buildRunReport(root, []string{root + "a"}, []string{root + "b"})
		current := buildRunReport(root, nil, []string{root + "a", root + "b"})

		result := compareRuns(meta(1, previous), meta(2, current), previous, current)
		if result.Direction != healthWorsened {
			t.Errorf("expected direction %q, got %q", healthWorsened, result.Direction)
		}
	})

	t.Run("direction is unchanged for identical broken sets", func(t *testing.T) {
		t.Parallel()

		previous := buildRunReport(root, nil, []string{root + "a"})
		current := buildRunReport(root, nil, []string{root + "a"})

		result := compareRuns(meta(1, previous), meta(2, current), previous, current)
		if result.Direction != healthUnchanged {
			t.Errorf("expected direction %q, got %q", healthUnchanged, result.Direction)
		}
		if len(result.NewlyBroken) != 0 || len(result.Fixed) != 0 {
			t.Errorf("expected no changes, got %+v", result)
		}
	})

	t.Run("carries run metadata into the result", func(t *testing.T) {
		t.Parallel()

		previous := buildRunReport(root, []string{root + "a"}, nil)
		current := buildRunReport(root, []string{root + "a"}, []string{root + "b"})

		result := compareRuns(meta(4, previous), meta(9, current), previous, current)
		if result.PreviousRun.ID != 4 || result.CurrentRun.ID != 9 {
			t.Errorf("expected run IDs 4 and 9, got %d and %d", result.PreviousRun.ID, result.CurrentRun.ID)
		}
		if result.PreviousRun.Total != 1 || result.CurrentRun.Total != 2 {
			t.Errorf("expected totals 1 and 2, got %d and %d", result.PreviousRun.Total, result.CurrentRun.Total)
		}
		if result.CurrentRun.Broken != 1 {
			t.Errorf("expected 1 broken in current run, got %d", result.CurrentRun.Broken)
		}
	})
}

// TestListSavedRoots tests the --list output.
func TestListSavedRoots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("reports an empty database", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		var buf bytes.Buffer
		if err := listSavedRoots(ctx, &buf, db); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No saved runs found") {
			t.Errorf("expected empty-database message, got %q", buf.String())
		}
	})

	t.Run("lists every saved site", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		for _, root := range []string{"https://a.example/", "https://b.example/"} {
			if _, err := db.SaveReport(ctx, buildRunReport(root, []string{root + "x"}, nil)); err != nil {
				t.Fatalf("failed to save report: %v", err)
			}
		}

		var buf bytes.Buffer
		if err := listSavedRoots(ctx, &buf, db); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Sites with saved runs (2):") {
			t.Errorf("expected site count header, got %q", output)
		}
		if !strings.Contains(output, "https://a.example/") || !strings.Contains(output, "https://b.example/") {
			t.Errorf("expected both sites in output, got %q", output)
		}
	})
}

// TestListSavedRuns tests the --list-runs output.
func TestListSavedRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	const root = "https://example.com/"

	t.Run("reports a site without runs", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		var buf bytes.Buffer
		if err := listSavedRuns(ctx, &buf, db, root); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No saved runs found for "+root) {
			t.Errorf("expected no-runs message, got %q", buf.String())
		}
	})

	t.Run("lists runs with their broken counts", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := db.SaveReport(ctx, buildRunReport(root, []string{root + "a"}, nil)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if _, err := db.SaveReport(ctx, buildRunReport(root, nil, []string{root + "a"})); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		var buf bytes.Buffer
		if err := listSavedRuns(ctx, &buf, db, root); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Saved runs for "+root+" (2 runs):") {
			t.Errorf("expected run count header, got %q", output)
		}
		if !strings.Contains(output, "ID") || !strings.Contains(output, "Broken") {
			t.Errorf("expected table header, got %q", output)
		}
	})
}

// TestRunComparison tests comparison against saved history.
func TestRunComparison(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	const root = "https://example.com/"

	t.Run("diffs the latest two runs", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := db.SaveReport(ctx, buildRunReport(root, []string{root + "new"}, []string{root + "old"})); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if _, err := db.SaveReport(ctx, buildRunReport(root, nil, []string{root + "old", root + "new"})); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		var buf bytes.Buffer
		if err := runComparison(ctx, &buf, db, root, 0, "", false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Run Comparison: "+root) {
			t.Errorf("expected comparison header, got %q", output)
		}
		if !strings.Contains(output, "WORSENED") {
			t.Errorf("expected worsened direction, got %q", output)
		}
		if !strings.Contains(output, "Newly Broken (1):") || !strings.Contains(output, "[+] "+root+"new") {
			t.Errorf("expected newly broken section, got %q", output)
		}
		if !strings.Contains(output, "Still Broken (1):") || !strings.Contains(output, "[=] "+root+"old") {
			t.Errorf("expected still broken section, got %q", output)
		}
	})

	t.Run("reports a clean current run", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := db.SaveReport(ctx, buildRunReport(root, nil, []string{root + "a"})); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if _, err := db.SaveReport(ctx, buildRunReport(root, []string{root + "a"}, nil)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		var buf bytes.Buffer
		if err := runComparison(ctx, &buf, db, root, 0, "", false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "IMPROVED") {
			t.Errorf("expected improved direction, got %q", output)
		}
		if !strings.Contains(output, "Fixed (1):") || !strings.Contains(output, "[-] "+root+"a") {
			t.Errorf("expected fixed section, got %q", output)
		}
		if !strings.Contains(output, "No broken links in the current run.") {
			t.Errorf("expected clean-run message, got %q", output)
		}
	})

	t.Run("honors an explicit previous run ID", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		firstID, err := db.SaveReport(ctx, buildRunReport(root, nil, []string{root + "a"}))
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		for i := 0; i < 2; i++ {
			if _, err := db.SaveReport(ctx, buildRunReport(root, []string{root + "a"}, nil)); err != nil {
				t.Fatalf("failed to save report: %v", err)
			}
		}

		var buf bytes.Buffer
		if err := runComparison(ctx, &buf, db, root, firstID, "", false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Fixed (1):") {
			t.Errorf("expected diff against the first run, got %q", buf.String())
		}
	})

	t.Run("rejects a run ID from another site", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		otherID, err := db.SaveReport(ctx, buildRunReport("https://other.example/", []string{"https://other.example/x"}, nil))
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		for i := 0; i < 2; i++ {
			if _, err := db.SaveReport(ctx, buildRunReport(root, []string{root + "a"}, nil)); err != nil {
				t.Fatalf("failed to save report: %v", err)
			}
		}

		var buf bytes.Buffer
		err = runComparison(ctx, &buf, db, root, otherID, "", false)
		if err == nil {
			t.Fatal("expected error for foreign run ID")
		}
		if !strings.Contains(err.Error(), "not found for") {
			t.Errorf("expected 'not found for' error, got %v", err)
		}
	})

	t.Run("rejects comparing the latest run with itself", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := db.SaveReport(ctx, buildRunReport(root, []string{root + "a"}, nil)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		latestID, err := db.SaveReport(ctx, buildRunReport(root, []string{root + "a"}, nil))
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		var buf bytes.Buffer
		err = runComparison(ctx, &buf, db, root, latestID, "", false)
		if err == nil {
			t.Fatal("expected error for the latest run ID")
		}
		if !strings.Contains(err.Error(), "latest run") {
			t.Errorf("expected 'latest run' error, got %v", err)
		}
	})

	t.Run("requires at least two runs", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := db.SaveReport(ctx, buildRunReport(root, []string{root + "a"}, nil)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		var buf bytes.Buffer
		err = runComparison(ctx, &buf, db, root, 0, "", false)
		if err == nil {
			t.Fatal("expected error for a single run")
		}
		if !strings.Contains(err.Error(), "at least 2 saved runs") {
			t.Errorf("expected 'at least 2 saved runs' error, got %v", err)
		}
	})

	t.Run("errors for a site without history", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		var buf bytes.Buffer
		err = runComparison(ctx, &buf, db, root, 0, "", false)
		if err == nil {
			t.Fatal("expected error for missing history")
		}
		if !strings.Contains(err.Error(), "no saved runs found") {
			t.Errorf("expected 'no saved runs found' error, got %v", err)
		}
	})

	t.Run("selects the oldest run after the since date", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		starts := []time.Time{
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		}
		for i, start := range starts {
			rep := buildRunReport(root, []string{root + "a"}, nil)
			if i == 1 {
				rep = buildRunReport(root, nil, []string{root + "a"})
			}
			rep.StartedAt = start
			if _, err := db.SaveReport(ctx, rep); err != nil {
				t.Fatalf("failed to save report: %v", err)
			}
		}

		// The run from 2025-02-01 is the oldest at or after the date,
		// and the only one where the link was broken.
		var buf bytes.Buffer
		if err := runComparison(ctx, &buf, db, root, 0, "2025-01-15", false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Fixed (1):") {
			t.Errorf("expected diff against the February run, got %q", buf.String())
		}
	})

	t.Run("rejects a malformed since date", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		for i := 0; i < 2; i++ {
			if _, err := db.SaveReport(ctx, buildRunReport(root, []string{root + "a"}, nil)); err != nil {
				t.Fatalf("failed to save report: %v", err)
			}
		}

		var buf bytes.Buffer
		err = runComparison(ctx, &buf, db, root, 0, "01/02/2025", false)
		if err == nil {
			t.Fatal("expected error for malformed date")
		}
		if !strings.Contains(err.Error(), "invalid date format") {
			t.Errorf("expected 'invalid date format' error, got %v", err)
		}
	})

	t.Run("outputs JSON when requested", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := db.SaveReport(ctx, buildRunReport(root, []string{root + "a"}, nil)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if _, err := db.SaveReport(ctx, buildRunReport(root, nil, []string{root + "a"})); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		var buf bytes.Buffer
		if err := runComparison(ctx, &buf, db, root, 0, "", true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result ComparisonResult
		if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
			t.Fatalf("expected valid JSON, got error: %v", err)
		}
		if result.Root != root {
			t.Errorf("expected root %q, got %q", root, result.Root)
		}
		if result.Direction != healthWorsened {
			t.Errorf("expected direction %q, got %q", healthWorsened, result.Direction)
		}
		if len(result.NewlyBroken) != 1 {
			t.Errorf("expected 1 newly broken link, got %d", len(result.NewlyBroken))
		}
	})
}

// TestFormatHelpers tests the small comparison formatting helpers.
func TestFormatHelpers(t *testing.T) {
	t.Parallel()

	t.Run("formatDelta", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			delta int
			want  string
		}{
			{delta: 2, want: "+2"},
			{delta: -3, want: "-3"},
			{delta: 0, want: "0"},
		}
		for _, tt := range tests {
			if got := formatDelta(tt.delta); got != tt.want {
				t.Errorf("formatDelta(%d) = %q, want %q", tt.delta, got, tt.want)
			}
		}
	})

	t.Run("formatHealthDirection", func(t *testing.T) {
		t.Parallel()
		if got := formatHealthDirection(healthImproved); !strings.Contains(got, "IMPROVED") {
			t.Errorf("expected IMPROVED, got %q", got)
		}
		if got := formatHealthDirection(healthWorsened); !strings.Contains(got, "WORSENED") {
			t.Errorf("expected WORSENED, got %q", got)
		}
		if got := formatHealthDirection(healthUnchanged); got != "UNCHANGED" {
			t.Errorf("expected UNCHANGED, got %q", got)
		}
	})

	t.Run("formatLinkChange", func(t *testing.T) {
		t.Parallel()
		withErr := LinkChange{URL: "https://example.com/a", Error: "404 Not Found"}
		if got := formatLinkChange(withErr); got != "https://example.com/a (404 Not Found)" {
			t.Errorf("unexpected formatting: %q", got)
		}
		plain := LinkChange{URL: "https://example.com/b"}
		if got := formatLinkChange(plain); got != "https://example.com/b" {
			t.Errorf("unexpected formatting: %q", got)
		}
	})
}
