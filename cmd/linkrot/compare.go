package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/linkrot/internal/config"
	"github.com/nao1215/linkrot/internal/database"
	"github.com/nao1215/linkrot/internal/model"
	"github.com/spf13/cobra"
)

// Constants for the link health direction between two runs.
const (
	healthWorsened  = "worsened"
	healthImproved  = "improved"
	healthUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
// This command compares crawl runs saved in the history database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [seed-url]",
		Short: "Compare saved runs and show how link health changed",
		Long: `Compare displays differences between the latest two saved runs of a site.

This command reads runs persisted with 'linkrot check --save' and shows:
- Newly broken links that still answered in the previous run
- Fixed links that answer again
- Links broken in both runs

The comparison requires at least two saved runs for the seed URL.

Examples:
  # Compare the latest two runs of a site
  linkrot compare https://example.com/

  # List the saved runs of a site
  linkrot compare --list-runs https://example.com/

  # Compare the latest run with a specific earlier run by ID
  linkrot compare --with-run-id 5 https://example.com/

  # Compare the latest run with the first run since a date
  linkrot compare --since "2025-01-01" https://example.com/

  # Output comparison in JSON format
  linkrot compare --json https://example.com/

  # List all sites with saved runs
  linkrot compare --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list-runs", "l", false,
		"List the saved runs for the seed URL")
	cmd.Flags().BoolP("list", "L", false,
		"List all sites with saved runs in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use --list-runs to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	// Handle --list first (requires database but no seed URL)
	listRoots, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database (unless --list).
	// This prevents database lock issues when validation fails.
	var root string
	if !listRoots {
		if len(args) == 0 {
			return errors.New("seed URL is required (use --list to see saved sites)")
		}

		root, err = normalizeSeed(args[0])
		if err != nil {
			return fmt.Errorf("invalid seed URL %q: %w", args[0], err)
		}
	}

	// The history database always lives in the XDG data directory.
	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if listRoots {
		return listSavedRoots(ctx, out, db)
	}

	listRuns, err := cmd.Flags().GetBool("list-runs")
	if err != nil {
		return err
	}
	if listRuns {
		return listSavedRuns(ctx, out, db, root)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	return runComparison(ctx, out, db, root, withRunID, sinceDate, jsonOutput)
}

// listSavedRoots lists all sites that have saved runs in the database.
func listSavedRoots(ctx context.Context, w io.Writer, db *database.HistoryDB) error {
	roots, err := db.ListRoots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if len(roots) == 0 {
		fmt.Fprintln(w, "No saved runs found in the database.")
		fmt.Fprintln(w, "\nUse 'linkrot check --save <url>' to save a run.")
		return nil
	}

	fmt.Fprintf(w, "Sites with saved runs (%d):\n\n", len(roots))
	for _, root := range roots {
		fmt.Fprintf(w, "  • %s\n", root)
	}
	fmt.Fprintln(w, "\nUse 'linkrot compare --list-runs <url>' to see the runs for a site.")

	return nil
}

// listSavedRuns lists all saved runs for a specific seed URL.
func listSavedRuns(ctx context.Context, w io.Writer, db *database.HistoryDB, root string) error {
	runs, err := db.ListRuns(ctx, root)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(w, "No saved runs found for %s\n", root)
		fmt.Fprintln(w, "\nUse 'linkrot check --save' to save a run for this site.")
		return nil
	}

	fmt.Fprintf(w, "Saved runs for %s (%d runs):\n\n", root, len(runs))
	fmt.Fprintf(w, "  %-6s  %-20s  %-8s  %s\n", "ID", "Date", "Checked", "Broken")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 48))

	for _, run := range runs {
		fmt.Fprintf(w, "  %-6d  %-20s  %-8d  %d\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Total,
			run.Broken,
		)
	}

	fmt.Fprintln(w, "\nUse 'linkrot compare <url>' to compare the latest two runs.")
	fmt.Fprintln(w, "Use 'linkrot compare --with-run-id <id> <url>' to compare with a specific run.")

	return nil
}

// runComparison performs the actual comparison between saved runs.
func runComparison(ctx context.Context, w io.Writer, db *database.HistoryDB, root string, withRunID int64, sinceDate string, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, root)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		return fmt.Errorf("no saved runs found for %s", root)
	}

	if len(runs) < 2 && withRunID == 0 && sinceDate == "" {
		return fmt.Errorf("at least 2 saved runs are required for comparison (found %d)", len(runs))
	}

	// The latest run is always the current one.
	currentMeta := runs[0]

	var previousMeta database.RunSummary
	switch {
	case withRunID > 0:
		if withRunID == currentMeta.ID {
			return fmt.Errorf("run %d is the latest run; pick an earlier one", withRunID)
		}
		found := false
		for _, run := range runs {
			if run.ID == withRunID {
				previousMeta = run
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("run %d not found for %s (use --list-runs to see available IDs)", withRunID, root)
		}
	case sinceDate != "":
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Runs are sorted newest first; walk backwards to find the
		// oldest run at or after the date.
		found := false
		for i := len(runs) - 1; i >= 0; i-- {
			if !runs[i].StartedAt.Before(parsedDate) {
				previousMeta = runs[i]
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no runs found since %s", sinceDate)
		}
		if previousMeta.ID == currentMeta.ID {
			return fmt.Errorf("only one run found since %s; at least 2 runs are required for comparison", sinceDate)
		}
	default:
		previousMeta = runs[1]
	}

	current, err := db.GetRun(ctx, currentMeta.ID)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", currentMeta.ID, err)
	}
	previous, err := db.GetRun(ctx, previousMeta.ID)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", previousMeta.ID, err)
	}

	comparison := compareRuns(previousMeta, currentMeta, previous, current)

	if jsonOutput {
		return outputComparisonJSON(w, comparison)
	}
	return outputComparisonText(w, comparison)
}

// ComparisonResult holds the result of comparing two saved runs.
type ComparisonResult struct {
	// Root is the seed URL the runs belong to.
	Root string `json:"root"`

	// Direction is "improved", "worsened", or "unchanged", based on
	// the broken link count.
	Direction string `json:"direction"`

	// PreviousRun summarizes the older run.
	PreviousRun RunInfo `json:"previous_run"`

	// CurrentRun summarizes the newer run.
	CurrentRun RunInfo `json:"current_run"`

	// NewlyBroken lists links that answered in the previous run but
	// are broken in the current one.
	NewlyBroken []LinkChange `json:"newly_broken,omitempty"`

	// Fixed lists links that were broken in the previous run and are
	// not broken now. Each entry carries the failure it recovered from.
	Fixed []LinkChange `json:"fixed,omitempty"`

	// StillBroken lists links broken in both runs.
	StillBroken []LinkChange `json:"still_broken,omitempty"`
}

// RunInfo summarizes one saved run for comparison display.
type RunInfo struct {
	// ID is the database ID of the run.
	ID int64 `json:"id"`

	// StartedAt is when the crawl started.
	StartedAt time.Time `json:"started_at"`

	// Total is the number of links checked.
	Total int `json:"total"`

	// Broken is the number of broken links.
	Broken int `json:"broken"`
}

// LinkChange describes one link whose health differs between runs.
type LinkChange struct {
	// URL is the checked link.
	URL string `json:"url"`

	// StatusCode is the HTTP status of the failure.
	StatusCode int `json:"status_code"`

	// Error is the failure description, empty for healthy links.
	Error string `json:"error,omitempty"`
}

// compareRuns diffs the broken link sets of two runs.
func compareRuns(previousMeta, currentMeta database.RunSummary, previous, current *model.Report) *ComparisonResult {
	result := &ComparisonResult{
		Root:        previousMeta.Root,
		PreviousRun: newRunInfo(previousMeta),
		CurrentRun:  newRunInfo(currentMeta),
	}

	previousBroken := brokenURLs(previous)
	currentBroken := brokenURLs(current)

	// Walk the stored failure lists instead of the lookup maps so the
	// output order is stable.
	for _, res := range current.Failures {
		change := newLinkChange(res)
		if _, wasBroken := previousBroken[res.Target.URL]; wasBroken {
			result.StillBroken = append(result.StillBroken, change)
		} else {
			result.NewlyBroken = append(result.NewlyBroken, change)
		}
	}
	for _, res := range previous.Failures {
		if _, isBroken := currentBroken[res.Target.URL]; !isBroken {
			result.Fixed = append(result.Fixed, newLinkChange(res))
		}
	}

	switch {
	case result.CurrentRun.Broken < result.PreviousRun.Broken:
		result.Direction = healthImproved
	case result.CurrentRun.Broken > result.PreviousRun.Broken:
		result.Direction = healthWorsened
	default:
		result.Direction = healthUnchanged
	}

	return result
}

// newRunInfo converts a run summary into its display form.
func newRunInfo(meta database.RunSummary) RunInfo {
	return RunInfo{
		ID:        meta.ID,
		StartedAt: meta.StartedAt,
		Total:     meta.Total,
		Broken:    meta.Broken,
	}
}

// newLinkChange converts a stored failure into its display form.
func newLinkChange(res *model.FetchResult) LinkChange {
	return LinkChange{
		URL:        res.Target.URL,
		StatusCode: res.StatusCode,
		Error:      res.ErrorMessage(),
	}
}

// brokenURLs builds a lookup of the broken link URLs in a report.
func brokenURLs(report *model.Report) map[string]struct{} {
	urls := make(map[string]struct{}, len(report.Failures))
	for _, res := range report.Failures {
		urls[res.Target.URL] = struct{}{}
	}
	return urls
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(w io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(w io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(w, "Run Comparison: %s\n", result.Root)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nLink Health: %s\n", formatHealthDirection(result.Direction))

	fmt.Fprintf(w, "\nPrevious run: #%-5d %s\n",
		result.PreviousRun.ID, result.PreviousRun.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Current run:  #%-5d %s\n",
		result.CurrentRun.ID, result.CurrentRun.StartedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w, "\nLink Summary:")
	fmt.Fprintf(w, "  %-10s  %-10s  %-10s  %-10s\n", "", "Previous", "Current", "Change")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 45))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Checked",
		result.PreviousRun.Total, result.CurrentRun.Total,
		formatDelta(result.CurrentRun.Total-result.PreviousRun.Total))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Broken",
		result.PreviousRun.Broken, result.CurrentRun.Broken,
		formatDelta(result.CurrentRun.Broken-result.PreviousRun.Broken))

	if len(result.NewlyBroken) > 0 {
		fmt.Fprintf(w, "\nNewly Broken (%d):\n", len(result.NewlyBroken))
		for _, link := range result.NewlyBroken {
			fmt.Fprintf(w, "  [+] %s\n", formatLinkChange(link))
		}
	}

	if len(result.Fixed) > 0 {
		fmt.Fprintf(w, "\nFixed (%d):\n", len(result.Fixed))
		for _, link := range result.Fixed {
			fmt.Fprintf(w, "  [-] %s\n", link.URL)
		}
	}

	if len(result.StillBroken) > 0 {
		fmt.Fprintf(w, "\nStill Broken (%d):\n", len(result.StillBroken))
		for _, link := range result.StillBroken {
			fmt.Fprintf(w, "  [=] %s\n", formatLinkChange(link))
		}
	}

	if len(result.NewlyBroken) == 0 && len(result.StillBroken) == 0 {
		fmt.Fprintln(w, "\nNo broken links in the current run.")
	}

	return nil
}

// formatHealthDirection formats the link health direction for display.
func formatHealthDirection(direction string) string {
	switch direction {
	case healthImproved:
		return "IMPROVED (fewer broken links)"
	case healthWorsened:
		return "WORSENED (more broken links)"
	default:
		return "UNCHANGED"
	}
}

// formatLinkChange renders a link with its failure, if it has one.
func formatLinkChange(link LinkChange) string {
	if link.Error != "" {
		return fmt.Sprintf("%s (%s)", link.URL, link.Error)
	}
	return link.URL
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
