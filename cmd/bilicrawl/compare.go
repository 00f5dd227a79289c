package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/bilicrawl/internal/config"
	"github.com/nao1215/bilicrawl/internal/database"
	"github.com/nao1215/bilicrawl/internal/model"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <keyword>",
		Short: "Compare the latest two runs for a keyword",
		Long: `Compare shows how the results for a keyword changed between two runs
stored in the history database:
- Videos that appeared since the previous run
- Videos that are no longer returned
- Videos whose fields changed (play count, title, tags, ...)

Examples:
  # Compare the latest two runs
  bilicrawl compare "石宇奇 比赛 录像"

  # Compare the latest run with run 3
  bilicrawl compare --with-run-id 3 "石宇奇 比赛 录像"

  # Output Markdown
  bilicrawl compare --markdown "石宇奇 比赛 录像"`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare the latest run with the run with this ID (see 'bilicrawl history')")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingOutputFormats
	}

	db, err := openHistory(config.XDGDataDir())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	result, err := compareLatest(ctx, db, args[0], withRunID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return outputComparisonJSON(out, result)
	case markdownOutput:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// ComparisonResult holds the result of comparing two runs.
type ComparisonResult struct {
	Keyword  string        `json:"keyword"`
	Previous *database.Run `json:"previous_run"`
	Current  *database.Run `json:"current_run"`

	HasChanges bool                 `json:"has_changes"`
	Added      []model.SearchRecord `json:"added"`
	Removed    []model.SearchRecord `json:"removed"`
	Changed    []ChangedRecord      `json:"changed"`
	Unchanged  int                  `json:"unchanged_count"`
}

// ChangedRecord is a video present in both runs with different fields.
type ChangedRecord struct {
	Key     string             `json:"key"`
	Columns []string           `json:"columns"`
	Old     model.SearchRecord `json:"old"`
	New     model.SearchRecord `json:"new"`
}

// compareLatest compares the newest run for keyword with the run before it,
// or with run withRunID when it is positive.
func compareLatest(ctx context.Context, db *database.CrawlDB, keyword string, withRunID int64) (*ComparisonResult, error) {
	runs, err := db.LatestRuns(ctx, keyword, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs found for %q", keyword)
	}

	current := runs[0]
	var previous *database.Run

	if withRunID > 0 {
		previous, err = db.GetRun(ctx, withRunID)
		if err != nil {
			return nil, err
		}
		if previous == nil {
			return nil, fmt.Errorf("run with ID %d not found", withRunID)
		}
		if previous.Keyword != keyword {
			return nil, fmt.Errorf("run %d belongs to %q, not %q", withRunID, previous.Keyword, keyword)
		}
		if previous.ID == current.ID {
			return nil, errors.New("cannot compare a run with itself")
		}
	} else {
		if len(runs) < 2 {
			return nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
		}
		previous = runs[1]
	}

	oldRecords, err := db.GetRunRecords(ctx, previous.ID)
	if err != nil {
		return nil, err
	}
	newRecords, err := db.GetRunRecords(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	diff := database.CompareRuns(oldRecords, newRecords)

	result := &ComparisonResult{
		Keyword:    keyword,
		Previous:   previous,
		Current:    current,
		HasChanges: diff.HasChanges(),
		Added:      diff.Added,
		Removed:    diff.Removed,
		Changed:    make([]ChangedRecord, 0, len(diff.Changed)),
		Unchanged:  diff.Unchanged,
	}
	for _, c := range diff.Changed {
		result.Changed = append(result.Changed, ChangedRecord{
			Key:     c.Key,
			Columns: c.ChangedColumns(),
			Old:     c.Old,
			New:     c.New,
		})
	}

	return result, nil
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Run Comparison: " + result.Keyword)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run ID", strconv.FormatInt(result.Previous.ID, 10), strconv.FormatInt(result.Current.ID, 10), "-"},
			{"Started", result.Previous.StartedAt.Local().Format("2006-01-02 15:04"), result.Current.StartedAt.Local().Format("2006-01-02 15:04"), "-"},
			{"Pages", strconv.Itoa(result.Previous.PagesFetched), strconv.Itoa(result.Current.PagesFetched),
				formatDelta(result.Current.PagesFetched - result.Previous.PagesFetched)},
			{"Records", strconv.Itoa(result.Previous.RecordCount), strconv.Itoa(result.Current.RecordCount),
				formatDelta(result.Current.RecordCount - result.Previous.RecordCount)},
		},
	})
	md.PlainText("")

	if !result.HasChanges {
		md.PlainTextf("No changes since run #%d.", result.Previous.ID)
	}

	if len(result.Added) > 0 {
		md.H2(fmt.Sprintf("New Videos (%d)", len(result.Added)))
		md.PlainText("")
		md.BulletList(recordLines(result.Added)...)
		md.PlainText("")
	}

	if len(result.Removed) > 0 {
		md.H2(fmt.Sprintf("Removed Videos (%d)", len(result.Removed)))
		md.PlainText("")
		md.BulletList(recordLines(result.Removed)...)
		md.PlainText("")
	}

	if len(result.Changed) > 0 {
		md.H2(fmt.Sprintf("Changed Videos (%d)", len(result.Changed)))
		md.PlainText("")
		rows := make([][]string, len(result.Changed))
		for i, c := range result.Changed {
			rows[i] = []string{c.Key, c.New.Title, strings.Join(c.Columns, ", ")}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Video", "Title", "Changed"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if result.Unchanged > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d videos unchanged*", result.Unchanged)
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Run Comparison: %s\n", result.Keyword)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nPrevious run: #%d  %s  (%d records)\n",
		result.Previous.ID, result.Previous.StartedAt.Local().Format(historyTimeFormat), result.Previous.RecordCount)
	fmt.Fprintf(out, "Current run:  #%d  %s  (%d records, %s)\n",
		result.Current.ID, result.Current.StartedAt.Local().Format(historyTimeFormat), result.Current.RecordCount,
		formatDelta(result.Current.RecordCount-result.Previous.RecordCount))

	if !result.HasChanges {
		fmt.Fprintf(out, "\nNo changes since run #%d (%d videos).\n", result.Previous.ID, result.Unchanged)
		return nil
	}

	if len(result.Added) > 0 {
		fmt.Fprintf(out, "\nNew Videos (%d):\n", len(result.Added))
		for _, line := range recordLines(result.Added) {
			fmt.Fprintf(out, "  [+] %s\n", line)
		}
	}

	if len(result.Removed) > 0 {
		fmt.Fprintf(out, "\nRemoved Videos (%d):\n", len(result.Removed))
		for _, line := range recordLines(result.Removed) {
			fmt.Fprintf(out, "  [-] %s\n", line)
		}
	}

	if len(result.Changed) > 0 {
		fmt.Fprintf(out, "\nChanged Videos (%d):\n", len(result.Changed))
		for _, c := range result.Changed {
			fmt.Fprintf(out, "  [~] %s %s (%s)\n", c.Key, c.New.Title, strings.Join(c.Columns, ", "))
		}
	}

	if result.Unchanged > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d videos\n", result.Unchanged)
	}

	return nil
}

// recordLines formats records as "key title (author)" lines.
func recordLines(records []model.SearchRecord) []string {
	lines := make([]string, len(records))
	for i, r := range records {
		line := r.DedupeKey() + " " + r.Title
		if r.Author != "" {
			line += " (" + r.Author + ")"
		}
		lines[i] = line
	}
	return lines
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
