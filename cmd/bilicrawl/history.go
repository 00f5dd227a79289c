package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/bilicrawl/internal/config"
	"github.com/nao1215/bilicrawl/internal/database"
	"github.com/nao1215/bilicrawl/internal/export"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// errNoHistory is returned when the history database has not been created.
var errNoHistory = errors.New("no crawl history found (run 'bilicrawl crawl' first)")

// historyTimeFormat is used for run timestamps in listings.
const historyTimeFormat = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [keyword]",
		Short: "List recorded crawl runs",
		Long: `History lists the crawl runs stored in the local history database,
newest first. With a keyword only the runs for that keyword are shown.

Examples:
  # List every run
  bilicrawl history

  # List the runs for one keyword
  bilicrawl history "石宇奇 比赛 录像"

  # List the keywords that have been crawled
  bilicrawl history --keywords

  # Print the records of run 12 as CSV
  bilicrawl history --run 12

  # Delete run 12
  bilicrawl history --delete 12`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("keywords", "K", false,
		"List the crawled keywords instead of runs")
	cmd.Flags().Int64P("run", "r", 0,
		"Print the records of the run with this ID")
	cmd.Flags().Int64("delete", 0,
		"Delete the run with this ID")
	cmd.Flags().StringP("format", "f", string(export.FormatCSV),
		"Record format for --run (csv, json, markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the run list as a Markdown table")

	return cmd
}

// historyOptions are the parsed flags of the history command.
type historyOptions struct {
	keyword  string
	keywords bool
	runID    int64
	deleteID int64
	format   export.Format
	markdown bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	var opts historyOptions
	var err error

	if len(args) > 0 {
		opts.keyword = args[0]
	}
	if opts.keywords, err = cmd.Flags().GetBool("keywords"); err != nil {
		return err
	}
	if opts.runID, err = cmd.Flags().GetInt64("run"); err != nil {
		return err
	}
	if opts.deleteID, err = cmd.Flags().GetInt64("delete"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if opts.format, err = export.ParseFormat(format); err != nil {
		return err
	}

	return runHistory(context.Background(), config.XDGDataDir(), opts, cmd.OutOrStdout())
}

// openHistory opens an existing history database without creating it.
func openHistory(dbDir string) (*database.CrawlDB, error) {
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if errors.Is(err, database.ErrNotFound) {
		return nil, errNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// runHistory performs the history operation selected by opts.
func runHistory(ctx context.Context, dbDir string, opts historyOptions, out io.Writer) error {
	db, err := openHistory(dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	switch {
	case opts.keywords:
		return listKeywords(ctx, db, out)
	case opts.deleteID > 0:
		return deleteRun(ctx, db, opts.deleteID, out)
	case opts.runID > 0:
		return printRunRecords(ctx, db, opts.runID, opts.format, out)
	default:
		return listRuns(ctx, db, opts.keyword, opts.markdown, out)
	}
}

// listKeywords prints every keyword that has runs.
func listKeywords(ctx context.Context, db *database.CrawlDB, out io.Writer) error {
	keywords, err := db.ListKeywords(ctx)
	if err != nil {
		return err
	}

	if len(keywords) == 0 {
		fmt.Fprintln(out, "No crawled keywords found in the database.")
		return nil
	}

	fmt.Fprintf(out, "Crawled keywords (%d):\n\n", len(keywords))
	for _, kw := range keywords {
		fmt.Fprintf(out, "  • %s\n", kw)
	}
	fmt.Fprintln(out, "\nUse 'bilicrawl history <keyword>' to see the runs for a keyword.")
	return nil
}

// listRuns prints the runs for keyword, or all runs when it is empty.
func listRuns(ctx context.Context, db *database.CrawlDB, keyword string, asMarkdown bool, out io.Writer) error {
	runs, err := db.ListRuns(ctx, keyword)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		if keyword != "" {
			fmt.Fprintf(out, "No runs found for %q\n", keyword)
		} else {
			fmt.Fprintln(out, "No runs found in the database.")
		}
		return nil
	}

	if asMarkdown {
		return writeRunsMarkdown(out, runs)
	}

	fmt.Fprintf(out, "Crawl history (%d runs):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-19s  %-9s  %5s  %7s  %s\n", "ID", "Started", "Stopped", "Pages", "Records", "Keyword")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 72))
	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-19s  %-9s  %5d  %7d  %s\n",
			run.ID,
			run.StartedAt.Local().Format(historyTimeFormat),
			run.StopReason,
			run.PagesFetched,
			run.RecordCount,
			run.Keyword,
		)
		if run.Error != "" {
			fmt.Fprintf(out, "          error: %s\n", run.Error)
		}
	}

	fmt.Fprintln(out, "\nUse 'bilicrawl compare <keyword>' to compare the latest two runs.")
	return nil
}

// writeRunsMarkdown prints runs as a Markdown table.
func writeRunsMarkdown(out io.Writer, runs []*database.Run) error {
	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			strconv.FormatInt(run.ID, 10),
			run.StartedAt.Local().Format(historyTimeFormat),
			run.Keyword,
			run.StopReason.String(),
			strconv.Itoa(run.PagesFetched),
			strconv.Itoa(run.ItemsSeen),
			strconv.Itoa(run.RecordCount),
		}
	}

	md := markdown.NewMarkdown(out)
	md.H1("Crawl History")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Keyword", "Stopped", "Pages", "Seen", "Records"},
		Rows:   rows,
	})
	return md.Build()
}

// printRunRecords writes the records of one run in format.
func printRunRecords(ctx context.Context, db *database.CrawlDB, id int64, format export.Format, out io.Writer) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run with ID %d not found", id)
	}

	records, err := db.GetRunRecords(ctx, id)
	if err != nil {
		return err
	}

	w, err := export.NewWriter(format, out)
	if err != nil {
		return err
	}
	_, err = w.Write(records)
	return err
}

// deleteRun removes one run.
func deleteRun(ctx context.Context, db *database.CrawlDB, id int64, out io.Writer) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run with ID %d not found", id)
	}

	if err := db.DeleteRun(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted run %d (%s, %d records)\n", id, run.Keyword, run.RecordCount)
	return nil
}
