package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"chapterize/internal/batch"
	"chapterize/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded batch runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, runViews(runs))
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No batch runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.StartedAt.Local().Format("2006-01-02 15:04"),
						run.Folder,
						run.Mode,
						strconv.Itoa(run.Succeeded),
						strconv.Itoa(run.Skipped),
						strconv.Itoa(run.Failed),
						runStatus(run),
					})
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					headers:   []string{"ID", "Started", "Folder", "Mode", "OK", "Skipped", "Failed", "Status"},
					aligns:    []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
					maxWidths: []int{0, 0, 50, 0, 0, 0, 0, 40},
				}, rows))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the files of one batch run",
		Long:  "Show the files of one batch run. The id may be shortened to any unique prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if errors.Is(err, history.ErrNotFound) {
					return fmt.Errorf("no batch run matches %q", args[0])
				}
				if err != nil {
					return err
				}
				items, err := store.Items(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, struct {
						Run   runView    `json:"run"`
						Items []itemView `json:"items"`
					}{newRunView(run), itemViews(items)})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:      %s\n", run.ID)
				fmt.Fprintf(out, "Folder:   %s\n", run.Folder)
				fmt.Fprintf(out, "Mode:     %s\n", run.Mode)
				fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
				if run.Finished() {
					fmt.Fprintf(out, "Finished: %s\n", run.FinishedAt.Local().Format(time.DateTime))
				}
				fmt.Fprintf(out, "Status:   %s\n", runStatus(run))
				if len(items) == 0 {
					fmt.Fprintln(out, "No files recorded")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.Itoa(item.Position + 1),
						item.FileName,
						itemOutcome(item),
						strconv.Itoa(item.Chapters),
					})
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					headers:   []string{"#", "File", "Outcome", "Chapters"},
					aligns:    []columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
					maxWidths: []int{0, 40, 60, 0},
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete batch runs older than a number of days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return errors.New("--older-than must be positive")
			}
			return withHistory(ctx, func(store *history.Store) error {
				cutoff := time.Now().AddDate(0, 0, -days)
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", pluralize(int(removed), "run", "runs"))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "older-than", 90, "Age in days")
	return cmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.HistoryPath()); errors.Is(err, os.ErrNotExist) && !cfg.History.Enabled {
		return errors.New("run history is disabled (history.enabled = false)")
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func runStatus(run history.Run) string {
	switch {
	case run.ErrorMessage != "":
		return "error: " + run.ErrorMessage
	case run.Finished():
		return "finished"
	default:
		return "incomplete"
	}
}

func itemOutcome(item history.Item) string {
	return batch.Outcome{Kind: batch.OutcomeKind(item.Outcome), Reason: item.Reason}.String()
}

type runView struct {
	ID         string     `json:"id"`
	Folder     string     `json:"folder"`
	Mode       string     `json:"mode"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Total      int        `json:"total"`
	Succeeded  int        `json:"succeeded"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`
}

func newRunView(run history.Run) runView {
	view := runView{
		ID:        run.ID,
		Folder:    run.Folder,
		Mode:      run.Mode,
		StartedAt: run.StartedAt,
		Total:     run.Total,
		Succeeded: run.Succeeded,
		Skipped:   run.Skipped,
		Failed:    run.Failed,
		Error:     run.ErrorMessage,
	}
	if run.Finished() {
		finished := run.FinishedAt
		view.FinishedAt = &finished
	}
	return view
}

func runViews(runs []history.Run) []runView {
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, newRunView(run))
	}
	return views
}

type itemView struct {
	Position   int    `json:"position"`
	FileName   string `json:"file"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
	Chapters   int    `json:"chapters"`
}

func itemViews(items []history.Item) []itemView {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, itemView{
			Position:   item.Position + 1,
			FileName:   item.FileName,
			Outcome:    item.Outcome,
			Reason:     item.Reason,
			ErrorKind:  item.ErrorKind,
			OutputPath: item.OutputPath,
			Chapters:   item.Chapters,
		})
	}
	return views
}
