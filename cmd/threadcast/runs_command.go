package main

import (
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"threadcast/internal/runlog"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recorded batch runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runlog.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if runID != "" {
				run, err := store.Run(cmd.Context(), runID)
				if err != nil {
					return err
				}
				jobs, err := store.JobsForRun(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				writeTable(out, runHeaders, [][]string{runRow(run)}, runAligns)
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					kind := job.ErrorKind
					if kind == "" {
						kind = "-"
					}
					rows = append(rows, []string{
						relativeTo(run.Root, filepath.Dir(job.SourcePath)),
						string(job.Status),
						formatTimestamp(job.UpdatedAt),
						kind,
						job.ErrorMessage,
					})
				}
				writeTable(out, []string{"Thread", "Status", "Updated", "Error", "Detail"}, rows, nil)
				return nil
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fprintf(out, "No runs recorded in %s\n", store.Path())
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, runRow(run))
			}
			writeTable(out, runHeaders, rows, runAligns)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show the jobs of a single run")
	return cmd
}

var (
	runHeaders = []string{"Run", "Started", "Root", "Style", "Jobs", "OK", "Skipped", "Failed", "Abandoned", "Wall"}
	runAligns  = []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}
)

func runRow(run runlog.Run) []string {
	wall := formatDuration(run.WallTime)
	if !run.Finished() {
		wall = "running"
	}
	return []string{
		run.ID,
		formatTimestamp(run.StartedAt),
		run.Root,
		run.Style,
		strconv.Itoa(run.JobCount),
		strconv.Itoa(run.Succeeded),
		strconv.Itoa(run.Skipped),
		strconv.Itoa(run.Failed),
		strconv.Itoa(run.Abandoned),
		wall,
	}
}
