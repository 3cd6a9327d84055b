package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"threadcast/internal/batch"
	"threadcast/internal/logging"
	"threadcast/internal/notifications"
	"threadcast/internal/runlog"
	"threadcast/internal/script"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var flags scriptFlags
	var maxConcurrent int
	var force, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "batch <root>",
		Short: "Generate scripts for every thread directory under root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fileOpts, err := flags.fileOptions(cmd, ctx)
			if err != nil {
				return err
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			opts := batch.Options{
				Style:                 fileOpts.Style,
				TargetDurationSeconds: fileOpts.TargetDurationSeconds,
				ModelID:               fileOpts.ModelID,
				IncludeReplies:        fileOpts.IncludeReplies,
				Force:                 force,
				MaxConcurrent:         cfg.Batch.MaxConcurrent,
				InputFileName:         cfg.Batch.InputFile,
				OutputFileName:        cfg.Batch.OutputFile,
			}
			if cmd.Flags().Changed("max-concurrent") {
				opts.MaxConcurrent = maxConcurrent
			}

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			notifier := notifications.NewService(cfg)
			client, err := ctx.completionClient(cmd.Context())
			if err != nil {
				return err
			}

			store, err := runlog.Open(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := store.Close(); cerr != nil {
					logger.Warn("failed to close run ledger", logging.Error(cerr))
				}
			}()

			generator := script.NewGenerator(client,
				script.WithLogger(logging.NewComponentLogger(logger, "script")),
				script.WithTolerance(cfg.Script.DurationTolerance),
				script.WithBudget(cfg.Script.CharacterBudget),
			)
			orchestrator := batch.New(generator,
				batch.WithLogger(logging.NewComponentLogger(logger, "batch")),
				batch.WithRecorder(store),
				batch.WithNotifier(notifier),
			)

			result, runErr := orchestrator.Run(cmd.Context(), root, opts)
			if runErr != nil && result.RunID == "" {
				// Nothing ran; the root itself was unusable.
				if nerr := notifier.NotifyRunFailed(context.WithoutCancel(cmd.Context()), root, runErr); nerr != nil {
					logger.Warn("run failure notification failed", logging.Error(nerr))
				}
				return runErr
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(result); err != nil {
					return err
				}
			} else {
				printBatchSummary(cmd, result, opts)
			}
			// Per-job failures never change the exit status; cancellation does.
			return runErr
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", batch.DefaultMaxConcurrent, "Maximum concurrent provider calls; defaults to batch.max_concurrent")
	cmd.Flags().BoolVar(&force, "force", false, "Regenerate scripts even when output already exists")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run result as JSON")
	return cmd
}

func printBatchSummary(cmd *cobra.Command, result batch.Result, opts batch.Options) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	stats := result.Statistics

	fprintf(out, "%s\n", renderSectionHeader("Batch "+result.RunID, colorize))
	fprintf(out, "%s\n", renderStatusLine("Root", statusInfo, result.Root, colorize))
	fprintf(out, "%s\n", renderStatusLine("Style", statusInfo, styleLabel(opts.Style), colorize))

	kind := statusOK
	switch {
	case stats.Abandoned > 0:
		kind = statusWarn
	case stats.Failed > 0:
		kind = statusError
	}
	summary := fmt.Sprintf("%d generated, %d skipped, %d failed in %s",
		stats.Succeeded, stats.Skipped, stats.Failed, formatDuration(stats.TotalWallTime))
	if stats.Abandoned > 0 {
		summary += fmt.Sprintf(" (%d abandoned)", stats.Abandoned)
	}
	fprintf(out, "%s\n", renderStatusLine("Result", kind, summary, colorize))

	rows := make([][]string, 0, len(result.Jobs))
	for _, job := range result.Jobs {
		kind := "-"
		message := ""
		if job.Error != nil {
			kind = job.Error.Kind
			message = job.Error.Message
		}
		rows = append(rows, []string{
			relativeTo(result.Root, filepath.Dir(job.SourcePath)),
			string(job.Status),
			formatDuration(job.Duration()),
			kind,
			message,
		})
	}
	writeTable(out, []string{"Thread", "Status", "Took", "Error", "Detail"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft})
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
