package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"threadcast/internal/batch"
	"threadcast/internal/logging"
	"threadcast/internal/prompt"
	"threadcast/internal/script"
)

type scriptFlags struct {
	style          string
	duration       int
	model          string
	includeReplies bool
	noReplies      bool
}

func (f *scriptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.style, "style", "", "Script style ("+styleNames()+"); defaults to script.style")
	cmd.Flags().IntVar(&f.duration, "duration", 0, "Target duration in seconds; defaults to script.duration_seconds")
	cmd.Flags().StringVar(&f.model, "model", "", "Model identifier; defaults to the configured provider model")
	cmd.Flags().BoolVar(&f.includeReplies, "include-replies", true, "Include replies in the extracted content")
	cmd.Flags().BoolVar(&f.noReplies, "no-replies", false, "Exclude replies from the extracted content")
}

func (f *scriptFlags) fileOptions(cmd *cobra.Command, ctx *commandContext) (script.FileOptions, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return script.FileOptions{}, err
	}
	opts := script.FileOptions{
		Style:                 cfg.Script.Style,
		TargetDurationSeconds: cfg.Script.DurationSeconds,
		ModelID:               cfg.ActiveModel(),
		IncludeReplies:        cfg.Script.IncludeReplies,
	}
	if f.style != "" {
		opts.Style = f.style
	}
	if cmd.Flags().Changed("duration") {
		opts.TargetDurationSeconds = f.duration
	}
	if f.model != "" {
		opts.ModelID = f.model
	}
	if cmd.Flags().Changed("include-replies") {
		opts.IncludeReplies = f.includeReplies
	}
	if f.noReplies {
		opts.IncludeReplies = false
	}
	return opts, nil
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var flags scriptFlags
	var output string

	cmd := &cobra.Command{
		Use:   "generate <thread_text.json>",
		Short: "Generate a script for a single thread file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := flags.fileOptions(cmd, ctx)
			if err != nil {
				return err
			}
			input := args[0]
			if output == "" {
				output = filepath.Join(filepath.Dir(input), cfg.Batch.OutputFile)
			}

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			client, err := ctx.completionClient(cmd.Context())
			if err != nil {
				return err
			}
			generator := script.NewGenerator(client,
				script.WithLogger(logging.NewComponentLogger(logger, "script")),
				script.WithTolerance(cfg.Script.DurationTolerance),
				script.WithBudget(cfg.Script.CharacterBudget),
			)

			doc, err := generator.GenerateFile(cmd.Context(), input, output, opts)
			if err != nil {
				printErrorDetail(cmd, batch.NewErrorDetail(input, err))
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fprintf(out, "%s\n", renderSectionHeader(styleLabel(doc.Metadata.Style)+" script", colorize))
			kind := statusOK
			if doc.Degraded || len(doc.Metadata.Warnings) > 0 {
				kind = statusWarn
			}
			fprintf(out, "%s\n", renderStatusLine("Output", kind, output, colorize))
			fprintf(out, "%s\n", renderStatusLine("Duration", statusInfo, fmt.Sprintf("%.1fs (target %ds)", doc.Metadata.TotalDurationSeconds, opts.TargetDurationSeconds), colorize))
			fprintf(out, "%s\n", renderStatusLine("Degraded", statusInfo, yesNo(doc.Degraded), colorize))
			for _, warning := range doc.Metadata.Warnings {
				fprintf(out, "%s\n", renderStatusLine("Warning", statusWarn, warning, colorize))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (defaults to the configured output file next to the input)")
	return cmd
}

// printErrorDetail writes the classified failure to stderr as JSON.
func printErrorDetail(cmd *cobra.Command, detail *batch.ErrorDetail) {
	if detail == nil {
		return
	}
	data, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return
	}
	fprintf(cmd.ErrOrStderr(), "%s\n", data)
}

func styleNames() string {
	styles := prompt.Styles()
	names := make([]string, len(styles))
	for i, style := range styles {
		names[i] = style.String()
	}
	return strings.Join(names, ", ")
}
