package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"threadcast/internal/notifications"
	"threadcast/internal/services/llm"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the configured completion provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			label := fmt.Sprintf("%s (%s)", cfg.LLM.Provider, cfg.ActiveModel())

			client, err := ctx.completionClient(cmd.Context())
			if err != nil {
				fprintf(out, "%s\n", renderStatusLine(label, statusError, err.Error(), colorize))
				return err
			}
			checker, ok := client.(llm.HealthChecker)
			if !ok {
				fprintf(out, "%s\n", renderStatusLine(label, statusWarn, "provider does not support health checks", colorize))
				return nil
			}
			started := time.Now()
			if err := checker.HealthCheck(cmd.Context()); err != nil {
				fprintf(out, "%s\n", renderStatusLine(label, statusError, err.Error(), colorize))
				return err
			}
			fprintf(out, "%s\n", renderStatusLine(label, statusOK, formatDuration(time.Since(started)), colorize))
			return nil
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if cfg.Notifications.NtfyTopic == "" {
				fprintf(out, "%s\n", renderStatusLine("ntfy", statusWarn, "notifications.ntfy_topic is not set", colorize))
				return nil
			}
			if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
				fprintf(out, "%s\n", renderStatusLine("ntfy", statusError, err.Error(), colorize))
				return err
			}
			fprintf(out, "%s\n", renderStatusLine("ntfy", statusOK, "test notification sent", colorize))
			return nil
		},
	}
}
