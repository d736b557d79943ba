package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/notification"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

// newNotifyCmd создаёт команду notify: разовая отправка письма о завершении
// анализа для уже существующего output-каталога.
func newNotifyCmd(configPath, logLevel *string) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send the analysis-complete email for an output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := telemetry.SetupLogger(*logLevel)

			info, err := os.Stat(outputDir)
			if err != nil {
				return fmt.Errorf("analysis output dir: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("analysis output dir %s is not a directory", outputDir)
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			dispatcher := notification.NewEmailDispatcher(nil, logger)
			err = dispatcher.Notify(ctx, outputDir, cfg)
			if errors.Is(err, notification.ErrNotConfigured) {
				return fmt.Errorf("notification.email_url is not set in %s", *configPath)
			}
			if err != nil {
				return err
			}

			logger.Info("notification sent", "event_type", telemetry.EventNotificationSent, "analysis_output_dir", outputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "analysis-outdir", "", "Analysis output directory to report on")
	cmd.MarkFlagRequired("analysis-outdir")

	return cmd
}
