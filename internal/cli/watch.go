package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/autoanalysis/internal/mq"
)

// NewWatchCmd создаёт команду watch: печать событий analysis.complete
// из RabbitMQ по мере завершения stages.
//
// Наблюдатель получает копии событий через временную очередь и не мешает
// основным потребителям analysis.complete.
func NewWatchCmd(outputFn func() *Output) *cobra.Command {
	var amqpURL string
	var pattern string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream analysis completion events from RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			conn, err := mq.NewConnection(amqpURL, logger)
			if err != nil {
				return fmt.Errorf("connect to rabbitmq: %w", err)
			}
			defer conn.Close()

			if err := mq.SetupTopology(ctx, conn); err != nil {
				return err
			}
			queue, err := mq.DeclareWatchQueue(ctx, conn, pattern)
			if err != nil {
				return err
			}

			consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
				Queue: queue,
				Handler: mq.AnalysisCompleteHandler(func(_ context.Context, p mq.AnalysisCompletePayload) error {
					out.Line(FormatCompletion(p), p)
					return nil
				}),
			})

			out.Success(fmt.Sprintf("Watching %s (pattern %q), press Ctrl+C to stop", mq.ExchangeEvents, pattern))

			err = consumer.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	defaultURL := os.Getenv("RABBITMQ_URL")
	if defaultURL == "" {
		defaultURL = mq.DefaultURL()
	}
	cmd.Flags().StringVar(&amqpURL, "amqp-url", defaultURL, "RabbitMQ URL (default from RABBITMQ_URL)")
	cmd.Flags().StringVar(&pattern, "pattern", "analysis.#", "Routing key pattern to watch")

	return cmd
}

// FormatCompletion форматирует событие завершения одной строкой.
func FormatCompletion(p mq.AnalysisCompletePayload) string {
	return fmt.Sprintf("%s  %s  %s  libraries=%d",
		p.CompletedAt.Local().Format(time.DateTime),
		p.RunID,
		p.OutputDir,
		p.Libraries,
	)
}
