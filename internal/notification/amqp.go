package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/mq"
)

// CompletionPublisher публикует событие analysis.complete.
// Реализуется *mq.Publisher.
type CompletionPublisher interface {
	PublishAnalysisComplete(ctx context.Context, payload mq.AnalysisCompletePayload) error
}

// AMQPDispatcher публикует завершение анализа в RabbitMQ.
type AMQPDispatcher struct {
	publisher CompletionPublisher
	now       func() time.Time
}

// NewAMQPDispatcher создаёт AMQPDispatcher.
// Если publisher nil, Notify возвращает ErrNotConfigured.
func NewAMQPDispatcher(publisher CompletionPublisher) *AMQPDispatcher {
	return &AMQPDispatcher{publisher: publisher, now: time.Now}
}

// Notify реализует Dispatcher.
func (d *AMQPDispatcher) Notify(ctx context.Context, outputDir string, _ *config.Config) error {
	if d == nil || d.publisher == nil {
		return ErrNotConfigured
	}

	data, err := CollectEmailData(outputDir)
	if err != nil {
		return fmt.Errorf("collect analysis data: %w", err)
	}

	payload := mq.AnalysisCompletePayload{
		RunID:       data.RunID,
		OutputDir:   data.OutputDir,
		Libraries:   len(data.Libraries),
		CompletedAt: d.now().UTC(),
	}
	if err := d.publisher.PublishAnalysisComplete(ctx, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}
