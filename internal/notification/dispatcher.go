package notification

import (
	"context"
	"errors"

	"github.com/shaiso/autoanalysis/internal/config"
)

// Dispatcher отправляет уведомление о завершении анализа, результаты
// которого лежат в outputDir.
type Dispatcher interface {
	Notify(ctx context.Context, outputDir string, cfg *config.Config) error
}

// DispatcherFunc — адаптер функции к Dispatcher.
type DispatcherFunc func(ctx context.Context, outputDir string, cfg *config.Config) error

// Notify реализует Dispatcher.
func (f DispatcherFunc) Notify(ctx context.Context, outputDir string, cfg *config.Config) error {
	return f(ctx, outputDir, cfg)
}

// MultiDispatcher вызывает все вложенные dispatchers.
//
// Выключенные каналы (ErrNotConfigured) не считаются ошибкой. Если выключены
// все, возвращается ErrNotConfigured.
type MultiDispatcher []Dispatcher

// Notify реализует Dispatcher.
func (m MultiDispatcher) Notify(ctx context.Context, outputDir string, cfg *config.Config) error {
	var errs []error
	delivered := false

	for _, d := range m {
		if d == nil {
			continue
		}
		err := d.Notify(ctx, outputDir, cfg)
		switch {
		case err == nil:
			delivered = true
		case errors.Is(err, ErrNotConfigured):
		default:
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if !delivered {
		return ErrNotConfigured
	}
	return nil
}
