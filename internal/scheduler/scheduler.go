package scheduler

import (
	"context"
	"time"
)

// WakeReason — причина выхода из Sleep.
type WakeReason int

const (
	// WakeTimer — пауза истекла, пора начинать следующий проход.
	WakeTimer WakeReason = iota

	// WakeDrain — запрошена остановка.
	WakeDrain

	// WakeCancelled — контекст отменён.
	WakeCancelled
)

// String возвращает имя причины для логов.
func (r WakeReason) String() string {
	switch r {
	case WakeTimer:
		return "timer"
	case WakeDrain:
		return "drain"
	case WakeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Sleep ждёт d, закрытия drain или отмены ctx, смотря что наступит раньше.
// drain может быть nil.
func Sleep(ctx context.Context, d time.Duration, drain <-chan struct{}) WakeReason {
	// Остановка, запрошенная до сна, важнее нулевой паузы
	select {
	case <-drain:
		return WakeDrain
	default:
	}
	if ctx.Err() != nil {
		return WakeCancelled
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return WakeCancelled
	case <-drain:
		return WakeDrain
	case <-timer.C:
		return WakeTimer
	}
}
