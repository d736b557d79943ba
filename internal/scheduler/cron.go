package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/autoanalysis/internal/config"
)

// cronParser — стандартные 5 полей плюс дескрипторы (@hourly, @every 30m).
// Префикс CRON_TZ=Zone задаёт часовой пояс выражения.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Cadence — правило, по которому выбирается момент следующего прохода.
type Cadence struct {
	// Interval — пауза после прохода, если cron не задан.
	Interval time.Duration

	// Cron — расписание из scan_cron (nil — используется Interval).
	Cron cron.Schedule

	// Expr — исходное выражение scan_cron.
	Expr string
}

// CadenceFor строит Cadence по конфигурации.
//
// Невалидный scan_cron не останавливает цикл: возвращается Cadence на
// интервале и ошибка разбора, чтобы вызывающий мог её залогировать.
func CadenceFor(cfg *config.Config) (Cadence, error) {
	c := Cadence{Interval: config.DefaultScanIntervalSeconds * time.Second}
	if cfg == nil {
		return c, nil
	}
	c.Interval = cfg.ScanInterval()

	if cfg.ScanCron == "" {
		return c, nil
	}
	schedule, err := cronParser.Parse(cfg.ScanCron)
	if err != nil {
		return c, fmt.Errorf("parse scan_cron %q: %w", cfg.ScanCron, err)
	}
	c.Cron = schedule
	c.Expr = cfg.ScanCron
	return c, nil
}

// Next возвращает момент следующего прохода после from.
func (c Cadence) Next(from time.Time) time.Time {
	if c.Cron != nil {
		return c.Cron.Next(from)
	}
	return from.Add(c.Interval)
}

// Wait возвращает паузу от now до следующего прохода (не меньше нуля).
func (c Cadence) Wait(now time.Time) time.Duration {
	return max(c.Next(now).Sub(now), 0)
}

// NextWait — CadenceFor(cfg).Wait(now).
// Ошибка разбора cron возвращается вместе с паузой по интервалу.
func NextWait(cfg *config.Config, now time.Time) (time.Duration, error) {
	c, err := CadenceFor(cfg)
	return c.Wait(now), err
}

// ValidateCronExpr проверяет cron-выражение.
func ValidateCronExpr(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}
