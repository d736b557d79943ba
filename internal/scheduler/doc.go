// Package scheduler решает, когда начинать следующий проход оркестратора.
//
// По умолчанию проходы разделены паузой scan_interval_seconds. Если задан
// scan_cron, следующий проход начинается в ближайшую активацию расписания.
// Невалидное выражение логируется, цикл продолжает работать по интервалу.
//
//	wait, err := scheduler.NextWait(cfg, time.Now())
//	if err != nil {
//	    logger.Warn("invalid scan_cron", "error", err)
//	}
//	switch scheduler.Sleep(ctx, wait, drainCh) {
//	case scheduler.WakeDrain, scheduler.WakeCancelled:
//	    return
//	}
package scheduler
