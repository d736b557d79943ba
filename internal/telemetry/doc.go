// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - events.go  — структурированные события и внедряемые EventSink
//   - metrics.go — Prometheus метрики
//
// Все компоненты оркестратора сообщают о своей работе через EventSink,
// поэтому тесты проверяют события напрямую, без разбора текста логов.
package telemetry
