// Package api содержит HTTP API состояния оркестратора.
//
// Структура:
//   - handler.go        — Handler с DI (источник статуса, журнал событий, logger)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — middleware (logging, recovery)
//   - response.go       — унифицированные JSON-ответы и обработка ошибок
//   - dto.go            — Data Transfer Objects
//   - status_handler.go — /healthz и /api/v1/status
//   - event_handler.go  — /api/v1/events (только при настроенной БД)
//
// API только читает состояние: управлять циклом через него нельзя.
package api
