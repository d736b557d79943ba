package notification

import "errors"

var (
	// ErrNotConfigured — канал уведомлений выключен в конфигурации.
	ErrNotConfigured = errors.New("notification not configured")

	// ErrAuthFailed — не удалось получить токен доступа.
	ErrAuthFailed = errors.New("email authentication failed")

	// ErrDeliveryFailed — email-сервис ответил ошибкой.
	ErrDeliveryFailed = errors.New("notification delivery failed")
)
