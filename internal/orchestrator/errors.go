package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrSkip — stage не готов в этом проходе: зависимости не завершены
	// или pipeline не поддерживается. Это не ошибка выполнения.
	ErrSkip = errors.New("stage skipped")

	// ErrStageRecordNotFound — запись о подготовленном stage отсутствует.
	ErrStageRecordNotFound = errors.New("stage record not found")

	// ErrNoConfigStore — Config.Store не задан.
	ErrNoConfigStore = errors.New("config store is required")
)
