package pipelines

import "errors"

// Ошибки обработчиков pipeline.
var (
	// ErrUnsupportedPipeline — для имени pipeline нет обработчика.
	ErrUnsupportedPipeline = errors.New("pipeline not supported")

	// ErrPostAnalysisNotImplemented — у pipeline нет действий после завершения.
	ErrPostAnalysisNotImplemented = errors.New("post analysis not implemented")
)
