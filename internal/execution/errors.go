package execution

import "errors"

// Ошибки выполнения.
var (
	// ErrUnknownMode — неизвестный execution.mode.
	ErrUnknownMode = errors.New("unknown execution mode")

	// ErrNoOutputDir — у подготовленного stage нет параметра outdir.
	ErrNoOutputDir = errors.New("prepared stage has no outdir")

	// ErrPipelineFailed — процесс pipeline завершился с ненулевым кодом.
	ErrPipelineFailed = errors.New("pipeline process failed")
)
