package engine

import "errors"

// Ошибки валидации списка pipeline.
var (
	// ErrEmptyPipelineName — у pipeline не задано имя.
	ErrEmptyPipelineName = errors.New("pipeline has empty name")

	// ErrEmptyVersion — у pipeline не задана версия.
	ErrEmptyVersion = errors.New("pipeline has empty version")

	// ErrDuplicatePipeline — одна и та же идентичность объявлена дважды.
	ErrDuplicatePipeline = errors.New("duplicate pipeline identity")

	// ErrInvalidDependency — у зависимости не задано имя или версия.
	ErrInvalidDependency = errors.New("invalid dependency")

	// ErrSelfDependency — pipeline зависит от самого себя.
	ErrSelfDependency = errors.New("pipeline depends on itself")

	// ErrCyclicDependency — обнаружен цикл в зависимостях.
	ErrCyclicDependency = errors.New("cyclic dependency detected")
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Pipeline string // идентичность pipeline (name@version)
	Field    string // поле, вызвавшее ошибку
	Message  string // описание ошибки
	Err      error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Pipeline != "" {
		return "pipeline " + e.Pipeline + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(pipeline, field, message string, err error) *ValidationError {
	return &ValidationError{
		Pipeline: pipeline,
		Field:    field,
		Message:  message,
		Err:      err,
	}
}
