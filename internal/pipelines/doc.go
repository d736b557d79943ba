// Package pipelines содержит обработчики поддерживаемых pipeline.
//
// Каждый pipeline по-своему строит параметры (входные данные, флаги)
// и по-своему завершается (архивация, отчёты). Registry выбирает
// обработчик по полному имени pipeline; неизвестное имя — это
// ErrUnsupportedPipeline, а не паника.
package pipelines
