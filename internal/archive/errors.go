package archive

import "errors"

var (
	// ErrNotConfigured — блок archive отсутствует.
	ErrNotConfigured = errors.New("archive not configured")

	// ErrNotDirectory — архивируемый путь не является каталогом.
	ErrNotDirectory = errors.New("archive source is not a directory")
)
