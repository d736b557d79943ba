package repo

import "errors"

// Ошибки хранилища событий.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrInvalidFilter — некорректные параметры выборки.
	ErrInvalidFilter = errors.New("invalid filter")
)
