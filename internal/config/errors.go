package config

import "errors"

// Ошибки конфигурации.
var (
	// ErrNoConfigPath — путь к файлу конфигурации не задан.
	ErrNoConfigPath = errors.New("config path is not set")

	// ErrParse — файл конфигурации не удалось разобрать.
	ErrParse = errors.New("config parse failed")

	// ErrInvalidArchive — блок archive заполнен не полностью.
	ErrInvalidArchive = errors.New("invalid archive config")
)
