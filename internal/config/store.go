package config

import (
	"sync"
	"sync/atomic"
)

// Loader загружает конфигурацию по пути. По умолчанию — Load.
type Loader func(path string) (*Config, error)

// Store хранит текущий снимок конфигурации.
//
// Единственный писатель — цикл оркестратора (Reload), читателей может быть
// сколько угодно (Current). Снимок подменяется атомарно, поэтому читатель
// никогда не видит частично обновлённую структуру.
//
// Stale-on-error: если Reload не смог разобрать файл, текущий снимок
// остаётся тем же самым указателем.
type Store struct {
	path    string
	load    Loader
	current atomic.Pointer[Config]

	// reloadMu сериализует писателей.
	reloadMu sync.Mutex
}

// NewStore создаёт Store для файла path с пустой начальной конфигурацией.
func NewStore(path string, load Loader) *Store {
	if load == nil {
		load = Load
	}
	s := &Store{path: path, load: load}
	s.current.Store(&Config{})
	return s
}

// Path возвращает путь к файлу конфигурации.
func (s *Store) Path() string {
	return s.path
}

// Current возвращает текущий снимок. Никогда не возвращает nil.
func (s *Store) Current() *Config {
	return s.current.Load()
}

// Reload перечитывает файл.
//
// Возвращает актуальный снимок: новый при успехе, прежний при ошибке
// (вместе с ошибкой).
func (s *Store) Reload() (*Config, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	cfg, err := s.load(s.path)
	if err != nil {
		return s.current.Load(), err
	}
	s.current.Store(cfg)
	return cfg, nil
}

// Set подменяет снимок напрямую (используется в тестах и при встраивании).
func (s *Store) Set(cfg *Config) {
	if cfg == nil {
		cfg = &Config{}
	}
	s.current.Store(cfg)
}
