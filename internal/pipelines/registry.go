package pipelines

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
)

// Имена поддерживаемых pipeline.
const (
	Pipeline1 = "BCCDC-PHL/pipeline-1"
	Pipeline2 = "BCCDC-PHL/pipeline-2"
)

// Registry — реестр обработчиков pipeline.
//
// Позволяет регистрировать и получать Handler по полному имени pipeline.
// Потокобезопасен.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// DefaultRegistry создаёт реестр со всеми поддерживаемыми pipeline.
// newArchiver может быть nil: тогда архивация отключена.
func DefaultRegistry(newArchiver ArchiverFactory) *Registry {
	r := NewRegistry()

	r.Register(NewFastqHandler(Pipeline1))
	r.Register(NewDownstreamHandler(Pipeline2, newArchiver))

	return r
}

// Register регистрирует обработчик.
// Обработчик с тем же именем перезаписывается.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Name()] = h
}

// Get возвращает обработчик по имени pipeline.
// Возвращает ErrUnsupportedPipeline, если обработчик не найден.
func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.handlers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPipeline, name)
	}
	return h, nil
}

// Has проверяет, зарегистрирован ли обработчик.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.handlers[name]
	return exists
}

// Names возвращает отсортированный список зарегистрированных имён.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stage — stage из конфигурации, связанный с обработчиком.
type Stage struct {
	Spec domain.PipelineSpec

	// Handler — nil, если pipeline не поддерживается.
	Handler Handler

	// Err — ErrUnsupportedPipeline (обёрнутая) для неизвестных имён.
	Err error
}

// Supported возвращает true, если у stage есть обработчик.
func (s Stage) Supported() bool {
	return s.Handler != nil
}

// Bind связывает stages снимка конфигурации с обработчиками.
//
// Вызывается один раз на снимок; порядок stages совпадает с объявленным.
// Спецификации копируются, поэтому последующая работа со stages
// не затрагивает снимок.
func (r *Registry) Bind(cfg *config.Config) []Stage {
	stages := make([]Stage, 0, len(cfg.Pipelines))
	for _, spec := range cfg.Pipelines {
		h, err := r.Get(spec.Name)
		stages = append(stages, Stage{Spec: spec.Clone(), Handler: h, Err: err})
	}
	return stages
}
