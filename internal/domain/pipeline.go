package domain

import (
	"maps"
	"strings"
)

// PipelineIdentity — идентичность pipeline: имя в форме namespace/short_name и версия.
//
// Из идентичности детерминированно выводятся имена каталогов,
// поэтому два stage с одинаковой идентичностью всегда указывают на один и тот же путь.
type PipelineIdentity struct {
	// Name — полное имя pipeline, например "BCCDC-PHL/pipeline-1".
	Name string `json:"name"`

	// Version — версия в формате major.minor.patch.
	Version string `json:"version"`
}

// ShortName возвращает часть имени после последнего "/".
func (p PipelineIdentity) ShortName() string {
	if i := strings.LastIndex(p.Name, "/"); i >= 0 {
		return p.Name[i+1:]
	}
	return p.Name
}

// MinorVersion возвращает версию без последнего компонента (.patch).
// "2.3.1" → "2.3"; версия без точки возвращается как есть.
func (p PipelineIdentity) MinorVersion() string {
	if i := strings.LastIndex(p.Version, "."); i >= 0 {
		return p.Version[:i]
	}
	return p.Version
}

// Key возвращает ключ "short_name-minor_version", используемый в именах каталогов.
func (p PipelineIdentity) Key() string {
	return p.ShortName() + "-" + p.MinorVersion()
}

// String реализует fmt.Stringer.
func (p PipelineIdentity) String() string {
	return p.Name + "@" + p.Version
}

// PipelineSpec — сконфигурированный stage обработки.
//
// Жизненный цикл Parameters:
//
//	config load (шаблоны) → Prepare (новое значение с путями) → Execution Engine
//
// PipelineSpec передаётся по значению; Prepare и Finalize никогда не изменяют
// спецификацию вызывающего, а возвращают новую через WithParameters.
type PipelineSpec struct {
	// PipelineIdentity встраивается, чтобы name и version лежали на верхнем уровне
	// записи pipelines[] в файле конфигурации.
	PipelineIdentity

	// Parameters — параметры для Execution Engine.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Dependencies — stages, чей CompletionMarker должен существовать до запуска.
	Dependencies []PipelineIdentity `json:"dependencies,omitempty"`

	// DeleteWorkDir — удалять ли work dir после завершения (nil = true).
	DeleteWorkDir *bool `json:"delete_work_dir,omitempty"`
}

// Identity возвращает идентичность stage.
func (s PipelineSpec) Identity() PipelineIdentity {
	return s.PipelineIdentity
}

// ShouldDeleteWorkDir возвращает значение delete_work_dir с учётом умолчания.
func (s PipelineSpec) ShouldDeleteWorkDir() bool {
	if s.DeleteWorkDir == nil {
		return true
	}
	return *s.DeleteWorkDir
}

// Clone возвращает глубокую копию спецификации.
func (s PipelineSpec) Clone() PipelineSpec {
	out := s
	out.Parameters = cloneParams(s.Parameters)
	if s.Dependencies != nil {
		out.Dependencies = append([]PipelineIdentity(nil), s.Dependencies...)
	}
	if s.DeleteWorkDir != nil {
		v := *s.DeleteWorkDir
		out.DeleteWorkDir = &v
	}
	return out
}

// WithParameters возвращает копию спецификации с заменёнными параметрами.
func (s PipelineSpec) WithParameters(params map[string]any) PipelineSpec {
	out := s.Clone()
	out.Parameters = cloneParams(params)
	return out
}

// cloneParams копирует map параметров (вложенные map и слайсы копируются рекурсивно).
func cloneParams(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneParams(t)
	case map[string]string:
		return maps.Clone(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
