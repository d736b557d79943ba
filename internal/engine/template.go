package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/shaiso/autoanalysis/internal/domain"
)

// TemplateContext — данные для рендеринга параметров stage.
//
// Используется в Go templates:
//   - {{ .Run.ID }}, {{ .Run.FastqDirectory }}, {{ .Run.Parameters.key }}
//   - {{ .Pipeline.ShortName }}, {{ .Pipeline.MinorVersion }}
//   - {{ .OutputDir }}, {{ .WorkDir }}
//   - {{ .Env.VAR_NAME }}
type TemplateContext struct {
	Run       domain.Run              `json:"run"`
	Pipeline  domain.PipelineIdentity `json:"pipeline"`
	OutputDir string                  `json:"output_dir"`
	WorkDir   string                  `json:"work_dir"`
	Env       map[string]string       `json:"env"`
}

// NewTemplateContext строит контекст из Layout.
func NewTemplateContext(run domain.Run, layout Layout) *TemplateContext {
	return &TemplateContext{
		Run:       run,
		Pipeline:  layout.Pipeline,
		OutputDir: layout.OutputDir,
		WorkDir:   layout.WorkDir,
		Env:       make(map[string]string),
	}
}

// SetEnv устанавливает переменную окружения.
func (c *TemplateContext) SetEnv(key, value string) {
	c.Env[key] = value
}

// templateFuncs — дополнительные функции для шаблонов.
var templateFuncs = template.FuncMap{
	// json — сериализует значение в JSON строку
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},

	// default — возвращает значение по умолчанию, если первый аргумент пустой
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	// coalesce — возвращает первое непустое значение
	"coalesce": func(values ...any) any {
		for _, v := range values {
			if v != nil {
				if s, ok := v.(string); ok && s == "" {
					continue
				}
				return v
			}
		}
		return nil
	},

	// pathJoin — склеивает элементы пути
	"pathJoin": func(elems ...string) string {
		return filepath.Join(elems...)
	},

	"base": filepath.Base,
	"dir":  filepath.Dir,

	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},

	"split": func(sep, s string) []string {
		return strings.Split(s, sep)
	},

	"contains":  strings.Contains,
	"hasPrefix": strings.HasPrefix,
	"hasSuffix": strings.HasSuffix,
	"lower":     strings.ToLower,
	"upper":     strings.ToUpper,
	"trim":      strings.TrimSpace,
	"replace":   strings.ReplaceAll,
}

// Render рендерит строковый шаблон с контекстом.
// Строки без "{{" возвращаются без изменений.
func Render(tmpl string, ctx *TemplateContext) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Funcs(templateFuncs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	return buf.String(), nil
}

// RenderValue рендерит произвольное значение.
// Рекурсивно обрабатывает map и slice.
func RenderValue(value any, ctx *TemplateContext) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case string:
		return Render(v, ctx)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			rendered, err := RenderValue(val, ctx)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			rendered, err := RenderValue(val, ctx)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	case []string:
		result := make([]string, len(v))
		for i, val := range v {
			rendered, err := Render(val, ctx)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	default:
		// int, float, bool возвращаются как есть
		return value, nil
	}
}

// RenderParameters рендерит параметры stage.
// Возвращает новую map; входная не изменяется.
func RenderParameters(params map[string]any, ctx *TemplateContext) (map[string]any, error) {
	if params == nil {
		return make(map[string]any), nil
	}

	rendered, err := RenderValue(params, ctx)
	if err != nil {
		return nil, err
	}

	result, ok := rendered.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected map, got %T", ErrTemplateRender, rendered)
	}

	return result, nil
}
