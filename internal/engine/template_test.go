package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/autoanalysis/internal/domain"
)

func testTemplateContext() *TemplateContext {
	ctx := &TemplateContext{
		Run:       domain.Run{ID: "run-A", FastqDirectory: "/data/run-A/fastq"},
		Pipeline:  domain.PipelineIdentity{Name: "BCCDC-PHL/pipeline-1", Version: "1.2.0"},
		OutputDir: "/out/run-A/pipeline-1-1.2-output",
		WorkDir:   "/work/work-run-A_pipeline-1_20240101000000",
		Env:       make(map[string]string),
	}
	ctx.SetEnv("REF_DIR", "/refs")
	return ctx
}

// --- Render Tests ---

func TestRender(t *testing.T) {
	ctx := testTemplateContext()

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "run id",
			template: "{{ .Run.ID }}",
			expected: "run-A",
		},
		{
			name:     "fastq dir",
			template: "{{ .Run.FastqDirectory }}",
			expected: "/data/run-A/fastq",
		},
		{
			name:     "pipeline methods",
			template: "{{ .Pipeline.ShortName }}-{{ .Pipeline.MinorVersion }}",
			expected: "pipeline-1-1.2",
		},
		{
			name:     "output dir with pathJoin",
			template: `{{ pathJoin .OutputDir "qc" }}`,
			expected: "/out/run-A/pipeline-1-1.2-output/qc",
		},
		{
			name:     "env",
			template: "{{ .Env.REF_DIR }}/ref.fa",
			expected: "/refs/ref.fa",
		},
		{
			name:     "base",
			template: "{{ base .WorkDir }}",
			expected: "work-run-A_pipeline-1_20240101000000",
		},
		{
			name:     "default with value",
			template: `{{ default "x" .Run.ID }}`,
			expected: "run-A",
		},
		{
			name:     "plain text",
			template: "--no-trim",
			expected: "--no-trim",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_InvalidTemplate(t *testing.T) {
	_, err := Render("{{ .Run.ID ", testTemplateContext())
	if !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}
}

func TestRender_MissingEnvKey(t *testing.T) {
	_, err := Render("{{ .Env.NOPE }}", testTemplateContext())
	if !errors.Is(err, ErrTemplateRender) {
		t.Errorf("expected ErrTemplateRender, got %v", err)
	}
}

// --- RenderParameters Tests ---

func TestRenderParameters_Nested(t *testing.T) {
	params := map[string]any{
		"prefix":  "{{ .Run.ID }}",
		"threads": 8,
		"flags":   []any{"--x", "{{ .Run.ID }}"},
		"db": map[string]any{
			"path": "{{ .Env.REF_DIR }}/db",
		},
	}

	out, err := RenderParameters(params, testTemplateContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out["prefix"] != "run-A" {
		t.Errorf("prefix = %v", out["prefix"])
	}
	if out["threads"] != 8 {
		t.Errorf("threads = %v", out["threads"])
	}
	flags := out["flags"].([]any)
	if flags[1] != "run-A" {
		t.Errorf("flags[1] = %v", flags[1])
	}
	db := out["db"].(map[string]any)
	if db["path"] != "/refs/db" {
		t.Errorf("db.path = %v", db["path"])
	}

	// Вход не изменяется
	if params["prefix"] != "{{ .Run.ID }}" {
		t.Error("input params must not be modified")
	}
	if params["db"].(map[string]any)["path"] != "{{ .Env.REF_DIR }}/db" {
		t.Error("nested input params must not be modified")
	}
}

func TestRenderParameters_Nil(t *testing.T) {
	out, err := RenderParameters(nil, testTemplateContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty map, got %v", out)
	}
}

func TestRenderParameters_Error(t *testing.T) {
	_, err := RenderParameters(map[string]any{"bad": "{{ .Nope }}"}, testTemplateContext())
	if !errors.Is(err, ErrTemplateRender) {
		t.Errorf("expected ErrTemplateRender, got %v", err)
	}
}
