package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
)

// --- ValidatePipelines Tests ---

func TestValidatePipelines_Valid(t *testing.T) {
	cfg := &config.Config{Pipelines: []domain.PipelineSpec{
		stage("org/a", "1.0.0"),
		stage("org/b", "1.0.0", ident("org/a", "1.0.0"), ident("org/external", "3.1.4")),
	}}

	if err := ValidatePipelines(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidatePipelines_Errors(t *testing.T) {
	tests := []struct {
		name      string
		pipelines []domain.PipelineSpec
		want      error
	}{
		{
			name:      "empty name",
			pipelines: []domain.PipelineSpec{stage("", "1.0.0")},
			want:      ErrEmptyPipelineName,
		},
		{
			name:      "empty version",
			pipelines: []domain.PipelineSpec{stage("org/a", "")},
			want:      ErrEmptyVersion,
		},
		{
			name:      "duplicate",
			pipelines: []domain.PipelineSpec{stage("org/a", "1"), stage("org/a", "1")},
			want:      ErrDuplicatePipeline,
		},
		{
			name:      "self dependency",
			pipelines: []domain.PipelineSpec{stage("org/a", "1", ident("org/a", "1"))},
			want:      ErrSelfDependency,
		},
		{
			name:      "incomplete dependency",
			pipelines: []domain.PipelineSpec{stage("org/a", "1", ident("org/b", ""))},
			want:      ErrInvalidDependency,
		},
		{
			name: "cycle",
			pipelines: []domain.PipelineSpec{
				stage("org/a", "1", ident("org/b", "1")),
				stage("org/b", "1", ident("org/a", "1")),
			},
			want: ErrCyclicDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePipelines(&config.Config{Pipelines: tt.pipelines})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestValidatePipelines_Empty(t *testing.T) {
	if err := ValidatePipelines(&config.Config{}); err != nil {
		t.Errorf("empty pipeline list is valid, got %v", err)
	}
}

// --- ExternalDependencies Tests ---

func TestExternalDependencies(t *testing.T) {
	cfg := &config.Config{Pipelines: []domain.PipelineSpec{
		stage("org/a", "1"),
		stage("org/b", "1", ident("org/a", "1"), ident("org/x", "1")),
		stage("org/c", "1", ident("org/x", "1"), ident("org/y", "2")),
	}}

	got := ExternalDependencies(cfg)
	want := []domain.PipelineIdentity{ident("org/x", "1"), ident("org/y", "2")}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("external[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// --- OrderWarnings Tests ---

func TestOrderWarnings(t *testing.T) {
	cfg := &config.Config{Pipelines: []domain.PipelineSpec{
		stage("org/b", "1", ident("org/a", "1")),
		stage("org/a", "1"),
		stage("org/c", "1", ident("org/a", "1")),
	}}

	warnings := OrderWarnings(cfg)
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if warnings[0].Pipeline != ident("org/b", "1") || warnings[0].Dependency != ident("org/a", "1") {
		t.Errorf("unexpected warning: %v", warnings[0])
	}
	if warnings[0].String() == "" {
		t.Error("warning must describe itself")
	}
}

func TestOrderWarnings_DeclaredOrder(t *testing.T) {
	cfg := &config.Config{Pipelines: []domain.PipelineSpec{
		stage("org/a", "1"),
		stage("org/b", "1", ident("org/a", "1")),
	}}

	if w := OrderWarnings(cfg); len(w) != 0 {
		t.Errorf("expected no warnings, got %v", w)
	}
}
