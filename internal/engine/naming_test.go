package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shaiso/autoanalysis/internal/config"
)

// --- Naming Tests ---

func TestOutputDirName(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		expected string
	}{
		{"BCCDC-PHL/pipeline-1", "2.3.1", "pipeline-1-2.3-output"},
		{"BCCDC-PHL/pipeline-2", "0.1.0", "pipeline-2-0.1-output"},
		{"nested/org/tool", "1.0", "tool-1-output"},
		{"bare", "3", "bare-3-output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputDirName(ident(tt.name, tt.version)); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestOutputDir_Deterministic(t *testing.T) {
	cfg := &config.Config{AnalysisOutputDir: "/out"}
	id := ident("BCCDC-PHL/pipeline-1", "2.3.1")

	first := OutputDir(cfg, "run-A", id)
	second := OutputDir(cfg, "run-A", id)
	if first != second {
		t.Errorf("output dir must be deterministic: %q != %q", first, second)
	}
	if first != filepath.Join("/out", "run-A", "pipeline-1-2.3-output") {
		t.Errorf("unexpected output dir %q", first)
	}

	// Другая patch-версия делит тот же каталог
	if OutputDir(cfg, "run-A", ident("BCCDC-PHL/pipeline-1", "2.3.7")) != first {
		t.Error("patch versions must share the output dir")
	}
}

func TestWorkDirName(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)
	got := WorkDirName("run-A", ident("BCCDC-PHL/pipeline-1", "2.3.1"), ts)
	if got != "work-run-A_pipeline-1_20240305070809" {
		t.Errorf("unexpected work dir name %q", got)
	}

	matched, err := filepath.Match(WorkDirPattern("", "run-A", ident("BCCDC-PHL/pipeline-1", "2.3.1")), got)
	if err != nil || !matched {
		t.Errorf("work dir name must match its pattern (err=%v)", err)
	}
}

func TestNewLayout(t *testing.T) {
	cfg := &config.Config{AnalysisOutputDir: "/out", AnalysisWorkDir: "/work"}
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	layout := NewLayout(cfg, "run-A", ident("BCCDC-PHL/pipeline-1", "2.3.1"), ts)

	if layout.OutputDir != "/out/run-A/pipeline-1-2.3-output" {
		t.Errorf("OutputDir = %q", layout.OutputDir)
	}
	if layout.WorkDir != "/work/work-run-A_pipeline-1_20240101000000" {
		t.Errorf("WorkDir = %q", layout.WorkDir)
	}
	if layout.Artifacts.Report != "/out/run-A/pipeline-1-2.3-output/run-A_pipeline-1_report.html" {
		t.Errorf("Report = %q", layout.Artifacts.Report)
	}
	if layout.Artifacts.Trace != "/out/run-A/pipeline-1-2.3-output/run-A_pipeline-1_trace.tsv" {
		t.Errorf("Trace = %q", layout.Artifacts.Trace)
	}
	if layout.Artifacts.Log != "/out/run-A/pipeline-1-2.3-output/run-A_pipeline-1_nextflow.log" {
		t.Errorf("Log = %q", layout.Artifacts.Log)
	}
	if filepath.Dir(layout.Artifacts.Timeline) != layout.OutputDir {
		t.Error("artifacts must live inside the output dir")
	}
}
