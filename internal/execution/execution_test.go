package execution

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/engine"
)

func preparedSpec(outdir string) domain.PipelineSpec {
	return domain.PipelineSpec{
		PipelineIdentity: domain.PipelineIdentity{Name: "BCCDC-PHL/pipeline-1", Version: "2.3.1"},
		Parameters: map[string]any{
			"fastq_input":   "/fastq/run-A",
			"prefix":        "run-A",
			"outdir":        outdir,
			"work_dir":      "/work/w",
			"report_path":   "/out/r.html",
			"trace_path":    "/out/t.tsv",
			"timeline_path": "/out/tl.html",
			"log_path":      "/out/n.log",
			"threads":       8,
			"no_trim":       true,
			"skip_qc":       false,
			"unset":         nil,
			"samples":       []any{"s1", "s2"},
		},
	}
}

func fakeCommand(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-nextflow")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

// --- Args Tests ---

func TestNextflowEngine_Args(t *testing.T) {
	e := NewNextflowEngine(config.ExecutionConfig{Profile: "conda", ExtraArgs: []string{"-resume"}}, nil)

	args := e.Args(preparedSpec("/out"), "/work/w")

	want := []string{
		"-log", "/out/n.log",
		"run", "BCCDC-PHL/pipeline-1", "-r", "2.3.1",
		"-profile", "conda",
		"-work-dir", "/work/w",
		"-with-report", "/out/r.html",
		"-with-trace", "/out/t.tsv",
		"-with-timeline", "/out/tl.html",
		"-resume",
		"--fastq_input", "/fastq/run-A",
		"--no_trim",
		"--outdir", "/out",
		"--prefix", "run-A",
		"--samples", `["s1","s2"]`,
		"--threads", "8",
	}
	assert.Equal(t, want, args)
}

func TestNew_Modes(t *testing.T) {
	eng, err := New(config.ExecutionConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &NextflowEngine{}, eng)

	eng, err = New(config.ExecutionConfig{Mode: config.ExecutionModeDryRun}, nil)
	require.NoError(t, err)
	assert.IsType(t, &DryRunEngine{}, eng)

	_, err = New(config.ExecutionConfig{Mode: "slurm"}, nil)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

// --- Execute Tests ---

func TestNextflowEngine_ExecuteWritesMarker(t *testing.T) {
	outdir := filepath.Join(t.TempDir(), "pipeline-1-2.3-output")
	workDir := filepath.Join(t.TempDir(), "work")
	e := NewNextflowEngine(config.ExecutionConfig{Command: fakeCommand(t, "exit 0")}, nil)

	require.NoError(t, e.Execute(context.Background(), preparedSpec(outdir), workDir))

	assert.FileExists(t, filepath.Join(outdir, engine.CompletionMarkerName))
	assert.DirExists(t, workDir)
}

func TestNextflowEngine_ExecuteKeepsPipelineMarker(t *testing.T) {
	outdir := t.TempDir()
	marker := filepath.Join(outdir, engine.CompletionMarkerName)
	require.NoError(t, os.WriteFile(marker, []byte(`{"from":"pipeline"}`), 0o644))

	e := NewNextflowEngine(config.ExecutionConfig{Command: fakeCommand(t, "exit 0")}, nil)
	require.NoError(t, e.Execute(context.Background(), preparedSpec(outdir), ""))

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"pipeline"}`, string(data))
}

func TestNextflowEngine_ExecuteFailure(t *testing.T) {
	outdir := t.TempDir()
	e := NewNextflowEngine(config.ExecutionConfig{Command: fakeCommand(t, "echo 'process FASTP failed' >&2; exit 3")}, nil)

	err := e.Execute(context.Background(), preparedSpec(outdir), "")
	require.ErrorIs(t, err, ErrPipelineFailed)
	assert.Contains(t, err.Error(), "exit 3")
	assert.Contains(t, err.Error(), "process FASTP failed")
	assert.NoFileExists(t, filepath.Join(outdir, engine.CompletionMarkerName))
}

func TestNextflowEngine_MissingOutdir(t *testing.T) {
	spec := preparedSpec("")
	err := NewNextflowEngine(config.ExecutionConfig{}, nil).Execute(context.Background(), spec, "")
	assert.ErrorIs(t, err, ErrNoOutputDir)
}

func TestDryRunEngine_Execute(t *testing.T) {
	outdir := filepath.Join(t.TempDir(), "out")
	e := NewDryRunEngine(config.ExecutionConfig{}, nil)

	require.NoError(t, e.Execute(context.Background(), preparedSpec(outdir), "/work/w"))
	assert.FileExists(t, filepath.Join(outdir, engine.CompletionMarkerName))
}

func TestDryRunEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outdir := t.TempDir()
	err := NewDryRunEngine(config.ExecutionConfig{}, nil).Execute(ctx, preparedSpec(outdir), "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(outdir, engine.CompletionMarkerName))
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{limit: 4}
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))
	assert.Equal(t, "defg", b.String())
}
