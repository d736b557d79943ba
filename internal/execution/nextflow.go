package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/pipelines"
)

const (
	defaultCommand = "nextflow"

	// stderrTailSize — сколько последних байт stderr попадает в ошибку.
	stderrTailSize = 4096
)

// nextflowOptions — параметры, которые передаются опциями nextflow,
// а не как --param.
var nextflowOptions = map[string]bool{
	pipelines.ParamWorkDir:      true,
	pipelines.ParamReportPath:   true,
	pipelines.ParamTracePath:    true,
	pipelines.ParamTimelinePath: true,
	pipelines.ParamLogPath:      true,
}

// NextflowEngine запускает pipeline через nextflow.
type NextflowEngine struct {
	command   string
	profile   string
	extraArgs []string
	logger    *slog.Logger
	now       func() time.Time
}

// NewNextflowEngine создаёт NextflowEngine.
func NewNextflowEngine(cfg config.ExecutionConfig, logger *slog.Logger) *NextflowEngine {
	command := cfg.Command
	if command == "" {
		command = defaultCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NextflowEngine{
		command:   command,
		profile:   cfg.Profile,
		extraArgs: cfg.ExtraArgs,
		logger:    logger,
		now:       time.Now,
	}
}

// Args строит аргументы командной строки nextflow.
//
//	-log <log_path> run <name> -r <version> [-profile p] -work-dir <dir>
//	-with-report <path> -with-trace <path> -with-timeline <path>
//	[extra args] --<param> <value> ...
//
// Параметры сортируются по ключу. true — флаг без значения,
// false и nil опускаются.
func (e *NextflowEngine) Args(spec domain.PipelineSpec, workDir string) []string {
	params := spec.Parameters
	var args []string

	if log, ok := params[pipelines.ParamLogPath].(string); ok && log != "" {
		args = append(args, "-log", log)
	}
	args = append(args, "run", spec.Name, "-r", spec.Version)
	if e.profile != "" {
		args = append(args, "-profile", e.profile)
	}
	if workDir != "" {
		args = append(args, "-work-dir", workDir)
	}
	for _, opt := range []struct{ flag, key string }{
		{"-with-report", pipelines.ParamReportPath},
		{"-with-trace", pipelines.ParamTracePath},
		{"-with-timeline", pipelines.ParamTimelinePath},
	} {
		if v, ok := params[opt.key].(string); ok && v != "" {
			args = append(args, opt.flag, v)
		}
	}
	args = append(args, e.extraArgs...)

	keys := make([]string, 0, len(params))
	for k := range params {
		if !nextflowOptions[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
		case bool:
			if v {
				args = append(args, "--"+k)
			}
		default:
			args = append(args, "--"+k, formatValue(v))
		}
	}
	return args
}

// formatValue приводит значение параметра к строке.
// Составные значения передаются как JSON.
func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any, []string:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// Execute реализует Engine.
func (e *NextflowEngine) Execute(ctx context.Context, spec domain.PipelineSpec, workDir string) error {
	outdir, err := outputDir(spec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if workDir != "" {
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return fmt.Errorf("create work dir: %w", err)
		}
	}

	args := e.Args(spec, workDir)
	e.logger.Debug("starting pipeline",
		"pipeline", spec.Name,
		"version", spec.Version,
		"command", e.command,
		"args", args,
	)

	stderr := &tailBuffer{limit: stderrTailSize}
	cmd := exec.CommandContext(ctx, e.command, args...)
	cmd.Dir = outdir
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exit %d: %s", ErrPipelineFailed, spec.Identity(),
				exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("run %s: %w", e.command, err)
	}

	return ensureCompletionMarker(spec, outdir, e.now())
}

// tailBuffer хранит последние limit байт записанного.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
