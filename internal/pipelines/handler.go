package pipelines

import (
	"context"
	"os"
	"strings"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/engine"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

// Ключи параметров, которые заполняются для каждого stage.
const (
	ParamFastqInput   = "fastq_input"
	ParamAnalysisDir  = "analysis_dir"
	ParamPrefix       = "prefix"
	ParamOutdir       = "outdir"
	ParamWorkDir      = "work_dir"
	ParamReportPath   = "report_path"
	ParamTracePath    = "trace_path"
	ParamTimelinePath = "timeline_path"
	ParamLogPath      = "log_path"
)

// Handler — обработчик конкретного pipeline.
//
// Каждый поддерживаемый pipeline регистрируется в Registry по полному имени
// (например "BCCDC-PHL/pipeline-1"). Handler не изменяет req.Spec:
// Prepare возвращает новые параметры, а вызывающий код собирает из них
// новую спецификацию.
type Handler interface {
	// Name возвращает полное имя pipeline.
	Name() string

	// Prepare строит параметры stage.
	Prepare(ctx context.Context, req *Request) (map[string]any, error)

	// Finalize выполняет действия после завершения stage.
	// ErrPostAnalysisNotImplemented означает, что действий нет.
	Finalize(ctx context.Context, req *Request) error
}

// Request — входные данные для Prepare и Finalize.
type Request struct {
	// Config — снимок конфигурации, с которым обрабатывается run.
	Config *config.Config

	// Spec — спецификация stage (для Finalize — уже подготовленная).
	Spec domain.PipelineSpec

	// Run — обрабатываемый run.
	Run domain.Run

	// Layout — пути stage.
	Layout engine.Layout

	// Sink — получатель событий. nil допустим.
	Sink telemetry.EventSink
}

func (r *Request) emit(ctx context.Context, event telemetry.Event) {
	if r.Sink == nil {
		return
	}
	r.Sink.Emit(ctx, event.ForRun(r.Run.ID).ForPipeline(r.Spec.Name))
}

// StandardParameters возвращает параметры, общие для всех pipeline:
// prefix, outdir, work_dir и пути артефактов.
func StandardParameters(run domain.Run, layout engine.Layout) map[string]any {
	return map[string]any{
		ParamPrefix:       run.ID,
		ParamOutdir:       layout.OutputDir,
		ParamWorkDir:      layout.WorkDir,
		ParamReportPath:   layout.Artifacts.Report,
		ParamTracePath:    layout.Artifacts.Trace,
		ParamTimelinePath: layout.Artifacts.Timeline,
		ParamLogPath:      layout.Artifacts.Log,
	}
}

// shapeParameters собирает итоговые параметры stage.
//
// Порядок наложения: параметры run → шаблоны из конфигурации → входы
// pipeline → стандартные параметры. Стандартные ключи всегда выводятся из Layout.
func shapeParameters(req *Request, inputs map[string]any) (map[string]any, error) {
	tctx := engine.NewTemplateContext(req.Run, req.Layout)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			tctx.SetEnv(k, v)
		}
	}

	rendered, err := engine.RenderParameters(req.Spec.Parameters, tctx)
	if err != nil {
		return nil, err
	}

	params := make(map[string]any, len(req.Run.Parameters)+len(rendered))
	for k, v := range req.Run.Parameters {
		params[k] = v
	}
	for k, v := range rendered {
		params[k] = v
	}
	for k, v := range inputs {
		params[k] = v
	}
	for k, v := range StandardParameters(req.Run, req.Layout) {
		params[k] = v
	}
	return params, nil
}

// logOutputDir сообщает output-каталог завершённого stage.
func logOutputDir(ctx context.Context, req *Request) {
	req.emit(ctx, telemetry.NewEvent(telemetry.EventAnalysisOutputDir).
		With("analysis_pipeline_output_dir", req.Layout.OutputDir))
}
