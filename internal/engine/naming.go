package engine

import (
	"os"
	"path/filepath"
	"time"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
)

const (
	// CompletionMarkerName — файл-маркер успешного завершения stage.
	// Значим только факт существования, содержимое не читается.
	CompletionMarkerName = "analysis_complete.json"

	// WorkDirTimestampLayout — формат метки времени в имени work dir.
	// Лексикографический порядок совпадает с хронологическим.
	WorkDirTimestampLayout = "20060102150405"

	workDirPrefix   = "work-"
	outputDirSuffix = "-output"
)

// OutputDirName возвращает имя output-каталога: "{short_name}-{minor_version}-output".
// Чистая функция идентичности pipeline.
func OutputDirName(id domain.PipelineIdentity) string {
	return id.Key() + outputDirSuffix
}

// WorkDirName возвращает имя work-каталога: "work-{run_id}_{short_name}_{timestamp}".
func WorkDirName(runID string, id domain.PipelineIdentity, ts time.Time) string {
	return workDirPrefix + runID + "_" + id.ShortName() + "_" + ts.Format(WorkDirTimestampLayout)
}

// WorkDirPattern возвращает glob-шаблон всех work-каталогов пары run/pipeline.
func WorkDirPattern(workRoot, runID string, id domain.PipelineIdentity) string {
	return filepath.Join(workRoot, workDirPrefix+runID+"_"+id.ShortName()+"_*")
}

// RunOutputDir возвращает каталог всех результатов run.
func RunOutputDir(cfg *config.Config, runID string) string {
	return filepath.Join(cfg.AnalysisOutputDir, runID)
}

// OutputDir возвращает детерминированный output-каталог stage.
func OutputDir(cfg *config.Config, runID string, id domain.PipelineIdentity) string {
	return filepath.Join(RunOutputDir(cfg, runID), OutputDirName(id))
}

// CompletionMarkerPath возвращает путь маркера завершения stage.
func CompletionMarkerPath(cfg *config.Config, runID string, id domain.PipelineIdentity) string {
	return filepath.Join(OutputDir(cfg, runID, id), CompletionMarkerName)
}

// IsComplete проверяет существование маркера завершения.
// Результат никогда не кэшируется.
func IsComplete(cfg *config.Config, runID string, id domain.PipelineIdentity) bool {
	return fileExists(CompletionMarkerPath(cfg, runID, id))
}

// Artifacts — вспомогательные файлы stage внутри output-каталога.
// Имена детерминированы, повторный запуск перезаписывает их.
type Artifacts struct {
	Report   string `json:"report"`
	Trace    string `json:"trace"`
	Timeline string `json:"timeline"`
	Log      string `json:"log"`
}

// ArtifactPaths выводит пути report/trace/timeline/log.
func ArtifactPaths(outputDir, runID string, id domain.PipelineIdentity) Artifacts {
	base := runID + "_" + id.ShortName()
	return Artifacts{
		Report:   filepath.Join(outputDir, base+"_report.html"),
		Trace:    filepath.Join(outputDir, base+"_trace.tsv"),
		Timeline: filepath.Join(outputDir, base+"_timeline.html"),
		Log:      filepath.Join(outputDir, base+"_nextflow.log"),
	}
}

// Layout — все пути одного stage для конкретного run.
type Layout struct {
	RunID     string                  `json:"run_id"`
	Pipeline  domain.PipelineIdentity `json:"pipeline"`
	OutputDir string                  `json:"output_dir"`
	WorkDir   string                  `json:"work_dir"`
	Artifacts Artifacts               `json:"artifacts"`
}

// NewLayout строит Layout; ts — метка времени work dir.
func NewLayout(cfg *config.Config, runID string, id domain.PipelineIdentity, ts time.Time) Layout {
	outputDir := OutputDir(cfg, runID, id)
	return Layout{
		RunID:     runID,
		Pipeline:  id,
		OutputDir: outputDir,
		WorkDir:   filepath.Join(cfg.AnalysisWorkDir, WorkDirName(runID, id, ts)),
		Artifacts: ArtifactPaths(outputDir, runID, id),
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
