package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
)

const stageRecordDir = ".stages"

// StageRecord — запись о подготовленном stage.
// Сохраняется при Prepare и читается при Finalize, чтобы найти work dir
// без перебора каталогов.
type StageRecord struct {
	RunID      string    `json:"run_id"`
	Pipeline   string    `json:"pipeline"`
	Version    string    `json:"version"`
	WorkDir    string    `json:"work_dir"`
	OutputDir  string    `json:"output_dir"`
	PreparedAt time.Time `json:"prepared_at"`
}

// StageRecordPath возвращает путь записи:
// {analysis_work_dir}/.stages/{run_id}/{short}-{minor}.json
func StageRecordPath(cfg *config.Config, runID string, id domain.PipelineIdentity) string {
	return filepath.Join(cfg.AnalysisWorkDir, stageRecordDir, runID, id.Key()+".json")
}

func writeStageRecord(cfg *config.Config, rec StageRecord) error {
	id := domain.PipelineIdentity{Name: rec.Pipeline, Version: rec.Version}
	path := StageRecordPath(cfg, rec.RunID, id)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create stage record dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stage record: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write stage record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename stage record: %w", err)
	}
	return nil
}

func readStageRecord(cfg *config.Config, runID string, id domain.PipelineIdentity) (*StageRecord, error) {
	data, err := os.ReadFile(StageRecordPath(cfg, runID, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrStageRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read stage record: %w", err)
	}

	var rec StageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse stage record: %w", err)
	}
	return &rec, nil
}

// removeStageRecord удаляет запись и, если он опустел, каталог run.
func removeStageRecord(cfg *config.Config, runID string, id domain.PipelineIdentity) error {
	path := StageRecordPath(cfg, runID, id)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stage record: %w", err)
	}
	// Ошибка ожидаема, если в каталоге остались записи других stages
	_ = os.Remove(filepath.Dir(path))
	return nil
}
