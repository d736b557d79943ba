package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/autoanalysis/internal/domain"
)

// Значения по умолчанию.
const (
	DefaultScanIntervalSeconds = 3600.0
	DefaultMaxConcurrentRuns   = 1
	DefaultSubjectTag          = "auto-analysis"
)

// Config — конфигурация auto-analysis.
//
// Перечитывается в начале каждого цикла и перед каждым run.
// Значение Config после загрузки не изменяется: Store выдаёт читателям
// неизменяемые снимки.
type Config struct {
	// AnalysisOutputDir — корень детерминированных output-каталогов:
	// {analysis_output_dir}/{run_id}/{short_name}-{minor_version}-output
	AnalysisOutputDir string `json:"analysis_output_dir"`

	// AnalysisWorkDir — корень временных work-каталогов.
	AnalysisWorkDir string `json:"analysis_work_dir"`

	// ScanIntervalSeconds — пауза между проходами (default: 3600).
	ScanIntervalSeconds Seconds `json:"scan_interval_seconds,omitempty"`

	// ScanCron — cron-выражение (5 полей); если задано, заменяет интервал.
	ScanCron string `json:"scan_cron,omitempty"`

	// FastqByRunDir — каталог, каждый подкаталог которого — отдельный run.
	FastqByRunDir string `json:"fastq_by_run_dir,omitempty"`

	// ExcludedRuns — run ID, которые никогда не обрабатываются.
	ExcludedRuns []string `json:"excluded_runs,omitempty"`

	// MaxConcurrentRuns — число runs, обрабатываемых параллельно (default: 1).
	MaxConcurrentRuns int `json:"max_concurrent_runs,omitempty"`

	// Pipelines — stages в порядке объявления.
	Pipelines []domain.PipelineSpec `json:"pipelines,omitempty"`

	// Notification — настройки уведомлений (nil — уведомления выключены).
	Notification *NotificationConfig `json:"notification,omitempty"`

	// Execution — настройки Execution Engine.
	Execution ExecutionConfig `json:"execution,omitempty"`

	// Archive — объектное хранилище для архивации результатов (nil — выключено).
	Archive *ArchiveConfig `json:"archive,omitempty"`

	// scanIntervalSet — scan_interval_seconds присутствует в файле.
	scanIntervalSet bool
}

// NotificationConfig — настройки email-уведомлений.
type NotificationConfig struct {
	SystemConfigFile        string   `json:"system_config_file,omitempty"`
	SenderEmail             string   `json:"sender_email,omitempty"`
	RecipientEmailAddresses []string `json:"recipient_email_addresses,omitempty"`
	EmailURL                string   `json:"email_url,omitempty"`
	AuthURL                 string   `json:"auth_url,omitempty"`
	ClientID                string   `json:"client_id,omitempty"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	SubjectTag              string   `json:"subject_tag,omitempty"`
}

// Enabled возвращает true, если настроен адрес отправки email.
func (n *NotificationConfig) Enabled() bool {
	return n != nil && n.EmailURL != ""
}

// Tag возвращает subject_tag или значение по умолчанию.
func (n *NotificationConfig) Tag() string {
	if n == nil || n.SubjectTag == "" {
		return DefaultSubjectTag
	}
	return n.SubjectTag
}

// Режимы Execution Engine.
const (
	ExecutionModeNextflow = "nextflow"
	ExecutionModeDryRun   = "dry-run"
)

// ExecutionConfig — настройки адаптера Execution Engine.
type ExecutionConfig struct {
	// Mode — "nextflow" (по умолчанию) или "dry-run".
	Mode string `json:"mode,omitempty"`

	// Command — исполняемый файл (default: "nextflow").
	Command string `json:"command,omitempty"`

	// Profile — значение -profile.
	Profile string `json:"profile,omitempty"`

	// ExtraArgs — дополнительные аргументы перед параметрами pipeline.
	ExtraArgs []string `json:"extra_args,omitempty"`
}

// ModeOrDefault возвращает режим с учётом умолчания.
func (e ExecutionConfig) ModeOrDefault() string {
	if e.Mode == "" {
		return ExecutionModeNextflow
	}
	return e.Mode
}

// ArchiveConfig — S3-совместимое хранилище для архивации output-каталогов.
type ArchiveConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	UseSSL    bool   `json:"use_ssl,omitempty"`
}

// Validate проверяет обязательные поля архива.
func (a *ArchiveConfig) Validate() error {
	if a == nil {
		return nil
	}
	var missing []string
	if strings.TrimSpace(a.Endpoint) == "" {
		missing = append(missing, "endpoint")
	}
	if strings.TrimSpace(a.Bucket) == "" {
		missing = append(missing, "bucket")
	}
	if a.AccessKey == "" || a.SecretKey == "" {
		missing = append(missing, "credentials")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidArchive, strings.Join(missing, ", "))
	}
	return nil
}

// ScanInterval возвращает паузу между проходами.
//
// Явно заданный в файле 0 означает проходы без паузы; отсутствующее,
// отрицательное или непарсируемое значение даёт DefaultScanIntervalSeconds.
func (c *Config) ScanInterval() time.Duration {
	secs := float64(c.ScanIntervalSeconds)
	switch {
	case secs > 0:
	case secs == 0 && c.scanIntervalSet:
	default:
		secs = DefaultScanIntervalSeconds
	}
	return time.Duration(secs * float64(time.Second))
}

// Concurrency возвращает число параллельно обрабатываемых runs.
func (c *Config) Concurrency() int {
	if c.MaxConcurrentRuns <= 0 {
		return DefaultMaxConcurrentRuns
	}
	return c.MaxConcurrentRuns
}

// IsExcluded проверяет, исключён ли run из обработки.
func (c *Config) IsExcluded(runID string) bool {
	for _, id := range c.ExcludedRuns {
		if id == runID {
			return true
		}
	}
	return false
}

// Seconds — число секунд, принимающее JSON-число или числовую строку.
// Непарсируемое значение и null дают invalidSeconds, что означает
// значение по умолчанию.
type Seconds float64

const invalidSeconds Seconds = -1

// UnmarshalJSON реализует json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = invalidSeconds
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*s = Seconds(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		*s = invalidSeconds
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		*s = invalidSeconds
		return nil
	}
	*s = Seconds(f)
	return nil
}

// Load читает файл конфигурации.
//
// Формат определяется расширением: .yaml/.yml — YAML, иначе JSON.
// Если notification.system_config_file указывает на существующий файл,
// его ключи накладываются поверх inline-блока notification (ключ за ключом).
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoConfigPath
	}

	raw, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	if err := mergeNotificationFile(raw); err != nil {
		return nil, err
	}
	normalizeDependencies(raw)

	// Нормализуем документ через JSON, чтобы YAML и JSON
	// декодировались одинаковыми правилами.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}

	var cfg Config
	if err := json.Unmarshal(normalized, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	_, cfg.scanIntervalSet = raw["scan_interval_seconds"]

	return &cfg, nil
}

// normalizeDependencies приводит записи pipelines[].dependencies[] к ключам
// name/version. Принимается и форма pipeline_name/pipeline_version;
// при наличии обеих побеждает name/version.
func normalizeDependencies(doc map[string]any) {
	pipelines, _ := doc["pipelines"].([]any)
	for _, p := range pipelines {
		pipeline, ok := p.(map[string]any)
		if !ok {
			continue
		}
		deps, _ := pipeline["dependencies"].([]any)
		for _, d := range deps {
			dep, ok := d.(map[string]any)
			if !ok {
				continue
			}
			for alias, key := range dependencyAliases {
				v, ok := dep[alias]
				if !ok {
					continue
				}
				if _, exists := dep[key]; !exists {
					dep[key] = v
				}
				delete(dep, alias)
			}
		}
	}
}

var dependencyAliases = map[string]string{
	"pipeline_name":    "name",
	"pipeline_version": "version",
}

// readDocument читает JSON или YAML документ в map.
func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	doc := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
		}
	}
	if doc == nil {
		doc = make(map[string]any)
	}
	return doc, nil
}

// mergeNotificationFile накладывает system_config_file на блок notification.
func mergeNotificationFile(doc map[string]any) error {
	block, ok := doc["notification"].(map[string]any)
	if !ok {
		return nil
	}

	file, _ := block["system_config_file"].(string)
	if file == "" {
		return nil
	}
	if _, err := os.Stat(file); err != nil {
		// Файл не обязателен: используется только inline-блок.
		return nil
	}

	system, err := readDocument(file)
	if err != nil {
		return fmt.Errorf("notification system config: %w", err)
	}
	for k, v := range system {
		block[k] = v
	}
	return nil
}
