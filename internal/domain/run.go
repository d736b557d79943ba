package domain

import "regexp"

// Run — единица работы, обнаруженная Run Discovery.
//
// Run неизменяем в течение одного прохода оркестратора:
// каждый цикл получает свежий набор runs из файловой системы.
type Run struct {
	// ID — идентификатор run (например, имя каталога секвенирования).
	ID string `json:"id"`

	// FastqDirectory — каталог с входными данными run.
	FastqDirectory string `json:"fastq_directory"`

	// Parameters — параметры уровня run, доступные в шаблонах как
	// {{ .Run.Parameters.key }} и подмешиваемые под параметры stage.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Param возвращает параметр run по ключу.
func (r Run) Param(key string) (any, bool) {
	v, ok := r.Parameters[key]
	return v, ok
}

// Ключи параметров, выводимых из ID run.
const (
	RunParamDate       = "run_date"
	RunParamInstrument = "instrument_id"
	RunParamNumber     = "run_number"
	RunParamFlowcell   = "flowcell_id"
)

// illuminaRunID: YYMMDD_INSTRUMENT_NNNN_FLOWCELL
var illuminaRunID = regexp.MustCompile(`^(\d{6})_([A-Za-z0-9]+)_(\d+)_([A-Za-z0-9-]+)$`)

// ParseRunParameters извлекает параметры из ID run в формате Illumina.
// Для ID другого вида возвращает nil.
func ParseRunParameters(id string) map[string]any {
	m := illuminaRunID.FindStringSubmatch(id)
	if m == nil {
		return nil
	}
	return map[string]any{
		RunParamDate:       m[1],
		RunParamInstrument: m[2],
		RunParamNumber:     m[3],
		RunParamFlowcell:   m[4],
	}
}
