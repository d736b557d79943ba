package domain

// StageOutcome — результат обработки одного stage в рамках прохода.
//
// Жизненный цикл stage внутри цикла:
//
//	Prepare → SKIPPED (зависимости не готовы / pipeline не поддерживается)
//	        ↘ EXECUTED → FINALIZED
//	                   ↘ FAILED
type StageOutcome string

const (
	// StageSkipped — stage не готов в этом цикле (не ошибка).
	StageSkipped StageOutcome = "SKIPPED"

	// StageUnsupported — для идентичности pipeline нет handler'а.
	StageUnsupported StageOutcome = "UNSUPPORTED"

	// StageFailed — Execution Engine вернул ошибку.
	StageFailed StageOutcome = "FAILED"

	// StageFinalized — stage выполнен и финализирован.
	StageFinalized StageOutcome = "FINALIZED"
)

// IsTerminal возвращает true, если stage был выполнен (успешно или нет).
func (s StageOutcome) IsTerminal() bool {
	switch s {
	case StageFailed, StageFinalized:
		return true
	default:
		return false
	}
}

// LoopPhase — фаза жизненного цикла оркестратора.
//
//	RUNNING → DRAINING → STOPPED
type LoopPhase string

const (
	// PhaseRunning — обычная работа.
	PhaseRunning LoopPhase = "RUNNING"

	// PhaseDraining — получен запрос на остановку, текущий проход дорабатывается.
	PhaseDraining LoopPhase = "DRAINING"

	// PhaseStopped — цикл завершён.
	PhaseStopped LoopPhase = "STOPPED"
)
