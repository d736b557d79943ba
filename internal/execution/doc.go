// Package execution запускает подготовленные stages.
//
// NextflowEngine вызывает nextflow и ждёт завершения процесса,
// DryRunEngine только логирует команду. Оба после успеха гарантируют
// наличие analysis_complete.json в output-каталоге.
package execution
