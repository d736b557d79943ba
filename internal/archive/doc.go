// Package archive копирует output-каталоги завершённых stages в
// S3-совместимое хранилище (MinIO).
//
// Ключ объекта: {prefix}/{run_id}/{short}-{minor}-output/{относительный путь}.
package archive
