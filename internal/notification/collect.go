package notification

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/shaiso/autoanalysis/internal/parsers"
)

const (
	summaryPattern = "*_summary.csv"
	libraryIDField = "library_id"
)

// Library — строка сводки по одной библиотеке.
// Values выровнены по EmailData.Columns.
type Library struct {
	ID     string
	Values []string
}

// EmailData — данные для письма о завершении анализа.
type EmailData struct {
	// RunID — имя родительского каталога outputDir.
	RunID string

	// Pipeline — имя самого outputDir ({short}-{minor}-output).
	Pipeline string

	OutputDir string

	// Columns — колонки сводки кроме library_id, в порядке сортировки.
	Columns []string

	// Libraries отсортированы по ID.
	Libraries []Library
}

// CollectEmailData собирает данные из output-каталога stage.
//
// Сводка по библиотекам берётся из первого *_summary.csv, если он есть;
// строки без library_id пропускаются. Отсутствие сводки не ошибка.
func CollectEmailData(outputDir string) (*EmailData, error) {
	outputDir = filepath.Clean(outputDir)
	data := &EmailData{
		RunID:     filepath.Base(filepath.Dir(outputDir)),
		Pipeline:  filepath.Base(outputDir),
		OutputDir: outputDir,
		Libraries: []Library{},
	}

	matches, err := filepath.Glob(filepath.Join(outputDir, summaryPattern))
	if err != nil {
		return nil, fmt.Errorf("glob summary: %w", err)
	}
	if len(matches) == 0 {
		return data, nil
	}
	slices.Sort(matches)

	rows, err := parsers.ParseCSV(matches[0], parsers.Options{})
	if err != nil {
		return nil, err
	}

	columns := make(map[string]bool)
	byID := make(map[string]map[string]any, len(rows))
	for _, row := range rows {
		id, _ := row[libraryIDField].(string)
		if id == "" {
			continue
		}
		byID[id] = row
		for k := range row {
			if k != libraryIDField {
				columns[k] = true
			}
		}
	}

	for k := range columns {
		data.Columns = append(data.Columns, k)
	}
	slices.Sort(data.Columns)

	for id, row := range byID {
		lib := Library{ID: id, Values: make([]string, len(data.Columns))}
		for i, col := range data.Columns {
			if v, ok := row[col]; ok && v != nil {
				lib.Values[i] = fmt.Sprint(v)
			}
		}
		data.Libraries = append(data.Libraries, lib)
	}
	slices.SortFunc(data.Libraries, func(a, b Library) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return data, nil
}
