package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Options — настройки разбора табличного файла.
type Options struct {
	// Delimiter — разделитель полей (default: ',').
	Delimiter rune

	// IntFields — поля, приводимые к int. Непарсируемое значение даёт nil.
	IntFields []string

	// FloatFields — поля, приводимые к float64. Непарсируемое значение даёт nil.
	FloatFields []string

	// Rename — переименование полей (исходное имя → новое).
	// Применяется после приведения типов, поэтому IntFields и FloatFields
	// указываются исходными именами.
	Rename map[string]string
}

// ParseCSV читает файл с заголовком и возвращает строки как map.
func ParseCSV(path string, opts Options) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

// Parse читает табличные данные с заголовком из r.
func Parse(r io.Reader, opts Options) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	// Короткие и длинные строки допустимы: недостающие поля пропускаются
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	ints := toSet(opts.IntFields)
	floats := toSet(opts.FloatFields)

	rows := make([]map[string]any, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(map[string]any, len(header))
		for i, field := range header {
			if i >= len(record) {
				break
			}
			row[field] = castValue(field, record[i], ints, floats)
		}

		for from, to := range opts.Rename {
			if v, ok := row[from]; ok {
				delete(row, from)
				row[to] = v
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func castValue(field, value string, ints, floats map[string]bool) any {
	switch {
	case ints[field]:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil
		}
		return n
	case floats[field]:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil
		}
		return f
	default:
		return value
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}
