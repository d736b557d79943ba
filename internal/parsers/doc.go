// Package parsers разбирает табличные выходные файлы pipeline.
package parsers
