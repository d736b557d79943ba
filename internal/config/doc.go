// Package config загружает и хранит конфигурацию auto-analysis.
//
// Конфигурация читается из JSON (или YAML) файла в начале каждого цикла
// оркестратора. Неудачная перезагрузка не прерывает работу: Store продолжает
// выдавать последний успешно загруженный снимок.
package config
