// Package engine содержит правила, общие для всех stage анализа.
//
// Включает:
//   - naming.go   — детерминированные имена output/work каталогов и артефактов
//   - resolver.go — проверка маркеров завершения зависимостей
//   - dag.go      — граф зависимостей между stage (алгоритм Кана)
//   - validate.go — проверка списка pipeline в конфигурации
//   - template.go — рендеринг параметров ({{ .Run.ID }})
//
// Вся координация между stage идёт через файловую систему: stage готов,
// когда у каждой его зависимости есть CompletionMarker.
package engine
