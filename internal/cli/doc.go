// Package cli реализует инструмент командной строки auto-analysis-cli.
//
// # Обзор
//
// CLI — клиентская утилита для наблюдения за работающим оркестратором.
// Команды status и events работают через status API по HTTP и не
// импортируют внутренние пакеты сервера. Команда watch подключается к
// RabbitMQ напрямую через internal/mq.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для status API. Инкапсулирует запросы, парсинг ответов
// (DataResponse, ListResponse, ErrorResponse) и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8090")
//	status, err := client.Status()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: auto-analysis-cli events list --json | jq .
//
// ## Commands
//
//   - status: состояние цикла
//   - events: list, show
//   - watch: поток событий analysis.complete
//
// Фабричные функции (NewStatusCmd и т.д.) принимают clientFn и outputFn —
// замыкания для ленивого создания Client и Output после парсинга
// PersistentFlags.
package cli
