// Package mq публикует события auto-analysis в RabbitMQ и читает их обратно.
//
// Структура:
//   - connection.go — соединение с reconnect и graceful shutdown
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация analysis.complete
//   - consumer.go   — потребление (auto-analysis-cli watch, downstream)
//
// Exchanges:
//   - autoanalysis.events — topic, routing key analysis.complete
//   - autoanalysis.dlq    — dead letter queue
package mq
