package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeEvents Exchange = "autoanalysis.events"
	ExchangeDLQ    Exchange = "autoanalysis.dlq"
)

// Queues — имена очередей.
const (
	QueueAnalysisComplete Queue = "analysis.complete"
	QueueDLQEvents        Queue = "dlq.events"
)

// Routing keys.
const (
	RoutingKeyAnalysisComplete RoutingKey = "analysis.complete"
	RoutingKeyDLQEvents        RoutingKey = "events"
)

// SetupTopology объявляет exchanges, queues и bindings.
// Операция идемпотентна: повторный вызов ничего не меняет.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		// topic: потребители могут подписаться на analysis.# целиком
		{ExchangeEvents, "topic"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQEvents),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// analysis.complete — с DLQ: сообщение, которое не смог обработать
		// потребитель, не теряется
		{QueueAnalysisComplete, dlqArgs},
		{QueueDLQEvents, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueAnalysisComplete, RoutingKeyAnalysisComplete, ExchangeEvents},
		{QueueDLQEvents, RoutingKeyDLQEvents, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  auto-analysis RabbitMQ topology:

    autoanalysis.events (topic)
    └── analysis.complete [routing: analysis.complete]
            Publisher: auto-analysis (after each finalized stage)
            Consumer:  auto-analysis-cli watch, downstream systems
            DLQ: dlq.events

    autoanalysis.dlq (direct)
    └── dlq.events [routing: events]
            Manual processing
  `
}

// DeclareWatchQueue создаёт временную эксклюзивную очередь, привязанную к
// autoanalysis.events по шаблону pattern (например "analysis.#").
// Наблюдатель получает копии событий и не забирает их у analysis.complete.
func DeclareWatchQueue(ctx context.Context, conn *Connection, pattern string) (Queue, error) {
	if pattern == "" {
		pattern = "analysis.#"
	}

	var name Queue
	err := conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		q, err := ch.QueueDeclare(
			"",    // имя генерирует брокер
			false, // durable
			true,  // delete when unused
			true,  // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare watch queue: %w", err)
		}
		if err := ch.QueueBind(q.Name, pattern, string(ExchangeEvents), false, nil); err != nil {
			return fmt.Errorf("bind watch queue %s: %w", q.Name, err)
		}
		name = Queue(q.Name)
		return nil
	})
	return name, err
}
