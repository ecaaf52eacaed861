package matching

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const matchRoutingKey = "match.created"

// Consumer feeds match events from the bus into the pipeline.
type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.Logger
}

// StartConsumer binds a durable queue to the events exchange and starts
// consuming match events. Returns nil when AMQP is disabled; the internal
// HTTP trigger still works without a broker.
func StartConsumer(amqpURL, exchange, queue string, pipeline *Pipeline, log *zap.Logger) *Consumer {
	if amqpURL == "" {
		log.Info("match consumer disabled", zap.String("reason", "empty amqp url"))
		return nil
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		log.Warn("match consumer disabled", zap.Error(err))
		return nil
	}

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("match consumer disabled", zap.Error(err))
		_ = conn.Close()
		return nil
	}

	setup := func() error {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return err
		}
		return ch.QueueBind(queue, matchRoutingKey, exchange, false, nil)
	}
	if err := setup(); err != nil {
		log.Warn("match consumer disabled", zap.Error(err))
		_ = ch.Close()
		_ = conn.Close()
		return nil
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		log.Warn("match consumer disabled", zap.Error(err))
		_ = ch.Close()
		_ = conn.Close()
		return nil
	}

	consumer := &Consumer{conn: conn, ch: ch, log: log}
	go consumer.run(deliveries, pipeline)
	log.Info("match consumer started", zap.String("queue", queue))
	return consumer
}

func (c *Consumer) run(deliveries <-chan amqp.Delivery, pipeline *Pipeline) {
	for delivery := range deliveries {
		var event MatchEvent
		if err := json.Unmarshal(delivery.Body, &event); err != nil {
			c.log.Warn("discarding malformed match event", zap.Error(err))
			_ = delivery.Nack(false, false)
			continue
		}

		if _, err := pipeline.Ingest(context.Background(), event); err != nil {
			c.log.Warn("match ingest failed", zap.String("match_id", event.MatchID), zap.Error(err))
			_ = delivery.Nack(false, false)
			continue
		}
		_ = delivery.Ack(false)
	}
}

// Close shuts the consumer down. Safe on a nil receiver.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
