package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewConsumer declares a durable queue bound to the exchange under each of
// the given routing key patterns.
func NewConsumer(url, queue string, bindings ...string) (*Consumer, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}

	closeAll := func() {
		ch.Close()
		conn.Close()
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	for _, key := range bindings {
		if err := ch.QueueBind(q.Name, key, ExchangeName, false, nil); err != nil {
			closeAll()
			return nil, fmt.Errorf("rabbitmq queue bind %s: %w", key, err)
		}
	}

	if err := ch.Qos(10, 0, false); err != nil {
		closeAll()
		return nil, fmt.Errorf("rabbitmq qos: %w", err)
	}

	return &Consumer{conn: conn, channel: ch, queue: q.Name}, nil
}

func (c *Consumer) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // manual ack after the upsert
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}
	return msgs, nil
}

func (c *Consumer) Queue() string {
	return c.queue
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
