package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *zap.Logger
	mu      sync.Mutex
}

func NewPublisher(url string, log *zap.Logger) (*Publisher, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, channel: ch, log: log}, nil
}

// Publish sends payload as a persistent JSON message. amqp channels are not
// safe for concurrent publishing, so calls are serialized.
func (p *Publisher) Publish(routingKey string, payload any) error {
	msg, err := NewMessage(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.log.Debug("published message",
		zap.String("exchange", ExchangeName),
		zap.String("routing_key", routingKey),
		zap.String("message_id", msg.MessageId))
	return nil
}

// NewMessage wraps payload in a persistent JSON publishing with a fresh message ID.
func NewMessage(payload any) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal payload: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
