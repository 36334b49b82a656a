package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AngelAdrianVR/WashApp/internal/models"
	"github.com/AngelAdrianVR/WashApp/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	servicePrefix = "catalog.service."
	userPrefix    = "catalog.user."
)

// errMalformed marks messages that can never succeed and must not be requeued.
var errMalformed = errors.New("malformed catalog message")

// CatalogConsumer mirrors services and users published by the admin app into
// the local tables. A record with is_active=false is how deletions arrive.
type CatalogConsumer struct {
	services repository.ServiceRepository
	users    repository.UserRepository
	log      *zap.Logger
	done     chan struct{}
}

func NewCatalogConsumer(services repository.ServiceRepository, users repository.UserRepository, log *zap.Logger) *CatalogConsumer {
	return &CatalogConsumer{services: services, users: users, log: log, done: make(chan struct{})}
}

// Start handles deliveries until msgs closes or ctx is cancelled.
func (cc *CatalogConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	go func() {
		defer close(cc.done)
		for {
			select {
			case <-ctx.Done():
				cc.log.Info("catalog consumer stopping")
				return
			case msg, ok := <-msgs:
				if !ok {
					cc.log.Info("catalog channel closed, stopping consumer")
					return
				}
				cc.handleMessage(ctx, msg)
			}
		}
	}()
}

// Done is closed once the consumer goroutine has returned.
func (cc *CatalogConsumer) Done() <-chan struct{} {
	return cc.done
}

func (cc *CatalogConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	log := cc.log.With(zap.String("routing_key", msg.RoutingKey), zap.String("message_id", msg.MessageId))

	err := cc.apply(ctx, msg.RoutingKey, msg.Body)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, errMalformed):
		log.Warn("dropping catalog message", zap.Error(err))
		_ = msg.Nack(false, false)
	default:
		log.Error("catalog sync failed, requeueing", zap.Error(err))
		_ = msg.Nack(false, true)
	}
}

func (cc *CatalogConsumer) apply(ctx context.Context, routingKey string, body []byte) error {
	switch {
	case strings.HasPrefix(routingKey, servicePrefix):
		var svc models.Service
		if err := json.Unmarshal(body, &svc); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		if svc.ID == 0 || svc.Name == "" || svc.DurationMinutes < 0 || svc.Price.IsNegative() || !svc.Type.Valid() {
			return fmt.Errorf("%w: invalid service %d", errMalformed, svc.ID)
		}
		if err := cc.services.Upsert(ctx, &svc); err != nil {
			return fmt.Errorf("upsert service %d: %w", svc.ID, err)
		}
		cc.log.Info("synced service", zap.Uint("service_id", svc.ID), zap.Bool("active", svc.IsActive))
		return nil

	case strings.HasPrefix(routingKey, userPrefix):
		var user models.User
		if err := json.Unmarshal(body, &user); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		if user.ID == 0 || !user.Role.Valid() {
			return fmt.Errorf("%w: invalid user %d", errMalformed, user.ID)
		}
		if err := cc.users.Upsert(ctx, &user); err != nil {
			return fmt.Errorf("upsert user %d: %w", user.ID, err)
		}
		cc.log.Info("synced user", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
		return nil

	default:
		return fmt.Errorf("%w: unexpected routing key %q", errMalformed, routingKey)
	}
}
