package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/security"
	"github.com/oshokin/catpoint/internal/wire"
)

// SensorHandler is the part of the engine the subscriber drives.
type SensorHandler interface {
	// ChangeSensor updates a tracked sensor by ID under one engine lock.
	ChangeSensor(ctx context.Context, id string, active bool) error
	// HandleSensorChange records a change for a sensor, tracking it if needed.
	HandleSensorChange(ctx context.Context, sensor *domain.Sensor, active bool) error
}

// Subscriber feeds sensor events from the broker into the engine.
type Subscriber struct {
	client  paho.Client
	topics  Topics
	handler SensorHandler
	timeout time.Duration
	// ctx is the base context for message handling; paho callbacks carry none.
	ctx context.Context //nolint:containedctx // paho callbacks have no context
}

// NewSubscriber creates a Subscriber. ctx scopes logging and engine calls made
// from message callbacks.
func NewSubscriber(
	ctx context.Context,
	client paho.Client,
	topics Topics,
	handler SensorHandler,
	timeout time.Duration,
) *Subscriber {
	return &Subscriber{
		client:  client,
		topics:  topics,
		handler: handler,
		timeout: timeout,
		ctx:     logger.WithName(ctx, "mqtt"),
	}
}

// Subscribe starts consuming the sensor event topic.
func (s *Subscriber) Subscribe() error {
	if err := wait(s.client.Subscribe(s.topics.SensorEvent, 1, s.onMessage), s.timeout); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.topics.SensorEvent, err)
	}

	logger.InfoKV(s.ctx, "Subscribed to sensor events", "topic", s.topics.SensorEvent)

	return nil
}

// Unsubscribe stops consuming the sensor event topic.
func (s *Subscriber) Unsubscribe() error {
	return wait(s.client.Unsubscribe(s.topics.SensorEvent), s.timeout)
}

func (s *Subscriber) onMessage(_ paho.Client, msg paho.Message) {
	if err := s.handle(s.ctx, msg.Payload()); err != nil {
		logger.WarnKV(s.ctx, "Failed to handle sensor event", "topic", msg.Topic(), "error", err)
	}
}

// handle decodes one sensor event and applies it. Sensors the engine does not
// track yet are registered as doors.
func (s *Subscriber) handle(ctx context.Context, payload []byte) error {
	var change wire.SensorChange
	if err := json.Unmarshal(payload, &change); err != nil {
		return fmt.Errorf("failed to decode sensor event: %w", err)
	}

	if change.ID == "" {
		return fmt.Errorf("%w: sensor event without id", security.ErrInvalidArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.handler.ChangeSensor(ctx, change.ID, change.Active)
	if !errors.Is(err, security.ErrUnknownSensor) {
		return err
	}

	return s.handler.HandleSensorChange(ctx, domain.NewSensor(change.ID, domain.SensorTypeDoor), change.Active)
}
