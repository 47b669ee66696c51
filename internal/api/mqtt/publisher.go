package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// alarmMessage is published on the alarm status topic.
type alarmMessage struct {
	Status      string `json:"status"`
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp"`
}

// sensorMessage describes one sensor on the sensor status topic.
type sensorMessage struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

// sensorsMessage is published on the sensor status topic.
type sensorsMessage struct {
	Sensors   []sensorMessage `json:"sensors"`
	Timestamp int64           `json:"timestamp"`
}

// catMessage is published on the cat detection topic.
type catMessage struct {
	Detected  bool  `json:"detected"`
	Timestamp int64 `json:"timestamp"`
}

// Publisher mirrors engine notifications to retained MQTT topics.
type Publisher struct {
	client  paho.Client
	topics  Topics
	timeout time.Duration
	now     func() time.Time
}

// NewPublisher creates a Publisher over a connected client.
func NewPublisher(client paho.Client, topics Topics, timeout time.Duration) *Publisher {
	return &Publisher{
		client:  client,
		topics:  topics,
		timeout: timeout,
		now:     time.Now,
	}
}

// AlarmStatusChanged publishes the new alarm status.
func (p *Publisher) AlarmStatusChanged(_ context.Context, status domain.AlarmStatus) error {
	return p.publish(p.topics.AlarmStatus, alarmMessage{
		Status:      status.String(),
		Description: status.Description(),
		Timestamp:   p.now().Unix(),
	})
}

// SensorStatusChanged publishes the tracked sensors.
func (p *Publisher) SensorStatusChanged(_ context.Context, sensors []*domain.Sensor) error {
	message := sensorsMessage{
		Sensors:   make([]sensorMessage, 0, len(sensors)),
		Timestamp: p.now().Unix(),
	}

	for _, s := range sensors {
		message.Sensors = append(message.Sensors, sensorMessage{
			ID:     s.ID,
			Name:   s.Name,
			Type:   s.Type.String(),
			Active: s.Active,
		})
	}

	return p.publish(p.topics.SensorStatus, message)
}

// CatDetected publishes the latest scan result.
func (p *Publisher) CatDetected(_ context.Context, detected bool) error {
	return p.publish(p.topics.CatDetected, catMessage{
		Detected:  detected,
		Timestamp: p.now().Unix(),
	})
}

func (p *Publisher) publish(topic string, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", topic, err)
	}

	if err = wait(p.client.Publish(topic, 1, true, payload), p.timeout); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	return nil
}
