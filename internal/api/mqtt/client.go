// Package mqtt bridges the security engine and an MQTT broker.
//
// Publisher is an engine listener that mirrors status changes to retained
// topics. Subscriber feeds sensor events received from the broker back into
// the engine.
package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid"

	"github.com/oshokin/catpoint/internal/config"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt operation timed out")

// Topics lists the topics used under a prefix.
type Topics struct {
	// AlarmStatus receives the alarm status after every change.
	AlarmStatus string
	// SensorStatus receives the sensor list after every change.
	SensorStatus string
	// CatDetected receives the latest image scan result.
	CatDetected string
	// SensorEvent is consumed for sensor activation changes.
	SensorEvent string
}

// NewTopics builds the topic set for prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = config.DefaultTopicPrefix
	}

	return Topics{
		AlarmStatus:  prefix + "/alarm/status",
		SensorStatus: prefix + "/sensor/status",
		CatDetected:  prefix + "/cat/detected",
		SensorEvent:  prefix + "/sensor/event",
	}
}

// NewClientOptions builds paho options for the configured broker.
// Every process gets a random client ID so several servers can share a broker.
func NewClientOptions(cfg *config.MQTT) (*paho.ClientOptions, error) {
	clientID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate client id: %w", err)
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID("catpoint-" + clientID.String())
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(false)
	opts.SetAutoReconnect(true)
	opts.SetTLSConfig(&tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for self-signed brokers
	})

	return opts, nil
}

// wait blocks on token for at most timeout and returns its error.
func wait(token paho.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}

	return token.Error()
}

// Connect connects client and waits for the broker acknowledgement.
func Connect(client paho.Client, timeout time.Duration) error {
	if err := wait(client.Connect(), timeout); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	return nil
}
