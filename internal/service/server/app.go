package server

import (
	"context"
	"errors"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	mqttapi "github.com/oshokin/catpoint/internal/api/mqtt"
	"github.com/oshokin/catpoint/internal/classifier"
	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/listener/metrics"
	"github.com/oshokin/catpoint/internal/logger"
	repo "github.com/oshokin/catpoint/internal/repository/state"
	"github.com/oshokin/catpoint/internal/service/security"
)

// mqttQuiesce is how long Disconnect waits for in-flight MQTT work, in milliseconds.
const mqttQuiesce = 250

// app holds the engine and the collaborators built around it.
type app struct {
	// engine is the alarm decision engine.
	engine *security.Service
	// metrics is nil when the Prometheus endpoint is disabled.
	metrics *metrics.Listener
	// subscriber is nil when MQTT is disabled.
	subscriber *mqttapi.Subscriber
	// closers release resources in reverse order.
	closers []func() error
}

// newApp opens storage, builds the classifier and listeners and wires the
// engine. MQTT is connected and subscribed when a broker is configured.
func newApp(ctx context.Context, settings *config.Config) (*app, error) {
	repository, closeRepository, err := repo.Open(ctx, settings.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", settings.Storage.Backend, err)
	}

	a := &app{
		closers: []func() error{closeRepository},
	}

	if err = a.build(ctx, settings, repository); err != nil {
		return nil, errors.Join(err, a.close())
	}

	return a, nil
}

func (a *app) build(ctx context.Context, settings *config.Config, repository repo.Repository) error {
	imageClassifier, err := classifier.New(settings.Classifier)
	if err != nil {
		return fmt.Errorf("build classifier: %w", err)
	}

	var listeners []security.Listener

	if settings.Metrics.ListenAddress != "" {
		snapshot, snapshotErr := repository.Snapshot(ctx)
		if snapshotErr != nil {
			return fmt.Errorf("read initial state: %w", snapshotErr)
		}

		a.metrics = metrics.New()
		a.metrics.Seed(snapshot)
		listeners = append(listeners, a.metrics)
	}

	var (
		client paho.Client
		topics = mqttapi.NewTopics(settings.MQTT.TopicPrefix)
	)

	if settings.MQTT.Enabled() {
		if client, err = connectMQTT(settings); err != nil {
			return err
		}

		a.closers = append(a.closers, func() error {
			client.Disconnect(mqttQuiesce)

			return nil
		})

		listeners = append(listeners, mqttapi.NewPublisher(client, topics, settings.Timeout))

		logger.InfoKV(ctx, "Connected to MQTT broker", "broker", settings.MQTT.BrokerURL)
	}

	a.engine, err = security.New(
		repository,
		imageClassifier,
		security.WithConfidenceThreshold(settings.ConfidenceThreshold),
		security.WithListeners(listeners...),
	)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	if client != nil {
		a.subscriber = mqttapi.NewSubscriber(ctx, client, topics, a.engine, settings.Timeout)
		if err = a.subscriber.Subscribe(); err != nil {
			return err
		}
	}

	return nil
}

func connectMQTT(settings *config.Config) (paho.Client, error) {
	opts, err := mqttapi.NewClientOptions(&settings.MQTT)
	if err != nil {
		return nil, err
	}

	client := paho.NewClient(opts)
	if err = mqttapi.Connect(client, settings.Timeout); err != nil {
		return nil, err
	}

	return client, nil
}

// close releases every resource acquired by newApp. The sensor event
// subscription is dropped before the broker connection closes.
func (a *app) close() error {
	var errs []error

	if a.subscriber != nil {
		if err := a.subscriber.Unsubscribe(); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe from sensor events: %w", err))
		}

		a.subscriber = nil
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	a.closers = nil

	return errors.Join(errs...)
}
