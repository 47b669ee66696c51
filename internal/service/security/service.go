package security

import (
	"context"
	"errors"
	"sync"

	"github.com/oshokin/catpoint/internal/classifier"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	repo "github.com/oshokin/catpoint/internal/repository/state"
)

// Service is the alarm decision engine. It owns the cat-detection memory and
// the listener list; alarm and arming status live in the repository.
type Service struct {
	// repo holds sensors, alarm status and arming status.
	repo repo.Repository
	// classifier decides whether a camera frame contains a cat.
	classifier classifier.Classifier
	// threshold is the confidence passed to the classifier.
	threshold float32
	// listeners are notified in registration order.
	listeners []Listener
	// catDetected is the result of the latest image scan.
	catDetected bool
	// mu serializes every read-modify-write sequence and guards the fields above.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithConfidenceThreshold overrides the classifier confidence threshold.
func WithConfidenceThreshold(threshold float32) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// WithListeners registers listeners at construction time.
func WithListeners(listeners ...Listener) Option {
	return func(s *Service) {
		for _, l := range listeners {
			s.AddStatusListener(l)
		}
	}
}

// errNoRepository is returned when the service is built without storage.
var errNoRepository = errors.New("repository is required")

// New creates a Service backed by the provided repository and classifier.
func New(repository repo.Repository, imageClassifier classifier.Classifier, opts ...Option) (*Service, error) {
	if repository == nil {
		return nil, errNoRepository
	}

	if imageClassifier == nil {
		imageClassifier = classifier.Static{}
	}

	s := &Service{
		repo:       repository,
		classifier: imageClassifier,
		threshold:  config.DefaultConfidenceThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// AddSensor starts tracking a sensor and announces the new sensor list.
// Adding a tracked ID is a no-op. It never changes the alarm status.
func (s *Service) AddSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor == nil || sensor.ID == "" {
		return invalidArgument("sensor must have an id")
	}

	if !sensor.Type.Valid() {
		return invalidArgument("sensor %s has unknown type %q", sensor.ID, sensor.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sensors, err := s.repo.Sensors(ctx)
	if err != nil {
		return repositoryError("get sensors", err)
	}

	if domain.FindSensor(sensors, sensor.ID) != nil {
		logger.DebugKV(ctx, "Sensor already tracked", "sensor_id", sensor.ID)

		return nil
	}

	if err = s.repo.AddSensor(ctx, sensor); err != nil {
		return repositoryError("add sensor", err)
	}

	logger.InfoKV(ctx, "Sensor added", "sensor_id", sensor.ID, "type", sensor.Type)

	return s.announceSensors(ctx)
}

// RemoveSensor stops tracking a sensor and announces the new sensor list.
// Removing an unknown ID is a no-op. It never changes the alarm status.
func (s *Service) RemoveSensor(ctx context.Context, id string) error {
	if id == "" {
		return invalidArgument("sensor id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sensors, err := s.repo.Sensors(ctx)
	if err != nil {
		return repositoryError("get sensors", err)
	}

	if domain.FindSensor(sensors, id) == nil {
		logger.DebugKV(ctx, "Sensor not tracked, nothing to remove", "sensor_id", id)

		return nil
	}

	if err = s.repo.RemoveSensor(ctx, id); err != nil {
		return repositoryError("remove sensor", err)
	}

	logger.InfoKV(ctx, "Sensor removed", "sensor_id", id)

	return s.announceSensors(ctx)
}

// announceSensors re-reads the tracked sensors after a registration change and
// fans them out. Callers hold s.mu.
func (s *Service) announceSensors(ctx context.Context) error {
	sensors, err := s.repo.Sensors(ctx)
	if err != nil {
		return repositoryError("get sensors", err)
	}

	s.notifySensorStatus(ctx, sensors)

	return nil
}

// Sensors returns copies of every tracked sensor in insertion order.
func (s *Service) Sensors(ctx context.Context) ([]*domain.Sensor, error) {
	sensors, err := s.repo.Sensors(ctx)
	if err != nil {
		return nil, repositoryError("get sensors", err)
	}

	return sensors, nil
}


// Status returns a snapshot of sensors, alarm status and arming status.
func (s *Service) Status(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, repositoryError("get snapshot", err)
	}

	return snapshot, nil
}

// CatDetected reports the result of the latest image scan.
func (s *Service) CatDetected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.catDetected
}

// commitAlarmStatus writes next and reports whether it differs from previous.
// Callers hold s.mu and notify listeners only after all writes succeeded.
func (s *Service) commitAlarmStatus(
	ctx context.Context,
	previous, next domain.AlarmStatus,
) (bool, error) {
	if err := s.repo.SetAlarmStatus(ctx, next); err != nil {
		return false, repositoryError("set alarm status", err)
	}

	if previous == next {
		logger.DebugKV(ctx, "Alarm status confirmed", "status", next)

		return false, nil
	}

	logger.InfoKV(ctx, "Alarm status changed", "from", previous, "to", next)

	return true, nil
}
