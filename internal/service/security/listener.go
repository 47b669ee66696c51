package security

import (
	"context"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// Listener receives notifications after state changes are committed.
// Implementations must be comparable (usually pointers) and must not call back
// into the Service from a notification.
type Listener interface {
	// AlarmStatusChanged is called when the alarm status moves to a new value.
	AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) error
	// SensorStatusChanged is called with all tracked sensors after any of them changed.
	SensorStatusChanged(ctx context.Context, sensors []*domain.Sensor) error
	// CatDetected is called with the result of every image scan.
	CatDetected(ctx context.Context, detected bool) error
}

// AddStatusListener registers l. Adding an already registered listener is a no-op.
func (s *Service) AddStatusListener(l Listener) {
	if l == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.listeners {
		if existing == l {
			return
		}
	}

	s.listeners = append(s.listeners, l)
}

// RemoveStatusListener unregisters l. Removing an unknown listener is a no-op.
func (s *Service) RemoveStatusListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.listeners {
		if existing == l {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

// notifyAlarmStatus fans out an alarm status change. Callers hold s.mu.
func (s *Service) notifyAlarmStatus(ctx context.Context, status domain.AlarmStatus) {
	s.notify(ctx, "alarm_status", func(l Listener) error {
		return l.AlarmStatusChanged(ctx, status)
	})
}

// notifySensorStatus fans out the tracked sensor list. Callers hold s.mu.
func (s *Service) notifySensorStatus(ctx context.Context, sensors []*domain.Sensor) {
	s.notify(ctx, "sensor_status", func(l Listener) error {
		return l.SensorStatusChanged(ctx, domain.CloneSensors(sensors))
	})
}

// notifyCatDetected fans out an image scan result. Callers hold s.mu.
func (s *Service) notifyCatDetected(ctx context.Context, detected bool) {
	s.notify(ctx, "cat_detected", func(l Listener) error {
		return l.CatDetected(ctx, detected)
	})
}

// notify calls every listener in registration order. Failures are logged and
// do not stop the remaining listeners.
func (s *Service) notify(ctx context.Context, event string, call func(Listener) error) {
	for i, l := range s.listeners {
		if err := call(l); err != nil {
			logger.WarnKV(ctx, "Status listener failed", "event", event, "listener", i, "error", err)
		}
	}
}
