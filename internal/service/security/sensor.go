package security

import (
	"context"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// HandleSensorChange records a sensor activation change and re-evaluates the
// alarm status. While the alarm is fully raised, sensor churn is persisted but
// never moves the alarm status.
//
// Deactivating a sensor that is already inactive is a no-op: nothing is written
// and no listener is notified. A sensor that is not tracked is upserted.
func (s *Service) HandleSensorChange(ctx context.Context, sensor *domain.Sensor, active bool) error {
	if sensor == nil || sensor.ID == "" {
		return invalidArgument("sensor must have an id")
	}

	ctx = logger.WithKV(ctx, "sensor_id", sensor.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	sensors, err := s.repo.Sensors(ctx)
	if err != nil {
		return repositoryError("get sensors", err)
	}

	return s.applySensorChange(ctx, sensors, sensor, active)
}

// ChangeSensor changes the activation of a tracked sensor. Unlike
// HandleSensorChange it never registers a sensor: an unknown ID yields
// ErrUnknownSensor, decided under the same lock as the change itself.
func (s *Service) ChangeSensor(ctx context.Context, id string, active bool) error {
	if id == "" {
		return invalidArgument("sensor id is required")
	}

	ctx = logger.WithKV(ctx, "sensor_id", id)

	s.mu.Lock()
	defer s.mu.Unlock()

	sensors, err := s.repo.Sensors(ctx)
	if err != nil {
		return repositoryError("get sensors", err)
	}

	tracked := domain.FindSensor(sensors, id)
	if tracked == nil {
		return ErrUnknownSensor
	}

	return s.applySensorChange(ctx, sensors, tracked.Clone(), active)
}

// applySensorChange runs the alarm ladder for one sensor event against the
// tracked sensors read under s.mu. Callers hold s.mu.
func (s *Service) applySensorChange(
	ctx context.Context,
	sensors []*domain.Sensor,
	sensor *domain.Sensor,
	active bool,
) error {
	wasActive := sensor.Active

	tracked := domain.FindSensor(sensors, sensor.ID)
	if tracked != nil {
		wasActive = tracked.Active
	}

	if !active && !wasActive {
		logger.DebugKV(ctx, "Sensor already inactive, ignoring deactivation")

		sensor.Active = false

		return nil
	}

	current, err := s.repo.AlarmStatus(ctx)
	if err != nil {
		return repositoryError("get alarm status", err)
	}

	updated := sensor.Clone()
	updated.Active = active

	if err = s.repo.UpdateSensor(ctx, updated); err != nil {
		return repositoryError("update sensor", err)
	}

	sensor.Active = active

	if tracked != nil {
		tracked.Active = active
	} else {
		logger.WarnKV(ctx, "Sensor was not tracked, registered on activation change")

		sensors = append(sensors, updated)
	}

	next := nextOnSensorChange(current, active, domain.AnyActive(sensors))

	changed := false
	if next != current {
		if changed, err = s.commitAlarmStatus(ctx, current, next); err != nil {
			return err
		}
	}

	logger.InfoKV(ctx, "Sensor activation changed", "active", active, "alarm_status", next)

	s.notifySensorStatus(ctx, sensors)

	if changed {
		s.notifyAlarmStatus(ctx, next)
	}

	return nil
}

// nextOnSensorChange applies the alarm ladder to a sensor event.
// activated reports whether the event turned a sensor on; anyActive whether any
// tracked sensor is active after the event.
func nextOnSensorChange(current domain.AlarmStatus, activated, anyActive bool) domain.AlarmStatus {
	switch current {
	case domain.AlarmActive:
		return domain.AlarmActive
	case domain.AlarmPending:
		if activated {
			return domain.AlarmActive
		}

		if !anyActive {
			return domain.AlarmNone
		}

		return domain.AlarmPending
	case domain.AlarmNone:
		if activated {
			return domain.AlarmPending
		}

		return domain.AlarmNone
	default:
		return current
	}
}
