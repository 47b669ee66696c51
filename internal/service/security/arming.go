package security

import (
	"context"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// HandleArmingChange switches the arming status.
//
// Disarming always clears the alarm. Arming resets every tracked sensor to
// inactive first; then, if the latest scan saw a cat and the home profile is
// being engaged, the alarm is raised. The arming status itself is persisted last.
func (s *Service) HandleArmingChange(ctx context.Context, status domain.ArmingStatus) error {
	if !status.Valid() {
		return invalidArgument("unknown arming status %q", status)
	}

	ctx = logger.WithKV(ctx, "arming_status", status)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.AlarmStatus(ctx)
	if err != nil {
		return repositoryError("get alarm status", err)
	}

	var (
		next         = current
		resetSensors []*domain.Sensor
	)

	switch status {
	case domain.ArmingDisarmed:
		next = domain.AlarmNone
	case domain.ArmingArmedHome, domain.ArmingArmedAway:
		if resetSensors, err = s.resetSensors(ctx); err != nil {
			return err
		}

		if s.catDetected && status == domain.ArmingArmedHome {
			logger.Info(ctx, "Cat seen by the last scan, raising alarm on home arming")

			next = domain.AlarmActive
		}
	}

	alarmChanged := false

	if status == domain.ArmingDisarmed || next != current {
		if alarmChanged, err = s.commitAlarmStatus(ctx, current, next); err != nil {
			return err
		}
	}

	if err = s.repo.SetArmingStatus(ctx, status); err != nil {
		return repositoryError("set arming status", err)
	}

	logger.InfoKV(ctx, "Arming status changed", "alarm_status", next)

	if resetSensors != nil {
		s.notifySensorStatus(ctx, resetSensors)
	}

	if alarmChanged {
		s.notifyAlarmStatus(ctx, next)
	}

	return nil
}

// resetSensors deactivates and persists every tracked sensor. Callers hold s.mu.
func (s *Service) resetSensors(ctx context.Context) ([]*domain.Sensor, error) {
	sensors, err := s.repo.Sensors(ctx)
	if err != nil {
		return nil, repositoryError("get sensors", err)
	}

	for _, sensor := range sensors {
		sensor.Active = false

		if err = s.repo.UpdateSensor(ctx, sensor); err != nil {
			return nil, repositoryError("reset sensor "+sensor.ID, err)
		}
	}

	return sensors, nil
}
