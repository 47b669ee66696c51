package state

import (
	"context"
	"errors"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Repository defines persistence operations for the security state.
// UpdateSensor upserts: updating an unknown sensor starts tracking it.
type Repository interface {
	Sensors(ctx context.Context) ([]*domain.Sensor, error)
	AddSensor(ctx context.Context, sensor *domain.Sensor) error
	RemoveSensor(ctx context.Context, id string) error
	UpdateSensor(ctx context.Context, sensor *domain.Sensor) error
	AlarmStatus(ctx context.Context) (domain.AlarmStatus, error)
	SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error
	ArmingStatus(ctx context.Context) (domain.ArmingStatus, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
}

var (
	// ErrNotFound is returned when no persisted state exists yet.
	ErrNotFound = errors.New("state not found")
	// ErrInvalidSensor is returned when a sensor is nil or has no ID.
	ErrInvalidSensor = errors.New("sensor must have an id")
	// ErrInvalidStatus is returned when an unknown alarm or arming status is stored.
	ErrInvalidStatus = errors.New("invalid status")
)

// validateSensor checks that a sensor can be stored.
func validateSensor(sensor *domain.Sensor) error {
	if sensor == nil || sensor.ID == "" {
		return ErrInvalidSensor
	}

	return nil
}
