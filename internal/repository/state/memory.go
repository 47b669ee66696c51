package state

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// MemoryRepository keeps the security state in process.
// Writes are applied to a copy and handed to the commit hook before they become
// visible, so a failed commit leaves the previous state intact.
type MemoryRepository struct {
	// snapshot is the committed state.
	snapshot *domain.Snapshot
	// commit persists a candidate snapshot; nil for pure in-memory storage.
	commit func(ctx context.Context, snapshot *domain.Snapshot) error
	// mu protects snapshot.
	mu sync.RWMutex
}

// NewMemoryRepository creates a repository seeded with the given snapshot,
// or with a fresh disarmed state when snapshot is nil.
func NewMemoryRepository(snapshot *domain.Snapshot) *MemoryRepository {
	if snapshot == nil {
		snapshot = domain.NewSnapshot()
	}

	seed := snapshot.Clone()
	seed.Normalize()

	return &MemoryRepository{
		snapshot: seed,
	}
}

// Sensors returns copies of all tracked sensors in registration order.
func (r *MemoryRepository) Sensors(_ context.Context) ([]*domain.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return domain.CloneSensors(r.snapshot.Sensors), nil
}

// AddSensor starts tracking a sensor. Adding a known ID is a no-op.
func (r *MemoryRepository) AddSensor(ctx context.Context, sensor *domain.Sensor) error {
	if err := validateSensor(sensor); err != nil {
		return err
	}

	return r.update(ctx, func(s *domain.Snapshot) bool {
		if domain.FindSensor(s.Sensors, sensor.ID) != nil {
			return false
		}

		s.Sensors = append(s.Sensors, sensor.Clone())

		return true
	})
}

// RemoveSensor stops tracking a sensor. Removing an unknown ID is a no-op.
func (r *MemoryRepository) RemoveSensor(ctx context.Context, id string) error {
	return r.update(ctx, func(s *domain.Snapshot) bool {
		for i, sensor := range s.Sensors {
			if sensor.ID == id {
				s.Sensors = append(s.Sensors[:i], s.Sensors[i+1:]...)
				return true
			}
		}

		return false
	})
}

// UpdateSensor replaces the stored sensor with the same ID or adds it.
func (r *MemoryRepository) UpdateSensor(ctx context.Context, sensor *domain.Sensor) error {
	if err := validateSensor(sensor); err != nil {
		return err
	}

	return r.update(ctx, func(s *domain.Snapshot) bool {
		for i, existing := range s.Sensors {
			if existing.ID == sensor.ID {
				s.Sensors[i] = sensor.Clone()
				return true
			}
		}

		s.Sensors = append(s.Sensors, sensor.Clone())

		return true
	})
}

// AlarmStatus returns the stored alarm status.
func (r *MemoryRepository) AlarmStatus(_ context.Context) (domain.AlarmStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot.AlarmStatus, nil
}

// SetAlarmStatus stores the alarm status.
func (r *MemoryRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: alarm status %q", ErrInvalidStatus, status)
	}

	return r.update(ctx, func(s *domain.Snapshot) bool {
		s.AlarmStatus = status
		return true
	})
}

// ArmingStatus returns the stored arming status.
func (r *MemoryRepository) ArmingStatus(_ context.Context) (domain.ArmingStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot.ArmingStatus, nil
}

// SetArmingStatus stores the arming status.
func (r *MemoryRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: arming status %q", ErrInvalidStatus, status)
	}

	return r.update(ctx, func(s *domain.Snapshot) bool {
		s.ArmingStatus = status
		return true
	})
}

// Snapshot returns a copy of the whole state.
func (r *MemoryRepository) Snapshot(_ context.Context) (*domain.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot.Clone(), nil
}

// update applies mutate to a copy of the state, commits it and swaps it in.
// mutate reports whether anything changed; unchanged copies are discarded.
func (r *MemoryRepository) update(ctx context.Context, mutate func(*domain.Snapshot) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidate := r.snapshot.Clone()
	if !mutate(candidate) {
		return nil
	}

	if r.commit != nil {
		if err := r.commit(ctx, candidate); err != nil {
			return err
		}
	}

	r.snapshot = candidate

	return nil
}
