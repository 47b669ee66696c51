package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// exerciseRepository runs the behavior every Repository implementation must share.
func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()

	ctx := context.Background()

	// Fresh state.
	alarm, err := repo.AlarmStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.AlarmNone, alarm)

	arming, err := repo.ArmingStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.ArmingDisarmed, arming)

	sensors, err := repo.Sensors(ctx)
	require.NoError(t, err)
	require.Empty(t, sensors)

	// Registration keeps order and ignores duplicates.
	door := domain.NewSensor("front-door", domain.SensorTypeDoor)
	window := domain.NewSensor("kitchen-window", domain.SensorTypeWindow)

	require.NoError(t, repo.AddSensor(ctx, door))
	require.NoError(t, repo.AddSensor(ctx, window))
	require.NoError(t, repo.AddSensor(ctx, &domain.Sensor{ID: "front-door", Name: "dup", Type: domain.SensorTypeMotion}))
	require.ErrorIs(t, repo.AddSensor(ctx, nil), ErrInvalidSensor)
	require.ErrorIs(t, repo.UpdateSensor(ctx, new(domain.Sensor)), ErrInvalidSensor)

	sensors, err = repo.Sensors(ctx)
	require.NoError(t, err)
	require.Equal(t, []*domain.Sensor{door, window}, sensors)

	// Update existing keeps position, update unknown upserts.
	activeDoor := door.Clone()
	activeDoor.Active = true
	require.NoError(t, repo.UpdateSensor(ctx, activeDoor))

	motion := domain.NewSensor("hall-motion", domain.SensorTypeMotion)
	require.NoError(t, repo.UpdateSensor(ctx, motion))

	sensors, err = repo.Sensors(ctx)
	require.NoError(t, err)
	require.Equal(t, []*domain.Sensor{activeDoor, window, motion}, sensors)

	// Returned sensors are copies.
	sensors[0].Active = false

	sensors, err = repo.Sensors(ctx)
	require.NoError(t, err)
	require.True(t, sensors[0].Active)

	// Removal, including unknown IDs.
	require.NoError(t, repo.RemoveSensor(ctx, window.ID))
	require.NoError(t, repo.RemoveSensor(ctx, "missing"))

	// Statuses.
	require.NoError(t, repo.SetAlarmStatus(ctx, domain.AlarmPending))
	require.NoError(t, repo.SetArmingStatus(ctx, domain.ArmingArmedAway))
	require.ErrorIs(t, repo.SetAlarmStatus(ctx, "SIREN"), ErrInvalidStatus)
	require.ErrorIs(t, repo.SetArmingStatus(ctx, "VACATION"), ErrInvalidStatus)

	snapshot, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, &domain.Snapshot{
		Sensors:      []*domain.Sensor{activeDoor, motion},
		AlarmStatus:  domain.AlarmPending,
		ArmingStatus: domain.ArmingArmedAway,
	}, snapshot)
}

// TestMemoryRepository verifies the in-memory implementation.
func TestMemoryRepository(t *testing.T) {
	t.Parallel()

	exerciseRepository(t, NewMemoryRepository(nil))
}

// TestFileRepository verifies the file-backed implementation.
func TestFileRepository(t *testing.T) {
	t.Parallel()

	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	exerciseRepository(t, repo)
}

// TestSQLiteRepository verifies the SQLite implementation.
func TestSQLiteRepository(t *testing.T) {
	t.Parallel()

	repo, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "db", "catpoint.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = repo.Close()
	})

	exerciseRepository(t, repo)
}

// TestMemoryRepository_SeedIsCopied ensures the seed snapshot is not aliased.
func TestMemoryRepository_SeedIsCopied(t *testing.T) {
	t.Parallel()

	seed := &domain.Snapshot{
		Sensors: []*domain.Sensor{domain.NewSensor("a", domain.SensorTypeDoor)},
	}

	repo := NewMemoryRepository(seed)
	seed.Sensors[0].Active = true

	snapshot, err := repo.Snapshot(context.Background())
	require.NoError(t, err)
	require.False(t, snapshot.Sensors[0].Active)
	require.Equal(t, domain.AlarmNone, snapshot.AlarmStatus)
	require.Equal(t, domain.ArmingDisarmed, snapshot.ArmingStatus)
}
