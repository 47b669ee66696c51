package security

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// newTestService builds a Service over the given repository with a never-cat classifier.
func newTestService(t *testing.T, r *recordingRepository) *Service {
	t.Helper()

	s, err := New(r, new(scriptedClassifier))
	require.NoError(t, err)

	return s
}

// TestHandleSensorChange_Activation covers the upward moves of the alarm ladder.
func TestHandleSensorChange_Activation(t *testing.T) {
	t.Parallel()

	cases := map[domain.AlarmStatus]domain.AlarmStatus{
		domain.AlarmNone:    domain.AlarmPending,
		domain.AlarmPending: domain.AlarmActive,
	}

	for current, want := range cases {
		sensors := sensorsOf(false)
		r := newRecordingRepository(domain.ArmingArmedHome, current, sensors...)
		s := newTestService(t, r)

		require.NoError(t, s.HandleSensorChange(context.Background(), sensors[0], true))
		require.Equal(t, []domain.AlarmStatus{want}, r.alarmWrites, current)
		require.True(t, sensors[0].Active)
		require.True(t, r.stored()[0].Active)
	}
}

// TestHandleSensorChange_PendingAllInactive verifies PENDING_ALARM clears when the last sensor deactivates.
func TestHandleSensorChange_PendingAllInactive(t *testing.T) {
	t.Parallel()

	sensors := sensorsOf(true)
	r := newRecordingRepository(domain.ArmingArmedHome, domain.AlarmPending, sensors...)
	s := newTestService(t, r)

	require.NoError(t, s.HandleSensorChange(context.Background(), sensors[0], false))
	require.Equal(t, []domain.AlarmStatus{domain.AlarmNone}, r.alarmWrites)
	require.False(t, r.stored()[0].Active)
}

// TestHandleSensorChange_PendingOthersActive verifies PENDING_ALARM holds while another sensor is active.
func TestHandleSensorChange_PendingOthersActive(t *testing.T) {
	t.Parallel()

	sensors := sensorsOf(true, true)
	r := newRecordingRepository(domain.ArmingArmedHome, domain.AlarmPending, sensors...)
	s := newTestService(t, r)

	require.NoError(t, s.HandleSensorChange(context.Background(), sensors[0], false))
	require.Empty(t, r.alarmWrites)
	require.Equal(t, domain.AlarmPending, r.alarm())
	require.Len(t, r.sensorWrites, 1)
}

// TestHandleSensorChange_AlarmIgnoresSensors ensures sensor churn never moves a raised alarm.
func TestHandleSensorChange_AlarmIgnoresSensors(t *testing.T) {
	t.Parallel()

	for _, active := range []bool{true, false} {
		sensors := sensorsOf(!active)
		r := newRecordingRepository(domain.ArmingArmedHome, domain.AlarmActive, sensors...)
		s := newTestService(t, r)

		require.NoError(t, s.HandleSensorChange(context.Background(), sensors[0], active))
		require.Empty(t, r.alarmWrites)
		require.Equal(t, domain.AlarmActive, r.alarm())
		// The sensor itself is still persisted.
		require.Equal(t, active, r.stored()[0].Active)
	}
}

// TestHandleSensorChange_ReactivationWhilePending escalates when an active sensor reports again.
func TestHandleSensorChange_ReactivationWhilePending(t *testing.T) {
	t.Parallel()

	sensors := sensorsOf(true)
	r := newRecordingRepository(domain.ArmingArmedHome, domain.AlarmPending, sensors...)
	s := newTestService(t, r)

	require.NoError(t, s.HandleSensorChange(context.Background(), sensors[0], true))
	require.Equal(t, []domain.AlarmStatus{domain.AlarmActive}, r.alarmWrites)
}

// TestHandleSensorChange_InactiveDeactivationIsNoop verifies no writes or notifications for redundant deactivation.
func TestHandleSensorChange_InactiveDeactivationIsNoop(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.AlarmStatus{domain.AlarmNone, domain.AlarmPending, domain.AlarmActive} {
		sensors := sensorsOf(false)
		r := newRecordingRepository(domain.ArmingArmedHome, status, sensors...)
		s := newTestService(t, r)

		var log []string
		s.AddStatusListener(&recordingListener{name: "l", log: &log})

		require.NoError(t, s.HandleSensorChange(context.Background(), sensors[0], false))
		require.Zero(t, r.writes(), status)
		require.Empty(t, log, status)
		require.Equal(t, status, r.alarm())
	}
}

// TestHandleSensorChange_UsesTrackedState checks the repository copy decides the previous state.
func TestHandleSensorChange_UsesTrackedState(t *testing.T) {
	t.Parallel()

	sensors := sensorsOf(true)
	r := newRecordingRepository(domain.ArmingArmedHome, domain.AlarmPending, sensors...)
	s := newTestService(t, r)

	// The caller holds a stale inactive copy; the tracked sensor is active.
	stale := sensors[0].Clone()
	stale.Active = false

	require.NoError(t, s.HandleSensorChange(context.Background(), stale, false))
	require.Equal(t, []domain.AlarmStatus{domain.AlarmNone}, r.alarmWrites)
}

// TestHandleSensorChange_UnknownSensorIsUpserted verifies unregistered sensors are accepted.
func TestHandleSensorChange_UnknownSensorIsUpserted(t *testing.T) {
	t.Parallel()

	r := newRecordingRepository(domain.ArmingArmedAway, domain.AlarmNone)
	s := newTestService(t, r)

	stranger := domain.NewSensor("garage", domain.SensorTypeMotion)

	require.NoError(t, s.HandleSensorChange(context.Background(), stranger, true))
	require.Equal(t, []*domain.Sensor{{ID: "garage", Name: "garage", Type: domain.SensorTypeMotion, Active: true}}, r.stored())
	require.Equal(t, domain.AlarmPending, r.alarm())
}

// TestHandleSensorChange_Scenario walks the two-sensor escalation from the behavior notes.
func TestHandleSensorChange_Scenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sensors := sensorsOf(false, false)
	r := newRecordingRepository(domain.ArmingArmedHome, domain.AlarmNone, sensors...)
	s := newTestService(t, r)

	require.NoError(t, s.HandleSensorChange(ctx, sensors[0], true))
	require.Equal(t, domain.AlarmPending, r.alarm())

	require.NoError(t, s.HandleSensorChange(ctx, sensors[1], true))
	require.Equal(t, domain.AlarmActive, r.alarm())

	require.NoError(t, s.HandleSensorChange(ctx, sensors[0], false))
	require.Equal(t, domain.AlarmActive, r.alarm())
	require.Equal(t, []domain.AlarmStatus{domain.AlarmPending, domain.AlarmActive}, r.alarmWrites)
}

// TestHandleSensorChange_LadderProperty drives random sensor events and checks every transition.
func TestHandleSensorChange_LadderProperty(t *testing.T) {
	t.Parallel()

	allowed := map[[2]domain.AlarmStatus]bool{
		{domain.AlarmNone, domain.AlarmPending}:   true,
		{domain.AlarmPending, domain.AlarmActive}: true,
		{domain.AlarmPending, domain.AlarmNone}:   true,
	}

	for seed := range uint64(20) {
		rng := rand.New(rand.NewPCG(seed, seed+1))
		sensors := sensorsOf(false, false, false, false)
		r := newRecordingRepository(domain.ArmingArmedHome, domain.AlarmNone, sensors...)
		s := newTestService(t, r)

		for range 40 {
			before := r.alarm()
			sensor := sensors[rng.IntN(len(sensors))]
			active := rng.IntN(2) == 0

			require.NoError(t, s.HandleSensorChange(context.Background(), sensor, active))

			after := r.alarm()
			if before == after {
				continue
			}

			require.True(t, allowed[[2]domain.AlarmStatus{before, after}], "seed %d: %s -> %s", seed, before, after)
		}
	}
}

// TestHandleSensorChange_RepositoryFailures verifies failed writes abort without notifications.
func TestHandleSensorChange_RepositoryFailures(t *testing.T) {
	t.Parallel()

	for _, op := range []string{"Sensors", "AlarmStatus", "UpdateSensor", "SetAlarmStatus"} {
		sensors := sensorsOf(false)
		r := newRecordingRepository(domain.ArmingArmedHome, domain.AlarmNone, sensors...)
		r.failOn[op] = errTestRepository
		s := newTestService(t, r)

		var log []string
		s.AddStatusListener(&recordingListener{name: "l", log: &log})

		err := s.HandleSensorChange(context.Background(), sensors[0], true)
		require.ErrorIs(t, err, ErrRepository, op)
		require.ErrorIs(t, err, errTestRepository, op)
		require.Empty(t, log, op)
		require.Equal(t, domain.AlarmNone, r.alarm(), op)
	}
}

// TestHandleSensorChange_InvalidArgument rejects nil and anonymous sensors.
func TestHandleSensorChange_InvalidArgument(t *testing.T) {
	t.Parallel()

	s := newTestService(t, newRecordingRepository(domain.ArmingDisarmed, domain.AlarmNone))

	require.ErrorIs(t, s.HandleSensorChange(context.Background(), nil, true), ErrInvalidArgument)
	require.ErrorIs(t, s.HandleSensorChange(context.Background(), new(domain.Sensor), true), ErrInvalidArgument)
}

// TestHandleSensorChange_Concurrent ensures concurrent activations climb the ladder exactly once per step.
func TestHandleSensorChange_Concurrent(t *testing.T) {
	t.Parallel()

	const count = 32

	sensors := make([]*domain.Sensor, 0, count)
	for i := range count {
		sensors = append(sensors, domain.NewSensor(fmt.Sprintf("s-%02d", i), domain.SensorTypeWindow))
	}

	r := newRecordingRepository(domain.ArmingArmedAway, domain.AlarmNone, sensors...)
	s := newTestService(t, r)

	var wg sync.WaitGroup

	for _, sensor := range sensors {
		wg.Go(func() {
			_ = s.HandleSensorChange(context.Background(), sensor.Clone(), true)
		})
	}

	wg.Wait()

	require.Equal(t, []domain.AlarmStatus{domain.AlarmPending, domain.AlarmActive}, r.alarmWrites)
	require.Len(t, r.sensorWrites, count)
}

// TestNextOnSensorChange lists the sensor transition table explicitly.
func TestNextOnSensorChange(t *testing.T) {
	t.Parallel()

	type input struct {
		current   domain.AlarmStatus
		activated bool
		anyActive bool
	}

	cases := map[input]domain.AlarmStatus{
		{domain.AlarmNone, true, true}:       domain.AlarmPending,
		{domain.AlarmNone, false, false}:     domain.AlarmNone,
		{domain.AlarmNone, false, true}:      domain.AlarmNone,
		{domain.AlarmPending, true, true}:    domain.AlarmActive,
		{domain.AlarmPending, false, false}:  domain.AlarmNone,
		{domain.AlarmPending, false, true}:   domain.AlarmPending,
		{domain.AlarmActive, true, true}:     domain.AlarmActive,
		{domain.AlarmActive, false, false}:   domain.AlarmActive,
		{domain.AlarmStatus("X"), true, true}: domain.AlarmStatus("X"),
	}

	for in, want := range cases {
		require.Equal(t, want, nextOnSensorChange(in.current, in.activated, in.anyActive), in)
	}
}

// TestChangeSensor only changes tracked sensors and never registers new ones.
func TestChangeSensor(t *testing.T) {
	t.Parallel()

	sensors := sensorsOf(false, false)
	r := newRecordingRepository(domain.ArmingArmedAway, domain.AlarmNone, sensors...)
	s := newTestService(t, r)
	ctx := context.Background()

	require.ErrorIs(t, s.ChangeSensor(ctx, "", true), ErrInvalidArgument)
	require.ErrorIs(t, s.ChangeSensor(ctx, "ghost", true), ErrUnknownSensor)
	require.Zero(t, r.writes())

	require.NoError(t, s.ChangeSensor(ctx, sensors[0].ID, true))
	require.Equal(t, domain.AlarmPending, r.alarm())
	require.True(t, r.stored()[0].Active)

	require.NoError(t, s.RemoveSensor(ctx, sensors[1].ID))
	require.ErrorIs(t, s.ChangeSensor(ctx, sensors[1].ID, true), ErrUnknownSensor)
	require.Len(t, r.stored(), 1)
	require.Equal(t, domain.AlarmPending, r.alarm())

	require.NoError(t, s.ChangeSensor(ctx, sensors[0].ID, false))
	require.Equal(t, domain.AlarmNone, r.alarm())
}

// TestChangeSensor_ConcurrentRemoval never resurrects a removed sensor.
func TestChangeSensor_ConcurrentRemoval(t *testing.T) {
	t.Parallel()

	for range 50 {
		sensors := sensorsOf(false)
		r := newRecordingRepository(domain.ArmingArmedAway, domain.AlarmNone, sensors...)
		s := newTestService(t, r)
		ctx := context.Background()

		var (
			wg                   sync.WaitGroup
			changeErr, removeErr error
		)

		wg.Go(func() {
			changeErr = s.ChangeSensor(ctx, sensors[0].ID, true)
		})
		wg.Go(func() {
			removeErr = s.RemoveSensor(ctx, sensors[0].ID)
		})
		wg.Wait()

		require.NoError(t, removeErr)

		if changeErr != nil {
			require.ErrorIs(t, changeErr, ErrUnknownSensor)
		}

		require.Empty(t, r.stored())
	}
}
