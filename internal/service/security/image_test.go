package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

func TestHandleImageScan_CatWhileArmedHome(t *testing.T) {
	t.Parallel()

	r := newRecordingRepository(domain.ArmingArmedHome, domain.AlarmNone, sensorsOf(false)...)
	s, err := New(r, &scriptedClassifier{answers: []bool{true, false}})
	require.NoError(t, err)

	var log []string
	s.AddStatusListener(&recordingListener{name: "l", log: &log})

	ctx := context.Background()

	require.NoError(t, s.HandleImageScan(ctx, frame()))
	require.Equal(t, domain.AlarmActive, r.alarm())

	require.NoError(t, s.HandleImageScan(ctx, frame()))
	require.Equal(t, domain.AlarmNone, r.alarm())

	require.Equal(t, []string{
		"l:cat:true",
		"l:alarm:ALARM",
		"l:cat:false",
		"l:alarm:NO_ALARM",
	}, log)
}

func TestHandleImageScan_NoCatWithActiveSensor(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.AlarmStatus{domain.AlarmNone, domain.AlarmPending, domain.AlarmActive} {
		r := newRecordingRepository(domain.ArmingArmedHome, status, sensorsOf(false, true)...)
		s := newTestService(t, r)

		require.NoError(t, s.HandleImageScan(context.Background(), frame()))
		require.Empty(t, r.alarmWrites, status)
		require.Equal(t, status, r.alarm())
	}
}

func TestHandleImageScan_NoCatAllInactiveClearsAlarm(t *testing.T) {
	t.Parallel()

	for _, arming := range []domain.ArmingStatus{domain.ArmingDisarmed, domain.ArmingArmedHome, domain.ArmingArmedAway} {
		r := newRecordingRepository(arming, domain.AlarmActive, sensorsOf(false, false)...)
		s := newTestService(t, r)

		require.NoError(t, s.HandleImageScan(context.Background(), frame()))
		require.Equal(t, domain.AlarmNone, r.alarm(), arming)
	}
}

func TestHandleImageScan_CatOutsideArmedHome(t *testing.T) {
	t.Parallel()

	for _, arming := range []domain.ArmingStatus{domain.ArmingDisarmed, domain.ArmingArmedAway} {
		r := newRecordingRepository(arming, domain.AlarmPending, sensorsOf(true)...)
		s, err := New(r, &scriptedClassifier{answers: []bool{true}})
		require.NoError(t, err)

		var log []string
		s.AddStatusListener(&recordingListener{name: "l", log: &log})

		require.NoError(t, s.HandleImageScan(context.Background(), frame()))
		require.Empty(t, r.alarmWrites, arming)
		require.Equal(t, domain.AlarmPending, r.alarm())
		require.True(t, s.CatDetected())
		require.Equal(t, []string{"l:cat:true"}, log)
	}
}

func TestHandleImageScan_ClassifierFailure(t *testing.T) {
	t.Parallel()

	r := newRecordingRepository(domain.ArmingDisarmed, domain.AlarmNone)
	c := &scriptedClassifier{answers: []bool{true}}
	s, err := New(r, c)
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, s.HandleImageScan(ctx, frame()))
	require.True(t, s.CatDetected())

	var log []string
	s.AddStatusListener(&recordingListener{name: "l", log: &log})

	c.err = errTestClassifier
	writes := r.writes()

	err = s.HandleImageScan(ctx, frame())
	require.ErrorIs(t, err, ErrClassifier)
	require.ErrorIs(t, err, errTestClassifier)
	require.True(t, s.CatDetected())
	require.Equal(t, writes, r.writes())
	require.Empty(t, log)

	// The remembered cat still raises the alarm on home arming.
	require.NoError(t, s.HandleArmingChange(ctx, domain.ArmingArmedHome))
	require.Equal(t, domain.AlarmActive, r.alarm())
}

func TestHandleImageScan_PassesThreshold(t *testing.T) {
	t.Parallel()

	r := newRecordingRepository(domain.ArmingDisarmed, domain.AlarmNone)
	c := new(scriptedClassifier)

	s, err := New(r, c)
	require.NoError(t, err)
	require.NoError(t, s.HandleImageScan(context.Background(), frame()))

	s, err = New(r, c, WithConfidenceThreshold(80))
	require.NoError(t, err)
	require.NoError(t, s.HandleImageScan(context.Background(), frame()))

	require.Equal(t, []float32{50, 80}, c.thresholds)
}

func TestHandleImageScan_RepositoryFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		op  string
		cat bool
	}{
		{op: "AlarmStatus", cat: true},
		{op: "ArmingStatus", cat: true},
		{op: "Sensors", cat: false},
		{op: "SetAlarmStatus", cat: true},
	}

	for _, tc := range cases {
		r := newRecordingRepository(domain.ArmingArmedHome, domain.AlarmPending)
		r.failOn[tc.op] = errTestRepository
		s, err := New(r, &scriptedClassifier{answers: []bool{tc.cat}})
		require.NoError(t, err)

		var log []string
		s.AddStatusListener(&recordingListener{name: "l", log: &log})

		err = s.HandleImageScan(context.Background(), frame())
		require.ErrorIs(t, err, ErrRepository, tc.op)
		require.Empty(t, log, tc.op)
		require.Equal(t, domain.AlarmPending, r.alarm(), tc.op)
	}
}

func TestHandleImageScan_NilImage(t *testing.T) {
	t.Parallel()

	c := new(scriptedClassifier)
	s, err := New(newRecordingRepository(domain.ArmingDisarmed, domain.AlarmNone), c)
	require.NoError(t, err)

	require.ErrorIs(t, s.HandleImageScan(context.Background(), nil), ErrInvalidArgument)
	require.Empty(t, c.thresholds)
}
