package security

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	repo "github.com/oshokin/catpoint/internal/repository/state"
)

var (
	errTestRepository = errors.New("test repository error")
	errTestClassifier = errors.New("test classifier error")
	errTestListener   = errors.New("test listener error")
)

// recordingRepository wraps the in-memory repository, records writes and
// fails the operations listed in failOn.
type recordingRepository struct {
	*repo.MemoryRepository

	// alarmWrites lists every SetAlarmStatus call in order.
	alarmWrites []domain.AlarmStatus
	// armingWrites lists every SetArmingStatus call in order.
	armingWrites []domain.ArmingStatus
	// sensorWrites lists copies of every UpdateSensor call in order.
	sensorWrites []*domain.Sensor
	// failOn maps an operation name to the error it returns.
	failOn map[string]error
	// mu protects the recorded calls.
	mu sync.Mutex
}

// newRecordingRepository seeds a repository with sensors and statuses.
func newRecordingRepository(
	arming domain.ArmingStatus,
	alarm domain.AlarmStatus,
	sensors ...*domain.Sensor,
) *recordingRepository {
	return &recordingRepository{
		MemoryRepository: repo.NewMemoryRepository(&domain.Snapshot{
			Sensors:      sensors,
			AlarmStatus:  alarm,
			ArmingStatus: arming,
		}),
		failOn: make(map[string]error),
	}
}

func (r *recordingRepository) fail(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.failOn[op]
}

// Sensors returns the stored sensors unless configured to fail.
func (r *recordingRepository) Sensors(ctx context.Context) ([]*domain.Sensor, error) {
	if err := r.fail("Sensors"); err != nil {
		return nil, err
	}

	return r.MemoryRepository.Sensors(ctx)
}

// AlarmStatus returns the stored alarm status unless configured to fail.
func (r *recordingRepository) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	if err := r.fail("AlarmStatus"); err != nil {
		return "", err
	}

	return r.MemoryRepository.AlarmStatus(ctx)
}

// ArmingStatus returns the stored arming status unless configured to fail.
func (r *recordingRepository) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	if err := r.fail("ArmingStatus"); err != nil {
		return "", err
	}

	return r.MemoryRepository.ArmingStatus(ctx)
}

// UpdateSensor records the write and stores it unless configured to fail.
func (r *recordingRepository) UpdateSensor(ctx context.Context, sensor *domain.Sensor) error {
	if err := r.fail("UpdateSensor"); err != nil {
		return err
	}

	r.mu.Lock()
	r.sensorWrites = append(r.sensorWrites, sensor.Clone())
	r.mu.Unlock()

	return r.MemoryRepository.UpdateSensor(ctx, sensor)
}

// SetAlarmStatus records the write and stores it unless configured to fail.
func (r *recordingRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	if err := r.fail("SetAlarmStatus"); err != nil {
		return err
	}

	r.mu.Lock()
	r.alarmWrites = append(r.alarmWrites, status)
	r.mu.Unlock()

	return r.MemoryRepository.SetAlarmStatus(ctx, status)
}

// SetArmingStatus records the write and stores it unless configured to fail.
func (r *recordingRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if err := r.fail("SetArmingStatus"); err != nil {
		return err
	}

	r.mu.Lock()
	r.armingWrites = append(r.armingWrites, status)
	r.mu.Unlock()

	return r.MemoryRepository.SetArmingStatus(ctx, status)
}

// alarm returns the stored alarm status, ignoring injected failures.
func (r *recordingRepository) alarm() domain.AlarmStatus {
	status, _ := r.MemoryRepository.AlarmStatus(context.Background())

	return status
}

// stored returns the stored sensors, ignoring injected failures.
func (r *recordingRepository) stored() []*domain.Sensor {
	sensors, _ := r.MemoryRepository.Sensors(context.Background())

	return sensors
}

// writes returns the number of recorded writes of any kind.
func (r *recordingRepository) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.alarmWrites) + len(r.armingWrites) + len(r.sensorWrites)
}

// scriptedClassifier returns queued answers, repeating the last one.
type scriptedClassifier struct {
	// answers are returned in order; the last one repeats.
	answers []bool
	// err is returned instead of an answer when set.
	err error
	// thresholds records the confidence threshold of every call.
	thresholds []float32
}

// ImageContainsCat returns the next scripted answer.
func (c *scriptedClassifier) ImageContainsCat(_ context.Context, _ image.Image, threshold float32) (bool, error) {
	c.thresholds = append(c.thresholds, threshold)

	if c.err != nil {
		return false, c.err
	}

	if len(c.answers) == 0 {
		return false, nil
	}

	answer := c.answers[0]
	if len(c.answers) > 1 {
		c.answers = c.answers[1:]
	}

	return answer, nil
}

// recordingListener keeps a log of notifications.
type recordingListener struct {
	// name prefixes every recorded event.
	name string
	// log is shared between listeners to check ordering.
	log *[]string
	// err is returned from every notification when set.
	err error
}

// AlarmStatusChanged records the new alarm status.
func (l *recordingListener) AlarmStatusChanged(_ context.Context, status domain.AlarmStatus) error {
	*l.log = append(*l.log, fmt.Sprintf("%s:alarm:%s", l.name, status))

	return l.err
}

// SensorStatusChanged records how many sensors are active.
func (l *recordingListener) SensorStatusChanged(_ context.Context, sensors []*domain.Sensor) error {
	active := 0

	for _, s := range sensors {
		if s.Active {
			active++
		}
	}

	*l.log = append(*l.log, fmt.Sprintf("%s:sensors:%d/%d", l.name, active, len(sensors)))

	return l.err
}

// CatDetected records the scan result.
func (l *recordingListener) CatDetected(_ context.Context, detected bool) error {
	*l.log = append(*l.log, fmt.Sprintf("%s:cat:%t", l.name, detected))

	return l.err
}

// frame returns a tiny image for scans.
func frame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}

// sensorsOf creates sensors with the given activation flags.
func sensorsOf(active ...bool) []*domain.Sensor {
	sensors := make([]*domain.Sensor, 0, len(active))
	for i, a := range active {
		s := domain.NewSensor(fmt.Sprintf("sensor-%d", i), domain.SensorTypeDoor)
		s.Active = a
		sensors = append(sensors, s)
	}

	return sensors
}
