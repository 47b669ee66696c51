package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/wire"
)

const (
	redisSensorsKey  = "sensors"
	redisOrderKey    = "sensor-order"
	redisSequenceKey = "sensor-seq"
	redisAlarmKey    = "status/alarm"
	redisArmingKey   = "status/arming"
)

// RedisRepository stores the security state in Redis.
// Sensors live in a hash keyed by ID (protojson values) with a sorted set
// keeping registration order; statuses are plain string keys.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository parses redisURL and returns a repository using keys under prefix.
func NewRedisRepository(redisURL, prefix string) (*RedisRepository, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &RedisRepository{
		client: redis.NewClient(options),
		prefix: prefix,
	}, nil
}

// Ping checks connectivity.
func (r *RedisRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	return nil
}

// Close releases the client.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Sensors returns all tracked sensors in registration order.
func (r *RedisRepository) Sensors(ctx context.Context) ([]*domain.Sensor, error) {
	ids, err := r.client.ZRange(ctx, r.key(redisOrderKey), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read sensor order: %w", err)
	}

	sensors := make([]*domain.Sensor, 0, len(ids))
	if len(ids) == 0 {
		return sensors, nil
	}

	values, err := r.client.HMGet(ctx, r.key(redisSensorsKey), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("read sensors: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Order entry without payload, left behind by an interrupted removal.
			continue
		}

		sensor, err := wire.UnmarshalSensor([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("sensor %s: %w", ids[i], err)
		}

		sensors = append(sensors, sensor)
	}

	return sensors, nil
}

// AddSensor starts tracking a sensor. Adding a known ID is a no-op.
func (r *RedisRepository) AddSensor(ctx context.Context, sensor *domain.Sensor) error {
	if err := validateSensor(sensor); err != nil {
		return err
	}

	payload, err := wire.MarshalSensor(sensor)
	if err != nil {
		return err
	}

	added, err := r.client.HSetNX(ctx, r.key(redisSensorsKey), sensor.ID, payload).Result()
	if err != nil {
		return fmt.Errorf("add sensor %s: %w", sensor.ID, err)
	}

	if !added {
		return nil
	}

	return r.appendOrder(ctx, sensor.ID)
}

// RemoveSensor stops tracking a sensor.
func (r *RedisRepository) RemoveSensor(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.key(redisSensorsKey), id)
		pipe.ZRem(ctx, r.key(redisOrderKey), id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("remove sensor %s: %w", id, err)
	}

	return nil
}

// UpdateSensor upserts the sensor.
func (r *RedisRepository) UpdateSensor(ctx context.Context, sensor *domain.Sensor) error {
	if err := validateSensor(sensor); err != nil {
		return err
	}

	payload, err := wire.MarshalSensor(sensor)
	if err != nil {
		return err
	}

	if err = r.client.HSet(ctx, r.key(redisSensorsKey), sensor.ID, payload).Err(); err != nil {
		return fmt.Errorf("update sensor %s: %w", sensor.ID, err)
	}

	return r.appendOrder(ctx, sensor.ID)
}

// AlarmStatus returns the stored alarm status, NO_ALARM if never set.
func (r *RedisRepository) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	raw, err := r.get(ctx, redisAlarmKey)
	if err != nil || raw == "" {
		return domain.AlarmNone, err
	}

	return domain.ParseAlarmStatus(raw)
}

// SetAlarmStatus stores the alarm status.
func (r *RedisRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: alarm status %q", ErrInvalidStatus, status)
	}

	return r.set(ctx, redisAlarmKey, status.String())
}

// ArmingStatus returns the stored arming status, DISARMED if never set.
func (r *RedisRepository) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	raw, err := r.get(ctx, redisArmingKey)
	if err != nil || raw == "" {
		return domain.ArmingDisarmed, err
	}

	return domain.ParseArmingStatus(raw)
}

// SetArmingStatus stores the arming status.
func (r *RedisRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: arming status %q", ErrInvalidStatus, status)
	}

	return r.set(ctx, redisArmingKey, status.String())
}

// Snapshot reads sensors and statuses. The reads are not atomic with respect
// to concurrent writers from other processes.
func (r *RedisRepository) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	snapshot := new(domain.Snapshot)

	var err error

	if snapshot.Sensors, err = r.Sensors(ctx); err != nil {
		return nil, err
	}

	if snapshot.AlarmStatus, err = r.AlarmStatus(ctx); err != nil {
		return nil, err
	}

	if snapshot.ArmingStatus, err = r.ArmingStatus(ctx); err != nil {
		return nil, err
	}

	snapshot.Normalize()

	return snapshot, nil
}

// appendOrder records id at the end of the registration order if it is new.
func (r *RedisRepository) appendOrder(ctx context.Context, id string) error {
	seq, err := r.client.Incr(ctx, r.key(redisSequenceKey)).Result()
	if err != nil {
		return fmt.Errorf("next sensor sequence: %w", err)
	}

	member := &redis.Z{
		Score:  float64(seq),
		Member: id,
	}

	if err = r.client.ZAddNX(ctx, r.key(redisOrderKey), member).Err(); err != nil {
		return fmt.Errorf("order sensor %s: %w", id, err)
	}

	return nil
}

func (r *RedisRepository) get(ctx context.Context, name string) (string, error) {
	value, err := r.client.Get(ctx, r.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}

	return value, nil
}

func (r *RedisRepository) set(ctx context.Context, name, value string) error {
	if err := r.client.Set(ctx, r.key(name), value, 0).Err(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}

// key namespaces a key with the repository prefix.
func (r *RedisRepository) key(name string) string {
	return r.prefix + name
}
