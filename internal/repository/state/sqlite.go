package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

const (
	sqliteSchema = `
CREATE TABLE IF NOT EXISTS sensors (
	position INTEGER PRIMARY KEY AUTOINCREMENT,
	id       TEXT    NOT NULL UNIQUE,
	name     TEXT    NOT NULL,
	type     TEXT    NOT NULL,
	active   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

	settingAlarmStatus  = "alarm_status"
	settingArmingStatus = "arming_status"
)

// SQLiteRepository stores sensors and statuses in SQLite tables.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (and creates, if needed) the database at path.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	if path == "" {
		return nil, errors.New("sqlite path must be provided")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Sensors returns all tracked sensors in registration order.
func (r *SQLiteRepository) Sensors(ctx context.Context) ([]*domain.Sensor, error) {
	return querySensors(ctx, r.db)
}

// AddSensor starts tracking a sensor. Adding a known ID is a no-op.
func (r *SQLiteRepository) AddSensor(ctx context.Context, sensor *domain.Sensor) error {
	if err := validateSensor(sensor); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sensors (id, name, type, active) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		sensor.ID, sensor.Name, sensor.Type.String(), sensor.Active,
	)
	if err != nil {
		return fmt.Errorf("insert sensor %s: %w", sensor.ID, err)
	}

	return nil
}

// RemoveSensor stops tracking a sensor.
func (r *SQLiteRepository) RemoveSensor(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sensors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete sensor %s: %w", id, err)
	}

	return nil
}

// UpdateSensor upserts the sensor, keeping its registration position.
func (r *SQLiteRepository) UpdateSensor(ctx context.Context, sensor *domain.Sensor) error {
	if err := validateSensor(sensor); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sensors (id, name, type, active) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, type = excluded.type, active = excluded.active`,
		sensor.ID, sensor.Name, sensor.Type.String(), sensor.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert sensor %s: %w", sensor.ID, err)
	}

	return nil
}

// AlarmStatus returns the stored alarm status, NO_ALARM if never set.
func (r *SQLiteRepository) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	return queryAlarmStatus(ctx, r.db)
}

// SetAlarmStatus stores the alarm status.
func (r *SQLiteRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: alarm status %q", ErrInvalidStatus, status)
	}

	return r.putSetting(ctx, settingAlarmStatus, status.String())
}

// ArmingStatus returns the stored arming status, DISARMED if never set.
func (r *SQLiteRepository) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	return queryArmingStatus(ctx, r.db)
}

// SetArmingStatus stores the arming status.
func (r *SQLiteRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: arming status %q", ErrInvalidStatus, status)
	}

	return r.putSetting(ctx, settingArmingStatus, status.String())
}

// Snapshot reads the whole state inside one read transaction.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	snapshot := new(domain.Snapshot)

	if snapshot.Sensors, err = querySensors(ctx, tx); err != nil {
		return nil, err
	}

	if snapshot.AlarmStatus, err = queryAlarmStatus(ctx, tx); err != nil {
		return nil, err
	}

	if snapshot.ArmingStatus, err = queryArmingStatus(ctx, tx); err != nil {
		return nil, err
	}

	snapshot.Normalize()

	return snapshot, nil
}

// putSetting upserts a key in the settings table.
func (r *SQLiteRepository) putSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}

	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// querySensors lists sensors ordered by registration.
func querySensors(ctx context.Context, q queryer) ([]*domain.Sensor, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, type, active FROM sensors ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("select sensors: %w", err)
	}

	defer func() { _ = rows.Close() }()

	sensors := make([]*domain.Sensor, 0)

	for rows.Next() {
		var (
			sensor  domain.Sensor
			rawType string
		)

		if err = rows.Scan(&sensor.ID, &sensor.Name, &rawType, &sensor.Active); err != nil {
			return nil, fmt.Errorf("scan sensor: %w", err)
		}

		if sensor.Type, err = domain.ParseSensorType(rawType); err != nil {
			return nil, fmt.Errorf("sensor %s: %w", sensor.ID, err)
		}

		sensors = append(sensors, &sensor)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sensors: %w", err)
	}

	return sensors, nil
}

// querySetting returns the value for key, or "" when unset.
func querySetting(ctx context.Context, q queryer, key string) (string, error) {
	var value string

	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("select %s: %w", key, err)
	}

	return value, nil
}

func queryAlarmStatus(ctx context.Context, q queryer) (domain.AlarmStatus, error) {
	raw, err := querySetting(ctx, q, settingAlarmStatus)
	if err != nil || raw == "" {
		return domain.AlarmNone, err
	}

	return domain.ParseAlarmStatus(raw)
}

func queryArmingStatus(ctx context.Context, q queryer) (domain.ArmingStatus, error) {
	raw, err := querySetting(ctx, q, settingArmingStatus)
	if err != nil || raw == "" {
		return domain.ArmingDisarmed, err
	}

	return domain.ParseArmingStatus(raw)
}
