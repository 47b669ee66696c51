package security

import (
	"fmt"
	"strings"
)

// SensorType is the kind of physical detector behind a sensor.
type SensorType string

// SensorType values.
const (
	SensorTypeDoor   SensorType = "DOOR"
	SensorTypeWindow SensorType = "WINDOW"
	SensorTypeMotion SensorType = "MOTION"
)

// Valid reports whether t is one of the known sensor types.
func (t SensorType) Valid() bool {
	switch t {
	case SensorTypeDoor, SensorTypeWindow, SensorTypeMotion:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (t SensorType) String() string {
	return string(t)
}

// ParseSensorType converts user input into a SensorType, ignoring case.
func ParseSensorType(s string) (SensorType, error) {
	t := SensorType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown sensor type %q", s)
	}

	return t, nil
}

// Sensor is a binary activation-reporting entity tracked by ID.
type Sensor struct {
	// ID uniquely identifies the sensor; two sensors are equal iff IDs match.
	ID string
	// Name is a display label, defaults to ID.
	Name string
	// Type is the detector kind.
	Type SensorType
	// Active reports whether the sensor is currently triggered.
	Active bool
}

// NewSensor creates an inactive sensor.
func NewSensor(id string, sensorType SensorType) *Sensor {
	return &Sensor{
		ID:   id,
		Name: id,
		Type: sensorType,
	}
}

// Clone returns a copy of the sensor.
func (s *Sensor) Clone() *Sensor {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// Equal reports whether both sensors share the same identity.
func (s *Sensor) Equal(other *Sensor) bool {
	if s == nil || other == nil {
		return s == other
	}

	return s.ID == other.ID
}

// CloneSensors deep-copies a sensor list.
func CloneSensors(sensors []*Sensor) []*Sensor {
	if sensors == nil {
		return nil
	}

	result := make([]*Sensor, 0, len(sensors))
	for _, s := range sensors {
		result = append(result, s.Clone())
	}

	return result
}

// AnyActive reports whether at least one sensor in the list is active.
func AnyActive(sensors []*Sensor) bool {
	for _, s := range sensors {
		if s.Active {
			return true
		}
	}

	return false
}

// FindSensor returns the sensor with the given ID or nil.
func FindSensor(sensors []*Sensor, id string) *Sensor {
	for _, s := range sensors {
		if s.ID == id {
			return s
		}
	}

	return nil
}
