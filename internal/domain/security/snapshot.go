package security

// Snapshot is the durable state of the system at a point in time.
type Snapshot struct {
	// Sensors lists tracked sensors in registration order.
	Sensors []*Sensor
	// AlarmStatus is the current alarm level.
	AlarmStatus AlarmStatus
	// ArmingStatus is the current operating mode.
	ArmingStatus ArmingStatus
}

// NewSnapshot returns the state of a freshly installed system.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Sensors:      []*Sensor{},
		AlarmStatus:  AlarmNone,
		ArmingStatus: ArmingDisarmed,
	}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	return &Snapshot{
		Sensors:      CloneSensors(s.Sensors),
		AlarmStatus:  s.AlarmStatus,
		ArmingStatus: s.ArmingStatus,
	}
}

// Normalize fills unset statuses with their defaults and collapses sensors
// sharing an ID into one entry, keeping the first position and the last value.
func (s *Snapshot) Normalize() {
	if s.Sensors == nil {
		s.Sensors = []*Sensor{}
	}

	s.Sensors = dedupeSensors(s.Sensors)

	if s.AlarmStatus == "" {
		s.AlarmStatus = AlarmNone
	}

	if s.ArmingStatus == "" {
		s.ArmingStatus = ArmingDisarmed
	}
}

func dedupeSensors(sensors []*Sensor) []*Sensor {
	positions := make(map[string]int, len(sensors))
	result := sensors[:0:0]

	for _, sensor := range sensors {
		if sensor == nil {
			continue
		}

		if i, seen := positions[sensor.ID]; seen {
			result[i] = sensor

			continue
		}

		positions[sensor.ID] = len(result)
		result = append(result, sensor)
	}

	return result
}
