package security

import (
	"fmt"
	"strings"
)

// ArmingStatus is the operating mode of the system.
type ArmingStatus string

// ArmingStatus values.
const (
	// ArmingDisarmed means nothing raises an alarm.
	ArmingDisarmed ArmingStatus = "DISARMED"
	// ArmingArmedHome means sensors and the camera are monitored.
	ArmingArmedHome ArmingStatus = "ARMED_HOME"
	// ArmingArmedAway means only sensors are monitored.
	ArmingArmedAway ArmingStatus = "ARMED_AWAY"
)

// Valid reports whether s is a known arming status.
func (s ArmingStatus) Valid() bool {
	switch s {
	case ArmingDisarmed, ArmingArmedHome, ArmingArmedAway:
		return true
	default:
		return false
	}
}

// Description returns a human-readable label.
func (s ArmingStatus) Description() string {
	switch s {
	case ArmingDisarmed:
		return "Disarmed"
	case ArmingArmedHome:
		return "Armed - At Home"
	case ArmingArmedAway:
		return "Armed - Away"
	default:
		return "Unknown"
	}
}

// String implements fmt.Stringer.
func (s ArmingStatus) String() string {
	return string(s)
}

// ParseArmingStatus converts user input into an ArmingStatus.
// Besides the canonical names it accepts the short forms "home" and "away".
func ParseArmingStatus(input string) (ArmingStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	normalized = strings.ReplaceAll(normalized, "-", "_")

	switch normalized {
	case "HOME":
		return ArmingArmedHome, nil
	case "AWAY":
		return ArmingArmedAway, nil
	}

	status := ArmingStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("unknown arming status %q", input)
	}

	return status, nil
}

// AlarmStatus is the three-level severity of the current threat assessment.
type AlarmStatus string

// AlarmStatus values, ordered by severity.
const (
	AlarmNone    AlarmStatus = "NO_ALARM"
	AlarmPending AlarmStatus = "PENDING_ALARM"
	AlarmActive  AlarmStatus = "ALARM"
)

// Valid reports whether s is a known alarm status.
func (s AlarmStatus) Valid() bool {
	return s.Severity() >= 0
}

// Severity ranks the status on the alarm ladder: 0, 1, 2, or -1 if unknown.
func (s AlarmStatus) Severity() int {
	switch s {
	case AlarmNone:
		return 0
	case AlarmPending:
		return 1
	case AlarmActive:
		return 2
	default:
		return -1
	}
}

// Description returns a human-readable label.
func (s AlarmStatus) Description() string {
	switch s {
	case AlarmNone:
		return "Cool and Good"
	case AlarmPending:
		return "I'm in Danger..."
	case AlarmActive:
		return "Awooga!"
	default:
		return "Unknown"
	}
}

// String implements fmt.Stringer.
func (s AlarmStatus) String() string {
	return string(s)
}

// ParseAlarmStatus converts stored text into an AlarmStatus.
func ParseAlarmStatus(input string) (AlarmStatus, error) {
	status := AlarmStatus(strings.ToUpper(strings.TrimSpace(input)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown alarm status %q", input)
	}

	return status, nil
}
