// Package security implements the alarm decision engine.
//
// Service consumes sensor, arming and image-scan events, reads the current
// state from a state.Repository, decides the next alarm status, writes it back
// and fans the change out to registered listeners. It also remembers the result
// of the latest image scan so that a cat seen while disarmed raises the alarm
// once the system is armed at home.
package security
