// Package security contains core domain types for the home-security controller.
//
// It defines Sensor (a tracked door, window or motion detector), the ArmingStatus
// and AlarmStatus enumerations, Snapshot (the durable state of the system) and
// Actor (who changed the arming state), with Clone helpers to avoid leaking
// internal references.
package security
