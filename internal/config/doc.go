// Package config defines the settings used by the catpoint binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Config holds the gRPC server address together with the storage, classifier,
// MQTT, metrics and backup sections. Validate fills defaults for anything left
// unset.
package config
