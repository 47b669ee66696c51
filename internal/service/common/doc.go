// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client wrapper with timeouts, detection of the
// current system actor (hostname/username) for audit purposes, and a guard that
// keeps a single server process running per host.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
