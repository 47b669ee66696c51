// Package checker polls the security server and reports alarm status changes.
package checker
