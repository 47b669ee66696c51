// Package client implements the operations of the catpoint command-line client.
//
// Each operation connects to the security server, performs one request and
// prints the resulting state.
package client
