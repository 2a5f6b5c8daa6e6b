// Package sync orchestrates extraction runs: it resolves each connector's
// authorizations, drives the pagination engine, and delivers record portions
// to the platform.
package sync

import (
	"context"
	"errors"
)

// Runner executes a single sync pass.
type Runner interface {
	RunOnce(context.Context) error
}

// ErrNoConnectors is returned when the connectors file configures nothing to
// run.
var ErrNoConnectors = errors.New("no connectors are configured")
