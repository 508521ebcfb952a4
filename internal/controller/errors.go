package controller

import "errors"

// Domain errors for the controller package.
var (
	// ErrNoLink is returned by New without a link.
	ErrNoLink = errors.New("controller: link is required")

	// ErrNotSetup is returned by Run before Setup.
	ErrNotSetup = errors.New("controller: setup has not run")

	// ErrAlreadySetup is returned by a second Setup call.
	ErrAlreadySetup = errors.New("controller: already set up")

	// ErrUnknownSensor is returned for a sensor name with no system register.
	ErrUnknownSensor = errors.New("controller: unknown sensor name")

	// ErrInvalidEndpoint is returned for a configured value that does not
	// fit its register field.
	ErrInvalidEndpoint = errors.New("controller: endpoint value out of range")
)
