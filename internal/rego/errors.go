package rego

import (
	"errors"
	"fmt"
)

// Sentinel errors for frame encoding and decoding.
var (
	// ErrInvalidResponse is the parent of every response validation failure.
	// Check with errors.Is to catch all codec rejections at once.
	ErrInvalidResponse = errors.New("rego: invalid response")

	// ErrInvalidRequest is returned when a request frame cannot be parsed.
	ErrInvalidRequest = errors.New("rego: invalid request")

	// ErrCommandRange is returned for command ids above 0x7F.
	ErrCommandRange = errors.New("rego: command id out of range")
)

// ChecksumError reports a response whose trailing XOR does not match its payload.
type ChecksumError struct {
	Expected byte
	Actual   byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("rego: checksum mismatch (expected 0x%02X, got 0x%02X)", e.Expected, e.Actual)
}

// Unwrap lets errors.Is match ErrInvalidResponse.
func (e *ChecksumError) Unwrap() error { return ErrInvalidResponse }

// FrameTooShortError reports a response with fewer bytes than its shape requires.
type FrameTooShortError struct {
	Want int
	Got  int
}

func (e *FrameTooShortError) Error() string {
	return fmt.Sprintf("rego: frame too short (%d bytes, need %d)", e.Got, e.Want)
}

// Unwrap lets errors.Is match ErrInvalidResponse.
func (e *FrameTooShortError) Unwrap() error { return ErrInvalidResponse }

// UnexpectedAddressError reports a response that does not carry the host address.
type UnexpectedAddressError struct {
	Want byte
	Got  byte
}

func (e *UnexpectedAddressError) Error() string {
	return fmt.Sprintf("rego: unexpected device address 0x%02X (want 0x%02X)", e.Got, e.Want)
}

// Unwrap lets errors.Is match ErrInvalidResponse.
func (e *UnexpectedAddressError) Unwrap() error { return ErrInvalidResponse }
