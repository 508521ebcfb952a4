// Package transport moves Rego frames over a serial line.
//
// A Link wraps a Port (a go.bug.st/serial device or the in-memory Simulator)
// and adds the framing rules the controller needs:
//
//   - SendFrame discards stale input before writing a request.
//   - ReceiveFrame stops at the expected length, after a silent inter-byte
//     gap, or at its timeout, whichever comes first.
//   - Partial bytes survive a timeout so the caller can poll in short slices.
//
// Link never interprets frame contents; that is the rego package's job.
package transport
