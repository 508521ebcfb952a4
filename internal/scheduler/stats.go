package scheduler

import (
	"errors"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-rego6xx/internal/rego"
)

// Stats holds scheduler counters. All fields are snapshots.
type Stats struct {
	Completed uint64 `json:"completed"`
	Reads     uint64 `json:"reads"`
	Writes    uint64 `json:"writes"`
	Retries   uint64 `json:"retries"`
	Exhausted uint64 `json:"exhausted"`
	Skipped   uint64 `json:"skipped"`
	Sweeps    uint64 `json:"sweeps"`

	ChecksumErrors uint64 `json:"checksum_errors"`
	ShortFrames    uint64 `json:"short_frames"`
	AddressErrors  uint64 `json:"address_errors"`
	Timeouts       uint64 `json:"timeouts"`
	IOErrors       uint64 `json:"io_errors"`
}

// Failures returns the total of all failed attempts.
func (s Stats) Failures() uint64 {
	return s.ChecksumErrors + s.ShortFrames + s.AddressErrors + s.Timeouts + s.IOErrors
}

type counters struct {
	completed atomic.Uint64
	reads     atomic.Uint64
	writes    atomic.Uint64
	retries   atomic.Uint64
	exhausted atomic.Uint64
	skipped   atomic.Uint64
	sweeps    atomic.Uint64

	checksum atomic.Uint64
	short    atomic.Uint64
	address  atomic.Uint64
	timeouts atomic.Uint64
	io       atomic.Uint64
}

// count files err under its failure kind.
func (c *counters) count(err error) {
	var (
		checksum *rego.ChecksumError
		short    *rego.FrameTooShortError
		address  *rego.UnexpectedAddressError
	)

	switch {
	case errors.As(err, &checksum):
		c.checksum.Add(1)
	case errors.As(err, &short):
		c.short.Add(1)
	case errors.As(err, &address):
		c.address.Add(1)
	case isTimeout(err):
		c.timeouts.Add(1)
	default:
		c.io.Add(1)
	}
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	c := &s.stats
	return Stats{
		Completed:      c.completed.Load(),
		Reads:          c.reads.Load(),
		Writes:         c.writes.Load(),
		Retries:        c.retries.Load(),
		Exhausted:      c.exhausted.Load(),
		Skipped:        c.skipped.Load(),
		Sweeps:         c.sweeps.Load(),
		ChecksumErrors: c.checksum.Load(),
		ShortFrames:    c.short.Load(),
		AddressErrors:  c.address.Load(),
		Timeouts:       c.timeouts.Load(),
		IOErrors:       c.io.Load(),
	}
}
