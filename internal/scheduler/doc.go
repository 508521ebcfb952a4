// Package scheduler multiplexes endpoint polls and writes over one Rego link.
//
// Exactly one request is in flight at a time. Each Tick moves the request
// through
//
//	Idle -> Sent -> AwaitingResponse -> Completed
//	                      |
//	                      +-> Failed -> Sent (retry after backoff)
//	                             |
//	                             +-> Idle (retries exhausted)
//
// Endpoints are serviced strictly round-robin in registration order. A
// pending write goes out on the endpoint's normal turn in place of its read.
// New requests are paced by a token bucket so the controller is not polled
// faster than RequestPause; retries are paced by their own backoff.
//
// Tick never blocks longer than Config.PollQuantum, so it can run inside a
// cooperative loop that also does other work.
package scheduler
