// Package endpoint holds the values multiplexed over a Rego 6xx link.
//
// An endpoint is a (command, address) pair with a kind and a decode rule:
//
//	sensor         read, scaled or raw
//	binary_sensor  read, non-zero = on
//	number         read and write, bounded and stepped
//	text_sensor    display row or error log
//	button         write-only front-panel press
//
// The Registry is the only state the serial loop shares with other
// goroutines. Writes queued with SetPendingWrite or Press wait for the
// endpoint's normal turn in the scheduler; a newer value replaces one that
// has not been sent yet.
package endpoint
