// Package models contains the data structures used throughout magicpacket.
package models

import (
	"net/netip"
	"time"
)

// WakeConfig holds the inputs for a single wake invocation.
type WakeConfig struct {
	MACAddress  string
	BroadcastIP string        // empty broadcasts on every usable interface
	Password    string        // optional SecureOn password, 8 or 12 hex digits
	Timeout     time.Duration // zero means no timeout
}

// Outcome is the terminal state of a wake invocation.
type Outcome string

// Wake outcomes.
const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeRejected  Outcome = "rejected"
)

// TransportFailure records a single datagram that could not be sent.
type TransportFailure struct {
	Destination netip.AddrPort
	Err         error
}

func (f TransportFailure) Error() string {
	return "send to " + f.Destination.String() + ": " + f.Err.Error()
}

func (f TransportFailure) Unwrap() error {
	return f.Err
}

// WakeResult holds the result of a wake invocation.
type WakeResult struct {
	Outcome       Outcome
	Targets       []netip.Addr
	DatagramsSent int
	Failures      []TransportFailure
	Duration      time.Duration
	Error         error
}
