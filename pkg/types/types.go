package types

import (
	"strconv"
	"time"
)

// ConnKey identifies one connection within a sample. Two records from
// different ticks describe the same connection iff their keys are equal.
type ConnKey struct {
	Proto  string
	Local  string
	Remote string
	PID    int32
}

// RemoteNone marks a socket without a remote peer, e.g. a listener.
const RemoteNone = "-"

// String covers the whole identity tuple. The PID matters: forked
// workers of a multi-PID target can share an otherwise identical
// listener, and ordering by this form must still break the tie.
func (k ConnKey) String() string {
	return k.Proto + " " + k.Local + " -> " + k.Remote + " [" + strconv.Itoa(int(k.PID)) + "]"
}

// ConnRecord is one observed connection. FirstSeen and LastSeen are tick
// counters, not wall-clock times.
type ConnRecord struct {
	Key       ConnKey
	State     string
	FirstSeen uint64
	LastSeen  uint64
}

// Snapshot is the parsed result of one listing capture.
type Snapshot struct {
	Records []ConnRecord
	Skipped int
}

type ProcessStats struct {
	PID        int32
	Name       string
	CPUPercent float64
	RSS        uint64
}

type LatencyStats struct {
	Peer        string
	MinRTT      time.Duration
	AvgRTT      time.Duration
	MaxRTT      time.Duration
	PacketLoss  float64
	LastChecked time.Time
}

type Alert struct {
	Timestamp time.Time
	RemoteIP  string
	Message   string
}
