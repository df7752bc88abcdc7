package models

import (
	"fmt"
	"time"
)

// MScanState is the lifecycle state of a scan run.
type MScanState int32

const (
	ScanIdle MScanState = iota
	ScanRunning
	ScanCancelling
	ScanCompleted
	ScanCancelled
	ScanFailed
)

func (s MScanState) String() string {
	switch s {
	case ScanIdle:
		return "idle"
	case ScanRunning:
		return "running"
	case ScanCancelling:
		return "cancelling"
	case ScanCompleted:
		return "completed"
	case ScanCancelled:
		return "cancelled"
	case ScanFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen within the run.
func (s MScanState) Terminal() bool {
	return s == ScanCompleted || s == ScanCancelled || s == ScanFailed
}

// MarshalText renders the state by name in JSON payloads.
func (s MScanState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *MScanState) UnmarshalText(text []byte) error {
	for candidate := ScanIdle; candidate <= ScanFailed; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown scan state %q", text)
}

// -----------------------------------------------------------------------------

// MScanProgress is reported after each batch.
type MScanProgress struct {
	ScanID    string `json:"scan_id"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// MScanResult is the terminal report of one run.
type MScanResult struct {
	ScanID      string     `json:"scan_id"`
	UniverseTag string     `json:"universe_tag"`
	State       MScanState `json:"state"`
	Processed   int        `json:"processed"`
	Total       int        `json:"total"`
	Signals     []MSignal  `json:"signals"`
	Err         error      `json:"-"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
}

// MScanStatus is the snapshot served to API clients.
type MScanStatus struct {
	ScanID      string     `json:"scan_id"`
	State       MScanState `json:"state"`
	Processed   int        `json:"processed"`
	Total       int        `json:"total"`
	SignalCount int        `json:"signal_count"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
	LastError   string     `json:"last_error,omitempty"`
}

// -----------------------------------------------------------------------------
// Push payloads
// -----------------------------------------------------------------------------

const (
	EventStatus    = "status"
	EventProgress  = "progress"
	EventSignal    = "signal"
	EventCompleted = "completed"
)

// MScanEvent is pushed to websocket clients.
type MScanEvent struct {
	Type     string         `json:"type"`
	Status   *MScanStatus   `json:"status,omitempty"`
	Progress *MScanProgress `json:"progress,omitempty"`
	Signal   *MSignal       `json:"signal,omitempty"`
	Sent     int64          `json:"timestamp"`
}

// MClientCommand is sent by websocket clients.
type MClientCommand struct {
	Command string       `json:"command"`
	Types   []SignalType `json:"types"`
}
