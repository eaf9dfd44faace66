// Package audit records security-relevant processing outcomes: device
// registrations, accepted and rejected submissions, authentication
// failures, and inspect reads. Audit failures never block request
// processing.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Severity indicates how much attention an event deserves.
type Severity int

const (
	SeverityInfo    Severity = 6
	SeverityNotice  Severity = 5
	SeverityWarning Severity = 4
)

// String returns the human-readable name for a severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityNotice:
		return "NOTICE"
	case SeverityWarning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// EventType identifies an audit event.
type EventType string

const (
	EventDeviceRegister EventType = "device.register"
	EventSubmitAccept   EventType = "submit.accept"
	EventSubmitReject   EventType = "submit.reject"
	EventAuthFailure    EventType = "auth.failure"
	EventInspectServe   EventType = "inspect.serve"
)

// severityMap maps each event type to its severity.
var severityMap = map[EventType]Severity{
	EventDeviceRegister: SeverityNotice,
	EventSubmitAccept:   SeverityInfo,
	EventSubmitReject:   SeverityWarning,
	EventAuthFailure:    SeverityWarning,
	EventInspectServe:   SeverityInfo,
}

// Event is one audit record.
type Event struct {
	ID        string
	Type      EventType
	Severity  Severity
	DeviceID  string
	Detail    string
	Timestamp time.Time
}

// NewEvent constructs an event with a fresh ID and the type's severity.
func NewEvent(eventType EventType, deviceID, detail string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Severity:  severityMap[eventType],
		DeviceID:  deviceID,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
}
