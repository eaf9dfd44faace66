package audit

import "log/slog"

// EventEmitter accepts structured audit events for recording.
type EventEmitter interface {
	Emit(Event) error
}

// NopEmitter discards all events. Use when no audit backend is configured.
type NopEmitter struct{}

// Emit discards the event.
func (NopEmitter) Emit(Event) error { return nil }

// SlogEmitter writes audit events to a structured logger.
type SlogEmitter struct {
	logger *slog.Logger
}

// NewSlogEmitter creates an emitter backed by the given logger.
// If logger is nil, slog.Default() is used.
func NewSlogEmitter(logger *slog.Logger) *SlogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEmitter{logger: logger}
}

// Emit writes one event. Never returns an error; the logger is the backend
// of last resort.
func (e *SlogEmitter) Emit(ev Event) error {
	e.logger.Info("audit",
		"event_id", ev.ID,
		"event", string(ev.Type),
		"severity", ev.Severity.String(),
		"device_id", ev.DeviceID,
		"detail", ev.Detail,
	)
	return nil
}

// Recorder fans events out to one or more backends. Emit errors are logged
// and dropped; auditing must not block processing.
type Recorder struct {
	backends []EventEmitter
	logger   *slog.Logger
}

// NewRecorder creates a recorder over the given backends.
func NewRecorder(logger *slog.Logger, backends ...EventEmitter) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{backends: backends, logger: logger}
}

// Record builds the event and writes it to every backend.
func (r *Recorder) Record(eventType EventType, deviceID, detail string) {
	ev := NewEvent(eventType, deviceID, detail)
	for _, b := range r.backends {
		if err := b.Emit(ev); err != nil {
			r.logger.Error("audit emit failed", "event", string(ev.Type), "error", err)
		}
	}
}
