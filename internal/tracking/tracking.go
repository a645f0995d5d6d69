// Package tracking emits lightweight usage events for backup operations.
package tracking

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event names emitted by the backup engine.
const (
	EventBackupCreated  = "backup_created"
	EventBackupRestored = "backup_restored"
	EventBackupRemoved  = "backup_removed"
)

// Tracker receives usage events. Implementations must be safe for
// concurrent use and must never fail the operation being tracked.
type Tracker interface {
	Track(event string, props map[string]string)
}

// LogTracker writes events to the structured log.
type LogTracker struct {
	logger zerolog.Logger
}

func NewLogTracker(logger zerolog.Logger) *LogTracker {
	return &LogTracker{logger: logger}
}

func (t *LogTracker) Track(event string, props map[string]string) {
	e := t.logger.Info().
		Str("event_id", uuid.NewString()).
		Str("event", event).
		Time("at", time.Now())
	for k, v := range props {
		e = e.Str(k, v)
	}
	e.Msg("tracking event")
}

// NoopTracker discards all events.
type NoopTracker struct{}

func (NoopTracker) Track(event string, props map[string]string) {}
