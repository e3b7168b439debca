package audit

import (
	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/events"
)

// Recorder subscribes to the event bus and appends every published
// event to the audit trail. A failed append is logged, never swallowed
// into the publishing operation: the ledger is observability, and a
// disk hiccup must not roll back a completed allocation.
type Recorder struct {
	repo *Repository
	log  zerolog.Logger
}

// NewRecorder creates a recorder and registers it on the bus
func NewRecorder(repo *Repository, bus *events.Bus, log zerolog.Logger) *Recorder {
	rec := &Recorder{
		repo: repo,
		log:  log.With().Str("component", "audit_recorder").Logger(),
	}
	bus.SubscribeAll(rec.handle)
	return rec
}

func (rec *Recorder) handle(event *events.Event) {
	if err := rec.repo.Append(event); err != nil {
		rec.log.Error().
			Err(err).
			Str("event_type", string(event.Type)).
			Str("event_id", event.ID).
			Msg("Failed to append audit event")
	}
}
