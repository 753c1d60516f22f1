package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"shreelaxmi/site/internal/metrics"
)

// Purger deletes closed contact submissions past retention.
type Purger interface {
	PurgeClosed(ctx context.Context, now time.Time) (int64, error)
}

type Processor struct {
	contacts Purger
	metrics  metrics.Recorder
	now      func() time.Time
	logger   zerolog.Logger
}

func NewProcessor(contacts Purger, recorder metrics.Recorder, logger zerolog.Logger) *Processor {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Processor{
		contacts: contacts,
		metrics:  recorder,
		now:      time.Now,
		logger:   logger,
	}
}

// Handle dispatches one stream message. Unknown task types are logged and
// acknowledged so they do not clog the pending list.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload Payload
	if err := decodePayload(msg.Values, &payload); err != nil {
		p.metrics.RecordTaskProcessed("invalid", "error")
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping undecodable task")
		return nil
	}

	var err error
	switch payload.Type {
	case TypeContactReceived:
		// Redelivery cannot supply a missing id, so the message is acked.
		if payload.ContactID == "" {
			p.metrics.RecordTaskProcessed("invalid", "error")
			p.logger.Warn().Str("type", payload.Type).Str("message_id", msg.ID).Msg("dropping task without contactId")
			return nil
		}
		p.handleContactReceived(payload)
	case TypeContactsPurge:
		err = p.handlePurge(ctx)
	default:
		p.metrics.RecordTaskProcessed("unknown", "skipped")
		p.logger.Warn().Str("type", payload.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	p.metrics.RecordTaskProcessed(payload.Type, outcome)
	return err
}

func decodePayload(values map[string]interface{}, out *Payload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

// handleContactReceived is the staff notification. It carries the id and
// name only; the rest of the submission stays in the database.
func (p *Processor) handleContactReceived(payload Payload) {
	p.logger.Info().
		Str("contact_id", payload.ContactID).
		Str("name", payload.Name).
		Str("enqueued_at", payload.EnqueuedAt).
		Msg("new contact submission awaiting follow-up")
}

func (p *Processor) handlePurge(ctx context.Context) error {
	purged, err := p.contacts.PurgeClosed(ctx, p.now())
	if err != nil {
		return fmt.Errorf("purge closed contacts: %w", err)
	}
	p.logger.Info().Int64("purged", purged).Msg("closed contacts purged")
	return nil
}
