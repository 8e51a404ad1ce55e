package repo

import (
	"context"

	"tedingest/internal/platform/bus"
	"tedingest/internal/services/ingest/domain"
)

// Events publishes run summaries on the bus, deduplicated by run id
type Events struct {
	Pub     bus.Publisher
	Subject string
}

// RecordRun implements domain.RunRecorder
func (e Events) RecordRun(ctx context.Context, s domain.Summary) error {
	if e.Pub == nil {
		return nil
	}
	return e.Pub.Publish(ctx, e.Subject, s.RunID, s)
}
