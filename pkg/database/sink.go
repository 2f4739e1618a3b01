package database

import (
	"context"
	"fmt"

	"github.com/jdibridge/bridge/pkg/audit"
)

// Sink persists audit.Record values to the audit_records table. It never
// returns a retry-worthy error to its caller's hot path — Record failures
// are the caller's (pkg/request's) responsibility to log and move on from.
type Sink struct {
	client *Client
}

// NewSink wraps client as an audit.Sink.
func NewSink(client *Client) *Sink {
	return &Sink{client: client}
}

func (s *Sink) Record(ctx context.Context, rec audit.Record) error {
	_, err := s.client.DB().ExecContext(ctx,
		`INSERT INTO audit_records (request_kind, request_id, natural_key, transition, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.RequestKind, rec.RequestID, rec.NaturalKey, string(rec.Transition), rec.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("database: insert audit record: %w", err)
	}
	return nil
}

var _ audit.Sink = (*Sink)(nil)
