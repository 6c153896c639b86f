package billing

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	EventSuccess = "success"
	EventFailed  = "failed"
)

// Event is one processed webhook delivery, keyed by the Stripe event ID.
type Event struct {
	ID           string
	Type         string
	Status       string
	ErrorMessage string
	RetryCount   int
	UserID       string
	ProcessedAt  time.Time
}

type EventLog struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventLog(db *sql.DB) *EventLog { return &EventLog{db: db, now: time.Now} }

// Lookup returns the recorded event, or ok=false when it was never seen.
func (r *EventLog) Lookup(ctx context.Context, id string) (Event, bool, error) {
	var (
		e        Event
		msg, uid sql.NullString
		at       int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT event_id,event_type,status,error_message,retry_count,user_id,processed_at
		FROM webhook_events WHERE event_id=$1`, id).
		Scan(&e.ID, &e.Type, &e.Status, &msg, &e.RetryCount, &uid, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, err
	}
	e.ErrorMessage, e.UserID = msg.String, uid.String
	e.ProcessedAt = time.Unix(at, 0).UTC()
	return e, true, nil
}

func (r *EventLog) MarkSuccess(ctx context.Context, id, typ, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO webhook_events (event_id,event_type,status,error_message,retry_count,user_id,processed_at)
		 VALUES ($1,$2,$3,NULL,0,$4,$5)
		 ON CONFLICT (event_id) DO UPDATE SET status=EXCLUDED.status, error_message=NULL,
		   user_id=EXCLUDED.user_id, processed_at=EXCLUDED.processed_at`,
		id, typ, EventSuccess, nullable(userID), r.now().Unix())
	return err
}

// MarkFailed records a failed delivery and bumps retry_count on redelivery.
func (r *EventLog) MarkFailed(ctx context.Context, id, typ, userID, msg string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO webhook_events (event_id,event_type,status,error_message,retry_count,user_id,processed_at)
		 VALUES ($1,$2,$3,$4,1,$5,$6)
		 ON CONFLICT (event_id) DO UPDATE SET status=EXCLUDED.status, error_message=EXCLUDED.error_message,
		   retry_count=webhook_events.retry_count+1, user_id=EXCLUDED.user_id, processed_at=EXCLUDED.processed_at`,
		id, typ, EventFailed, msg, nullable(userID), r.now().Unix())
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
