package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-user-auth/internal/database"
	"go-user-auth/internal/event"
	"go-user-auth/internal/model"
)

type AuditRepository struct {
	db database.DBTX
}

func NewAuditRepository(db database.DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Log(ctx context.Context, e event.Event) error {
	var payloadJSON []byte
	if len(e.Payload) > 0 {
		var err error
		payloadJSON, err = json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("marshal audit payload: %w", err)
		}
	}

	occurredAt, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		occurredAt = time.Now().UTC()
	}

	var userID *string
	if e.UserID != "" {
		userID = &e.UserID
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO auth_audit_entries (id, event_type, user_id, payload, ip, user_agent, occurred_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, string(e.Type), userID, payloadJSON, e.Actor.IP, e.Actor.UserAgent, occurredAt)
	if err != nil {
		return fmt.Errorf("log audit entry: %w", err)
	}
	return nil
}

// ListForUser returns the most recent entries for a user, newest first.
func (r *AuditRepository) ListForUser(ctx context.Context, userID string, limit int) ([]event.Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, event_type, payload, COALESCE(ip, ''), COALESCE(user_agent, ''), occurred_at
		 FROM auth_audit_entries
		 WHERE user_id = $1
		 ORDER BY occurred_at DESC
		 LIMIT $2`, userID, limit)
	if isMalformedID(err) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]event.Event, 0)
	for rows.Next() {
		var (
			e           event.Event
			eventType   string
			payloadJSON []byte
			occurredAt  time.Time
		)
		if err := rows.Scan(&e.ID, &eventType, &payloadJSON, &e.Actor.IP, &e.Actor.UserAgent, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Type = event.Type(eventType)
		e.UserID = userID
		e.Timestamp = occurredAt.UTC().Format(time.RFC3339Nano)
		if len(payloadJSON) > 0 {
			if jsonErr := json.Unmarshal(payloadJSON, &e.Payload); jsonErr != nil {
				return nil, fmt.Errorf("decode audit payload: %w", jsonErr)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
