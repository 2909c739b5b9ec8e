package service

import (
	"context"
	"log/slog"
	"strings"

	"go-user-auth/internal/event"
	"go-user-auth/pkg/apierror"
)

type AuditStore interface {
	Log(ctx context.Context, e event.Event) error
	ListForUser(ctx context.Context, userID string, limit int) ([]event.Event, error)
}

// AuditService persists authentication events published on the bus and
// serves them back per user.
type AuditService struct {
	store  AuditStore
	bus    event.Bus
	logger *slog.Logger
}

func NewAuditService(store AuditStore, bus event.Bus, logger *slog.Logger) *AuditService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditService{store: store, bus: bus, logger: logger.With("component", "audit")}
}

// Run subscribes to the bus and writes every event until ctx is done.
// Write failures are logged and the event is dropped.
func (s *AuditService) Run(ctx context.Context) {
	events, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			s.record(ctx, e)
		}
	}
}

func (s *AuditService) record(ctx context.Context, e event.Event) {
	if err := s.store.Log(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Error("persist audit entry", "event_id", e.ID, "type", string(e.Type), "error", err)
	}
}

func (s *AuditService) ListForUser(ctx context.Context, userID string, limit int) ([]event.Event, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apierror.BadRequest("user id is required", "")
	}
	return s.store.ListForUser(ctx, userID, limit)
}
