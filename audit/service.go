// audit/service.go
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/vanguard-api/vanguard/model"
	"github.com/vanguard-api/vanguard/util"
)

type Service interface {
	Record(ctx context.Context, log AuditLog) error
	Query(ctx context.Context, from, to time.Time, actor, resourceID string) ([]AuditLog, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Record(ctx context.Context, log AuditLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}
	return s.repo.Record(ctx, log)
}

func (s *service) Query(ctx context.Context, from, to time.Time, actor, resourceID string) ([]AuditLog, error) {
	return s.repo.Query(ctx, from, to, actor, resourceID)
}

// RegisterSubscribers wires the audit trail to the domain event bus. Every
// mutation published by the services ends up as an indexed entry.
func RegisterSubscribers(bus *util.EventBus, svc Service) {
	events := []string{
		"user.created", "user.updated", "user.deleted",
		"item.created", "item.updated", "item.deleted",
		"request.rejected",
	}
	for _, eventType := range events {
		bus.Subscribe(eventType, func(ctx context.Context, event util.Event) error {
			return svc.Record(ctx, fromEvent(event))
		})
	}
}

// fromEvent maps a bus event like "item.updated" to an audit entry.
func fromEvent(event util.Event) AuditLog {
	resourceType, action, _ := strings.Cut(event.Type, ".")
	log := AuditLog{
		Timestamp:    time.Now(),
		Action:       action,
		ResourceType: resourceType,
	}

	switch payload := event.Payload.(type) {
	case *model.User:
		log.Actor = payload.ID
		log.ResourceID = payload.ID
	case *model.Item:
		log.Actor = payload.OwnerID
		log.ResourceID = payload.ID
	case util.RejectedRequest:
		log.Actor = payload.Subject
		log.ResourceID = payload.Method + " " + payload.Path
	case string:
		log.ResourceID = payload
	}

	if event.Payload != nil {
		if details, err := json.Marshal(event.Payload); err == nil {
			log.Details = details
		}
	}
	return log
}
