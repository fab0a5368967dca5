package notifications

import (
	"context"
	"time"

	"proconnect/internal/models"
	"proconnect/internal/observability"
	"proconnect/internal/repositories"
)

// profileVisitWindow is the deduplication window for profile-visit
// notifications. No other type is deduplicated.
const profileVisitWindow = 24 * time.Hour

// Broadcaster pushes events to a user's connected clients.
type Broadcaster interface {
	EmitToUser(userID int, event string, data any)
}

// Service persists notifications and pushes them to recipients that currently
// hold a connection. Persist first, broadcast only on success.
type Service struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	broadcaster   Broadcaster
	now           func() time.Time
}

// NewService constructs a Service.
func NewService(notifications repositories.NotificationRepository, users repositories.UserRepository, broadcaster Broadcaster) *Service {
	return &Service{
		notifications: notifications,
		users:         users,
		broadcaster:   broadcaster,
		now:           time.Now,
	}
}

// Notify persists the notification and pushes it to the recipient's personal
// room. Delivery to disconnected recipients is not queued; they pick the
// notification up on their next REST fetch.
func (s *Service) Notify(ctx context.Context, n models.Notification) (models.PopulatedNotification, error) {
	created, err := s.notifications.Create(ctx, n)
	if err != nil {
		return models.PopulatedNotification{}, err
	}

	populated := models.PopulatedNotification{Notification: created}
	if created.ActorID != nil {
		if actor, err := s.users.GetUser(ctx, *created.ActorID); err == nil {
			summary := actor.Summary()
			populated.Actor = &summary
		}
	}

	s.broadcaster.EmitToUser(created.RecipientID, models.EventNewNotification, populated)
	observability.IncNotificationPushed(created.Type)

	_ = observability.PublishEvent(ctx, "notifications.created", observability.EventEnvelope{
		EventType: "notification_events",
		EventName: "notification_created",
		Payload:   populated,
	}, nil)

	return populated, nil
}

// RecordProfileVisit creates a profile-visit notification unless the same
// visitor already produced one for this profile inside the dedup window.
// Self-visits never notify.
func (s *Service) RecordProfileVisit(ctx context.Context, actorID int, ownerID int) error {
	if actorID == ownerID {
		return nil
	}

	since := s.now().Add(-profileVisitWindow)
	seen, err := s.notifications.HasRecentProfileVisit(ctx, ownerID, actorID, since)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	_, err = s.Notify(ctx, models.Notification{
		RecipientID: ownerID,
		ActorID:     &actorID,
		Type:        models.NotificationProfileVisit,
	})
	return err
}

// ListForUser returns the user's notifications with actor display fields.
func (s *Service) ListForUser(ctx context.Context, userID int) ([]models.PopulatedNotification, error) {
	list, err := s.notifications.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	actorIDs := make([]int, 0, len(list))
	seen := map[int]struct{}{}
	for _, n := range list {
		if n.ActorID == nil {
			continue
		}
		if _, ok := seen[*n.ActorID]; ok {
			continue
		}
		seen[*n.ActorID] = struct{}{}
		actorIDs = append(actorIDs, *n.ActorID)
	}
	actors, err := s.users.BulkSummaries(ctx, actorIDs)
	if err != nil {
		return nil, err
	}

	populated := make([]models.PopulatedNotification, 0, len(list))
	for _, n := range list {
		p := models.PopulatedNotification{Notification: n}
		if n.ActorID != nil {
			if actor, ok := actors[*n.ActorID]; ok {
				p.Actor = &actor
			}
		}
		populated = append(populated, p)
	}
	return populated, nil
}

// MarkRead flips read on one notification of the user.
func (s *Service) MarkRead(ctx context.Context, userID int, notificationID int) error {
	return s.notifications.MarkRead(ctx, notificationID, userID)
}

// MarkAllRead flips read on all of the user's notifications.
func (s *Service) MarkAllRead(ctx context.Context, userID int) error {
	return s.notifications.MarkAllRead(ctx, userID)
}

// Delete removes one notification of the user.
func (s *Service) Delete(ctx context.Context, userID int, notificationID int) error {
	return s.notifications.Delete(ctx, notificationID, userID)
}

// UnreadCount totals the user's unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID int) (int, error) {
	return s.notifications.CountUnread(ctx, userID)
}
