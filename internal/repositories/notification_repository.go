package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"proconnect/internal/models"
)

// NotificationRepository abstracts notification persistence.
type NotificationRepository interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	ListForUser(ctx context.Context, userID int) ([]models.Notification, error)
	HasRecentProfileVisit(ctx context.Context, recipientID int, actorID int, since time.Time) (bool, error)
	MarkRead(ctx context.Context, notificationID int, userID int) error
	MarkAllRead(ctx context.Context, userID int) error
	Delete(ctx context.Context, notificationID int, userID int) error
	CountUnread(ctx context.Context, userID int) (int, error)
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Create stores a notification.
func (r *NotificationRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	var created models.Notification
	err := r.db.GetContext(ctx, &created, `INSERT INTO notifications (recipient_id, actor_id, type, post_id, project_id, rating, comment)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, recipient_id, actor_id, type, post_id, project_id, rating, comment, read, created_at`,
		n.RecipientID, n.ActorID, n.Type, n.PostID, n.ProjectID, n.Rating, n.Comment)
	return created, err
}

// ListForUser returns the user's notifications, newest first.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID int) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.SelectContext(ctx, &list, `SELECT id, recipient_id, actor_id, type, post_id, project_id, rating, comment, read, created_at
        FROM notifications WHERE recipient_id=$1 ORDER BY created_at DESC`, userID)
	return list, err
}

// HasRecentProfileVisit reports whether the actor already produced a
// profile-visit notification for the recipient after the given instant.
func (r *NotificationRepo) HasRecentProfileVisit(ctx context.Context, recipientID int, actorID int, since time.Time) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM notifications
        WHERE recipient_id=$1 AND actor_id=$2 AND type=$3 AND created_at >= $4)`,
		recipientID, actorID, models.NotificationProfileVisit, since)
	return exists, err
}

// MarkRead flips read on one of the user's notifications.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID int, userID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read=TRUE WHERE id=$1 AND recipient_id=$2`, notificationID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkAllRead flips read on every notification of the user.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET read=TRUE WHERE recipient_id=$1 AND read=FALSE`, userID)
	return err
}

// Delete removes one of the user's notifications.
func (r *NotificationRepo) Delete(ctx context.Context, notificationID int, userID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id=$1 AND recipient_id=$2`, notificationID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CountUnread totals the user's unread notifications.
func (r *NotificationRepo) CountUnread(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND read=FALSE`, userID)
	return count, err
}
