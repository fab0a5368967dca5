package models

import "time"

// Notification types.
const (
	NotificationLike               = "like"
	NotificationComment            = "comment"
	NotificationConnectionAccepted = "connection_accepted"
	NotificationProjectShared      = "project_shared"
	NotificationProjectRated       = "project_rated"
	NotificationProfileVisit       = "profile_visit"
)

// Notification is a persisted notification for one recipient.
type Notification struct {
	ID          int       `db:"id" json:"id"`
	RecipientID int       `db:"recipient_id" json:"recipient_id"`
	ActorID     *int      `db:"actor_id" json:"actor_id,omitempty"`
	Type        string    `db:"type" json:"type"`
	PostID      *int      `db:"post_id" json:"post_id,omitempty"`
	ProjectID   *int      `db:"project_id" json:"project_id,omitempty"`
	Rating      *int      `db:"rating" json:"rating,omitempty"`
	Comment     *string   `db:"comment" json:"comment,omitempty"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PopulatedNotification is a notification with the acting user's display
// fields resolved for rendering.
type PopulatedNotification struct {
	Notification
	Actor *UserSummary `json:"actor,omitempty"`
}
