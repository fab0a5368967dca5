package models

import "time"

// User roles recognized by the platform.
const (
	RoleStudent    = "student"
	RoleProfessor  = "professor"
	RoleEmployee   = "employee"
	RoleEmployer   = "employer"
	RoleCompany    = "company"
	RoleUniversity = "university"
	RoleFreelancer = "freelancer"
)

// User is a directory entry. Only the fields this subsystem reads are mapped.
type User struct {
	ID             int       `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Username       string    `db:"username" json:"username"`
	Email          string    `db:"email" json:"email"`
	Role           string    `db:"role" json:"role"`
	Headline       string    `db:"headline" json:"headline,omitempty"`
	ProfilePicture string    `db:"profile_picture" json:"profile_picture,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// UserSummary carries the public display fields attached to messages and
// notifications.
type UserSummary struct {
	ID             int    `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	Username       string `db:"username" json:"username"`
	ProfilePicture string `db:"profile_picture" json:"profile_picture,omitempty"`
}

// Summary projects the public fields of a user.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		Name:           u.Name,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	}
}
