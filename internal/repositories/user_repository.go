package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"proconnect/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the read surface of the user directory plus the
// connection gate.
type UserRepository interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
	BulkSummaries(ctx context.Context, ids []int) (map[int]models.UserSummary, error)
	AreConnected(ctx context.Context, userID int, otherID int) (bool, error)
	AddConnection(ctx context.Context, userID int, otherID int) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser fetches a directory entry by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, name, username, email, role, headline, profile_picture, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// BulkSummaries fetches display fields for a set of users in one query.
func (r *UserRepo) BulkSummaries(ctx context.Context, ids []int) (map[int]models.UserSummary, error) {
	result := make(map[int]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT id, name, username, profile_picture FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var summaries []models.UserSummary
	if err := r.db.SelectContext(ctx, &summaries, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, s := range summaries {
		result[s.ID] = s
	}
	return result, nil
}

// AreConnected reports whether an accepted connection exists between the users.
func (r *UserRepo) AreConnected(ctx context.Context, userID int, otherID int) (bool, error) {
	user1, user2 := sortPair(userID, otherID)
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM connections WHERE user1_id=$1 AND user2_id=$2)`, user1, user2)
	return exists, err
}

// AddConnection records an accepted connection between the users.
func (r *UserRepo) AddConnection(ctx context.Context, userID int, otherID int) error {
	user1, user2 := sortPair(userID, otherID)
	_, err := r.db.ExecContext(ctx, `INSERT INTO connections (user1_id, user2_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, user1, user2)
	return err
}

func sortPair(a, b int) (int, int) {
	pair := []int{a, b}
	sort.Ints(pair)
	return pair[0], pair[1]
}
