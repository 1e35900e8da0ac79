// Package repository persists users and point-claim history. Two
// implementations exist for every interface: a MongoDB one and an in-memory
// one used when no database is configured. The service layer is written
// against the interfaces only.
package repository

import (
	"context"

	"github.com/rankrunner/rankrunner/internal/models"
)

const (
	UsersCollection   = "users"
	HistoryCollection = "pointHistory"

	// DefaultHistoryLimit caps how many entries ListRecent returns.
	DefaultHistoryLimit = 50
)

type UserRepository interface {
	// List returns every user ordered by points descending; users with
	// equal points come back in creation order.
	List(ctx context.Context) ([]models.User, error)

	// Insert creates a user with zero points and the given provisional
	// rank. The caller re-ranks afterwards.
	Insert(ctx context.Context, name, avatarURL string, provisionalRank int) (*models.User, error)

	// IncrementPoints atomically adds delta to a user's points and
	// returns the post-increment record. Unknown ids yield NOT_FOUND.
	IncrementPoints(ctx context.Context, userID string, delta int) (*models.User, error)

	// ReassignRanks writes rank = position+1 for the given rank-ordered
	// id list in one bulk operation.
	ReassignRanks(ctx context.Context, orderedIDs []string) error

	FindByID(ctx context.Context, userID string) (*models.User, error)

	Count(ctx context.Context) (int64, error)
}

type HistoryRepository interface {
	// Append records one claim. Entries are immutable once written.
	Append(ctx context.Context, entry *models.PointHistory) error

	// ListRecent returns up to limit entries, newest first, joined with
	// each claimer's current display name and avatar.
	ListRecent(ctx context.Context, limit int64) ([]models.PointHistoryWithUser, error)
}
