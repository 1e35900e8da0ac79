package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rankrunner/rankrunner/internal/models"
)

// MemoryHistoryRepository pairs with MemoryUserRepository; the join in
// ListRecent reads display data through it, mirroring the $lookup the Mongo
// implementation runs.
type MemoryHistoryRepository struct {
	mu      sync.Mutex
	entries []models.PointHistory
	users   *MemoryUserRepository
}

func NewMemoryHistoryRepository(users *MemoryUserRepository) *MemoryHistoryRepository {
	return &MemoryHistoryRepository{users: users}
}

func (r *MemoryHistoryRepository) Append(ctx context.Context, entry *models.PointHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryHistoryRepository) ListRecent(ctx context.Context, limit int64) ([]models.PointHistoryWithUser, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	r.mu.Lock()
	recent := make([]models.PointHistory, 0, limit)
	// Entries are appended chronologically; walking backwards gives
	// newest-first without re-sorting, and keeps same-timestamp entries
	// in most-recent-claim-first order.
	for i := len(r.entries) - 1; i >= 0 && int64(len(recent)) < limit; i-- {
		recent = append(recent, r.entries[i])
	}
	r.mu.Unlock()

	out := make([]models.PointHistoryWithUser, 0, len(recent))
	for _, e := range recent {
		name, avatarURL, ok := r.users.displayData(e.UserID)
		if !ok {
			// Matches the Mongo $unwind: entries whose user vanished
			// are dropped from the view, not errored on.
			continue
		}

		out = append(out, models.PointHistoryWithUser{
			ID:                    e.ID,
			UserName:              name,
			UserAvatarURL:         avatarURL,
			PointsClaimed:         e.PointsClaimed,
			Timestamp:             e.Timestamp,
			TotalPointsAfterClaim: e.TotalPointsAfterClaim,
		})
	}

	return out, nil
}
