package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rankrunner/rankrunner/internal/apperrors"
	"github.com/rankrunner/rankrunner/internal/models"
)

// MemoryUserRepository is the fallback store used when no Mongo URI is
// configured. One mutex guards all state, which makes IncrementPoints
// linearizable the same way the Mongo $inc is.
type MemoryUserRepository struct {
	mu sync.Mutex

	// users holds insertion order, the creation-order tie-break.
	users []*models.User
	byID  map[string]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID: make(map[string]*models.User),
	}
}

func (r *MemoryUserRepository) List(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked(), nil
}

// snapshotLocked returns copies ordered by points descending, creation
// ascending. Callers must hold mu.
func (r *MemoryUserRepository) snapshotLocked() []models.User {
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Points > out[j].Points
	})

	return out
}

func (r *MemoryUserRepository) Insert(ctx context.Context, name, avatarURL string, provisionalRank int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := &models.User{
		ID:        uuid.New().String(),
		Name:      name,
		Points:    0,
		AvatarURL: avatarURL,
		Rank:      provisionalRank,
	}

	r.users = append(r.users, user)
	r.byID[user.ID] = user

	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) IncrementPoints(ctx context.Context, userID string, delta int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[userID]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}

	user.Points += delta

	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) ReassignRanks(ctx context.Context, orderedIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, id := range orderedIDs {
		user, ok := r.byID[id]
		if !ok {
			return apperrors.New(apperrors.CodeNotFound, "user not found")
		}
		user.Rank = i + 1
	}

	return nil
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[userID]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}

	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return int64(len(r.users)), nil
}

// displayData resolves current name and avatar for the history join.
func (r *MemoryUserRepository) displayData(userID string) (name, avatarURL string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, found := r.byID[userID]
	if !found {
		return "", "", false
	}
	return user.Name, user.AvatarURL, true
}
