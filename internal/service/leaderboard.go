package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rankrunner/rankrunner/internal/apperrors"
	"github.com/rankrunner/rankrunner/internal/events"
	"github.com/rankrunner/rankrunner/internal/logger"
	"github.com/rankrunner/rankrunner/internal/models"
	"github.com/rankrunner/rankrunner/internal/ranking"
	"github.com/rankrunner/rankrunner/internal/repository"
)

const (
	// Claim draws are uniform in [MinClaimPoints, MaxClaimPoints].
	MinClaimPoints = 1
	MaxClaimPoints = 10

	podiumSize = 3
)

// defaultRoster seeds an empty store so a fresh deployment has something to
// rank. Creation order here is the tie-break order while everyone sits at
// zero points.
var defaultRoster = []string{"Alex", "Blake", "Casey", "Drew", "Ellis"}

// ClaimResult is the snapshot returned to the caller of ClaimPoints.
type ClaimResult struct {
	UpdatedUser *models.User  `json:"updatedUser"`
	NewTopThree []models.User `json:"newTopThree"`
	PointsAdded int           `json:"pointsAdded"`
}

type LeaderboardService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	AddUser(ctx context.Context, name string) (*models.User, error)
	ClaimPoints(ctx context.Context, userID string) (*ClaimResult, error)
	GetHistory(ctx context.Context) ([]models.PointHistoryWithUser, error)
	GetPodium(ctx context.Context) ([]models.User, error)
}

// PodiumCache mirrors rank snapshots for cheap top-three reads. The Redis
// implementation lives in the cache package; the service only needs these
// two calls.
type PodiumCache interface {
	Mirror(ctx context.Context, users []models.User) error
	TopThree(ctx context.Context) ([]models.User, error)
}

type leaderboardService struct {
	userRepo    repository.UserRepository
	historyRepo repository.HistoryRepository
	logger      *logger.Logger

	// Optional collaborators; nil disables them.
	podium    PodiumCache
	publisher *events.EventPublisher

	// draw produces the per-claim point award. Injectable so tests can
	// pin deltas; the same drawn value feeds both the increment and the
	// history entry.
	draw func() int

	seedMu sync.Mutex
	seeded bool
}

// Option configures optional service collaborators.
type Option func(*leaderboardService)

func WithPodiumCache(podium PodiumCache) Option {
	return func(s *leaderboardService) {
		s.podium = podium
	}
}

func WithEventPublisher(publisher *events.EventPublisher) Option {
	return func(s *leaderboardService) {
		s.publisher = publisher
	}
}

func WithDraw(draw func() int) Option {
	return func(s *leaderboardService) {
		if draw != nil {
			s.draw = draw
		}
	}
}

func NewLeaderboardService(
	userRepo repository.UserRepository,
	historyRepo repository.HistoryRepository,
	log *logger.Logger,
	opts ...Option,
) LeaderboardService {
	s := &leaderboardService{
		userRepo:    userRepo,
		historyRepo: historyRepo,
		logger:      log,
		draw: func() int {
			return rand.Intn(MaxClaimPoints-MinClaimPoints+1) + MinClaimPoints
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *leaderboardService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list users", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) > 0 {
		return users, nil
	}

	if err := s.seedDefaultRoster(ctx); err != nil {
		return nil, err
	}

	users, err = s.userRepo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list users after seeding", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// seedDefaultRoster inserts the default roster once per process. The
// emptiness re-check under the lock keeps concurrent first requests from
// double-seeding within this process.
func (s *leaderboardService) seedDefaultRoster(ctx context.Context) error {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	if s.seeded {
		return nil
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		s.seeded = true
		return nil
	}

	s.logger.Info("Seeding default roster", "users", len(defaultRoster))

	for i, name := range defaultRoster {
		if _, err := s.userRepo.Insert(ctx, name, models.DefaultAvatarURL, i+1); err != nil {
			return fmt.Errorf("failed to seed user %q: %w", name, err)
		}
	}

	if _, err := s.reRank(ctx); err != nil {
		return err
	}

	s.seeded = true
	return nil
}

func (s *leaderboardService) AddUser(ctx context.Context, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "name must not be empty")
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count users", "error", err)
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	user, err := s.userRepo.Insert(ctx, name, models.DefaultAvatarURL, int(count)+1)
	if err != nil {
		s.logger.Error("Failed to insert user", "error", err, "name", name)
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	// The provisional rank only holds until everyone is re-ranked; a
	// fresh zero-point user may tie with existing zero-point users.
	ordered, err := s.reRank(ctx)
	if err != nil {
		return nil, err
	}

	for _, u := range ordered {
		if u.ID == user.ID {
			user.Rank = u.Rank
			break
		}
	}

	s.mirrorPodium(ctx, ordered)

	if s.publisher != nil {
		_ = s.publisher.PublishUserCreated(ctx, user.ID, user.Name)
	}

	s.logger.Info("User added", "user_id", user.ID, "name", user.Name, "rank", user.Rank)

	return user, nil
}

func (s *leaderboardService) ClaimPoints(ctx context.Context, userID string) (*ClaimResult, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	// Drawn once; the same value feeds the increment, the history entry
	// and the returned snapshot.
	pointsToAdd := s.draw()

	updated, err := s.userRepo.IncrementPoints(ctx, userID, pointsToAdd)
	if err != nil {
		s.logger.Error("Failed to increment points", "error", err, "user_id", userID)
		return nil, err
	}

	// History failure must not undo the committed increment; it is
	// logged and the claim still succeeds.
	entry := &models.PointHistory{
		UserID:                updated.ID,
		PointsClaimed:         pointsToAdd,
		Timestamp:             time.Now().UTC(),
		TotalPointsAfterClaim: updated.Points,
	}
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append history entry",
			"error", err,
			"user_id", updated.ID,
			"points_claimed", pointsToAdd,
		)
	}

	ordered, err := s.reRank(ctx)
	if err != nil {
		return nil, err
	}

	result := &ClaimResult{
		NewTopThree: topThree(ordered),
		PointsAdded: pointsToAdd,
	}

	for i := range ordered {
		if ordered[i].ID == updated.ID {
			u := ordered[i]
			result.UpdatedUser = &u
			break
		}
	}
	if result.UpdatedUser == nil {
		// Re-rank read a snapshot that somehow misses the user; fall
		// back to the post-increment record.
		result.UpdatedUser = updated
	}

	s.mirrorPodium(ctx, ordered)

	if s.publisher != nil {
		_ = s.publisher.PublishPointsClaimed(ctx, events.PointsClaimedEvent{
			UserID:      result.UpdatedUser.ID,
			Name:        result.UpdatedUser.Name,
			PointsAdded: pointsToAdd,
			TotalPoints: result.UpdatedUser.Points,
			NewRank:     result.UpdatedUser.Rank,
		})
	}

	s.logger.Info("Points claimed",
		"user_id", result.UpdatedUser.ID,
		"points_added", pointsToAdd,
		"total_points", result.UpdatedUser.Points,
		"rank", result.UpdatedUser.Rank,
	)

	return result, nil
}

// GetPodium serves the top-three read path for dashboards. It prefers the
// cache mirror and falls back to the repository whenever the mirror is
// unavailable, cold or failing, so the answer never depends on Redis.
func (s *leaderboardService) GetPodium(ctx context.Context) ([]models.User, error) {
	if s.podium != nil {
		podium, err := s.podium.TopThree(ctx)
		if err != nil {
			s.logger.Warn("Podium cache read failed, falling back to repository", "error", err)
		} else if len(podium) > 0 {
			return podium, nil
		}
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list users for podium", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	ordered := ranking.Order(users)
	for i := range ordered {
		ordered[i].Rank = i + 1
	}

	return topThree(ordered), nil
}

func (s *leaderboardService) GetHistory(ctx context.Context) ([]models.PointHistoryWithUser, error) {
	entries, err := s.historyRepo.ListRecent(ctx, repository.DefaultHistoryLimit)
	if err != nil {
		s.logger.Error("Failed to get history", "error", err)
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	return entries, nil
}

// reRank reads the latest committed point totals, persists a consistent
// rank assignment for all users and returns them in rank order with ranks
// filled in.
func (s *leaderboardService) reRank(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list users for re-rank", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	ordered := ranking.Order(users)
	ranks := ranking.Compute(users)

	ids := make([]string, len(ordered))
	for i := range ordered {
		ids[i] = ordered[i].ID
		ordered[i].Rank = ranks[ordered[i].ID]
	}

	if err := s.userRepo.ReassignRanks(ctx, ids); err != nil {
		s.logger.Error("Failed to reassign ranks", "error", err)
		return nil, fmt.Errorf("failed to reassign ranks: %w", err)
	}

	return ordered, nil
}

// mirrorPodium pushes the fresh ordering into the Redis mirror. Best effort:
// errors are already logged by the cache, callers never see them.
func (s *leaderboardService) mirrorPodium(ctx context.Context, ordered []models.User) {
	if s.podium == nil {
		return
	}
	_ = s.podium.Mirror(ctx, ordered)
}

func topThree(ordered []models.User) []models.User {
	n := podiumSize
	if len(ordered) < n {
		n = len(ordered)
	}

	podium := make([]models.User, n)
	copy(podium, ordered[:n])
	return podium
}
