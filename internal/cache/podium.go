// Package cache mirrors the leaderboard into Redis for cheap podium reads.
// The mirror is advisory: the service's answers always come from the
// repository, so a cold or unreachable cache never affects correctness.
package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/rankrunner/rankrunner/internal/apperrors"
	"github.com/rankrunner/rankrunner/internal/logger"
	"github.com/rankrunner/rankrunner/internal/models"
)

const (
	leaderboardKey = "rankrunner:leaderboard"
	usernamesKey   = "rankrunner:usernames"

	podiumSize = 3
)

type PodiumCache struct {
	client *redis.Client
	logger *logger.Logger
}

func NewPodiumCache(redisClient *RedisClient, log *logger.Logger) *PodiumCache {
	return &PodiumCache{
		client: redisClient.GetClient(),
		logger: log.With("component", "PodiumCache"),
	}
}

// Mirror rewrites the sorted set and display-name hash from a full user
// snapshot, pipelined the way score writes batch HSet+ZAdd.
func (c *PodiumCache) Mirror(ctx context.Context, users []models.User) error {
	pipe := c.client.Pipeline()

	members := make([]redis.Z, 0, len(users))
	names := make([]interface{}, 0, len(users)*2)
	for _, u := range users {
		members = append(members, redis.Z{
			Score:  float64(u.Points),
			Member: u.ID,
		})
		names = append(names, u.ID, u.Name)
	}

	if len(members) > 0 {
		pipe.ZAdd(ctx, leaderboardKey, members...)
		pipe.HSet(ctx, usernamesKey, names...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Error("Failed to mirror leaderboard",
			"error", err,
			"users", len(users),
		)
		return apperrors.Wrap(err, apperrors.CodeCacheWrite, "failed to mirror leaderboard")
	}

	return nil
}

// TopThree reads the podium from the mirror, highest points first.
func (c *PodiumCache) TopThree(ctx context.Context) ([]models.User, error) {
	members, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, podiumSize-1).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheWrite, "failed to read podium")
	}

	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.Member.(string)
	}

	names, err := c.client.HMGet(ctx, usernamesKey, ids...).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheWrite, "failed to read usernames")
	}

	podium := make([]models.User, len(members))
	for i, m := range members {
		name := ""
		if i < len(names) {
			name, _ = names[i].(string)
		}
		podium[i] = models.User{
			ID:     ids[i],
			Name:   name,
			Points: int(m.Score),
			Rank:   i + 1,
		}
	}

	return podium, nil
}
