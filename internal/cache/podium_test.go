package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/rankrunner/rankrunner/internal/apperrors"
	"github.com/rankrunner/rankrunner/internal/logger"
	"github.com/rankrunner/rankrunner/internal/models"
)

// unreachablePodiumCache points at a port nothing listens on so every Redis
// call fails fast.
func unreachablePodiumCache() *PodiumCache {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})

	return &PodiumCache{
		client: client,
		logger: logger.New(logger.Config{Level: "error", ServiceName: "test"}).With("component", "PodiumCache"),
	}
}

func TestPodiumCacheErrors(t *testing.T) {
	ctx := context.Background()

	Convey("Given a cache whose Redis is unreachable", t, func() {
		podium := unreachablePodiumCache()

		Convey("When the leaderboard is mirrored", func() {
			err := podium.Mirror(ctx, []models.User{
				{ID: "u1", Name: "Alex", Points: 12},
			})

			Convey("Then the failure carries the cache write code", func() {
				So(err, ShouldNotBeNil)
				So(apperrors.Code(err), ShouldEqual, apperrors.CodeCacheWrite)
			})
		})

		Convey("When the podium is read", func() {
			_, err := podium.TopThree(ctx)

			Convey("Then the failure carries the cache write code", func() {
				So(err, ShouldNotBeNil)
				So(apperrors.Code(err), ShouldEqual, apperrors.CodeCacheWrite)
			})
		})
	})
}
