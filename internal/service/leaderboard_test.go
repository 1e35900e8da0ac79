package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/rankrunner/rankrunner/internal/apperrors"
	"github.com/rankrunner/rankrunner/internal/logger"
	"github.com/rankrunner/rankrunner/internal/models"
	"github.com/rankrunner/rankrunner/internal/repository"
	"github.com/rankrunner/rankrunner/internal/service"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", ServiceName: "test"})
}

func newFixture(opts ...service.Option) (service.LeaderboardService, *repository.MemoryUserRepository, *repository.MemoryHistoryRepository) {
	users := repository.NewMemoryUserRepository()
	history := repository.NewMemoryHistoryRepository(users)
	svc := service.NewLeaderboardService(users, history, quietLogger(), opts...)
	return svc, users, history
}

// drawQueue pins successive claim draws for deterministic scenarios.
func drawQueue(values ...int) func() int {
	i := 0
	return func() int {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestListUsersSeeding(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		svc, users, _ := newFixture()

		Convey("When ListUsers runs", func() {
			listed, err := svc.ListUsers(ctx)
			So(err, ShouldBeNil)

			Convey("Then the default roster is seeded with dense ranks", func() {
				So(len(listed), ShouldEqual, 5)
				for i, u := range listed {
					So(u.Points, ShouldEqual, 0)
					So(u.Rank, ShouldEqual, i+1)
					So(u.AvatarURL, ShouldEqual, models.DefaultAvatarURL)
				}
			})

			Convey("And a second call does not duplicate the roster", func() {
				again, err := svc.ListUsers(ctx)
				So(err, ShouldBeNil)
				So(len(again), ShouldEqual, 5)

				count, err := users.Count(ctx)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 5)
			})
		})
	})

	Convey("Given a store that already has users", t, func() {
		svc, users, _ := newFixture()
		_, err := users.Insert(ctx, "Solo", models.DefaultAvatarURL, 1)
		So(err, ShouldBeNil)

		Convey("When ListUsers runs", func() {
			listed, err := svc.ListUsers(ctx)
			So(err, ShouldBeNil)

			Convey("Then nothing is seeded", func() {
				So(len(listed), ShouldEqual, 1)
				So(listed[0].Name, ShouldEqual, "Solo")
			})
		})
	})
}

func TestAddUser(t *testing.T) {
	ctx := context.Background()

	Convey("Given a leaderboard service", t, func() {
		svc, users, _ := newFixture()

		Convey("When adding a user with a blank name", func() {
			_, err := svc.AddUser(ctx, "   ")

			Convey("Then the input is rejected before any repository call", func() {
				So(apperrors.IsInvalidInput(err), ShouldBeTrue)

				count, _ := users.Count(ctx)
				So(count, ShouldEqual, 0)
			})
		})

		Convey("When adding a user onto a populated board", func() {
			for _, seed := range []struct {
				name   string
				points int
			}{
				{"High", 20},
				{"Mid", 10},
				{"Low", 5},
			} {
				u, err := users.Insert(ctx, seed.name, models.DefaultAvatarURL, 0)
				So(err, ShouldBeNil)
				_, err = users.IncrementPoints(ctx, u.ID, seed.points)
				So(err, ShouldBeNil)
			}

			created, err := svc.AddUser(ctx, "Zed")
			So(err, ShouldBeNil)

			Convey("Then the new user starts at zero points and ranks last", func() {
				So(created.Points, ShouldEqual, 0)
				So(created.Rank, ShouldEqual, 4)
			})

			Convey("And every user carries a consistent rank", func() {
				listed, err := svc.ListUsers(ctx)
				So(err, ShouldBeNil)
				for i, u := range listed {
					So(u.Rank, ShouldEqual, i+1)
				}
			})
		})
	})
}

func TestClaimPoints(t *testing.T) {
	ctx := context.Background()

	Convey("Given a claim on an unknown user", t, func() {
		svc, _, _ := newFixture()

		_, err := svc.ClaimPoints(ctx, "no-such-user")

		Convey("Then NOT_FOUND propagates", func() {
			So(apperrors.IsNotFound(err), ShouldBeTrue)
		})
	})

	Convey("Given repeated claims with the default draw", t, func() {
		svc, users, _ := newFixture()
		user, err := users.Insert(ctx, "Alex", models.DefaultAvatarURL, 1)
		So(err, ShouldBeNil)

		Convey("Then every delta lands in [1,10] and totals add up exactly", func() {
			previous := 0
			for i := 0; i < 100; i++ {
				result, err := svc.ClaimPoints(ctx, user.ID)
				So(err, ShouldBeNil)
				So(result.PointsAdded, ShouldBeBetweenOrEqual, 1, 10)
				So(result.UpdatedUser.Points, ShouldEqual, previous+result.PointsAdded)
				previous = result.UpdatedUser.Points
			}
		})
	})

	Convey("Given concurrent claims on the same user", t, func() {
		svc, users, _ := newFixture()
		user, err := users.Insert(ctx, "Racer", models.DefaultAvatarURL, 1)
		So(err, ShouldBeNil)

		const claims = 30

		var (
			mu    sync.Mutex
			total int
			wg    sync.WaitGroup
		)

		wg.Add(claims)
		for i := 0; i < claims; i++ {
			go func() {
				defer wg.Done()
				result, err := svc.ClaimPoints(ctx, user.ID)
				if err != nil {
					return
				}
				mu.Lock()
				total += result.PointsAdded
				mu.Unlock()
			}()
		}
		wg.Wait()

		Convey("Then no draw is lost", func() {
			final, err := users.FindByID(ctx, user.ID)
			So(err, ShouldBeNil)
			So(final.Points, ShouldEqual, total)
		})
	})

	Convey("Given a single-user board", t, func() {
		svc, users, _ := newFixture()
		user, err := users.Insert(ctx, "Only", models.DefaultAvatarURL, 1)
		So(err, ShouldBeNil)

		Convey("When claiming", func() {
			result, err := svc.ClaimPoints(ctx, user.ID)
			So(err, ShouldBeNil)

			Convey("Then the podium holds just that user", func() {
				So(len(result.NewTopThree), ShouldEqual, 1)
				So(result.NewTopThree[0].ID, ShouldEqual, user.ID)
				So(result.NewTopThree[0].Rank, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a history store that always fails", t, func() {
		users := repository.NewMemoryUserRepository()
		svc := service.NewLeaderboardService(users, &failingHistoryRepo{}, quietLogger())

		user, err := users.Insert(ctx, "Alex", models.DefaultAvatarURL, 1)
		So(err, ShouldBeNil)

		Convey("When claiming", func() {
			result, err := svc.ClaimPoints(ctx, user.ID)

			Convey("Then the claim still succeeds with the points committed", func() {
				So(err, ShouldBeNil)
				So(result.UpdatedUser.Points, ShouldEqual, result.PointsAdded)
			})
		})
	})
}

func TestClaimScenario(t *testing.T) {
	ctx := context.Background()

	Convey("Given users A at 10 points and B at 5, with pinned draws 3 then 10", t, func() {
		svc, users, _ := newFixture(service.WithDraw(drawQueue(3, 10)))

		a, err := users.Insert(ctx, "A", models.DefaultAvatarURL, 1)
		So(err, ShouldBeNil)
		b, err := users.Insert(ctx, "B", models.DefaultAvatarURL, 2)
		So(err, ShouldBeNil)

		_, err = users.IncrementPoints(ctx, a.ID, 10)
		So(err, ShouldBeNil)
		_, err = users.IncrementPoints(ctx, b.ID, 5)
		So(err, ShouldBeNil)

		Convey("When A claims", func() {
			result, err := svc.ClaimPoints(ctx, a.ID)
			So(err, ShouldBeNil)

			Convey("Then A gains 3 and ranks hold", func() {
				So(result.PointsAdded, ShouldEqual, 3)
				So(result.UpdatedUser.Points, ShouldEqual, 13)
				So(result.UpdatedUser.Rank, ShouldEqual, 1)
				So(len(result.NewTopThree), ShouldEqual, 2)
				So(result.NewTopThree[0].ID, ShouldEqual, a.ID)
				So(result.NewTopThree[1].ID, ShouldEqual, b.ID)
			})

			Convey("And when B then claims", func() {
				result, err := svc.ClaimPoints(ctx, b.ID)
				So(err, ShouldBeNil)

				Convey("Then B overtakes A", func() {
					So(result.PointsAdded, ShouldEqual, 10)
					So(result.UpdatedUser.Points, ShouldEqual, 15)
					So(result.UpdatedUser.Rank, ShouldEqual, 1)
					So(result.NewTopThree[0].ID, ShouldEqual, b.ID)
					So(result.NewTopThree[1].ID, ShouldEqual, a.ID)
				})

				Convey("And the history shows both claims, newest first", func() {
					entries, err := svc.GetHistory(ctx)
					So(err, ShouldBeNil)
					So(len(entries), ShouldEqual, 2)

					So(entries[0].UserName, ShouldEqual, "B")
					So(entries[0].PointsClaimed, ShouldEqual, 10)
					So(entries[0].TotalPointsAfterClaim, ShouldEqual, 15)

					So(entries[1].UserName, ShouldEqual, "A")
					So(entries[1].PointsClaimed, ShouldEqual, 3)
					So(entries[1].TotalPointsAfterClaim, ShouldEqual, 13)
				})
			})
		})
	})
}

func TestGetPodium(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service without a podium cache", t, func() {
		svc, users, _ := newFixture(service.WithDraw(drawQueue(5)))

		a, err := users.Insert(ctx, "A", models.DefaultAvatarURL, 1)
		So(err, ShouldBeNil)
		_, err = users.Insert(ctx, "B", models.DefaultAvatarURL, 2)
		So(err, ShouldBeNil)

		_, err = svc.ClaimPoints(ctx, a.ID)
		So(err, ShouldBeNil)

		Convey("When the podium is fetched", func() {
			podium, err := svc.GetPodium(ctx)
			So(err, ShouldBeNil)

			Convey("Then it comes from the repository in rank order", func() {
				So(len(podium), ShouldEqual, 2)
				So(podium[0].ID, ShouldEqual, a.ID)
				So(podium[0].Rank, ShouldEqual, 1)
				So(podium[1].Rank, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a service with a podium cache", t, func() {
		podiumCache := &fakePodiumCache{}
		svc, users, _ := newFixture(
			service.WithDraw(drawQueue(5)),
			service.WithPodiumCache(podiumCache),
		)

		a, err := users.Insert(ctx, "A", models.DefaultAvatarURL, 1)
		So(err, ShouldBeNil)

		Convey("When a claim lands", func() {
			_, err := svc.ClaimPoints(ctx, a.ID)
			So(err, ShouldBeNil)

			Convey("Then the fresh ordering is mirrored", func() {
				So(len(podiumCache.mirrored), ShouldEqual, 1)
				So(podiumCache.mirrored[0].ID, ShouldEqual, a.ID)
				So(podiumCache.mirrored[0].Points, ShouldEqual, 5)
			})

			Convey("And the podium read is served from the cache", func() {
				podium, err := svc.GetPodium(ctx)
				So(err, ShouldBeNil)
				So(len(podium), ShouldEqual, 1)
				So(podium[0].ID, ShouldEqual, a.ID)
				So(podiumCache.reads, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a podium cache that fails on reads", t, func() {
		podiumCache := &fakePodiumCache{readErr: errors.New("redis is down")}
		svc, users, _ := newFixture(
			service.WithDraw(drawQueue(5)),
			service.WithPodiumCache(podiumCache),
		)

		a, err := users.Insert(ctx, "A", models.DefaultAvatarURL, 1)
		So(err, ShouldBeNil)
		_, err = svc.ClaimPoints(ctx, a.ID)
		So(err, ShouldBeNil)

		Convey("When the podium is fetched", func() {
			podium, err := svc.GetPodium(ctx)

			Convey("Then the repository answers instead of the cache", func() {
				So(err, ShouldBeNil)
				So(len(podium), ShouldEqual, 1)
				So(podium[0].ID, ShouldEqual, a.ID)
			})
		})
	})

	Convey("Given a cold podium cache", t, func() {
		podiumCache := &fakePodiumCache{}
		svc, users, _ := newFixture(service.WithPodiumCache(podiumCache))

		a, err := users.Insert(ctx, "A", models.DefaultAvatarURL, 1)
		So(err, ShouldBeNil)

		Convey("When the podium is fetched before any claim", func() {
			podium, err := svc.GetPodium(ctx)

			Convey("Then the repository fills in for the empty mirror", func() {
				So(err, ShouldBeNil)
				So(len(podium), ShouldEqual, 1)
				So(podium[0].ID, ShouldEqual, a.ID)
			})
		})
	})
}

func TestGetHistory(t *testing.T) {
	ctx := context.Background()

	Convey("Given more claims than the history limit", t, func() {
		svc, users, _ := newFixture(service.WithDraw(drawQueue(1)))
		user, err := users.Insert(ctx, "Busy", models.DefaultAvatarURL, 1)
		So(err, ShouldBeNil)

		for i := 0; i < repository.DefaultHistoryLimit+10; i++ {
			_, err := svc.ClaimPoints(ctx, user.ID)
			So(err, ShouldBeNil)
		}

		Convey("When fetching history", func() {
			entries, err := svc.GetHistory(ctx)
			So(err, ShouldBeNil)

			Convey("Then it is capped at the limit with running totals descending", func() {
				So(len(entries), ShouldEqual, repository.DefaultHistoryLimit)
				for i := 1; i < len(entries); i++ {
					So(entries[i-1].TotalPointsAfterClaim, ShouldBeGreaterThan, entries[i].TotalPointsAfterClaim)
				}
			})
		})
	})
}

// fakePodiumCache records the last mirrored snapshot and serves it back,
// standing in for the Redis mirror.
type fakePodiumCache struct {
	mirrored []models.User
	reads    int
	readErr  error
}

func (f *fakePodiumCache) Mirror(ctx context.Context, users []models.User) error {
	f.mirrored = append([]models.User(nil), users...)
	return nil
}

func (f *fakePodiumCache) TopThree(ctx context.Context) ([]models.User, error) {
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}

	n := 3
	if len(f.mirrored) < n {
		n = len(f.mirrored)
	}

	return append([]models.User(nil), f.mirrored[:n]...), nil
}

// failingHistoryRepo simulates a history store outage.
type failingHistoryRepo struct{}

func (f *failingHistoryRepo) Append(ctx context.Context, entry *models.PointHistory) error {
	return errors.New("history store is down")
}

func (f *failingHistoryRepo) ListRecent(ctx context.Context, limit int64) ([]models.PointHistoryWithUser, error) {
	return nil, errors.New("history store is down")
}
