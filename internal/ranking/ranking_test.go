package ranking_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/rankrunner/rankrunner/internal/models"
	"github.com/rankrunner/rankrunner/internal/ranking"
)

func TestCompute(t *testing.T) {
	Convey("Given users with distinct point totals", t, func() {
		users := []models.User{
			{ID: "b", Points: 5},
			{ID: "a", Points: 10},
			{ID: "c", Points: 1},
		}

		Convey("When ranks are computed", func() {
			ranks := ranking.Compute(users)

			Convey("Then rank follows points descending", func() {
				So(ranks["a"], ShouldEqual, 1)
				So(ranks["b"], ShouldEqual, 2)
				So(ranks["c"], ShouldEqual, 3)
			})
		})
	})

	Convey("Given users with tied point totals", t, func() {
		users := []models.User{
			{ID: "first", Points: 7},
			{ID: "second", Points: 7},
			{ID: "third", Points: 7},
		}

		Convey("When ranks are computed", func() {
			ranks := ranking.Compute(users)

			Convey("Then ties keep input order and ranks stay dense", func() {
				So(ranks["first"], ShouldEqual, 1)
				So(ranks["second"], ShouldEqual, 2)
				So(ranks["third"], ShouldEqual, 3)
			})
		})
	})

	Convey("Given any mix of users", t, func() {
		users := []models.User{
			{ID: "u1", Points: 3},
			{ID: "u2", Points: 9},
			{ID: "u3", Points: 3},
			{ID: "u4", Points: 0},
			{ID: "u5", Points: 9},
		}

		Convey("When ranks are computed", func() {
			ranks := ranking.Compute(users)

			Convey("Then ranks form a dense 1..N sequence with no duplicates", func() {
				seen := make(map[int]bool)
				for _, r := range ranks {
					So(r, ShouldBeBetweenOrEqual, 1, len(users))
					So(seen[r], ShouldBeFalse)
					seen[r] = true
				}
				So(len(seen), ShouldEqual, len(users))
			})
		})
	})

	Convey("Given no users", t, func() {
		Convey("Then the result is empty", func() {
			So(ranking.Compute(nil), ShouldBeEmpty)
		})
	})
}

func TestOrder(t *testing.T) {
	Convey("Given an unsorted slice", t, func() {
		users := []models.User{
			{ID: "low", Points: 1},
			{ID: "high", Points: 8},
		}

		Convey("When ordered", func() {
			ordered := ranking.Order(users)

			Convey("Then the input slice is untouched", func() {
				So(users[0].ID, ShouldEqual, "low")
				So(ordered[0].ID, ShouldEqual, "high")
			})
		})
	})
}
