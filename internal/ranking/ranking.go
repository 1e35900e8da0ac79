// Package ranking computes dense 1-based ranks over point totals.
package ranking

import (
	"sort"

	"github.com/rankrunner/rankrunner/internal/models"
)

// Compute returns a rank per user id: points descending, rank = 1-based
// position, every rank 1..N assigned exactly once. The sort is stable, so
// users with equal points keep the relative order of the input slice; repos
// list users in creation order within a point total, which makes the
// tie-break deterministic.
func Compute(users []models.User) map[string]int {
	ordered := Order(users)

	ranks := make(map[string]int, len(ordered))
	for i, u := range ordered {
		ranks[u.ID] = i + 1
	}

	return ranks
}

// Order returns a copy of users sorted into rank order without mutating the
// input.
func Order(users []models.User) []models.User {
	ordered := make([]models.User, len(users))
	copy(ordered, users)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Points > ordered[j].Points
	})

	return ordered
}
