package models

import "time"

// PointHistory is one append-only claim record.
type PointHistory struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"userId"`
	PointsClaimed         int       `json:"pointsClaimed"`
	Timestamp             time.Time `json:"timestamp"`
	TotalPointsAfterClaim int       `json:"totalPointsAfterClaim"`
}

// PointHistoryWithUser is a history record joined with the claimer's current
// display data. The join is live on purpose: renames show the new name on
// old entries.
type PointHistoryWithUser struct {
	ID                    string    `json:"id"`
	UserName              string    `json:"userName"`
	UserAvatarURL         string    `json:"userAvatarUrl"`
	PointsClaimed         int       `json:"pointsClaimed"`
	Timestamp             time.Time `json:"timestamp"`
	TotalPointsAfterClaim int       `json:"totalPointsAfterClaim"`
}
