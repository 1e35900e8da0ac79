package models

// DefaultAvatarURL is assigned to users created without an avatar.
const DefaultAvatarURL = "https://placehold.co/100x100.png"

// User is the canonical user record. Every field is populated once a user
// crosses the repository boundary; store-native ids are converted to their
// string form at that edge.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Points    int    `json:"points"`
	AvatarURL string `json:"avatarUrl"`
	Rank      int    `json:"rank"`
}
