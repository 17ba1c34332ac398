package domain

import "time"

type ReactionType string

const (
	Like    ReactionType = "LIKE"
	Dislike ReactionType = "DISLIKE"
)

func (t ReactionType) Valid() bool {
	return t == Like || t == Dislike
}

// Reaction is the single mark a user holds on an event.
type Reaction struct {
	ID      int64
	EventID int64
	UserID  int64
	Type    ReactionType
	Created time.Time
}

// ReactionResult describes the slot after a toggle. Reaction is nil when the
// toggle removed the previous mark.
type ReactionResult struct {
	Reaction *Reaction
	Removed  bool
}

type Rating struct {
	Likes    int64
	Dislikes int64
	Total    int64
}
