package models

import (
	"time"

	"github.com/uptrace/bun"
)

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipBlocked  FriendshipStatus = "blocked"
)

// Friendship stores one row per user pair. user_a_id/user_b_id are an
// unordered pair; queries must match both orderings.
type Friendship struct {
	bun.BaseModel `bun:"table:friendships,alias:f"`

	ID        int64            `bun:"id,pk,autoincrement"`
	UserAID   string           `bun:"user_a_id,notnull"`
	UserBID   string           `bun:"user_b_id,notnull"`
	Status    FriendshipStatus `bun:"status,notnull"`
	CreatedAt time.Time        `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time        `bun:"updated_at,notnull,default:current_timestamp"`
}
