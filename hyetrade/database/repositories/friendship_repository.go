package repositories

import (
	"context"
	"time"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/database/models"
	"github.com/uptrace/bun"
)

type FriendshipRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	AreFriends(ctx context.Context, userAID, userBID string) (bool, error)
	GetFriendIDs(ctx context.Context, userID string) ([]string, error)
}

type friendshipRepository struct {
	*BaseRepository
	db bun.IDB
}

func NewFriendshipRepository(db bun.IDB) FriendshipRepository {
	return &friendshipRepository{BaseRepository: NewBaseRepository(db), db: db}
}

func (r *friendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	if friendship.CreatedAt.IsZero() {
		friendship.CreatedAt = time.Now()
		friendship.UpdatedAt = friendship.CreatedAt
	}
	_, err := r.db.NewInsert().Model(friendship).Exec(ctx)
	return r.HandleError("create", "friendship", err)
}

// AreFriends reports whether the unordered pair has an accepted friendship.
func (r *friendshipRepository) AreFriends(ctx context.Context, userAID, userBID string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.Friendship)(nil)).
		Where("((user_a_id = ? AND user_b_id = ?) OR (user_a_id = ? AND user_b_id = ?))",
			userAID, userBID, userBID, userAID).
		Where("status = ?", models.FriendshipAccepted).
		Exists(ctx)

	if err != nil {
		return false, r.HandleError("are_friends", "friendship", err)
	}
	return exists, nil
}

func (r *friendshipRepository) GetFriendIDs(ctx context.Context, userID string) ([]string, error) {
	var friendships []*models.Friendship
	err := r.db.NewSelect().
		Model(&friendships).
		Where("(user_a_id = ? OR user_b_id = ?) AND status = ?", userID, userID, models.FriendshipAccepted).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_friend_ids", "friendship", err)
	}

	ids := make([]string, 0, len(friendships))
	for _, f := range friendships {
		if f.UserAID == userID {
			ids = append(ids, f.UserBID)
		} else {
			ids = append(ids, f.UserAID)
		}
	}
	return ids, nil
}
