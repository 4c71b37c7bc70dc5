package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/database/models"
	"github.com/uptrace/bun"
)

type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id int64) (*models.Card, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Card, error)
	GetByOwnerID(ctx context.Context, ownerID string) ([]*models.Card, error)
	GetAvailableByOwnerID(ctx context.Context, ownerID string) ([]*models.Card, error)
	Update(ctx context.Context, card *models.Card) error
}

type cardRepository struct {
	*BaseRepository
	db bun.IDB
}

func NewCardRepository(db bun.IDB) CardRepository {
	return &cardRepository{BaseRepository: NewBaseRepository(db), db: db}
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now()
		card.UpdatedAt = card.CreatedAt
	}
	if card.Status == "" {
		card.Status = models.CardStatusAvailable
	}
	_, err := r.db.NewInsert().Model(card).Exec(ctx)
	return r.HandleError("create", "card", err)
}

func (r *cardRepository) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	card := new(models.Card)
	err := r.db.NewSelect().
		Model(card).
		Where("c.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.HandleError("get_by_id", "card", err)
	}
	return card, nil
}

// GetByIDs returns the cards that resolve; missing IDs are absent from the
// result rather than an error.
func (r *cardRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Card, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Where("c.id IN (?)", bun.In(ids)).
		Order("id ASC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_by_ids", "card", err)
	}
	return cards, nil
}

func (r *cardRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]*models.Card, error) {
	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Where("owner_id = ?", ownerID).
		Order("level DESC", "name ASC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_by_owner", "card", err)
	}
	return cards, nil
}

func (r *cardRepository) GetAvailableByOwnerID(ctx context.Context, ownerID string) ([]*models.Card, error) {
	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Where("owner_id = ? AND status = ?", ownerID, models.CardStatusAvailable).
		Order("level DESC", "name ASC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_available_by_owner", "card", err)
	}
	return cards, nil
}

func (r *cardRepository) Update(ctx context.Context, card *models.Card) error {
	if card.UpdatedAt.IsZero() {
		card.UpdatedAt = time.Now()
	}
	_, err := r.db.NewUpdate().
		Model(card).
		WherePK().
		Exec(ctx)
	return r.HandleError("update", "card", err)
}
