package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/database/models"
	"github.com/uptrace/bun"
)

type TradeRepository interface {
	Create(ctx context.Context, trade *models.Trade, items []*models.TradeItem) error
	GetByID(ctx context.Context, id int64) (*models.Trade, error)
	GetByTradeID(ctx context.Context, tradeID string) (*models.Trade, error)
	GetItemsByTradeID(ctx context.Context, tradeID int64) ([]*models.TradeItem, error)
	Update(ctx context.Context, trade *models.Trade) error
	CountActiveTradesBetweenUsers(ctx context.Context, userAID, userBID string) (int, error)
	TradeIDExists(ctx context.Context, tradeID string) (bool, error)
	GetUserTrades(ctx context.Context, userID string, status models.TradeStatus) ([]*models.Trade, error)
	GetAllUserTrades(ctx context.Context, userID string) ([]*models.Trade, error)
}

type tradeRepository struct {
	*BaseRepository
	db bun.IDB

	// forUpdate makes GetByID take a row lock, serializing concurrent
	// units of work on the same trade. Only set on tx-scoped repos.
	forUpdate bool
}

func NewTradeRepository(db bun.IDB) TradeRepository {
	return &tradeRepository{BaseRepository: NewBaseRepository(db), db: db}
}

func newLockingTradeRepository(db bun.IDB) TradeRepository {
	return &tradeRepository{BaseRepository: NewBaseRepository(db), db: db, forUpdate: true}
}

// Create persists the trade and all its items as one unit.
func (r *tradeRepository) Create(ctx context.Context, trade *models.Trade, items []*models.TradeItem) error {
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now()
		trade.UpdatedAt = trade.CreatedAt
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(trade).Exec(ctx); err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for _, item := range items {
			item.TradeID = trade.ID
			if item.CreatedAt.IsZero() {
				item.CreatedAt = trade.CreatedAt
			}
		}
		_, err := tx.NewInsert().Model(&items).Exec(ctx)
		return err
	})
	return r.HandleError("create", "trade", err)
}

func (r *tradeRepository) GetByID(ctx context.Context, id int64) (*models.Trade, error) {
	trade := new(models.Trade)
	q := r.db.NewSelect().
		Model(trade).
		Where("t.id = ?", id)
	if r.forUpdate {
		q = q.For("UPDATE")
	}

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.HandleError("get_by_id", "trade", err)
	}
	return trade, nil
}

func (r *tradeRepository) GetByTradeID(ctx context.Context, tradeID string) (*models.Trade, error) {
	trade := new(models.Trade)
	err := r.db.NewSelect().
		Model(trade).
		Where("trade_id = ?", tradeID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.HandleError("get_by_trade_id", "trade", err)
	}
	return trade, nil
}

func (r *tradeRepository) GetItemsByTradeID(ctx context.Context, tradeID int64) ([]*models.TradeItem, error) {
	var items []*models.TradeItem
	err := r.db.NewSelect().
		Model(&items).
		Where("trade_id = ?", tradeID).
		Order("id ASC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_items", "trade_item", err)
	}
	return items, nil
}

// Update persists the full mutable field set of the trade.
func (r *tradeRepository) Update(ctx context.Context, trade *models.Trade) error {
	if trade.UpdatedAt.IsZero() {
		trade.UpdatedAt = time.Now()
	}
	_, err := r.db.NewUpdate().
		Model(trade).
		WherePK().
		Exec(ctx)
	return r.HandleError("update", "trade", err)
}

// CountActiveTradesBetweenUsers counts draft/proposed/accepted trades for
// the unordered user pair.
func (r *tradeRepository) CountActiveTradesBetweenUsers(ctx context.Context, userAID, userBID string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.Trade)(nil)).
		Where("((initiator_id = ? AND responder_id = ?) OR (initiator_id = ? AND responder_id = ?))",
			userAID, userBID, userBID, userAID).
		Where("status IN (?)", bun.In(models.ActiveTradeStatuses())).
		Count(ctx)

	if err != nil {
		return 0, r.HandleError("count_active", "trade", err)
	}
	return count, nil
}

func (r *tradeRepository) TradeIDExists(ctx context.Context, tradeID string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.Trade)(nil)).
		Where("trade_id = ?", tradeID).
		Exists(ctx)

	if err != nil {
		return false, r.HandleError("exists", "trade", err)
	}
	return exists, nil
}

func (r *tradeRepository) GetUserTrades(ctx context.Context, userID string, status models.TradeStatus) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := r.db.NewSelect().
		Model(&trades).
		Where("(initiator_id = ? OR responder_id = ?) AND status = ?", userID, userID, status).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_user_trades", "trade", err)
	}
	return trades, nil
}

func (r *tradeRepository) GetAllUserTrades(ctx context.Context, userID string) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := r.db.NewSelect().
		Model(&trades).
		Where("initiator_id = ? OR responder_id = ?", userID, userID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_all_user_trades", "trade", err)
	}
	return trades, nil
}
