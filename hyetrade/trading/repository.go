package trading

import (
	"context"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/database/models"
)

// TradeRepository is the persistence contract the trading core consumes.
// Lookups return (nil, nil) when the row does not exist.
type TradeRepository interface {
	Create(ctx context.Context, trade *models.Trade, items []*models.TradeItem) error
	GetByID(ctx context.Context, id int64) (*models.Trade, error)
	GetByTradeID(ctx context.Context, tradeID string) (*models.Trade, error)
	GetItemsByTradeID(ctx context.Context, tradeID int64) ([]*models.TradeItem, error)
	Update(ctx context.Context, trade *models.Trade) error
	CountActiveTradesBetweenUsers(ctx context.Context, userAID, userBID string) (int, error)
	TradeIDExists(ctx context.Context, tradeID string) (bool, error)
}

// CardRepository is the card status ledger. GetByIDs returns only the cards
// that resolve; missing IDs are simply absent from the result.
type CardRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Card, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Card, error)
	Update(ctx context.Context, card *models.Card) error
}

// FriendChecker is consumed only at proposal time.
type FriendChecker interface {
	AreFriends(ctx context.Context, userAID, userBID string) (bool, error)
}

// Store bundles the repositories visible inside one unit of work.
type Store interface {
	Trades() TradeRepository
	Cards() CardRepository
}

// UnitOfWork runs fn atomically: every trade and card mutation made through
// the store is committed together or not at all. Implementations must
// serialize concurrent units of work touching the same trade row.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
