package repositories

import (
	"context"
	"database/sql"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/trading"
	"github.com/uptrace/bun"
)

// UnitOfWork runs trading use cases inside one serializable transaction.
// The tx-scoped trade repository locks the trade row on load, so the whole
// read-validate-mutate-write sequence is atomic with respect to other
// operations on the same trade. Operations on different trades only share
// the isolation level, not locks.
type UnitOfWork struct {
	db *bun.DB
}

func NewUnitOfWork(db *bun.DB) *UnitOfWork {
	if db == nil {
		panic("bun DB cannot be nil")
	}
	return &UnitOfWork{db: db}
}

type txStore struct {
	trades TradeRepository
	cards  CardRepository
}

func (s txStore) Trades() trading.TradeRepository {
	return s.trades
}

func (s txStore) Cards() trading.CardRepository {
	return s.cards
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s trading.Store) error) error {
	return u.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, txStore{
			trades: newLockingTradeRepository(tx),
			cards:  NewCardRepository(tx),
		})
	})
}
