package models

import (
	"time"

	"github.com/uptrace/bun"
)

type CardStatus string

const (
	CardStatusAvailable CardStatus = "available"
	CardStatusTrading   CardStatus = "trading"
	CardStatusTraded    CardStatus = "traded"
)

func (s CardStatus) IsValid() bool {
	switch s {
	case CardStatusAvailable, CardStatusTrading, CardStatusTraded:
		return true
	}
	return false
}

type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c"`

	ID        int64      `bun:"id,pk,autoincrement"`
	Name      string     `bun:"name,notnull"`
	Level     int        `bun:"level,notnull"`
	ColID     string     `bun:"col_id,notnull"`
	OwnerID   string     `bun:"owner_id,notnull"`
	Status    CardStatus `bun:"status,notnull"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}
