package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TradeStatus string

const (
	TradeStatusDraft     TradeStatus = "draft"
	TradeStatusProposed  TradeStatus = "proposed"
	TradeStatusAccepted  TradeStatus = "accepted"
	TradeStatusCompleted TradeStatus = "completed"
	TradeStatusRejected  TradeStatus = "rejected"
	TradeStatusCanceled  TradeStatus = "canceled"
)

// tradeTransitions is the single source of truth for the trade state
// machine. Draft is reserved for multi-step proposal building; no use case
// creates one yet, but its transitions are kept so drafts can be rejected
// or canceled once that lands.
var tradeTransitions = map[TradeStatus][]TradeStatus{
	TradeStatusDraft:     {TradeStatusProposed, TradeStatusRejected, TradeStatusCanceled},
	TradeStatusProposed:  {TradeStatusAccepted, TradeStatusRejected, TradeStatusCanceled},
	TradeStatusAccepted:  {TradeStatusCompleted, TradeStatusCanceled},
	TradeStatusCompleted: {},
	TradeStatusRejected:  {},
	TradeStatusCanceled:  {},
}

func (s TradeStatus) IsValid() bool {
	_, ok := tradeTransitions[s]
	return ok
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s TradeStatus) IsTerminal() bool {
	targets, ok := tradeTransitions[s]
	return ok && len(targets) == 0
}

func (s TradeStatus) IsActive() bool {
	return s.IsValid() && !s.IsTerminal()
}

// CanTransitionTo reports whether the transition table allows moving from
// s to target. Terminal statuses allow nothing.
func (s TradeStatus) CanTransitionTo(target TradeStatus) bool {
	for _, t := range tradeTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// ActiveTradeStatuses returns the statuses that count toward the
// active-trades-per-pair ceiling.
func ActiveTradeStatuses() []TradeStatus {
	return []TradeStatus{TradeStatusDraft, TradeStatusProposed, TradeStatusAccepted}
}

type OwnerSide string

const (
	OwnerSideInitiator OwnerSide = "initiator"
	OwnerSideResponder OwnerSide = "responder"
)

func (s OwnerSide) IsValid() bool {
	return s == OwnerSideInitiator || s == OwnerSideResponder
}

type Trade struct {
	bun.BaseModel `bun:"table:trades,alias:t"`

	ID          int64       `bun:"id,pk,autoincrement"`
	TradeID     string      `bun:"trade_id,notnull,unique"`
	InitiatorID string      `bun:"initiator_id,notnull"`
	ResponderID string      `bun:"responder_id,notnull"`
	Status      TradeStatus `bun:"status,notnull"`

	AcceptedAt           *time.Time `bun:"accepted_at"`
	InitiatorConfirmedAt *time.Time `bun:"initiator_confirmed_at"`
	ResponderConfirmedAt *time.Time `bun:"responder_confirmed_at"`
	CompletedAt          *time.Time `bun:"completed_at"`
	CanceledAt           *time.Time `bun:"canceled_at"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	Items []*TradeItem `bun:"rel:has-many,join:id=trade_id"`
}

func (t *Trade) IsParticipant(userID string) bool {
	return userID == t.InitiatorID || userID == t.ResponderID
}

// SideOf returns which side of the trade the user is on. The second return
// is false for non-participants.
func (t *Trade) SideOf(userID string) (OwnerSide, bool) {
	switch userID {
	case t.InitiatorID:
		return OwnerSideInitiator, true
	case t.ResponderID:
		return OwnerSideResponder, true
	}
	return "", false
}

func (t *Trade) ConfirmedBy(side OwnerSide) bool {
	switch side {
	case OwnerSideInitiator:
		return t.InitiatorConfirmedAt != nil
	case OwnerSideResponder:
		return t.ResponderConfirmedAt != nil
	}
	return false
}

func (t *Trade) BothConfirmed() bool {
	return t.InitiatorConfirmedAt != nil && t.ResponderConfirmedAt != nil
}

type TradeItem struct {
	bun.BaseModel `bun:"table:trade_items,alias:ti"`

	ID        int64     `bun:"id,pk,autoincrement"`
	TradeID   int64     `bun:"trade_id,notnull"`
	CardID    int64     `bun:"card_id,notnull"`
	OwnerSide OwnerSide `bun:"owner_side,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
