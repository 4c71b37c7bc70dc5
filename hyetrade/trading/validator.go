package trading

import (
	"github.com/ellavondegurechaff/hyetrade/hyetrade/database/models"
)

// Validator holds the stateless rule checks that gate every trade
// transition. It performs no I/O; every method either returns nil or a
// wrapped Validation/Forbidden error.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateCardOwnership(cards []*models.Card, userID string, side models.OwnerSide) error {
	for _, card := range cards {
		if card.OwnerID != userID {
			return validationf("card %d is not owned by the %s", card.ID, side)
		}
	}
	return nil
}

func (v *Validator) ValidateCardAvailability(cards []*models.Card) error {
	for _, card := range cards {
		if card.Status != models.CardStatusAvailable {
			return validationf("card %d is not available (status: %s)", card.ID, card.Status)
		}
	}
	return nil
}

func (v *Validator) ValidateTradeItems(items []*models.TradeItem, initiatorID, responderID string) error {
	if len(items) == 0 {
		return validationf("trade has no items")
	}
	if initiatorID == responderID {
		return validationf("initiator and responder must be different users")
	}
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if seen[item.CardID] {
			return validationf("card %d appears more than once in the trade", item.CardID)
		}
		seen[item.CardID] = true
		if !item.OwnerSide.IsValid() {
			return validationf("invalid owner side %q", item.OwnerSide)
		}
	}
	return nil
}

func (v *Validator) ValidateStatusTransition(current, target models.TradeStatus) error {
	if !current.CanTransitionTo(target) {
		return validationf("trade cannot go from %s to %s", current, target)
	}
	return nil
}

func (v *Validator) ValidateUserCanAccept(trade *models.Trade, userID string) error {
	if err := v.ValidateStatusTransition(trade.Status, models.TradeStatusAccepted); err != nil {
		return err
	}
	if userID != trade.ResponderID {
		return forbiddenf("only the responder can accept trade %s", trade.TradeID)
	}
	return nil
}

func (v *Validator) ValidateUserCanReject(trade *models.Trade, userID string) error {
	if err := v.ValidateStatusTransition(trade.Status, models.TradeStatusRejected); err != nil {
		return err
	}
	if userID != trade.ResponderID {
		return forbiddenf("only the responder can reject trade %s", trade.TradeID)
	}
	return nil
}

func (v *Validator) ValidateUserCanCancel(trade *models.Trade, userID string) error {
	if err := v.ValidateStatusTransition(trade.Status, models.TradeStatusCanceled); err != nil {
		return err
	}
	if !trade.IsParticipant(userID) {
		return forbiddenf("user %s is not part of trade %s", userID, trade.TradeID)
	}
	return nil
}

func (v *Validator) ValidateUserCanConfirm(trade *models.Trade, userID string) error {
	if trade.Status != models.TradeStatusAccepted {
		return validationf("trade %s cannot be confirmed in status %s", trade.TradeID, trade.Status)
	}
	if !trade.IsParticipant(userID) {
		return forbiddenf("user %s is not part of trade %s", userID, trade.TradeID)
	}
	return nil
}
