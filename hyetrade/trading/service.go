package trading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/database/models"
)

const (
	DefaultMaxActiveTradesPerPair = 3
	DefaultConfirmTimeout         = 48 * time.Hour
)

// Config carries the tunables injected at construction time so tests can
// vary them per scenario.
type Config struct {
	MaxActiveTradesPerPair int
	ConfirmTimeout         time.Duration
}

// Service orchestrates the trade lifecycle: propose, accept, reject,
// cancel, confirm. Every use case runs as one unit of work so trade and
// card mutations commit together.
type Service struct {
	uow       UnitOfWork
	friends   FriendChecker
	validator *Validator
	idGen     *TradeIDGenerator
	cfg       Config
	now       func() time.Time
}

func NewService(uow UnitOfWork, friends FriendChecker, cfg Config) *Service {
	if uow == nil {
		panic("unit of work cannot be nil")
	}
	if friends == nil {
		panic("friend checker cannot be nil")
	}
	if cfg.MaxActiveTradesPerPair <= 0 {
		cfg.MaxActiveTradesPerPair = DefaultMaxActiveTradesPerPair
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}

	return &Service{
		uow:       uow,
		friends:   friends,
		validator: NewValidator(),
		idGen:     NewTradeIDGenerator(),
		cfg:       cfg,
		now:       time.Now,
	}
}

type ProposalRequest struct {
	InitiatorID      string
	ResponderID      string
	InitiatorCardIDs []int64
	ResponderCardIDs []int64
}

// CreateProposal opens a trade in proposed status and locks every offered
// card into trading. Both participants must be accepted friends and below
// the active-trades ceiling for the pair.
func (s *Service) CreateProposal(ctx context.Context, req ProposalRequest) (*models.Trade, error) {
	if req.InitiatorID == req.ResponderID {
		return nil, validationf("cannot open a trade with yourself")
	}
	if len(req.InitiatorCardIDs) == 0 || len(req.ResponderCardIDs) == 0 {
		return nil, validationf("both sides must offer at least one card")
	}

	areFriends, err := s.friends.AreFriends(ctx, req.InitiatorID, req.ResponderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if !areFriends {
		return nil, validationf("users %s and %s are not friends", req.InitiatorID, req.ResponderID)
	}

	var trade *models.Trade
	err = s.uow.Do(ctx, func(ctx context.Context, store Store) error {
		active, err := store.Trades().CountActiveTradesBetweenUsers(ctx, req.InitiatorID, req.ResponderID)
		if err != nil {
			return fmt.Errorf("failed to count active trades: %w", err)
		}
		if active >= s.cfg.MaxActiveTradesPerPair {
			return validationf("active trade limit of %d reached between %s and %s",
				s.cfg.MaxActiveTradesPerPair, req.InitiatorID, req.ResponderID)
		}

		initiatorCards, err := s.loadCards(ctx, store, req.InitiatorCardIDs)
		if err != nil {
			return err
		}
		responderCards, err := s.loadCards(ctx, store, req.ResponderCardIDs)
		if err != nil {
			return err
		}

		// Items are built from the requested IDs, not the loaded cards, so
		// duplicate submissions fail validation instead of being deduped.
		items := make([]*models.TradeItem, 0, len(req.InitiatorCardIDs)+len(req.ResponderCardIDs))
		for _, cardID := range req.InitiatorCardIDs {
			items = append(items, &models.TradeItem{CardID: cardID, OwnerSide: models.OwnerSideInitiator})
		}
		for _, cardID := range req.ResponderCardIDs {
			items = append(items, &models.TradeItem{CardID: cardID, OwnerSide: models.OwnerSideResponder})
		}
		if err := s.validator.ValidateTradeItems(items, req.InitiatorID, req.ResponderID); err != nil {
			return err
		}

		if err := s.validator.ValidateCardOwnership(initiatorCards, req.InitiatorID, models.OwnerSideInitiator); err != nil {
			return err
		}
		if err := s.validator.ValidateCardOwnership(responderCards, req.ResponderID, models.OwnerSideResponder); err != nil {
			return err
		}

		allCards := make([]*models.Card, 0, len(initiatorCards)+len(responderCards))
		allCards = append(allCards, initiatorCards...)
		allCards = append(allCards, responderCards...)
		if err := s.validator.ValidateCardAvailability(allCards); err != nil {
			return err
		}

		tradeID, err := s.idGen.Generate(ctx, store.Trades(), initiatorCards[0])
		if err != nil {
			return err
		}

		now := s.now()
		trade = &models.Trade{
			TradeID:     tradeID,
			InitiatorID: req.InitiatorID,
			ResponderID: req.ResponderID,
			Status:      models.TradeStatusProposed,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for _, item := range items {
			item.CreatedAt = now
		}

		for _, card := range allCards {
			card.Status = models.CardStatusTrading
			card.UpdatedAt = now
			if err := store.Cards().Update(ctx, card); err != nil {
				return fmt.Errorf("failed to mark card %d as trading: %w", card.ID, err)
			}
		}

		if err := store.Trades().Create(ctx, trade, items); err != nil {
			return fmt.Errorf("failed to create trade: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Trade proposal created",
		slog.String("trade_id", trade.TradeID),
		slog.String("initiator_id", trade.InitiatorID),
		slog.String("responder_id", trade.ResponderID),
		slog.Int("card_count", len(req.InitiatorCardIDs)+len(req.ResponderCardIDs)))

	return trade, nil
}

// Accept moves a proposed trade to accepted. Responder only.
func (s *Service) Accept(ctx context.Context, tradeID int64, userID string) (*models.Trade, error) {
	var trade *models.Trade
	err := s.uow.Do(ctx, func(ctx context.Context, store Store) error {
		t, err := s.loadTrade(ctx, store, tradeID)
		if err != nil {
			return err
		}
		if err := s.validator.ValidateUserCanAccept(t, userID); err != nil {
			return err
		}

		now := s.now()
		t.Status = models.TradeStatusAccepted
		t.AcceptedAt = &now
		t.UpdatedAt = now
		if err := store.Trades().Update(ctx, t); err != nil {
			return fmt.Errorf("failed to update trade: %w", err)
		}
		trade = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Trade accepted",
		slog.String("trade_id", trade.TradeID),
		slog.String("responder_id", trade.ResponderID))

	return trade, nil
}

// Reject declines a trade and releases every referenced card back to
// available. Responder only.
func (s *Service) Reject(ctx context.Context, tradeID int64, userID string) (*models.Trade, error) {
	var trade *models.Trade
	err := s.uow.Do(ctx, func(ctx context.Context, store Store) error {
		t, err := s.loadTrade(ctx, store, tradeID)
		if err != nil {
			return err
		}
		if err := s.validator.ValidateUserCanReject(t, userID); err != nil {
			return err
		}

		now := s.now()
		t.Status = models.TradeStatusRejected
		t.UpdatedAt = now
		if err := s.releaseCards(ctx, store, t.ID, now); err != nil {
			return err
		}
		if err := store.Trades().Update(ctx, t); err != nil {
			return fmt.Errorf("failed to update trade: %w", err)
		}
		trade = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Trade rejected",
		slog.String("trade_id", trade.TradeID),
		slog.String("responder_id", trade.ResponderID))

	return trade, nil
}

// Cancel withdraws a trade at any non-terminal point before completion and
// releases every referenced card. Either participant may call it.
func (s *Service) Cancel(ctx context.Context, tradeID int64, userID string) (*models.Trade, error) {
	var trade *models.Trade
	err := s.uow.Do(ctx, func(ctx context.Context, store Store) error {
		t, err := s.loadTrade(ctx, store, tradeID)
		if err != nil {
			return err
		}
		if err := s.validator.ValidateUserCanCancel(t, userID); err != nil {
			return err
		}

		now := s.now()
		t.Status = models.TradeStatusCanceled
		t.CanceledAt = &now
		t.UpdatedAt = now
		if err := s.releaseCards(ctx, store, t.ID, now); err != nil {
			return err
		}
		if err := store.Trades().Update(ctx, t); err != nil {
			return fmt.Errorf("failed to update trade: %w", err)
		}
		trade = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Trade canceled",
		slog.String("trade_id", trade.TradeID),
		slog.String("canceled_by", userID))

	return trade, nil
}

// Confirm records one party's confirmation of an accepted trade. The
// confirmation window is checked first: an expired trade is force-canceled
// (committed) and the call fails with ErrConfirmTimeout without applying
// the caller's confirmation. When the second confirmation lands the trade
// completes and every referenced card becomes traded.
func (s *Service) Confirm(ctx context.Context, tradeID int64, userID string) (*models.Trade, error) {
	var trade *models.Trade
	var timedOut bool
	err := s.uow.Do(ctx, func(ctx context.Context, store Store) error {
		t, err := s.loadTrade(ctx, store, tradeID)
		if err != nil {
			return err
		}
		trade = t

		now := s.now()
		if ConfirmWindowExpired(t, now, s.cfg.ConfirmTimeout) {
			// The force-cancel must commit even though the confirm call
			// fails, so it cannot be reported as an error from inside the
			// unit of work.
			t.Status = models.TradeStatusCanceled
			t.CanceledAt = &now
			t.UpdatedAt = now
			if err := s.releaseCards(ctx, store, t.ID, now); err != nil {
				return err
			}
			if err := store.Trades().Update(ctx, t); err != nil {
				return fmt.Errorf("failed to update trade: %w", err)
			}
			timedOut = true
			return nil
		}

		if err := s.validator.ValidateUserCanConfirm(t, userID); err != nil {
			return err
		}

		side, _ := t.SideOf(userID)
		if t.ConfirmedBy(side) {
			return fmt.Errorf("%w: user %s already confirmed trade %s", ErrAlreadyConfirmed, userID, t.TradeID)
		}

		switch side {
		case models.OwnerSideInitiator:
			t.InitiatorConfirmedAt = &now
		case models.OwnerSideResponder:
			t.ResponderConfirmedAt = &now
		}

		if t.BothConfirmed() {
			if err := s.validator.ValidateStatusTransition(t.Status, models.TradeStatusCompleted); err != nil {
				return err
			}
			t.Status = models.TradeStatusCompleted
			t.CompletedAt = &now
			if err := s.markCardsTraded(ctx, store, t.ID, now); err != nil {
				return err
			}
		}

		t.UpdatedAt = now
		if err := store.Trades().Update(ctx, t); err != nil {
			return fmt.Errorf("failed to update trade: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if timedOut {
		slog.Warn("Trade confirmation window expired",
			slog.String("trade_id", trade.TradeID),
			slog.String("confirmed_by", userID))
		return nil, fmt.Errorf("trade %s: %w", trade.TradeID, ErrConfirmTimeout)
	}

	slog.Info("Trade confirmation recorded",
		slog.String("trade_id", trade.TradeID),
		slog.String("confirmed_by", userID),
		slog.Bool("completed", trade.Status == models.TradeStatusCompleted))

	return trade, nil
}

func (s *Service) loadTrade(ctx context.Context, store Store, id int64) (*models.Trade, error) {
	trade, err := store.Trades().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", id, err)
	}
	if trade == nil {
		return nil, notFoundf("trade %d", id)
	}
	return trade, nil
}

func (s *Service) loadCards(ctx context.Context, store Store, ids []int64) ([]*models.Card, error) {
	cards, err := store.Cards().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}

	byID := make(map[int64]*models.Card, len(cards))
	for _, card := range cards {
		byID[card.ID] = card
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, notFoundf("card %d", id)
		}
	}
	return cards, nil
}

func (s *Service) tradeCards(ctx context.Context, store Store, tradeID int64) ([]*models.Card, error) {
	items, err := store.Trades().GetItemsByTradeID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade items: %w", err)
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.CardID)
	}
	cards, err := store.Cards().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	return cards, nil
}

// releaseCards returns every card still locked by the trade to available.
func (s *Service) releaseCards(ctx context.Context, store Store, tradeID int64, now time.Time) error {
	cards, err := s.tradeCards(ctx, store, tradeID)
	if err != nil {
		return err
	}
	for _, card := range cards {
		if card.Status != models.CardStatusTrading {
			continue
		}
		card.Status = models.CardStatusAvailable
		card.UpdatedAt = now
		if err := store.Cards().Update(ctx, card); err != nil {
			return fmt.Errorf("failed to release card %d: %w", card.ID, err)
		}
	}
	return nil
}

func (s *Service) markCardsTraded(ctx context.Context, store Store, tradeID int64, now time.Time) error {
	cards, err := s.tradeCards(ctx, store, tradeID)
	if err != nil {
		return err
	}
	for _, card := range cards {
		card.Status = models.CardStatusTraded
		card.UpdatedAt = now
		if err := store.Cards().Update(ctx, card); err != nil {
			return fmt.Errorf("failed to mark card %d as traded: %w", card.ID, err)
		}
	}
	return nil
}
