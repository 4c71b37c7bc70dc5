package trading

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory test doubles. The fake unit of work runs the callback against
// shared maps; the service only mutates state after validation passes, so
// the missing rollback does not change observable outcomes.

type stubFriends struct {
	friends bool
	err     error
}

func (s stubFriends) AreFriends(context.Context, string, string) (bool, error) {
	return s.friends, s.err
}

type memTradeRepo struct {
	seq    int64
	trades map[int64]*models.Trade
	items  map[int64][]*models.TradeItem
}

func newMemTradeRepo() *memTradeRepo {
	return &memTradeRepo{
		trades: make(map[int64]*models.Trade),
		items:  make(map[int64][]*models.TradeItem),
	}
}

func (r *memTradeRepo) Create(_ context.Context, trade *models.Trade, items []*models.TradeItem) error {
	r.seq++
	trade.ID = r.seq
	for _, item := range items {
		item.TradeID = trade.ID
	}
	r.trades[trade.ID] = trade
	r.items[trade.ID] = items
	return nil
}

func (r *memTradeRepo) GetByID(_ context.Context, id int64) (*models.Trade, error) {
	return r.trades[id], nil
}

func (r *memTradeRepo) GetByTradeID(_ context.Context, tradeID string) (*models.Trade, error) {
	for _, trade := range r.trades {
		if trade.TradeID == tradeID {
			return trade, nil
		}
	}
	return nil, nil
}

func (r *memTradeRepo) GetItemsByTradeID(_ context.Context, tradeID int64) ([]*models.TradeItem, error) {
	return r.items[tradeID], nil
}

func (r *memTradeRepo) Update(_ context.Context, trade *models.Trade) error {
	r.trades[trade.ID] = trade
	return nil
}

func (r *memTradeRepo) CountActiveTradesBetweenUsers(_ context.Context, userAID, userBID string) (int, error) {
	count := 0
	for _, trade := range r.trades {
		samePair := (trade.InitiatorID == userAID && trade.ResponderID == userBID) ||
			(trade.InitiatorID == userBID && trade.ResponderID == userAID)
		if samePair && trade.Status.IsActive() {
			count++
		}
	}
	return count, nil
}

func (r *memTradeRepo) TradeIDExists(_ context.Context, tradeID string) (bool, error) {
	trade, _ := r.GetByTradeID(context.Background(), tradeID)
	return trade != nil, nil
}

type memCardRepo struct {
	cards map[int64]*models.Card
}

func newMemCardRepo() *memCardRepo {
	return &memCardRepo{cards: make(map[int64]*models.Card)}
}

func (r *memCardRepo) GetByID(_ context.Context, id int64) (*models.Card, error) {
	return r.cards[id], nil
}

func (r *memCardRepo) GetByIDs(_ context.Context, ids []int64) ([]*models.Card, error) {
	var cards []*models.Card
	seen := make(map[int64]bool)
	for _, id := range ids {
		if card, ok := r.cards[id]; ok && !seen[id] {
			cards = append(cards, card)
			seen[id] = true
		}
	}
	return cards, nil
}

func (r *memCardRepo) Update(_ context.Context, card *models.Card) error {
	r.cards[card.ID] = card
	return nil
}

type memStore struct {
	trades *memTradeRepo
	cards  *memCardRepo
}

func (s *memStore) Trades() TradeRepository { return s.trades }
func (s *memStore) Cards() CardRepository   { return s.cards }

type memUOW struct {
	store *memStore
}

func (u *memUOW) Do(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	return fn(ctx, u.store)
}

type testEnv struct {
	svc    *Service
	trades *memTradeRepo
	cards  *memCardRepo
	clock  time.Time
}

func newTestEnv(cfg Config, friends FriendChecker) *testEnv {
	if friends == nil {
		friends = stubFriends{friends: true}
	}
	trades := newMemTradeRepo()
	cards := newMemCardRepo()
	svc := NewService(&memUOW{store: &memStore{trades: trades, cards: cards}}, friends, cfg)

	env := &testEnv{
		svc:    svc,
		trades: trades,
		cards:  cards,
		clock:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	svc.now = func() time.Time { return env.clock }
	return env
}

func (e *testEnv) addCard(id int64, ownerID string) *models.Card {
	card := &models.Card{
		ID:      id,
		Name:    fmt.Sprintf("Card %d", id),
		ColID:   "base",
		Level:   int(id%5) + 1,
		OwnerID: ownerID,
		Status:  models.CardStatusAvailable,
	}
	e.cards.cards[id] = card
	return card
}

// propose seeds card 1 for user 100 and cards 2, 3 for user 200, then
// opens the standard one-against-two proposal.
func (e *testEnv) propose(t *testing.T) *models.Trade {
	t.Helper()
	e.addCard(1, "100")
	e.addCard(2, "200")
	e.addCard(3, "200")

	trade, err := e.svc.CreateProposal(context.Background(), ProposalRequest{
		InitiatorID:      "100",
		ResponderID:      "200",
		InitiatorCardIDs: []int64{1},
		ResponderCardIDs: []int64{2, 3},
	})
	require.NoError(t, err)
	return trade
}

func (e *testEnv) cardStatus(id int64) models.CardStatus {
	return e.cards.cards[id].Status
}

func TestService_CreateProposal(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	assert.Equal(t, models.TradeStatusProposed, trade.Status)
	assert.Equal(t, "100", trade.InitiatorID)
	assert.Equal(t, "200", trade.ResponderID)
	assert.NotEmpty(t, trade.TradeID)
	assert.Nil(t, trade.AcceptedAt)
	assert.Nil(t, trade.CompletedAt)

	items, err := env.trades.GetItemsByTradeID(context.Background(), trade.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	sides := map[models.OwnerSide]int{}
	for _, item := range items {
		sides[item.OwnerSide]++
	}
	assert.Equal(t, 1, sides[models.OwnerSideInitiator])
	assert.Equal(t, 2, sides[models.OwnerSideResponder])

	for _, id := range []int64{1, 2, 3} {
		assert.Equal(t, models.CardStatusTrading, env.cardStatus(id), "card %d", id)
	}
}

func TestService_CreateProposal_NotFriends(t *testing.T) {
	env := newTestEnv(Config{}, stubFriends{friends: false})
	env.addCard(1, "100")
	env.addCard(2, "200")

	_, err := env.svc.CreateProposal(context.Background(), ProposalRequest{
		InitiatorID:      "100",
		ResponderID:      "200",
		InitiatorCardIDs: []int64{1},
		ResponderCardIDs: []int64{2},
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, env.trades.trades)
	assert.Equal(t, models.CardStatusAvailable, env.cardStatus(1))
	assert.Equal(t, models.CardStatusAvailable, env.cardStatus(2))
}

func TestService_CreateProposal_CardAlreadyTrading(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	env.propose(t)
	env.addCard(4, "100")

	// Card 2 is locked by the first proposal.
	_, err := env.svc.CreateProposal(context.Background(), ProposalRequest{
		InitiatorID:      "100",
		ResponderID:      "200",
		InitiatorCardIDs: []int64{4},
		ResponderCardIDs: []int64{2},
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "not available")
	assert.Len(t, env.trades.trades, 1)
	assert.Equal(t, models.CardStatusAvailable, env.cardStatus(4))
}

func TestService_CreateProposal_CardNotFound(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	env.addCard(1, "100")

	_, err := env.svc.CreateProposal(context.Background(), ProposalRequest{
		InitiatorID:      "100",
		ResponderID:      "200",
		InitiatorCardIDs: []int64{1},
		ResponderCardIDs: []int64{99},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, env.trades.trades)
}

func TestService_CreateProposal_Guards(t *testing.T) {
	tests := []struct {
		name string
		req  ProposalRequest
	}{
		{
			name: "self trade",
			req: ProposalRequest{
				InitiatorID: "100", ResponderID: "100",
				InitiatorCardIDs: []int64{1}, ResponderCardIDs: []int64{2},
			},
		},
		{
			name: "empty responder side",
			req: ProposalRequest{
				InitiatorID: "100", ResponderID: "200",
				InitiatorCardIDs: []int64{1},
			},
		},
		{
			name: "empty initiator side",
			req: ProposalRequest{
				InitiatorID: "100", ResponderID: "200",
				ResponderCardIDs: []int64{2},
			},
		},
		{
			name: "duplicate card on one side",
			req: ProposalRequest{
				InitiatorID: "100", ResponderID: "200",
				InitiatorCardIDs: []int64{1, 1}, ResponderCardIDs: []int64{2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(Config{}, nil)
			env.addCard(1, "100")
			env.addCard(2, "200")

			_, err := env.svc.CreateProposal(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, env.trades.trades)
		})
	}
}

func TestService_CreateProposal_PairLimit(t *testing.T) {
	env := newTestEnv(Config{MaxActiveTradesPerPair: 1}, nil)
	env.propose(t)
	env.addCard(4, "100")
	env.addCard(5, "200")

	_, err := env.svc.CreateProposal(context.Background(), ProposalRequest{
		InitiatorID:      "100",
		ResponderID:      "200",
		InitiatorCardIDs: []int64{4},
		ResponderCardIDs: []int64{5},
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "limit")
	assert.Len(t, env.trades.trades, 1)
}

func TestService_Accept(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	accepted, err := env.svc.Accept(context.Background(), trade.ID, "200")
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)
	assert.True(t, accepted.AcceptedAt.Equal(env.clock))

	// Cards stay locked until the trade resolves.
	for _, id := range []int64{1, 2, 3} {
		assert.Equal(t, models.CardStatusTrading, env.cardStatus(id))
	}
}

func TestService_Accept_ByInitiator(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	_, err := env.svc.Accept(context.Background(), trade.ID, "100")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestService_Accept_Twice(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	_, err := env.svc.Accept(context.Background(), trade.ID, "200")
	require.NoError(t, err)

	_, err = env.svc.Accept(context.Background(), trade.ID, "200")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_Reject(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	rejected, err := env.svc.Reject(context.Background(), trade.ID, "200")
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusRejected, rejected.Status)
	assert.Nil(t, rejected.CompletedAt)

	for _, id := range []int64{1, 2, 3} {
		assert.Equal(t, models.CardStatusAvailable, env.cardStatus(id))
	}
}

func TestService_Reject_ByInitiator(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	_, err := env.svc.Reject(context.Background(), trade.ID, "100")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, models.TradeStatusProposed, env.trades.trades[trade.ID].Status)
}

func TestService_Cancel_RestoresCards(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	canceled, err := env.svc.Cancel(context.Background(), trade.ID, "100")
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CanceledAt)

	// Round trip: every card is back to its pre-proposal status.
	for _, id := range []int64{1, 2, 3} {
		assert.Equal(t, models.CardStatusAvailable, env.cardStatus(id))
	}
}

func TestService_Cancel_ByResponderAfterAccept(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	_, err := env.svc.Accept(context.Background(), trade.ID, "200")
	require.NoError(t, err)

	canceled, err := env.svc.Cancel(context.Background(), trade.ID, "200")
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusCanceled, canceled.Status)
}

func TestService_Cancel_CompletedTrade(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.completeTrade(t)

	_, err := env.svc.Cancel(context.Background(), trade.ID, "100")
	assert.ErrorIs(t, err, ErrValidation)
}

// completeTrade walks the full happy path: propose, accept, both confirm.
func (e *testEnv) completeTrade(t *testing.T) *models.Trade {
	t.Helper()
	trade := e.propose(t)

	_, err := e.svc.Accept(context.Background(), trade.ID, "200")
	require.NoError(t, err)
	_, err = e.svc.Confirm(context.Background(), trade.ID, "100")
	require.NoError(t, err)
	completed, err := e.svc.Confirm(context.Background(), trade.ID, "200")
	require.NoError(t, err)
	return completed
}

func TestService_Confirm_FullFlow(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	_, err := env.svc.Accept(context.Background(), trade.ID, "200")
	require.NoError(t, err)

	first, err := env.svc.Confirm(context.Background(), trade.ID, "100")
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusAccepted, first.Status)
	require.NotNil(t, first.InitiatorConfirmedAt)
	assert.Nil(t, first.ResponderConfirmedAt)
	assert.Nil(t, first.CompletedAt)
	for _, id := range []int64{1, 2, 3} {
		assert.Equal(t, models.CardStatusTrading, env.cardStatus(id))
	}

	second, err := env.svc.Confirm(context.Background(), trade.ID, "200")
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusCompleted, second.Status)
	require.NotNil(t, second.InitiatorConfirmedAt)
	require.NotNil(t, second.ResponderConfirmedAt)
	require.NotNil(t, second.CompletedAt)
	for _, id := range []int64{1, 2, 3} {
		assert.Equal(t, models.CardStatusTraded, env.cardStatus(id))
	}
}

func TestService_Confirm_TwiceBySameParty(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	_, err := env.svc.Accept(context.Background(), trade.ID, "200")
	require.NoError(t, err)
	_, err = env.svc.Confirm(context.Background(), trade.ID, "100")
	require.NoError(t, err)

	_, err = env.svc.Confirm(context.Background(), trade.ID, "100")
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)

	// The stored trade is untouched by the failed call.
	stored := env.trades.trades[trade.ID]
	assert.Equal(t, models.TradeStatusAccepted, stored.Status)
	assert.Nil(t, stored.ResponderConfirmedAt)
}

func TestService_Confirm_NonParticipant(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	_, err := env.svc.Accept(context.Background(), trade.ID, "200")
	require.NoError(t, err)

	_, err = env.svc.Confirm(context.Background(), trade.ID, "300")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestService_Confirm_BeforeAccept(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	_, err := env.svc.Confirm(context.Background(), trade.ID, "100")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_Confirm_NotFound(t *testing.T) {
	env := newTestEnv(Config{}, nil)

	_, err := env.svc.Confirm(context.Background(), 42, "100")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Confirm_TimeoutAutoCancels(t *testing.T) {
	env := newTestEnv(Config{ConfirmTimeout: 48 * time.Hour}, nil)
	trade := env.propose(t)

	_, err := env.svc.Accept(context.Background(), trade.ID, "200")
	require.NoError(t, err)

	env.clock = env.clock.Add(48*time.Hour + time.Second)

	_, err = env.svc.Confirm(context.Background(), trade.ID, "100")
	assert.ErrorIs(t, err, ErrConfirmTimeout)

	stored := env.trades.trades[trade.ID]
	assert.Equal(t, models.TradeStatusCanceled, stored.Status)
	require.NotNil(t, stored.CanceledAt)
	assert.Nil(t, stored.InitiatorConfirmedAt, "the caller's confirmation must not be applied")
	for _, id := range []int64{1, 2, 3} {
		assert.Equal(t, models.CardStatusAvailable, env.cardStatus(id))
	}

	// The trade is terminal now; a later confirm fails on status.
	_, err = env.svc.Confirm(context.Background(), trade.ID, "200")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_Confirm_JustInsideWindow(t *testing.T) {
	env := newTestEnv(Config{ConfirmTimeout: 48 * time.Hour}, nil)
	trade := env.propose(t)

	_, err := env.svc.Accept(context.Background(), trade.ID, "200")
	require.NoError(t, err)

	env.clock = env.clock.Add(47*time.Hour + 59*time.Minute)

	confirmed, err := env.svc.Confirm(context.Background(), trade.ID, "100")
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusAccepted, confirmed.Status)
	require.NotNil(t, confirmed.InitiatorConfirmedAt)
}

func TestService_TradeIDHasCardPrefix(t *testing.T) {
	env := newTestEnv(Config{}, nil)
	trade := env.propose(t)

	// Card 1 is "Card 1", level 2, collection "base".
	assert.True(t, strings.HasPrefix(trade.TradeID, "C1B2"), "trade ID %q", trade.TradeID)
}
