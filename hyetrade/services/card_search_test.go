package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCardLister struct {
	cards []*models.Card
	err   error
	calls int
}

func (f *fakeCardLister) GetAvailableByOwnerID(_ context.Context, _ string) ([]*models.Card, error) {
	f.calls++
	return f.cards, f.err
}

func card(id int64, name string) *models.Card {
	return &models.Card{ID: id, Name: name, Status: models.CardStatusAvailable}
}

func TestSearchTradableCards_EmptyQueryReturnsAll(t *testing.T) {
	lister := &fakeCardLister{cards: []*models.Card{
		card(1, "dark_angel_wonyoung"),
		card(2, "halloween_karina"),
		card(3, "summer_yujin"),
	}}
	svc := NewCardSearchService(lister)

	results, err := svc.SearchTradableCards(context.Background(), "100", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, int64(1), results[0].ID)
}

func TestSearchTradableCards_FuzzyMatch(t *testing.T) {
	lister := &fakeCardLister{cards: []*models.Card{
		card(1, "dark_angel_wonyoung"),
		card(2, "halloween_karina"),
		card(3, "dark_moon_karina"),
	}}
	svc := NewCardSearchService(lister)

	results, err := svc.SearchTradableCards(context.Background(), "100", "karina", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, c := range results {
		assert.Contains(t, c.Name, "karina")
	}
}

func TestSearchTradableCards_NormalizesSeparators(t *testing.T) {
	lister := &fakeCardLister{cards: []*models.Card{
		card(1, "dark_angel_wonyoung"),
		card(2, "summer_yujin"),
	}}
	svc := NewCardSearchService(lister)

	// Hyphenated query matches the underscored stored name.
	results, err := svc.SearchTradableCards(context.Background(), "100", "dark-angel", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ID)
}

func TestSearchTradableCards_Limit(t *testing.T) {
	lister := &fakeCardLister{cards: []*models.Card{
		card(1, "a"), card(2, "b"), card(3, "c"), card(4, "d"),
	}}
	svc := NewCardSearchService(lister)

	results, err := svc.SearchTradableCards(context.Background(), "100", "", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchTradableCards_CachesPerOwnerAndQuery(t *testing.T) {
	lister := &fakeCardLister{cards: []*models.Card{card(1, "dark_angel_wonyoung")}}
	svc := NewCardSearchService(lister)

	_, err := svc.SearchTradableCards(context.Background(), "100", "wonyoung", 10)
	require.NoError(t, err)
	_, err = svc.SearchTradableCards(context.Background(), "100", "wonyoung", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls, "second identical search must hit the cache")

	// Different query key goes back to the repository. Case does not.
	_, err = svc.SearchTradableCards(context.Background(), "100", "WONYOUNG", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls)

	_, err = svc.SearchTradableCards(context.Background(), "100", "karina", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}

func TestSearchTradableCards_ExpiredCacheRefetches(t *testing.T) {
	lister := &fakeCardLister{cards: []*models.Card{card(1, "dark_angel_wonyoung")}}
	svc := NewCardSearchService(lister)
	svc.cacheExpiry = 0

	_, err := svc.SearchTradableCards(context.Background(), "100", "wonyoung", 10)
	require.NoError(t, err)
	_, err = svc.SearchTradableCards(context.Background(), "100", "wonyoung", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}

func TestSearchTradableCards_RepositoryError(t *testing.T) {
	repoErr := errors.New("connection refused")
	svc := NewCardSearchService(&fakeCardLister{err: repoErr})

	_, err := svc.SearchTradableCards(context.Background(), "100", "wonyoung", 10)
	assert.ErrorIs(t, err, repoErr)
}

func TestNormalizeCardName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dark_Angel_Wonyoung", "dark angel wonyoung"},
		{"dark-angel", "dark angel"},
		{"  Summer   Yujin  ", "summer yujin"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeCardName(tt.in))
	}
}
