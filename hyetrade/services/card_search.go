package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/config"
	"github.com/ellavondegurechaff/hyetrade/hyetrade/database/models"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"
)

// CardSearchItems implements fuzzy.Source for card searching
type CardSearchItems []CardSearchItem

// CardSearchItem represents a single searchable card
type CardSearchItem struct {
	Card *models.Card
	Name string
}

func (items CardSearchItems) Len() int {
	return len(items)
}

func (items CardSearchItems) String(i int) string {
	return items[i].Name
}

// CardLister is the slice of the card repository the search service needs.
type CardLister interface {
	GetAvailableByOwnerID(ctx context.Context, ownerID string) ([]*models.Card, error)
}

type cachedResult struct {
	cards     []*models.Card
	timestamp time.Time
}

// CardSearchService finds a user's available cards by fuzzy name match,
// for composing trade proposals. Results are cached briefly per
// (owner, query) pair.
type CardSearchService struct {
	cards       CardLister
	cache       *lru.Cache
	cacheExpiry time.Duration
}

func NewCardSearchService(cards CardLister) *CardSearchService {
	cache, _ := lru.New(config.CacheSize)
	return &CardSearchService{
		cards:       cards,
		cache:       cache,
		cacheExpiry: config.CacheExpiration,
	}
}

// SearchTradableCards returns the owner's available cards matching the
// query, ordered by fuzzy relevance. An empty query returns all available
// cards in repository order.
func (s *CardSearchService) SearchTradableCards(ctx context.Context, ownerID, query string, limit int) ([]*models.Card, error) {
	if limit <= 0 || limit > config.MaxSearchResults {
		limit = config.MaxSearchResults
	}

	cacheKey := fmt.Sprintf("%s:%s", ownerID, strings.ToLower(query))
	if entry, ok := s.cache.Get(cacheKey); ok {
		cached := entry.(cachedResult)
		if time.Since(cached.timestamp) < s.cacheExpiry {
			return trimResults(cached.cards, limit), nil
		}
		s.cache.Remove(cacheKey)
	}

	searchCtx, cancel := context.WithTimeout(ctx, config.SearchTimeout)
	defer cancel()

	cards, err := s.cards.GetAvailableByOwnerID(searchCtx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards for %s: %w", ownerID, err)
	}

	results := cards
	if query != "" {
		searchItems := make(CardSearchItems, len(cards))
		for i, card := range cards {
			searchItems[i] = CardSearchItem{
				Card: card,
				Name: normalizeCardName(card.Name),
			}
		}

		matches := fuzzy.FindFrom(normalizeCardName(query), searchItems)
		results = make([]*models.Card, len(matches))
		for i, match := range matches {
			results[i] = searchItems[match.Index].Card
		}
	}

	s.cache.Add(cacheKey, cachedResult{cards: results, timestamp: time.Now()})

	return trimResults(results, limit), nil
}

func trimResults(cards []*models.Card, limit int) []*models.Card {
	if len(cards) > limit {
		return cards[:limit]
	}
	return cards
}

// normalizeCardName lowercases and collapses separators so queries like
// "dark-angel wonyoung" match "Dark Angel Wonyoung".
func normalizeCardName(name string) string {
	normalized := strings.ToLower(name)
	normalized = strings.ReplaceAll(normalized, "_", " ")
	normalized = strings.ReplaceAll(normalized, "-", " ")
	return strings.Join(strings.Fields(normalized), " ")
}
