package trading

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/database/models"
)

const (
	idGenMaxRetries = 5
	idGenTimeout    = 5 * time.Second
)

// TradeIDGenerator produces the short human-readable trade IDs shown to
// users, derived from the first offered card plus a random suffix.
// Uniqueness is settled against the database with retry, not pre-reserved.
type TradeIDGenerator struct {
	mu sync.Mutex
}

func NewTradeIDGenerator() *TradeIDGenerator {
	return &TradeIDGenerator{}
}

// Generate returns a trade ID that did not exist in the repository at the
// time of checking. The unique constraint on trades.trade_id is the final
// arbiter; a losing race surfaces as an insert error.
func (g *TradeIDGenerator) Generate(ctx context.Context, trades TradeRepository, card *models.Card) (string, error) {
	prefix := buildTradePrefix(card)

	genCtx, cancel := context.WithTimeout(ctx, idGenTimeout)
	defer cancel()

	g.mu.Lock()
	defer g.mu.Unlock()

	for attempt := 0; attempt < idGenMaxRetries; attempt++ {
		id, err := candidateID(prefix)
		if err != nil {
			return "", fmt.Errorf("failed to generate candidate ID: %w", err)
		}

		exists, err := trades.TradeIDExists(genCtx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check trade ID uniqueness: %w", err)
		}
		if !exists {
			return id, nil
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Millisecond
		select {
		case <-genCtx.Done():
			return "", fmt.Errorf("timeout during trade ID generation: %w", genCtx.Err())
		case <-time.After(backoff):
		}
	}

	return "", fmt.Errorf("failed to generate unique trade ID after %d attempts", idGenMaxRetries)
}

// buildTradePrefix derives the base prefix from card information.
func buildTradePrefix(card *models.Card) string {
	words := strings.Fields(card.Name)
	var prefix string
	switch {
	case len(words) >= 2:
		prefix = strings.ToUpper(string(words[0][0]) + string(words[1][0]))
	case len(words) == 1 && len(words[0]) >= 2:
		prefix = strings.ToUpper(words[0][:2])
	case len(words) == 1:
		prefix = strings.ToUpper(words[0] + "X")
	default:
		prefix = "TR"
	}

	if len(card.ColID) > 0 {
		prefix += strings.ToUpper(card.ColID[:1])
	}
	prefix += strconv.Itoa(card.Level)

	return prefix
}

func candidateID(prefix string) (string, error) {
	bytes := make([]byte, 2)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	suffix := strings.ToUpper(base36encode(bytes))
	if len(suffix) < 2 {
		suffix = fmt.Sprintf("%02s", suffix)
	} else {
		suffix = suffix[:2]
	}

	return prefix + suffix, nil
}

func base36encode(bytes []byte) string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	result := ""
	number := binary.BigEndian.Uint16(bytes)

	for number > 0 {
		result = string(alphabet[number%36]) + result
		number /= 36
	}

	return result
}
