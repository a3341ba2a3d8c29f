package utils

import (
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const OrderIDPrefix = "CE"

// OrderIDGenerator mints "CE" + ULID identifiers. The timestamp part never
// goes backwards within the process even if the wall clock does, and the
// entropy is monotonic within a millisecond, so two ids from one generator
// never collide. Cross-process uniqueness is still enforced by the database.
type OrderIDGenerator struct {
	mu      sync.Mutex
	lastMS  uint64
	entropy io.Reader
}

func NewOrderIDGenerator() *OrderIDGenerator {
	return &OrderIDGenerator{entropy: ulid.DefaultEntropy()}
}

func (g *OrderIDGenerator) Next(now time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := ulid.Timestamp(now)
	if ms < g.lastMS {
		ms = g.lastMS
	}
	g.lastMS = ms

	id, err := ulid.New(ms, g.entropy)
	if err != nil {
		return "", err
	}
	return OrderIDPrefix + id.String(), nil
}

// IsOrderID reports whether s has the shape produced by OrderIDGenerator.
func IsOrderID(s string) bool {
	if len(s) != len(OrderIDPrefix)+ulid.EncodedSize || s[:len(OrderIDPrefix)] != OrderIDPrefix {
		return false
	}
	_, err := ulid.ParseStrict(s[len(OrderIDPrefix):])
	return err == nil
}
