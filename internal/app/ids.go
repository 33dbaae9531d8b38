package app

import (
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

// newBookingCode rolls a random 6-digit retrieval code, "100000".."999999".
// Uniqueness is enforced by the store; callers retry on collision.
func newBookingCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// dedupe drops duplicate and empty ids while keeping the caller's order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
