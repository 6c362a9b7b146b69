// Package profile is the read-only client for the external identity/profile
// store. The duel core only ever needs to resolve a player ID to display
// data; signup, signin and profile mutation live elsewhere.
package profile

import (
	"context"
	"errors"
	"sync"

	"github.com/hectoclash/server/go/internal/models"
)

// ErrNotFound is returned when a player ID has no profile
var ErrNotFound = errors.New("player profile not found")

// Store resolves player IDs to profile data
type Store interface {
	Lookup(ctx context.Context, playerID string) (models.Player, error)
}

// StaticStore is an in-memory Store used in development mode and tests
type StaticStore struct {
	mu      sync.RWMutex
	players map[string]models.Player
}

func NewStaticStore() *StaticStore {
	return &StaticStore{players: make(map[string]models.Player)}
}

// Put registers or replaces a profile
func (s *StaticStore) Put(p models.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID] = p
}

func (s *StaticStore) Lookup(_ context.Context, playerID string) (models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[playerID]
	if !ok {
		return models.Player{}, ErrNotFound
	}
	return p, nil
}
