package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hectoclash/server/go/internal/models"
)

// PGStore reads profiles from the shared players table. Lookups are cached
// for the lifetime of the process: display names are effectively immutable
// while a player is in a presence set or session.
type PGStore struct {
	pool  *pgxpool.Pool
	mu    sync.RWMutex
	cache map[string]models.Player
}

// NewPGStore connects a profile store to PostgreSQL
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PGStore{pool: pool, cache: make(map[string]models.Player)}, nil
}

func (s *PGStore) Lookup(ctx context.Context, playerID string) (models.Player, error) {
	s.mu.RLock()
	cached, ok := s.cache[playerID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var p models.Player
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, player_tag FROM players WHERE id = $1`, playerID)
	if err := row.Scan(&p.ID, &p.Name, &p.Tag); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Player{}, ErrNotFound
		}
		return models.Player{}, fmt.Errorf("query player profile: %w", err)
	}

	s.mu.Lock()
	s.cache[playerID] = p
	s.mu.Unlock()
	return p, nil
}

// Close releases the underlying connection pool
func (s *PGStore) Close() {
	s.pool.Close()
}
