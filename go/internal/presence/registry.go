// Package presence tracks which players are currently online and fans the
// full online list out to everyone whenever it changes. Consumers reconcile
// by full replacement, so out-of-order delivery is harmless.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hectoclash/server/go/internal/events"
	"github.com/hectoclash/server/go/internal/models"
	"github.com/hectoclash/server/go/internal/profile"
)

const (
	// DefaultHeartbeatInterval matches the client's heartbeat cadence
	DefaultHeartbeatInterval = 30 * time.Second
	// heartbeatWindowFactor: a player missing this many heartbeats is gone
	heartbeatWindowFactor = 3
)

type entry struct {
	player        models.Player
	sink          events.Sink
	lastHeartbeat time.Time
}

// Registry is the authoritative online set. One entry per player: a second
// connection for the same player replaces the first, whose handle the
// gateway has already invalidated.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	subs    map[int]chan []models.Player
	nextSub int

	profiles          profile.Store
	clock             clockwork.Clock
	heartbeatInterval time.Duration
	onOffline         func(playerID string)
}

// NewRegistry creates a presence registry. The offline hook is invoked
// (outside the registry lock) whenever a player leaves the online set, so
// the caller can cascade into session abandonment.
func NewRegistry(profiles profile.Store, clock clockwork.Clock, heartbeatInterval time.Duration, onOffline func(playerID string)) *Registry {
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}
	if onOffline == nil {
		onOffline = func(string) {}
	}
	return &Registry{
		entries:           make(map[string]*entry),
		subs:              make(map[int]chan []models.Player),
		profiles:          profiles,
		clock:             clock,
		heartbeatInterval: heartbeatInterval,
		onOffline:         onOffline,
	}
}

// MarkOnline adds a player to the online set or, on reconnect, replaces the
// prior entry. Sends destined for the replaced handle become no-ops on the
// gateway side.
func (r *Registry) MarkOnline(playerID string, sink events.Sink) {
	player, err := r.profiles.Lookup(context.Background(), playerID)
	if err != nil {
		// Presence does not gate on the profile store; fall back to the ID
		log.Warn().Err(err).Str("player_id", playerID).Msg("profile lookup failed, using bare ID")
		player = models.Player{ID: playerID, Name: playerID, Tag: playerID}
	}

	r.mu.Lock()
	if _, exists := r.entries[playerID]; exists {
		log.Info().Str("player_id", playerID).Msg("reconnect replaces existing presence entry")
	}
	r.entries[playerID] = &entry{
		player:        player,
		sink:          sink,
		lastHeartbeat: r.clock.Now(),
	}
	r.mu.Unlock()

	log.Info().Str("player_id", playerID).Str("name", player.Name).Msg("player online")
	r.broadcast()
}

// MarkOffline removes a player from the online set. Unknown players are a
// no-op.
func (r *Registry) MarkOffline(playerID string) {
	r.mu.Lock()
	_, exists := r.entries[playerID]
	if exists {
		delete(r.entries, playerID)
	}
	r.mu.Unlock()

	if !exists {
		return
	}
	log.Info().Str("player_id", playerID).Msg("player offline")
	r.onOffline(playerID)
	r.broadcast()
}

// Heartbeat refreshes a player's liveness window
func (r *Registry) Heartbeat(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[playerID]; ok {
		e.lastHeartbeat = r.clock.Now()
	}
}

// IsOnline reports whether a player currently has a presence entry
func (r *Registry) IsOnline(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[playerID]
	return ok
}

// Sink returns the current connection handle for a player
func (r *Registry) Sink(playerID string) (events.Sink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[playerID]
	if !ok {
		return nil, false
	}
	return e.sink, true
}

// Player returns the resolved profile for an online player
func (r *Registry) Player(playerID string) (models.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[playerID]
	if !ok {
		return models.Player{}, false
	}
	return e.player, true
}

// ListOnline returns a snapshot of the online set
func (r *Registry) ListOnline() []models.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Subscribe registers an observer for online-set updates. Each update is the
// full current list. The returned cancel func must be called to release the
// subscription.
func (r *Registry) Subscribe() (<-chan []models.Player, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	ch := make(chan []models.Player, 8)
	r.subs[id] = ch
	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
}

// RunSweeper evicts players whose heartbeats stopped. It blocks until the
// context is cancelled.
func (r *Registry) RunSweeper(ctx context.Context) {
	window := r.heartbeatInterval * heartbeatWindowFactor
	ticker := r.clock.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	log.Info().Dur("window", window).Msg("presence sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("presence sweeper stopped")
			return
		case <-ticker.Chan():
			for _, id := range r.expired(window) {
				log.Info().Str("player_id", id).Msg("heartbeat timeout, marking offline")
				r.MarkOffline(id)
			}
		}
	}
}

func (r *Registry) expired(window time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.clock.Now().Add(-window)
	var ids []string
	for id, e := range r.entries {
		if e.lastHeartbeat.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// broadcast sends the full online list to every online player and every
// subscriber. Slow subscribers are skipped rather than blocked on.
func (r *Registry) broadcast() {
	r.mu.Lock()
	list := r.snapshotLocked()
	sinks := make([]events.Sink, 0, len(r.entries))
	for _, e := range r.entries {
		sinks = append(sinks, e.sink)
	}
	subs := make([]chan []models.Player, 0, len(r.subs))
	for _, ch := range r.subs {
		subs = append(subs, ch)
	}
	r.mu.Unlock()

	for _, sink := range sinks {
		sink.Send(events.EventUpdateOnlineUsers, list)
	}
	for _, ch := range subs {
		select {
		case ch <- list:
		default:
			log.Warn().Msg("presence subscriber lagging, dropping update")
		}
	}
}

func (r *Registry) snapshotLocked() []models.Player {
	list := make([]models.Player, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e.player)
	}
	return list
}
