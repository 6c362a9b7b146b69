package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hectoclash/server/go/internal/events"
	"github.com/hectoclash/server/go/internal/models"
	"github.com/hectoclash/server/go/internal/profile"
)

type captureSink struct {
	mu     sync.Mutex
	events []string
	lists  [][]models.Player
}

func (s *captureSink) Send(event string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if event == events.EventUpdateOnlineUsers {
		s.lists = append(s.lists, data.([]models.Player))
	}
}

func (s *captureSink) lastList() ([]models.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lists) == 0 {
		return nil, false
	}
	return s.lists[len(s.lists)-1], true
}

func newTestRegistry(offline func(string)) (*Registry, *profile.StaticStore, *clockwork.FakeClock) {
	profiles := profile.NewStaticStore()
	profiles.Put(models.Player{ID: "alice", Name: "Alice", Tag: "HECTO-1"})
	profiles.Put(models.Player{ID: "bob", Name: "Bob", Tag: "HECTO-2"})
	clock := clockwork.NewFakeClock()
	return NewRegistry(profiles, clock, DefaultHeartbeatInterval, offline), profiles, clock
}

func TestMarkOnlineResolvesProfile(t *testing.T) {
	r, _, _ := newTestRegistry(nil)
	sink := &captureSink{}

	r.MarkOnline("alice", sink)

	require.True(t, r.IsOnline("alice"))
	p, ok := r.Player("alice")
	require.True(t, ok)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, "HECTO-1", p.Tag)
}

func TestMarkOnlineUnknownProfileFallsBack(t *testing.T) {
	r, _, _ := newTestRegistry(nil)
	sink := &captureSink{}

	r.MarkOnline("ghost", sink)

	p, ok := r.Player("ghost")
	require.True(t, ok)
	assert.Equal(t, "ghost", p.Name)
}

func TestBroadcastReachesEveryone(t *testing.T) {
	r, _, _ := newTestRegistry(nil)
	sinkA := &captureSink{}
	sinkB := &captureSink{}

	r.MarkOnline("alice", sinkA)
	r.MarkOnline("bob", sinkB)

	for _, sink := range []*captureSink{sinkA, sinkB} {
		list, ok := sink.lastList()
		require.True(t, ok)
		assert.Len(t, list, 2)
	}
}

func TestReconnectReplacesHandle(t *testing.T) {
	r, _, _ := newTestRegistry(nil)
	first := &captureSink{}
	second := &captureSink{}

	r.MarkOnline("alice", first)
	r.MarkOnline("alice", second)

	assert.Len(t, r.ListOnline(), 1)
	sink, ok := r.Sink("alice")
	require.True(t, ok)
	assert.Same(t, second, sink.(*captureSink))
}

func TestMarkOfflineFiresHook(t *testing.T) {
	var gone []string
	r, _, _ := newTestRegistry(func(id string) { gone = append(gone, id) })
	r.MarkOnline("alice", &captureSink{})

	r.MarkOffline("alice")

	assert.False(t, r.IsOnline("alice"))
	assert.Equal(t, []string{"alice"}, gone)

	// Unknown player is a no-op and does not fire the hook again
	r.MarkOffline("alice")
	assert.Equal(t, []string{"alice"}, gone)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	r, _, _ := newTestRegistry(nil)
	ch, cancel := r.Subscribe()
	defer cancel()

	r.MarkOnline("alice", &captureSink{})

	select {
	case list := <-ch:
		require.Len(t, list, 1)
		assert.Equal(t, "alice", list[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no presence update received")
	}
}

func TestSweeperEvictsStaleEntries(t *testing.T) {
	var mu sync.Mutex
	var gone []string
	r, _, clock := newTestRegistry(func(id string) {
		mu.Lock()
		defer mu.Unlock()
		gone = append(gone, id)
	})

	r.MarkOnline("alice", &captureSink{})
	r.MarkOnline("bob", &captureSink{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.RunSweeper(ctx)

	// Bob keeps heartbeating, alice goes silent
	for i := 0; i < 4; i++ {
		clock.BlockUntilContext(ctx, 1)
		clock.Advance(DefaultHeartbeatInterval)
		r.Heartbeat("bob")
	}

	require.Eventually(t, func() bool { return !r.IsOnline("alice") }, time.Second, 10*time.Millisecond)
	assert.True(t, r.IsOnline("bob"))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, gone, "alice")
	assert.NotContains(t, gone, "bob")
}
