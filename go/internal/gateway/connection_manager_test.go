package gateway

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hectoclash/server/go/internal/events"
)

// Outbound sends race against invalidation from every direction: presence
// fan-out, challenge timers and session resolution all hold the same handle a
// dying readPump or a Bind eviction is tearing down. None of those
// interleavings may panic or block.
func TestSendInvalidateConcurrent(t *testing.T) {
	for run := 0; run < 50; run++ {
		r := newTestRig()
		c := r.newTestConn("c1")

		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 20; j++ {
					c.Send(events.EventGameOver, events.GameOverPayload{SessionID: "s1"})
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			c.invalidate()
		}()

		close(start)
		wg.Wait()

		assert.True(t, c.closed.Load())
		// Post-invalidation sends stay silent no-ops
		c.Send(events.EventGameOver, events.GameOverPayload{SessionID: "s1"})
	}
}

func TestInvalidateIdempotent(t *testing.T) {
	r := newTestRig()
	c := r.newTestConn("c1")

	c.invalidate()
	c.invalidate()

	assert.True(t, c.closed.Load())
	select {
	case <-c.done:
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestSendAfterBufferFullInvalidates(t *testing.T) {
	r := newTestRig()
	c := r.newTestConn("c1")

	// No write pump drains the buffer, so filling it forces the overflow path
	for i := 0; i < 300; i++ {
		c.Send(events.EventUpdateOnlineUsers, nil)
	}

	assert.True(t, c.closed.Load())
}
