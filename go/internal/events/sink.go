package events

// Sink delivers outbound events to a single connected player. Implementations
// must be safe for concurrent use and must never block: a send to a closed or
// invalidated connection is a silent no-op. The connection gateway owns the
// concrete implementation; core components only ever hold this interface.
type Sink interface {
	Send(event string, data any)
}

// DiscardSink drops every event. It stands in for a disconnected player's
// handle so components can fan out results without nil checks.
type DiscardSink struct{}

func (DiscardSink) Send(string, any) {}
