package gateway

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/hectoclash/server/go/internal/challenge"
	"github.com/hectoclash/server/go/internal/events"
)

// PresenceAPI is the slice of the presence registry the gateway drives
type PresenceAPI interface {
	MarkOnline(playerID string, sink events.Sink)
	MarkOffline(playerID string)
	Heartbeat(playerID string)
}

// ChallengeAPI is the slice of the challenge negotiator the gateway drives
type ChallengeAPI interface {
	Request(challengerID, challengedID string) error
	Respond(challengedID, challengerID string, accept bool)
}

// SessionAPI is the slice of the session coordinator the gateway drives
type SessionAPI interface {
	SubmitSolution(sessionID, playerID, text string, from events.Sink)
}

// Dispatcher decodes inbound envelopes and routes them to the domain
// components. Malformed frames and unknown events are logged and dropped;
// a bad frame never tears down the connection.
type Dispatcher struct {
	presence   PresenceAPI
	challenges ChallengeAPI
	sessions   SessionAPI
}

func NewDispatcher(presence PresenceAPI, challenges ChallengeAPI, sessions SessionAPI) *Dispatcher {
	return &Dispatcher{
		presence:   presence,
		challenges: challenges,
		sessions:   sessions,
	}
}

// Dispatch handles one inbound frame from a connection
func (d *Dispatcher) Dispatch(c *Connection, raw []byte) {
	var env events.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("malformed frame, dropping")
		return
	}

	switch env.Event {
	case events.EventUserOnline:
		d.handleUserOnline(c, env.Data)
	case events.EventHeartbeat:
		d.handleHeartbeat(c, env.Data)
	case events.EventChallengeRequest:
		d.handleChallengeRequest(c, env.Data)
	case events.EventChallengeResponse:
		d.handleChallengeResponse(c, env.Data)
	case events.EventSubmitSolution:
		d.handleSubmitSolution(c, env.Data)
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Str("event", env.Event).
			Msg("unknown event, dropping")
	}
}

// HandleClose marks a dead connection's player offline. The presence
// registry's offline hook carries the disconnect into session forfeiture, the
// same path a heartbeat eviction takes.
func (d *Dispatcher) HandleClose(playerID string) {
	d.presence.MarkOffline(playerID)
}

func (d *Dispatcher) handleUserOnline(c *Connection, data json.RawMessage) {
	var p events.UserOnlinePayload
	if err := json.Unmarshal(data, &p); err != nil || p.PlayerID == "" {
		log.Warn().Str("connection_id", c.ID).Msg("user-online without player id, dropping")
		return
	}
	// A token-authenticated connection may only announce its own identity
	if bound := c.PlayerID(); bound != "" && bound != p.PlayerID {
		log.Warn().
			Str("connection_id", c.ID).
			Str("bound_id", bound).
			Str("claimed_id", p.PlayerID).
			Msg("user-online identity mismatch, dropping")
		return
	}
	c.manager.Bind(p.PlayerID, c)
	d.presence.MarkOnline(p.PlayerID, c)
}

func (d *Dispatcher) handleHeartbeat(c *Connection, data json.RawMessage) {
	var p events.HeartbeatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	id := p.PlayerID
	if id == "" {
		id = c.PlayerID()
	}
	if id != "" {
		d.presence.Heartbeat(id)
	}
}

func (d *Dispatcher) handleChallengeRequest(c *Connection, data json.RawMessage) {
	challengerID := c.PlayerID()
	if challengerID == "" {
		log.Warn().Str("connection_id", c.ID).Msg("challenge-request before user-online, dropping")
		return
	}
	var p events.ChallengeRequestPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ChallengedID == "" {
		log.Warn().Str("connection_id", c.ID).Msg("malformed challenge-request, dropping")
		return
	}
	if err := d.challenges.Request(challengerID, p.ChallengedID); err != nil {
		switch {
		case errors.Is(err, challenge.ErrTargetOffline):
			c.Send(events.EventChallengeDeclined, events.ChallengeDeclinedPayload{
				ChallengedID: p.ChallengedID,
				Reason:       "offline",
			})
		case errors.Is(err, challenge.ErrChallengerOffline):
			// Challenge before the player's own presence entry exists:
			// a protocol error, logged and dropped
			log.Warn().
				Str("challenger_id", challengerID).
				Str("challenged_id", p.ChallengedID).
				Msg("challenge request from player without presence entry, dropping")
		case errors.Is(err, challenge.ErrAlreadyPending):
			log.Info().
				Str("challenger_id", challengerID).
				Str("challenged_id", p.ChallengedID).
				Msg("duplicate challenge request ignored")
		default:
			log.Error().Err(err).Msg("challenge request failed")
		}
	}
}

func (d *Dispatcher) handleChallengeResponse(c *Connection, data json.RawMessage) {
	challengedID := c.PlayerID()
	if challengedID == "" {
		log.Warn().Str("connection_id", c.ID).Msg("challenge-response before user-online, dropping")
		return
	}
	var p events.ChallengeResponsePayload
	if err := json.Unmarshal(data, &p); err != nil || p.ChallengerID == "" {
		log.Warn().Str("connection_id", c.ID).Msg("malformed challenge-response, dropping")
		return
	}
	d.challenges.Respond(challengedID, p.ChallengerID, p.Accept)
}

func (d *Dispatcher) handleSubmitSolution(c *Connection, data json.RawMessage) {
	playerID := c.PlayerID()
	if playerID == "" {
		log.Warn().Str("connection_id", c.ID).Msg("submit-solution before user-online, dropping")
		return
	}
	var p events.SubmitSolutionPayload
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		log.Warn().Str("connection_id", c.ID).Msg("malformed submit-solution, dropping")
		return
	}
	d.sessions.SubmitSolution(p.SessionID, playerID, p.Text, c)
}
