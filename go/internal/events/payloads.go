package events

import (
	"encoding/json"
	"time"

	"github.com/hectoclash/server/go/internal/models"
)

// Event names carried on the wire. Inbound events are sent by clients,
// outbound events by the server.
const (
	// Inbound
	EventUserOnline        = "user-online"
	EventHeartbeat         = "heartbeat"
	EventChallengeRequest  = "challenge-request"
	EventChallengeResponse = "challenge-response"
	EventSubmitSolution    = "submit-solution"

	// Outbound
	EventUpdateOnlineUsers = "update-online-users"
	EventIncomingChallenge = "incoming-challenge"
	EventChallengeDeclined = "challenge-declined"
	EventChallengeExpired  = "challenge-expired"
	EventGameStart         = "game-start"
	EventGameStartFailed   = "game-start-failed"
	EventSolutionInvalid   = "solution-invalid"
	EventGameOver          = "game-over"
)

// Envelope is the wire framing for every message in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Marshal wraps a payload in an envelope and serializes it
func Marshal(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Inbound payloads

type UserOnlinePayload struct {
	PlayerID string `json:"playerId"`
}

type HeartbeatPayload struct {
	PlayerID string `json:"playerId"`
}

type ChallengeRequestPayload struct {
	ChallengedID string `json:"challengedId"`
}

type ChallengeResponsePayload struct {
	ChallengerID string `json:"challengerId"`
	Accept       bool   `json:"accept"`
}

type SubmitSolutionPayload struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

// Outbound payloads

type IncomingChallengePayload struct {
	ChallengerID   string `json:"challengerId"`
	ChallengerName string `json:"challengerName"`
}

type ChallengeDeclinedPayload struct {
	ChallengedID string `json:"challengedId"`
	Reason       string `json:"reason"`
}

type ChallengeExpiredPayload struct {
	ChallengedID string `json:"challengedId"`
	Reason       string `json:"reason"`
}

type GameStartPayload struct {
	SessionID        string    `json:"sessionId"`
	PuzzleDigits     string    `json:"puzzleDigits"`
	Target           int       `json:"target"`
	OpponentID       string    `json:"opponentId"`
	OpponentName     string    `json:"opponentName"`
	DeadlineAt       time.Time `json:"deadlineAt"`
	TimeLimitSeconds int       `json:"timeLimitSeconds"`
}

type GameStartFailedPayload struct {
	OpponentID string `json:"opponentId"`
	Reason     string `json:"reason"`
}

type SolutionInvalidPayload struct {
	SessionID string               `json:"sessionId"`
	Reason    models.InvalidReason `json:"reason"`
}

type PlayerInfo struct {
	ID       string  `json:"id"`
	Solution *string `json:"solution,omitempty"`
}

type GameOverPayload struct {
	SessionID   string               `json:"sessionId"`
	Status      models.SessionStatus `json:"status"`
	Reason      models.ResultReason  `json:"reason"`
	WinnerID    string               `json:"winnerId,omitempty"`
	LoserID     string               `json:"loserId,omitempty"`
	Player1Info PlayerInfo           `json:"player1Info"`
	Player2Info PlayerInfo           `json:"player2Info"`
}
