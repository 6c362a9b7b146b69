package models

import "time"

// ChallengeStatus represents the state of a pairwise challenge handshake
type ChallengeStatus string

const (
	ChallengePending  ChallengeStatus = "pending"
	ChallengeAccepted ChallengeStatus = "accepted"
	ChallengeDeclined ChallengeStatus = "declined"
	ChallengeExpired  ChallengeStatus = "expired"
)

// Challenge is a request-response handshake between two present players
// preceding session creation. At most one pending challenge exists per
// ordered (challenger, challenged) pair.
type Challenge struct {
	ID           string          `json:"id"`
	ChallengerID string          `json:"challenger_id"`
	ChallengedID string          `json:"challenged_id"`
	Status       ChallengeStatus `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
}
