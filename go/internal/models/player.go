package models

// Player is the slice of profile data the duel core carries around: the
// stable identifier, the display name shown to opponents, and the public
// player tag. Profiles themselves are owned by the external profile store.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tag  string `json:"playerId"`
}
