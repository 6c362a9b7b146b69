package results

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/hectoclash/server/go/internal/models"
)

const leaderboardKey = "hecto:leaderboard"

// Points awarded per outcome. A timeout with no winner still credits both
// players for finishing the duel.
const (
	winPoints     = 3
	timeoutPoints = 1
)

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Rank     int64   `json:"rank"`
	PlayerID string  `json:"playerId"`
	Score    float64 `json:"score"`
}

// Leaderboard keeps a global point ranking in a Redis sorted set
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

// NewLeaderboardFromAddr connects to Redis and verifies the connection
func NewLeaderboardFromAddr(ctx context.Context, addr, password string, db int) (*Leaderboard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &Leaderboard{client: client}, nil
}

// Record implements Recorder: it credits points according to the outcome
func (l *Leaderboard) Record(ctx context.Context, record models.GameRecord) error {
	switch record.Status {
	case models.StatusCompletedWin, models.StatusAbandoned:
		if record.WinnerID == "" {
			return nil
		}
		if err := l.increment(ctx, record.WinnerID, winPoints); err != nil {
			return err
		}
	case models.StatusTimeout:
		for _, p := range record.Players {
			if err := l.increment(ctx, p.ID, timeoutPoints); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Leaderboard) increment(ctx context.Context, playerID string, delta int64) error {
	newScore, err := l.client.ZIncrBy(ctx, leaderboardKey, float64(delta), playerID).Result()
	if err != nil {
		return fmt.Errorf("incrementing score: %w", err)
	}
	log.Debug().
		Str("player_id", playerID).
		Int64("delta", delta).
		Float64("score", newScore).
		Msg("leaderboard updated")
	return nil
}

// TopN returns the highest-ranked players in descending score order
func (l *Leaderboard) TopN(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	results, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, result := range results {
		entries[i] = LeaderboardEntry{
			Rank:     int64(i + 1),
			PlayerID: result.Member.(string),
			Score:    result.Score,
		}
	}
	return entries, nil
}

// Score returns a single player's current score, zero if unranked
func (l *Leaderboard) Score(ctx context.Context, playerID string) (float64, error) {
	score, err := l.client.ZScore(ctx, leaderboardKey, playerID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting score: %w", err)
	}
	return score, nil
}

func (l *Leaderboard) Close() error {
	return l.client.Close()
}
