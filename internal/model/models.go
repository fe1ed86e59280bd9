// Package model defines the data models for the SpotAI bot.
package model

import "time"

// Slot indexes of the two rendered images. SlotLeft is the first choice button.
const (
	SlotLeft  = 0
	SlotRight = 1
)

// LevelUnknown labels a pair whose filename does not follow the L<level>-<prompt> convention.
const LevelUnknown = "N/A"

// PlayerRecord is the persisted per-player game record.
// Invariants: HighestStreak >= Streak, GamesPlayed == GamesWon + GamesLost.
type PlayerRecord struct {
	ID            int64     `db:"id"`
	Username      string    `db:"username"`
	Score         int64     `db:"score"`
	Streak        int64     `db:"streak"`
	HighestStreak int64     `db:"highest_streak"`
	GamesPlayed   int64     `db:"games_played"`
	GamesWon      int64     `db:"games_won"`
	GamesLost     int64     `db:"games_lost"`
	Badges        []string  `db:"badges"`
	BetaTester    bool      `db:"beta_tester"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// HasBadge reports whether the record already holds the badge title.
func (p *PlayerRecord) HasBadge(title string) bool {
	for _, b := range p.Badges {
		if b == title {
			return true
		}
	}
	return false
}

// WinRate returns the won share of played games in percent.
func (p *PlayerRecord) WinRate() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.GamesWon) * 100 / float64(p.GamesPlayed)
}

// Artifact is one rendered image pair ready to be presented.
type Artifact struct {
	Image  []byte // encoded JPEG
	Level  string
	AISlot int // SlotLeft or SlotRight
	Prompt string
}

// RoundResult is one resolved choice as written to the round log.
type RoundResult struct {
	ID        int64     `db:"id"`
	PlayerID  int64     `db:"player_id"`
	Level     string    `db:"level"`
	Won       bool      `db:"won"`
	Delta     int64     `db:"delta"`
	Prompt    string    `db:"prompt"`
	CreatedAt time.Time `db:"created_at"`
}

// RankEntry is one leaderboard row.
type RankEntry struct {
	Rank     int
	PlayerID int64
	Username string
	Score    int64
}
