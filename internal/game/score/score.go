// Package score implements the score, streak and badge rules applied when a
// round is resolved.
package score

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/face-hh/spotai/internal/model"
)

// ErrInvalidLevel is returned for a level label that is not an integer,
// most commonly model.LevelUnknown.
var ErrInvalidLevel = errors.New("level is not numeric")

// ParseLevel returns the magnitude carried by a level label.
func ParseLevel(level string) (int64, error) {
	n, err := strconv.ParseInt(level, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
	return n, nil
}

// Delta is the score change for a round at level: +magnitude on a win,
// -magnitude on a loss.
func Delta(level string, won bool) (int64, error) {
	magnitude, err := ParseLevel(level)
	if err != nil {
		return 0, err
	}
	if won {
		return magnitude, nil
	}
	return -magnitude, nil
}

// Apply returns rec with the outcome of one round applied. rec is not
// modified. The stores perform the same transition in a single statement;
// Apply is the reference for it.
func Apply(rec model.PlayerRecord, level string, won bool) (model.PlayerRecord, error) {
	delta, err := Delta(level, won)
	if err != nil {
		return rec, err
	}

	next := rec
	next.Badges = append([]string(nil), rec.Badges...)
	next.Score += delta
	next.GamesPlayed++
	if won {
		next.Streak++
		next.GamesWon++
	} else {
		next.Streak = 0
		next.GamesLost++
	}
	if next.Streak > next.HighestStreak {
		next.HighestStreak = next.Streak
	}
	return next, nil
}
