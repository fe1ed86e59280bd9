package score

import "github.com/face-hh/spotai/internal/model"

// Badge is an achievement unlocked once Predicate holds for a record.
type Badge struct {
	Title       string
	Icon        string
	Description string
	Predicate   func(rec *model.PlayerRecord) bool
}

// Table is an ordered set of badges.
type Table []Badge

// DefaultBadges returns the badges awarded by the bot.
func DefaultBadges() Table {
	return Table{
		{
			Title:       "Beta Tester",
			Icon:        "🧪",
			Description: "Play the game while it was in beta, no longer obtainable.",
			Predicate: func(rec *model.PlayerRecord) bool {
				return rec.BetaTester
			},
		},
		{
			Title:       "100 Streaks",
			Icon:        "🔥",
			Description: "Surpass the 100 continuous streaks!",
			Predicate: func(rec *model.PlayerRecord) bool {
				return rec.HighestStreak >= 100
			},
		},
	}
}

// Lookup finds a badge by title.
func (t Table) Lookup(title string) (Badge, bool) {
	for _, b := range t {
		if b.Title == title {
			return b, true
		}
	}
	return Badge{}, false
}

// Evaluate returns the titles whose predicate holds for rec and that rec
// does not hold yet, in table order.
func Evaluate(t Table, rec *model.PlayerRecord) []string {
	var unlocked []string
	for _, b := range t {
		if rec.HasBadge(b.Title) {
			continue
		}
		if b.Predicate != nil && b.Predicate(rec) {
			unlocked = append(unlocked, b.Title)
		}
	}
	return unlocked
}

// Merge unions titles into badges, keeping the existing order and skipping
// duplicates.
func Merge(badges []string, titles ...string) []string {
	seen := make(map[string]struct{}, len(badges)+len(titles))
	out := make([]string, 0, len(badges)+len(titles))
	for _, list := range [][]string{badges, titles} {
		for _, title := range list {
			if _, ok := seen[title]; ok {
				continue
			}
			seen[title] = struct{}{}
			out = append(out, title)
		}
	}
	return out
}
