// Package catalog indexes the paired AI/human images by difficulty level and
// selects pairs and sides for new rounds.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/face-hh/spotai/internal/model"
)

// Errors for catalog lookups.
var (
	ErrNoMatchingPairs = errors.New("no image pairs for requested level")
	ErrEmptyCatalog    = errors.New("image catalog is empty")
)

// Pair is one AI-generated image and its human original at a given level.
type Pair struct {
	Level     string
	AIPath    string
	HumanPath string
	Prompt    string
}

// Catalog is the read-only set of pairs found at startup.
type Catalog struct {
	pairs []Pair
}

// New builds a catalog from already known pairs.
func New(pairs []Pair) *Catalog {
	cp := make([]Pair, len(pairs))
	copy(cp, pairs)
	return &Catalog{pairs: cp}
}

// Scan pairs every file in aiDir with the identically named file in humanDir.
// AI files without a human counterpart are skipped.
func Scan(aiDir, humanDir string) (*Catalog, error) {
	entries, err := os.ReadDir(aiDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read ai image dir: %w", err)
	}

	var pairs []Pair
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()
		humanPath := filepath.Join(humanDir, name)
		if _, err := os.Stat(humanPath); err != nil {
			log.Warn().Str("file", name).Msg("AI image has no human counterpart, skipping")
			continue
		}

		pairs = append(pairs, Pair{
			Level:     ParseLevel(name),
			AIPath:    filepath.Join(aiDir, name),
			HumanPath: humanPath,
			Prompt:    ParsePrompt(name),
		})
	}

	if len(pairs) == 0 {
		return nil, ErrEmptyCatalog
	}

	log.Info().
		Int("pairs", len(pairs)).
		Strs("levels", New(pairs).Levels()).
		Msg("Image catalog loaded")

	return &Catalog{pairs: pairs}, nil
}

// ParseLevel extracts the level label from an L<digits>-<prompt> filename.
// Anything else is labeled model.LevelUnknown.
func ParseLevel(filename string) string {
	base := filepath.Base(filename)
	dash := strings.Index(base, "-")
	if dash < 2 || base[0] != 'L' {
		return model.LevelUnknown
	}
	level := base[1:dash]
	for _, r := range level {
		if r < '0' || r > '9' {
			return model.LevelUnknown
		}
	}
	return level
}

// ParsePrompt turns "L3-a-cat-on-a-sofa.png" into "a cat on a sofa".
func ParsePrompt(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if dash := strings.Index(stem, "-"); dash >= 0 {
		stem = stem[dash+1:]
	}
	return strings.Join(strings.FieldsFunc(stem, func(r rune) bool { return r == '-' }), " ")
}

// List returns the pairs whose level equals the filter, or every pair when
// the filter is empty.
func (c *Catalog) List(level string) []Pair {
	if level == "" {
		out := make([]Pair, len(c.pairs))
		copy(out, c.pairs)
		return out
	}

	var out []Pair
	for _, p := range c.pairs {
		if p.Level == level {
			out = append(out, p)
		}
	}
	return out
}

// Levels returns the distinct level labels present, sorted.
func (c *Catalog) Levels() []string {
	seen := make(map[string]bool)
	var levels []string
	for _, p := range c.pairs {
		if !seen[p.Level] {
			seen[p.Level] = true
			levels = append(levels, p.Level)
		}
	}
	sort.Strings(levels)
	return levels
}

// Len returns the number of pairs.
func (c *Catalog) Len() int {
	return len(c.pairs)
}
