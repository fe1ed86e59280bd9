package catalog

import "github.com/face-hh/spotai/internal/model"

// Selector draws pairs and sides from a catalog.
type Selector struct {
	catalog *Catalog
	src     UniformSource
}

// NewSelector creates a selector. A nil source means CryptoSource.
func NewSelector(c *Catalog, src UniformSource) *Selector {
	if src == nil {
		src = CryptoSource{}
	}
	return &Selector{catalog: c, src: src}
}

// SelectPair picks one pair uniformly among those matching level.
// It never falls back to another level.
func (s *Selector) SelectPair(level string) (Pair, error) {
	pairs := s.catalog.List(level)
	if len(pairs) == 0 {
		return Pair{}, ErrNoMatchingPairs
	}
	return pairs[pick(s.src, len(pairs))], nil
}

// SelectSide flips a fair coin for the slot that shows the AI image.
func (s *Selector) SelectSide() int {
	if s.src.Float64() < 0.5 {
		return model.SlotLeft
	}
	return model.SlotRight
}

// Catalog returns the underlying catalog.
func (s *Selector) Catalog() *Catalog {
	return s.catalog
}
