package core

import (
	"math"
	"unicode/utf8"
)

const (
	baseConfidence    = 0.8
	exampleConfidence = 0.99
	maxConfidence     = 1.0
)

// ConfidenceScore scores one match of pattern p.
//
// Financial matches only override the base score at the two length tiers;
// shorter financial matches keep the base score.
func ConfidenceScore(match string, p *CompiledPattern) float64 {
	score := baseConfidence

	switch p.Category {
	case CategoryFinancial:
		n := utf8.RuneCountInString(match)
		if n >= 15 {
			score = 0.95
		} else if n >= 10 {
			score = 0.9
		}
	case CategoryIdentifier:
		score = 0.85
	case CategoryContact:
		score = 0.75
	case CategorySpecial:
		score = 0.9
	}

	if p.IsExample(match) {
		score = exampleConfidence
	}

	return math.Min(score, maxConfidence)
}
