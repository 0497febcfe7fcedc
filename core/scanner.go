package core

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/SamuelRCrider/piiguard-go/utils"
)

// Scanner applies the registry's current pattern set to text and to nested
// JSON values. It holds no state of its own and is safe for concurrent use.
type Scanner struct {
	registry *Registry
}

// NewScanner creates a scanner reading patterns from registry
func NewScanner(registry *Registry) *Scanner {
	return &Scanner{registry: registry}
}

// Scan detects PII in a single string. Violations below the configured
// confidence threshold are dropped. Every pattern is evaluated on its own,
// so one substring may yield several violations of different types.
func (s *Scanner) Scan(text, source string) []utils.Violation {
	return scanText(s.registry.Snapshot(), text, source)
}

// ScanAny scans v when it is a string and returns nothing otherwise
func (s *Scanner) ScanAny(v any, source string) []utils.Violation {
	text, ok := v.(string)
	if !ok {
		return nil
	}
	return s.Scan(text, source)
}

func scanText(snap *Snapshot, text, source string) []utils.Violation {
	if !snap.Enabled || text == "" {
		return nil
	}
	if isWhitelisted(snap, text) {
		return nil
	}

	var violations []utils.Violation
	for _, p := range snap.Patterns {
		locs := p.Regex.FindAllStringIndex(text, -1)
		for _, loc := range locs {
			match := text[loc[0]:loc[1]]
			if match == "" {
				continue
			}

			score := ConfidenceScore(match, p)
			if score < snap.ConfidenceThreshold {
				continue
			}

			violations = append(violations, utils.Violation{
				ID:              uuid.NewString(),
				Type:            p.Name,
				Category:        string(p.Category),
				Description:     p.Description,
				GDPRArticle:     p.GDPRArticle,
				RiskLevel:       string(p.RiskLevel),
				DetectedText:    match,
				RedactedText:    Redact(match, snap.Redaction),
				ConfidenceScore: score,
				Position:        utf8.RuneCountInString(text[:loc[0]]),
				DataSource:      source,
			})
		}
	}
	return violations
}

// isWhitelisted reports whether text contains any whitelist phrase,
// compared case-insensitively
func isWhitelisted(snap *Snapshot, text string) bool {
	if len(snap.Whitelist) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range snap.Whitelist {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
