package core

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/SamuelRCrider/piiguard-go/utils"
)

// Redact masks a matched substring. With PreserveFormat every letter and
// digit becomes the replacement character and everything else passes
// through; otherwise the match is replaced by a run of the replacement
// character at least MinLength long.
func Redact(match string, settings RedactionSettings) string {
	repl := settings.ReplacementChar
	if repl == "" {
		repl = defaultReplacementChar
	}

	if settings.PreserveFormat {
		var b strings.Builder
		b.Grow(len(match))
		for _, r := range match {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteString(repl)
			} else {
				b.WriteRune(r)
			}
		}
		return b.String()
	}

	n := utf8.RuneCountInString(match)
	if n < settings.MinLength {
		n = settings.MinLength
	}
	return strings.Repeat(repl, n)
}

// ApplyRedactions substitutes every violation's detected text with its
// redacted form throughout text. Substitution is literal and global, so an
// identical string elsewhere in text is redacted as well. Longer matches are
// applied first so a shorter overlapping match cannot split them.
func ApplyRedactions(text string, violations []utils.Violation) string {
	ordered := make([]utils.Violation, len(violations))
	copy(ordered, violations)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].DetectedText) > len(ordered[j].DetectedText)
	})

	for _, v := range ordered {
		if v.DetectedText == "" {
			continue
		}
		text = strings.ReplaceAll(text, v.DetectedText, v.RedactedText)
	}
	return text
}
