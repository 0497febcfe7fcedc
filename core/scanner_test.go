package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hotelPolicy returns the pattern set used across the scanner tests
func hotelPolicy() *PolicyBuilder {
	return NewPolicyBuilder().
		WithMetadata("test", "Hotel test policy", "tests").
		WithThreshold(0.7).
		AddPattern("email", `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, CategoryContact, "Article 6", RiskMedium).
		AddPattern("eu_passport", `\b[A-Z]\d{7}\b`, CategoryIdentifier, "Article 6", RiskMedium).
		ConfigureLastPattern().
		WithDescription("EU passport number").
		CaseSensitive().
		Done().
		AddPattern("iban", `\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`, CategoryFinancial, "Article 6", RiskHigh).
		AddPattern("credit_card", `\b\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{4}\b`, CategoryFinancial, "Article 6", RiskHigh)
}

func newTestScanner(t *testing.T, doc *PolicyDocument) *Scanner {
	t.Helper()
	registry := &Registry{}
	skipped := registry.Load(doc, "test")
	require.Empty(t, skipped)
	return NewScanner(registry)
}

func TestScanPassport(t *testing.T) {
	scanner := newTestScanner(t, hotelPolicy().Build())

	violations := scanner.Scan("My passport is A1234567", "request_body")

	require.Len(t, violations, 1)
	v := violations[0]
	assert.Equal(t, "eu_passport", v.Type)
	assert.Equal(t, "A1234567", v.DetectedText)
	assert.Equal(t, "********", v.RedactedText)
	assert.Equal(t, "medium", v.RiskLevel)
	assert.Equal(t, "EU passport number", v.Description)
	assert.GreaterOrEqual(t, v.ConfidenceScore, 0.8)
	assert.Equal(t, 15, v.Position)
	assert.Equal(t, "request_body", v.DataSource)
	assert.Nil(t, v.FieldPath)
	assert.NotEmpty(t, v.ID)
}

func TestScanIBANConfidence(t *testing.T) {
	scanner := newTestScanner(t, hotelPolicy().Build())

	violations := scanner.Scan("IBAN: DE89370400440532013000", "request_body")

	require.Len(t, violations, 1)
	assert.Equal(t, "iban", violations[0].Type)
	assert.Equal(t, 0.95, violations[0].ConfidenceScore)
	assert.Equal(t, "financial", violations[0].Category)
}

func TestScanCreditCard(t *testing.T) {
	scanner := newTestScanner(t, hotelPolicy().Build())

	violations := scanner.Scan("Credit card 4532015112830366", "request_body")

	require.Len(t, violations, 1)
	assert.Equal(t, "credit_card", violations[0].Type)
	assert.Equal(t, "high", violations[0].RiskLevel)
	assert.Equal(t, "****************", violations[0].RedactedText)
}

func TestScanEmail(t *testing.T) {
	scanner := newTestScanner(t, hotelPolicy().Build())

	violations := scanner.Scan("guest@hotel.com", "response_body")

	require.Len(t, violations, 1)
	assert.Equal(t, "email", violations[0].Type)
	assert.Equal(t, "contact", violations[0].Category)
	assert.Equal(t, 0.75, violations[0].ConfidenceScore)
	assert.Equal(t, "*****@*****.***", violations[0].RedactedText)
}

func TestScanEmailExampleScoresHigh(t *testing.T) {
	doc := NewPolicyBuilder().
		AddPattern("email", `[a-z0-9.]+@[a-z0-9.]+\.[a-z]{2,}`, CategoryContact, "Article 6", RiskMedium).
		ConfigureLastPattern().
		WithExamples("guest@hotel.com").
		Done().
		Build()
	scanner := newTestScanner(t, doc)

	// default threshold 0.8 hides plain contact matches
	assert.Empty(t, scanner.Scan("other@hotel.com", "test"))

	violations := scanner.Scan("guest@hotel.com", "test")
	require.Len(t, violations, 1)
	assert.Equal(t, 0.99, violations[0].ConfidenceScore)
}

func TestScanWhitelistTakesPrecedence(t *testing.T) {
	doc := hotelPolicy().WithWhitelist("example", "Test Data").Build()
	scanner := newTestScanner(t, doc)

	assert.Empty(t, scanner.Scan("example A1234567", "test"))
	assert.Empty(t, scanner.Scan("EXAMPLE card 4532015112830366", "test"))
	assert.Empty(t, scanner.Scan("this is test data: guest@hotel.com", "test"))
	assert.Len(t, scanner.Scan("real A1234567", "test"), 1)
}

func TestScanDisabled(t *testing.T) {
	scanner := newTestScanner(t, hotelPolicy().WithEnabled(false).Build())

	assert.Empty(t, scanner.Scan("My passport is A1234567", "test"))
	assert.False(t, scanner.registry.IsEnabled())
}

func TestScanEmptyAndNonString(t *testing.T) {
	scanner := newTestScanner(t, hotelPolicy().Build())

	assert.Empty(t, scanner.Scan("", "test"))
	assert.Empty(t, scanner.ScanAny(4532015112830366, "test"))
	assert.Empty(t, scanner.ScanAny(nil, "test"))
	assert.Len(t, scanner.ScanAny("A1234567", "test"), 1)
}

func TestScanOverlappingPatternsAreNotDeduplicated(t *testing.T) {
	doc := hotelPolicy().
		AddPattern("card_digits", `\d{16}`, CategoryFinancial, "Article 6", RiskHigh).
		Build()
	scanner := newTestScanner(t, doc)

	violations := scanner.Scan("Card 4532015112830366", "test")

	require.Len(t, violations, 2)
	types := []string{violations[0].Type, violations[1].Type}
	assert.ElementsMatch(t, []string{"card_digits", "credit_card"}, types)
	assert.Equal(t, violations[0].DetectedText, violations[1].DetectedText)
}

func TestScanMultipleMatches(t *testing.T) {
	scanner := newTestScanner(t, hotelPolicy().Build())

	violations := scanner.Scan("A1234567 and B7654321", "test")

	require.Len(t, violations, 2)
	assert.Equal(t, "A1234567", violations[0].DetectedText)
	assert.Equal(t, 0, violations[0].Position)
	assert.Equal(t, "B7654321", violations[1].DetectedText)
	assert.Equal(t, 13, violations[1].Position)
}

func TestScanPositionCountsCodePoints(t *testing.T) {
	scanner := newTestScanner(t, hotelPolicy().Build())

	violations := scanner.Scan("Café A1234567", "test")

	require.Len(t, violations, 1)
	assert.Equal(t, 5, violations[0].Position)
}

func TestScanCaseSensitivity(t *testing.T) {
	scanner := newTestScanner(t, hotelPolicy().Build())

	// eu_passport is case sensitive, iban is not
	assert.Empty(t, scanner.Scan("a1234567", "test"))

	violations := scanner.Scan("de89370400440532013000", "test")
	require.Len(t, violations, 1)
	assert.Equal(t, "iban", violations[0].Type)
}

func TestScanSkipsEmptyMatches(t *testing.T) {
	doc := NewPolicyBuilder().
		AddPattern("optional", `x*`, CategorySpecial, "Article 9", RiskLow).
		Build()
	scanner := newTestScanner(t, doc)

	assert.Empty(t, scanner.Scan("abc", "test"))
	assert.Len(t, scanner.Scan("axxb", "test"), 1)
}

func TestScanThresholdIsMonotonic(t *testing.T) {
	text := "guest@hotel.com A1234567 DE89370400440532013000 1234567890 4532015112830366"
	base := hotelPolicy().
		AddPattern("account", `\b\d{10}\b`, CategoryFinancial, "Article 6", RiskMedium).
		AddPattern("misc", `hotel`, Category("other"), "Article 6", RiskLow)

	previous := -1
	for i := 0; i <= 20; i++ {
		threshold := float64(i) / 20
		scanner := newTestScanner(t, base.WithThreshold(threshold).Build())

		violations := scanner.Scan(text, "test")
		for _, v := range violations {
			assert.GreaterOrEqual(t, v.ConfidenceScore, threshold)
		}
		if previous >= 0 {
			assert.LessOrEqual(t, len(violations), previous, "threshold %.2f", threshold)
		}
		previous = len(violations)
	}
	assert.Equal(t, 0, previous)
}
