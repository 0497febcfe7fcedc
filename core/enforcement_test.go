package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamuelRCrider/piiguard-go/utils"
)

func newTestEnforcer(t *testing.T, b *PolicyBuilder) (*Scanner, *Enforcer) {
	t.Helper()
	registry := &Registry{}
	require.Empty(t, registry.Load(b.Build(), "test"))
	return NewScanner(registry), NewEnforcer(registry)
}

func violation(typ string, risk RiskLevel, detected, path string) utils.Violation {
	v := utils.Violation{
		Type:         typ,
		RiskLevel:    string(risk),
		DetectedText: detected,
		RedactedText: strings.Repeat("*", len(detected)),
	}
	return v.WithFieldPath(path)
}

func TestEnforceEmptyViolationsAllowsInEveryMode(t *testing.T) {
	for _, mode := range []Mode{ModeMonitor, ModeWarn, ModeBlock, ModeSanitize, "", "quarantine"} {
		_, enforcer := newTestEnforcer(t, hotelPolicy().WithMode(mode).WithRiskActions("block", "redact", "allow_with_note"))
		data := map[string]any{"message": "hello"}

		result := enforcer.Apply(data, nil, "test")

		assert.Equal(t, DecisionAllow, result.Action, "mode %q", mode)
		assert.False(t, result.Modified)
		assert.Nil(t, result.BlockReason)
		assert.Empty(t, result.AppliedActions)
		assert.Equal(t, data, result.SanitizedData)
	}
}

func TestEnforceMonitor(t *testing.T) {
	scanner, enforcer := newTestEnforcer(t, hotelPolicy().WithMode(ModeMonitor))
	data := map[string]any{"message": "Card 4532015112830366"}

	result := enforcer.Apply(data, scanner.ScanObject(data, "request_body", ""), "request")

	assert.Equal(t, DecisionAllow, result.Action)
	assert.False(t, result.Modified)
	assert.Equal(t, []string{"logged_for_monitoring"}, result.AppliedActions)
	assert.Equal(t, "monitor", result.Mode)
	assert.Equal(t, "request", result.Context)
	assert.NotEmpty(t, result.ID)
}

func TestEnforceMonitorNeverBlocks(t *testing.T) {
	_, enforcer := newTestEnforcer(t, hotelPolicy().WithMode(ModeMonitor).WithRiskActions("block", "block", "block"))
	all := []utils.Violation{
		violation("credit_card", RiskHigh, "4532015112830366", "card"),
		violation("eu_passport", RiskMedium, "A1234567", "passport"),
		violation("email", RiskLow, "guest@hotel.com", "email"),
	}

	for mask := 1; mask < 1<<len(all); mask++ {
		var subset []utils.Violation
		for i := range all {
			if mask&(1<<i) != 0 {
				subset = append(subset, all[i])
			}
		}
		result := enforcer.Apply(map[string]any{"card": "4532015112830366"}, subset, "test")
		assert.Equal(t, DecisionAllow, result.Action)
		assert.False(t, result.Modified)
	}
}

func TestEnforceBlock(t *testing.T) {
	scanner, enforcer := newTestEnforcer(t, hotelPolicy().WithMode(ModeBlock))
	data := map[string]any{"message": "Card 4532015112830366", "note": "guest@hotel.com"}

	result := enforcer.Apply(data, scanner.ScanObject(data, "request_body", ""), "request")

	assert.True(t, result.Blocked())
	require.NotNil(t, result.BlockReason)
	assert.Contains(t, *result.BlockReason, "credit_card (high)")
	assert.Contains(t, *result.BlockReason, "email (medium)")
	assert.Equal(t, []string{"blocked_pii_detected"}, result.AppliedActions)
	assert.False(t, result.Modified)
}

func TestEnforceBlockIsMonotonic(t *testing.T) {
	_, enforcer := newTestEnforcer(t, hotelPolicy().WithMode(ModeBlock))
	base := []utils.Violation{violation("email", RiskLow, "guest@hotel.com", "email")}

	require.True(t, enforcer.Apply(nil, base, "test").Blocked())

	superset := append([]utils.Violation{}, base...)
	for _, v := range []utils.Violation{
		violation("credit_card", RiskHigh, "4532015112830366", "card"),
		violation("eu_passport", RiskMedium, "A1234567", "passport"),
	} {
		superset = append(superset, v)
		assert.True(t, enforcer.Apply(nil, superset, "test").Blocked())
	}
}

func TestEnforceSanitize(t *testing.T) {
	scanner, enforcer := newTestEnforcer(t, hotelPolicy().WithMode(ModeSanitize))
	data := map[string]any{"message": "Card 4532015112830366"}

	violations := scanner.ScanObject(data, "request_body", "")
	require.Len(t, violations, 1)
	result := enforcer.Apply(data, violations, "request")

	assert.Equal(t, DecisionAllow, result.Action)
	assert.True(t, result.Modified)
	assert.Equal(t, []string{"sanitized_pii"}, result.AppliedActions)

	sanitized, ok := result.SanitizedData.(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, sanitized["message"], "4532015112830366")
	assert.Equal(t, "Card ****************", sanitized["message"])

	// original untouched
	assert.Equal(t, "Card 4532015112830366", data["message"])
}

func TestEnforceSanitizeRedactsEverywhere(t *testing.T) {
	_, enforcer := newTestEnforcer(t, hotelPolicy().WithMode(ModeSanitize))
	data := map[string]any{
		"message": "Card 4532015112830366",
		"history": []any{"earlier: 4532015112830366"},
	}
	violations := []utils.Violation{violation("credit_card", RiskHigh, "4532015112830366", "message")}

	result := enforcer.Apply(data, violations, "request")

	sanitized := result.SanitizedData.(map[string]any)
	assert.Equal(t, []any{"earlier: ****************"}, sanitized["history"])
}

func TestEnforceSanitizeOverlappingMatches(t *testing.T) {
	// a_card_tail sorts (and scans) before b_card, and its match sits inside b_card's
	scanner, enforcer := newTestEnforcer(t, NewPolicyBuilder().
		WithThreshold(0.7).
		WithMode(ModeSanitize).
		AddPattern("a_card_tail", `\d{4}\b`, CategoryFinancial, "Article 6", RiskMedium).
		AddPattern("b_card", `\b\d{16}\b`, CategoryFinancial, "Article 6", RiskHigh))
	data := map[string]any{"message": "Card 4532015112830366"}

	violations := scanner.ScanObject(data, "request_body", "")
	require.Len(t, violations, 2)
	assert.Equal(t, "a_card_tail", violations[0].Type)

	result := enforcer.Apply(data, violations, "request")

	require.True(t, result.Modified)
	sanitized := result.SanitizedData.(map[string]any)
	assert.Equal(t, "Card ****************", sanitized["message"])
	assert.NotRegexp(t, `\d`, sanitized["message"])
}

func TestEnforceSanitizeNeedsFieldPath(t *testing.T) {
	scanner, enforcer := newTestEnforcer(t, hotelPolicy().WithMode(ModeSanitize))

	// flat text scans carry no field path
	violations := scanner.Scan("Card 4532015112830366", "request_body")
	require.Len(t, violations, 1)
	result := enforcer.Apply("Card 4532015112830366", violations, "request")

	assert.False(t, result.Modified)
	assert.Equal(t, []string{"sanitize_skipped_no_field_path"}, result.AppliedActions)
	assert.Equal(t, "Card 4532015112830366", result.SanitizedData)
}

func TestEnforceSanitizeRootString(t *testing.T) {
	scanner, enforcer := newTestEnforcer(t, hotelPolicy().WithMode(ModeSanitize))

	violations := scanner.ScanObject("passport A1234567", "request_body", "")
	result := enforcer.Apply("passport A1234567", violations, "request")

	assert.True(t, result.Modified)
	assert.Equal(t, "passport ********", result.SanitizedData)
}

func TestEnforceWarn(t *testing.T) {
	_, enforcer := newTestEnforcer(t, hotelPolicy().WithMode(ModeWarn))
	violations := []utils.Violation{
		violation("credit_card", RiskHigh, "4532015112830366", "card"),
		violation("email", RiskMedium, "guest@hotel.com", "email"),
	}

	result := enforcer.Apply(map[string]any{}, violations, "response")

	assert.Equal(t, DecisionAllow, result.Action)
	assert.False(t, result.Modified)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "2 PII violation(s)")
	assert.Equal(t, []string{"warned_pii_detected"}, result.AppliedActions)
}

func TestEnforceRiskPolicyHighBlocks(t *testing.T) {
	_, enforcer := newTestEnforcer(t, hotelPolicy().WithMode("").WithRiskActions("block", "redact", "allow_with_note"))
	violations := []utils.Violation{
		violation("email", RiskMedium, "guest@hotel.com", "email"),
		violation("credit_card", RiskHigh, "4532015112830366", "card"),
	}

	result := enforcer.Apply(map[string]any{"email": "guest@hotel.com"}, violations, "request")

	assert.True(t, result.Blocked())
	require.NotNil(t, result.BlockReason)
	assert.True(t, strings.HasPrefix(*result.BlockReason, "high-risk PII detected"))
	assert.Equal(t, []string{"block_high_risk"}, result.AppliedActions)
	assert.False(t, result.Modified)
}

func TestEnforceRiskPolicyMediumAndLow(t *testing.T) {
	_, enforcer := newTestEnforcer(t, hotelPolicy().WithMode("").WithRiskActions("block", "redact", "allow_with_note"))
	data := map[string]any{"passport": "A1234567", "phone": "+49 151 2345"}
	violations := []utils.Violation{
		violation("eu_passport", RiskMedium, "A1234567", "passport"),
		violation("phone", RiskLow, "+49 151 2345", "phone"),
	}

	result := enforcer.Apply(data, violations, "request")

	assert.Equal(t, DecisionAllow, result.Action)
	assert.True(t, result.Modified)
	assert.Equal(t, []string{"redact_medium_risk", "allow_with_note_low_risk"}, result.AppliedActions)
	require.Len(t, result.Warnings, 1)

	sanitized := result.SanitizedData.(map[string]any)
	assert.Equal(t, "********", sanitized["passport"])
	assert.Equal(t, "+49 151 2345", sanitized["phone"])
	assert.Equal(t, "A1234567", data["passport"])
}

func TestEnforceRiskPolicyUnknownAction(t *testing.T) {
	_, enforcer := newTestEnforcer(t, hotelPolicy().WithMode("").WithRiskActions("block", "redact", "shred"))

	result := enforcer.Apply(nil, []utils.Violation{violation("email", RiskLow, "guest@hotel.com", "email")}, "test")

	assert.Equal(t, DecisionAllow, result.Action)
	assert.Equal(t, []string{"default_action_low_risk"}, result.AppliedActions)
}

func TestEnforceRiskPolicyDefaults(t *testing.T) {
	b := hotelPolicy().WithMode("")
	b.Build().GDPR.Actions = &RiskActions{}
	_, enforcer := newTestEnforcer(t, b)

	result := enforcer.Apply(nil, []utils.Violation{violation("credit_card", RiskHigh, "4532015112830366", "card")}, "test")

	assert.True(t, result.Blocked())
	assert.Equal(t, []string{"block_high_risk"}, result.AppliedActions)
}

func TestEnforceUnrecognizedMode(t *testing.T) {
	_, enforcer := newTestEnforcer(t, hotelPolicy().WithMode("quarantine").WithRiskActions("block", "redact", "allow_with_note"))

	result := enforcer.Apply(nil, []utils.Violation{violation("email", RiskLow, "guest@hotel.com", "email")}, "test")

	assert.Equal(t, DecisionAllow, result.Action)
	assert.Equal(t, []string{"unrecognized_mode_quarantine", "allow_with_note_low_risk"}, result.AppliedActions)
	assert.Len(t, result.Warnings, 2)
}

func TestEnforceNoModeNoActionsFallsBackToMonitor(t *testing.T) {
	_, enforcer := newTestEnforcer(t, hotelPolicy().WithMode(""))

	result := enforcer.Apply(nil, []utils.Violation{violation("credit_card", RiskHigh, "4532015112830366", "card")}, "test")

	assert.Equal(t, DecisionAllow, result.Action)
	assert.Equal(t, []string{"logged_for_monitoring"}, result.AppliedActions)
}

func TestEnforceReadsModeOnEveryCall(t *testing.T) {
	registry := &Registry{}
	registry.Load(hotelPolicy().WithMode(ModeMonitor).Build(), "test")
	enforcer := NewEnforcer(registry)
	violations := []utils.Violation{violation("credit_card", RiskHigh, "4532015112830366", "card")}

	assert.False(t, enforcer.Apply(nil, violations, "test").Blocked())

	registry.Load(hotelPolicy().WithMode(ModeBlock).Build(), "test")
	assert.True(t, enforcer.Apply(nil, violations, "test").Blocked())
}
