package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T, b *PolicyBuilder) *Guard {
	t.Helper()
	audit, err := NewAuditLogger(AuditConfig{Level: AuditLogLevelVerbose})
	require.NoError(t, err)
	t.Cleanup(func() { audit.Close() })
	return NewGuardWithPolicy(b.Build(), WithAuditLogger(audit))
}

func TestGuardScanObjectSetsCorrelationID(t *testing.T) {
	guard := newTestGuard(t, hotelPolicy())

	violations := guard.ScanObject(map[string]any{"message": "Card 4532015112830366"}, "request_body", "req-42")

	require.Len(t, violations, 1)
	assert.Equal(t, "req-42", violations[0].CorrelationID)
	assert.Equal(t, "request_body", violations[0].DataSource)
}

func TestGuardInspectSanitizesAndAudits(t *testing.T) {
	guard := newTestGuard(t, hotelPolicy().WithMode(ModeSanitize))
	body := DecodeBody([]byte(`{"messages": [{"role": "user", "content": "My passport is A1234567"}]}`))

	inspection := guard.Inspect(body, DirectionRequest, "")

	assert.NotEmpty(t, inspection.CorrelationID)
	assert.Equal(t, DirectionRequest, inspection.Direction)
	require.Len(t, inspection.Violations, 1)
	assert.Equal(t, "request_body", inspection.Violations[0].DataSource)
	assert.Equal(t, "messages[0].content", inspection.Violations[0].Path())
	assert.True(t, inspection.Result.Modified)
	assert.Equal(t, "request", inspection.Result.Context)

	sanitized := inspection.Result.SanitizedData.(map[string]any)
	msg := sanitized["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "My passport is ********", msg["content"])

	recent := guard.Audit().Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, inspection.CorrelationID, recent[0].CorrelationID)
	assert.Equal(t, "request", recent[0].Direction)
	assert.Equal(t, SeverityWarning, recent[0].Severity)
}

func TestGuardInspectBlockedResponse(t *testing.T) {
	guard := newTestGuard(t, hotelPolicy().WithMode(ModeBlock))

	inspection := guard.Inspect("Your card 4532015112830366 was charged", DirectionResponse, "corr-7")

	assert.Equal(t, "corr-7", inspection.CorrelationID)
	assert.True(t, inspection.Result.Blocked())
	assert.Equal(t, "response_body", inspection.Violations[0].DataSource)

	recent := guard.Audit().Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, SeverityCritical, recent[0].Severity)
}

func TestGuardInspectCleanBody(t *testing.T) {
	guard := newTestGuard(t, hotelPolicy().WithMode(ModeBlock))

	inspection := guard.Inspect(map[string]any{"content": "Late checkout please"}, DirectionRequest, "")

	assert.Empty(t, inspection.Violations)
	assert.False(t, inspection.Result.Blocked())
	assert.False(t, inspection.Result.Modified)
}

func TestGuardWithoutAudit(t *testing.T) {
	guard := NewGuardWithPolicy(hotelPolicy().Build())

	assert.Nil(t, guard.Audit())
	assert.NotPanics(t, func() {
		guard.Inspect("A1234567", DirectionRequest, "")
	})
}

func TestNewGuardFromFileAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	writePolicy(t, path, hotelPolicy().Build())

	guard := NewGuard(path)
	assert.Equal(t, path, guard.Stats().Source)
	assert.Equal(t, 4, guard.Stats().PatternCount)

	writePolicy(t, path, hotelPolicy().WithMode(ModeBlock).Build())
	require.NoError(t, guard.Reload(path))
	assert.Equal(t, "block", guard.Stats().Mode)

	assert.Error(t, guard.Reload(filepath.Join(t.TempDir(), "missing.json")))
	assert.Equal(t, "block", guard.Stats().Mode)
}

func TestNewGuardMissingPolicyUsesBuiltin(t *testing.T) {
	guard := NewGuard(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, "builtin", guard.Stats().Source)
	assert.Len(t, guard.ScanObject("guest@hotel.com", "request_body", ""), 1)
}
