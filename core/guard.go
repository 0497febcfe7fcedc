package core

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/SamuelRCrider/piiguard-go/utils"
)

// Direction identifies which side of an AI provider exchange a body belongs to
type Direction string

const (
	DirectionRequest  Direction = "request"
	DirectionResponse Direction = "response"
)

// DataSource is the violation data source label for the direction
func (d Direction) DataSource() string {
	return string(d) + "_body"
}

// Inspection is the full outcome of inspecting one body
type Inspection struct {
	CorrelationID string            `json:"correlation_id"`
	Direction     Direction         `json:"direction"`
	Violations    []utils.Violation `json:"violations"`
	Result        EnforcementResult `json:"result"`
}

// Guard bundles the registry, scanner, enforcer and audit trail behind the
// two calls the proxy layer makes per body.
type Guard struct {
	registry *Registry
	scanner  *Scanner
	enforcer *Enforcer
	audit    *AuditLogger
}

// GuardOption configures a Guard
type GuardOption func(*Guard)

// WithAuditLogger persists every inspection to l
func WithAuditLogger(l *AuditLogger) GuardOption {
	return func(g *Guard) {
		g.audit = l
	}
}

// NewGuard creates a guard for the policy at policyPath. An empty path, or a
// policy that cannot be loaded, leaves the built-in default in place.
func NewGuard(policyPath string, opts ...GuardOption) *Guard {
	registry := NewRegistry()
	if policyPath != "" {
		// LoadFile logs and installs the fallback itself
		_ = registry.LoadFile(policyPath)
	}
	return newGuard(registry, opts...)
}

// NewGuardWithPolicy creates a guard from an in-memory policy document
func NewGuardWithPolicy(doc *PolicyDocument, opts ...GuardOption) *Guard {
	registry := &Registry{}
	registry.Load(doc, "inline")
	return newGuard(registry, opts...)
}

func newGuard(registry *Registry, opts ...GuardOption) *Guard {
	g := &Guard{
		registry: registry,
		scanner:  NewScanner(registry),
		enforcer: NewEnforcer(registry),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ScanObject scans a parsed body and tags every violation with correlationID
func (g *Guard) ScanObject(body any, source, correlationID string) []utils.Violation {
	violations := g.scanner.ScanObject(body, source, "")

	scansTotal.WithLabelValues(source).Inc()
	for i := range violations {
		violations[i].CorrelationID = correlationID
		violationsTotal.WithLabelValues(violations[i].Type, violations[i].RiskLevel).Inc()
	}
	return violations
}

// ApplyEnforcement decides what happens to body given its violations.
// context is a free-form label such as "request", "response" or "test".
func (g *Guard) ApplyEnforcement(body any, violations []utils.Violation, context string) EnforcementResult {
	return g.enforcer.Apply(body, violations, context)
}

// Inspect scans body, applies enforcement and records the outcome in the
// audit trail. A missing correlationID is generated.
func (g *Guard) Inspect(body any, direction Direction, correlationID string) Inspection {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	violations := g.ScanObject(body, direction.DataSource(), correlationID)
	result := g.ApplyEnforcement(body, violations, string(direction))

	if g.audit != nil {
		err := g.audit.Record(AuditRecord{
			CorrelationID: correlationID,
			Direction:     string(direction),
			DataSource:    direction.DataSource(),
			Violations:    violations,
			Enforcement:   &result,
		})
		if err != nil {
			slog.Error("Failed to write audit record",
				"correlation_id", correlationID,
				"error", err)
		}
	}

	return Inspection{
		CorrelationID: correlationID,
		Direction:     direction,
		Violations:    violations,
		Result:        result,
	}
}

// Reload replaces the policy with the document at path, keeping the current
// one if the new document cannot be read
func (g *Guard) Reload(path string) error {
	return g.registry.Reload(path)
}

// Stats summarizes the current policy
func (g *Guard) Stats() Stats {
	return g.registry.Stats()
}

// Registry exposes the guard's pattern registry
func (g *Guard) Registry() *Registry {
	return g.registry
}

// Scanner exposes the guard's scanner
func (g *Guard) Scanner() *Scanner {
	return g.scanner
}

// Audit returns the audit logger, or nil when auditing is disabled
func (g *Guard) Audit() *AuditLogger {
	return g.audit
}
