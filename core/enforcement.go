package core

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SamuelRCrider/piiguard-go/utils"
)

// Decision is the outcome applied to a payload
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionBlock Decision = "block"
)

// EnforcementResult describes what enforcement decided for one payload
type EnforcementResult struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Context        string    `json:"context"`
	Mode           string    `json:"mode"`
	Action         Decision  `json:"action"`
	Modified       bool      `json:"modified"`
	SanitizedData  any       `json:"sanitized_data"`
	BlockReason    *string   `json:"block_reason"`
	Warnings       []string  `json:"warnings"`
	AppliedActions []string  `json:"applied_actions"`
}

// Blocked reports whether the payload must not be forwarded
func (r EnforcementResult) Blocked() bool {
	return r.Action == DecisionBlock
}

func (r *EnforcementResult) block(reason string) {
	r.Action = DecisionBlock
	r.BlockReason = &reason
}

// Enforcer turns a violation list into an enforcement decision using the
// registry's current mode and per-risk actions. The mode is read on every
// call, so a reload takes effect on the next payload.
type Enforcer struct {
	registry *Registry
}

// NewEnforcer creates an enforcer reading policy from registry
func NewEnforcer(registry *Registry) *Enforcer {
	return &Enforcer{registry: registry}
}

// Apply decides what happens to data given its violations. data is never
// mutated; a sanitized deep copy is returned in SanitizedData when the
// decision modifies the payload.
func (e *Enforcer) Apply(data any, violations []utils.Violation, context string) EnforcementResult {
	snap := e.registry.Snapshot()

	result := EnforcementResult{
		ID:             uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		Context:        context,
		Mode:           string(snap.Mode),
		Action:         DecisionAllow,
		SanitizedData:  data,
		Warnings:       []string{},
		AppliedActions: []string{},
	}

	if len(violations) > 0 {
		switch snap.Mode {
		case ModeMonitor:
			result.AppliedActions = append(result.AppliedActions, "logged_for_monitoring")
		case ModeBlock:
			result.block("PII detected: " + summarizeViolations(violations))
			result.AppliedActions = append(result.AppliedActions, "blocked_pii_detected")
		case ModeSanitize:
			if sanitizeInto(&result, data, violations) {
				result.AppliedActions = append(result.AppliedActions, "sanitized_pii")
			} else {
				result.AppliedActions = append(result.AppliedActions, "sanitize_skipped_no_field_path")
			}
		case ModeWarn:
			result.Warnings = append(result.Warnings, warningFor(violations))
			result.AppliedActions = append(result.AppliedActions, "warned_pii_detected")
		default:
			applyRiskPolicy(snap, &result, data, violations)
		}
	}

	enforcementTotal.WithLabelValues(result.Mode, string(result.Action), strconv.FormatBool(result.Modified)).Inc()
	return result
}

// applyRiskPolicy handles payloads when the mode is absent or unrecognized.
// Buckets are processed high to low; a block stops processing.
func applyRiskPolicy(snap *Snapshot, result *EnforcementResult, data any, violations []utils.Violation) {
	if snap.Mode != "" {
		slog.Warn("Unrecognized enforcement mode, applying fallback",
			"mode", string(snap.Mode),
			"context", result.Context)
		result.Warnings = append(result.Warnings, fmt.Sprintf("unrecognized enforcement mode %q", snap.Mode))
		result.AppliedActions = append(result.AppliedActions, "unrecognized_mode_"+string(snap.Mode))
	}

	if !snap.HasRiskActions {
		result.AppliedActions = append(result.AppliedActions, "logged_for_monitoring")
		return
	}

	buckets := partitionByRisk(violations)
	for _, level := range []RiskLevel{RiskHigh, RiskMedium, RiskLow} {
		bucket := buckets[level]
		if len(bucket) == 0 {
			continue
		}

		action := snap.ActionFor(level)
		tag := action + "_" + string(level) + "_risk"

		switch strings.ToLower(action) {
		case "block":
			result.block(fmt.Sprintf("%s-risk PII detected: %s", level, summarizeViolations(bucket)))
			result.AppliedActions = append(result.AppliedActions, tag)
			return
		case "redact", "sanitize":
			sanitizeInto(result, data, bucket)
			result.AppliedActions = append(result.AppliedActions, tag)
		case "allow_with_note", "warn":
			result.Warnings = append(result.Warnings, warningFor(bucket))
			result.AppliedActions = append(result.AppliedActions, tag)
		case "allow", "log":
			result.AppliedActions = append(result.AppliedActions, tag)
		default:
			slog.Warn("Unknown per-risk action, using default",
				"action", action,
				"risk_level", string(level))
			result.AppliedActions = append(result.AppliedActions, "default_action_"+string(level)+"_risk")
		}
	}
}

// sanitizeInto redacts the violations' detected text throughout the payload,
// building on any earlier sanitization in result. It reports whether any
// violation was eligible (non-nil field path and non-empty detected text).
func sanitizeInto(result *EnforcementResult, original any, violations []utils.Violation) bool {
	base := original
	if result.Modified {
		base = result.SanitizedData
	}
	// ReplaceAll copies every container it walks, so the caller's data is
	// never written to
	working := FromAny(base)

	eligible := make([]utils.Violation, 0, len(violations))
	for _, v := range violations {
		if v.FieldPath != nil && v.DetectedText != "" {
			eligible = append(eligible, v)
		}
	}
	// longest first, so a match nested inside a longer one cannot break it up
	sort.SliceStable(eligible, func(i, j int) bool {
		return len(eligible[i].DetectedText) > len(eligible[j].DetectedText)
	})

	for _, v := range eligible {
		working, _ = ReplaceAll(working, v.DetectedText, v.RedactedText)
	}
	applied := len(eligible) > 0

	if applied {
		result.Modified = true
		result.SanitizedData = Interface(working)
	}
	return applied
}

func partitionByRisk(violations []utils.Violation) map[RiskLevel][]utils.Violation {
	buckets := make(map[RiskLevel][]utils.Violation, 3)
	for _, v := range violations {
		level := RiskLevel(v.RiskLevel)
		buckets[level] = append(buckets[level], v)
	}
	return buckets
}

func summarizeViolations(violations []utils.Violation) string {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, fmt.Sprintf("%s (%s)", v.Type, v.RiskLevel))
	}
	return strings.Join(parts, ", ")
}

func warningFor(violations []utils.Violation) string {
	return fmt.Sprintf("%d PII violation(s) detected: %s", len(violations), summarizeViolations(violations))
}
