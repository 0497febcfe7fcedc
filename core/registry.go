package core

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// CompiledPattern is a validated, compiled detection rule. It is immutable
// once built.
type CompiledPattern struct {
	Name          string
	Regex         *regexp.Regexp
	Source        string
	Description   string
	Category      Category
	GDPRArticle   string
	RiskLevel     RiskLevel
	CaseSensitive bool

	examples map[string]struct{}
}

// IsExample reports whether text is one of the pattern's declared examples
func (p *CompiledPattern) IsExample(text string) bool {
	_, ok := p.examples[text]
	return ok
}

// RedactionSettings are the resolved redaction options
type RedactionSettings struct {
	ReplacementChar string
	PreserveFormat  bool
	MinLength       int
}

// PatternError describes a pattern that was skipped during load
type PatternError struct {
	Name string
	Err  error
}

func (e PatternError) Error() string {
	return fmt.Sprintf("pattern %q: %v", e.Name, e.Err)
}

func (e PatternError) Unwrap() error {
	return e.Err
}

// Snapshot is one consistent view of the loaded policy. Scans and
// enforcement decisions read a single snapshot for their whole duration.
type Snapshot struct {
	Enabled             bool
	ConfidenceThreshold float64
	Patterns            []*CompiledPattern
	Whitelist           []string
	Redaction           RedactionSettings

	Mode           Mode
	Actions        RiskActions
	HasRiskActions bool

	Source   string
	Hash     string
	Version  string
	LoadedAt time.Time
	Skipped  []PatternError
}

// ActionFor returns the configured action for a risk level
func (s *Snapshot) ActionFor(level RiskLevel) string {
	switch level {
	case RiskHigh:
		return s.Actions.OnHigh
	case RiskMedium:
		return s.Actions.OnMedium
	case RiskLow:
		return s.Actions.OnLow
	}
	return ""
}

// Stats summarizes the loaded policy
type Stats struct {
	Enabled             bool      `json:"enabled"`
	PatternCount        int       `json:"pattern_count"`
	ConfidenceThreshold float64   `json:"confidence_threshold"`
	Categories          []string  `json:"categories"`
	Mode                string    `json:"mode"`
	SkippedPatterns     []string  `json:"skipped_patterns,omitempty"`
	Source              string    `json:"source"`
	Hash                string    `json:"hash,omitempty"`
	LoadedAt            time.Time `json:"loaded_at"`
}

// Registry holds the compiled pattern set. The current snapshot is swapped
// atomically so concurrent readers never observe a partial update.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// NewRegistry creates a registry primed with the built-in default policy
func NewRegistry() *Registry {
	r := &Registry{}
	r.Load(DefaultPolicyDocument(), "builtin")
	return r
}

// Compile validates and compiles a policy document into a snapshot. A nil
// document compiles the built-in default. Patterns that fail validation or
// compilation are skipped and returned alongside the snapshot.
func Compile(doc *PolicyDocument, source string) (*Snapshot, []PatternError) {
	if doc == nil {
		doc = DefaultPolicyDocument()
		source = "builtin"
	}

	detection := normalizeDetection(doc.PIIDetection)
	snap := &Snapshot{
		Enabled:             true,
		ConfidenceThreshold: defaultConfidenceThreshold,
		Redaction: RedactionSettings{
			ReplacementChar: defaultReplacementChar,
			PreserveFormat:  true,
			MinLength:       defaultMinLength,
		},
		Mode:     doc.GDPR.Mode,
		Source:   source,
		Hash:     doc.Metadata.Hash,
		Version:  doc.Metadata.Version,
		LoadedAt: time.Now().UTC(),
	}

	if detection.Enabled != nil {
		snap.Enabled = *detection.Enabled
	}
	if detection.ConfidenceThreshold != nil {
		snap.ConfidenceThreshold = *detection.ConfidenceThreshold
	}
	if detection.Redaction.ReplacementChar != "" {
		snap.Redaction.ReplacementChar = detection.Redaction.ReplacementChar
	}
	if detection.Redaction.PreserveFormat != nil {
		snap.Redaction.PreserveFormat = *detection.Redaction.PreserveFormat
	}
	if detection.Redaction.MinLength != nil {
		snap.Redaction.MinLength = *detection.Redaction.MinLength
	}

	for _, phrase := range detection.Whitelist.Phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" {
			snap.Whitelist = append(snap.Whitelist, phrase)
		}
	}

	snap.Actions = RiskActions{OnHigh: "block", OnMedium: "redact", OnLow: "allow_with_note"}
	if a := doc.GDPR.Actions; a != nil {
		snap.HasRiskActions = true
		if a.OnHigh != "" {
			snap.Actions.OnHigh = a.OnHigh
		}
		if a.OnMedium != "" {
			snap.Actions.OnMedium = a.OnMedium
		}
		if a.OnLow != "" {
			snap.Actions.OnLow = a.OnLow
		}
	}

	names := make([]string, 0, len(detection.Patterns))
	for name := range detection.Patterns {
		names = append(names, name)
	}
	sort.Strings(names)

	var skipped []PatternError
	for _, name := range names {
		compiled, err := compilePattern(name, detection.Patterns[name])
		if err != nil {
			skipped = append(skipped, PatternError{Name: name, Err: err})
			continue
		}
		snap.Patterns = append(snap.Patterns, compiled)
	}
	snap.Skipped = skipped

	return snap, skipped
}

func compilePattern(name string, pc PatternConfig) (*CompiledPattern, error) {
	if err := validatePattern(name, pc); err != nil {
		return nil, err
	}

	source := pc.Regex
	if !pc.CaseSensitive {
		source = "(?i)" + source
	}
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}

	p := &CompiledPattern{
		Name:          name,
		Regex:         re,
		Source:        pc.Regex,
		Description:   pc.Description,
		Category:      pc.Category,
		GDPRArticle:   pc.GDPRArticle,
		RiskLevel:     pc.RiskLevel,
		CaseSensitive: pc.CaseSensitive,
		examples:      make(map[string]struct{}, len(pc.Examples)),
	}
	if p.Description == "" {
		p.Description = fmt.Sprintf("%s detected", name)
	}
	if p.GDPRArticle == "" {
		p.GDPRArticle = defaultGDPRArticle
	}
	if p.RiskLevel == "" {
		p.RiskLevel = RiskMedium
	}
	for _, ex := range pc.Examples {
		p.examples[ex] = struct{}{}
	}
	return p, nil
}

// Load compiles doc and makes it the current snapshot. Skipped patterns are
// logged and returned; they never abort the load.
func (r *Registry) Load(doc *PolicyDocument, source string) []PatternError {
	snap, skipped := Compile(doc, source)
	for _, pe := range skipped {
		slog.Warn("Skipping invalid PII pattern",
			"pattern", pe.Name,
			"source", snap.Source,
			"error", pe.Err)
	}

	r.current.Store(snap)
	patternsLoaded.Set(float64(len(snap.Patterns)))

	slog.Info("PII policy loaded",
		"source", snap.Source,
		"patterns", len(snap.Patterns),
		"skipped", len(skipped),
		"enabled", snap.Enabled,
		"mode", string(snap.Mode))
	return skipped
}

// LoadFile loads the policy at path. If the file is missing or malformed the
// built-in default is installed instead and the error is returned so the
// caller can report the degraded state.
func (r *Registry) LoadFile(path string) error {
	doc, err := LoadPolicyDocument(path)
	if err != nil {
		slog.Warn("Falling back to built-in PII policy",
			"path", path,
			"error", err)
		r.Load(DefaultPolicyDocument(), "builtin")
		policyReloads.WithLabelValues("fallback").Inc()
		return err
	}

	r.Load(doc, path)
	policyReloads.WithLabelValues("success").Inc()
	return nil
}

// Reload is the administrative reload. Unlike LoadFile it keeps the current
// snapshot when the new document cannot be read or parsed.
func (r *Registry) Reload(path string) error {
	doc, err := LoadPolicyDocument(path)
	if err != nil {
		slog.Warn("Policy reload failed, keeping current policy",
			"path", path,
			"error", err)
		policyReloads.WithLabelValues("rejected").Inc()
		return err
	}

	r.Load(doc, path)
	policyReloads.WithLabelValues("success").Inc()
	return nil
}

// Snapshot returns the current policy snapshot
func (r *Registry) Snapshot() *Snapshot {
	if snap := r.current.Load(); snap != nil {
		return snap
	}
	// zero-value Registry: install the default lazily
	snap, _ := Compile(nil, "builtin")
	if r.current.CompareAndSwap(nil, snap) {
		return snap
	}
	return r.current.Load()
}

// IsEnabled reports whether scanning is enabled
func (r *Registry) IsEnabled() bool {
	return r.Snapshot().Enabled
}

// Stats returns a summary of the current snapshot
func (r *Registry) Stats() Stats {
	snap := r.Snapshot()

	seen := make(map[string]struct{})
	categories := []string{}
	for _, p := range snap.Patterns {
		c := string(p.Category)
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var skipped []string
	for _, pe := range snap.Skipped {
		skipped = append(skipped, pe.Name)
	}

	return Stats{
		Enabled:             snap.Enabled,
		PatternCount:        len(snap.Patterns),
		ConfidenceThreshold: snap.ConfidenceThreshold,
		Categories:          categories,
		Mode:                string(snap.Mode),
		SkippedPatterns:     skipped,
		Source:              snap.Source,
		Hash:                snap.Hash,
		LoadedAt:            snap.LoadedAt,
	}
}

// IsPolicyError reports whether err came from reading or parsing a policy
func IsPolicyError(err error) bool {
	return errors.Is(err, ErrPolicyUnreadable) || errors.Is(err, ErrPolicyMalformed)
}
