package core

// PolicyBuilder provides a fluent interface for creating detection policies
type PolicyBuilder struct {
	doc  *PolicyDocument
	last string
}

// NewPolicyBuilder creates a new policy builder with detection enabled and
// monitor mode
func NewPolicyBuilder() *PolicyBuilder {
	enabled := true
	return &PolicyBuilder{
		doc: &PolicyDocument{
			PIIDetection: DetectionConfig{
				Enabled:  &enabled,
				Patterns: map[string]PatternConfig{},
			},
			GDPR: GDPRConfig{Mode: ModeMonitor},
		},
	}
}

// WithMetadata sets the policy metadata
func (b *PolicyBuilder) WithMetadata(version, description, author string) *PolicyBuilder {
	b.doc.Metadata.Version = version
	b.doc.Metadata.Description = description
	b.doc.Metadata.Author = author
	return b
}

// WithMode sets the global enforcement mode
func (b *PolicyBuilder) WithMode(mode Mode) *PolicyBuilder {
	b.doc.GDPR.Mode = mode
	return b
}

// WithEnabled toggles detection as a whole
func (b *PolicyBuilder) WithEnabled(enabled bool) *PolicyBuilder {
	b.doc.PIIDetection.Enabled = &enabled
	return b
}

// WithThreshold sets the minimum confidence for a match to be reported
func (b *PolicyBuilder) WithThreshold(threshold float64) *PolicyBuilder {
	b.doc.PIIDetection.ConfidenceThreshold = &threshold
	return b
}

// WithWhitelist adds whitelist phrases
func (b *PolicyBuilder) WithWhitelist(phrases ...string) *PolicyBuilder {
	b.doc.PIIDetection.Whitelist.Phrases = append(b.doc.PIIDetection.Whitelist.Phrases, phrases...)
	return b
}

// WithRedaction sets the redaction settings
func (b *PolicyBuilder) WithRedaction(replacement string, preserveFormat bool, minLength int) *PolicyBuilder {
	b.doc.PIIDetection.Redaction = RedactionConfig{
		ReplacementChar: replacement,
		PreserveFormat:  &preserveFormat,
		MinLength:       &minLength,
	}
	return b
}

// WithRiskActions sets the per-risk actions used when no global mode applies
func (b *PolicyBuilder) WithRiskActions(onHigh, onMedium, onLow string) *PolicyBuilder {
	b.doc.GDPR.Actions = &RiskActions{
		OnHigh:   onHigh,
		OnMedium: onMedium,
		OnLow:    onLow,
	}
	return b
}

// AddPattern adds a named detection pattern. Adding a name twice replaces
// the earlier pattern.
func (b *PolicyBuilder) AddPattern(name, regex string, category Category, article string, risk RiskLevel) *PolicyBuilder {
	b.doc.PIIDetection.Patterns[name] = PatternConfig{
		Regex:       regex,
		Category:    category,
		GDPRArticle: article,
		RiskLevel:   risk,
	}
	b.last = name
	return b
}

// ConfigureLastPattern configures additional properties for the last added pattern
func (b *PolicyBuilder) ConfigureLastPattern() *PatternConfigurator {
	return &PatternConfigurator{
		builder: b,
		name:    b.last,
	}
}

// Build returns the policy document
func (b *PolicyBuilder) Build() *PolicyDocument {
	return b.doc
}

// PatternConfigurator provides methods to configure a pattern
type PatternConfigurator struct {
	builder *PolicyBuilder
	name    string
}

func (c *PatternConfigurator) update(fn func(*PatternConfig)) *PatternConfigurator {
	patterns := c.builder.doc.PIIDetection.Patterns
	pc, ok := patterns[c.name]
	if !ok {
		return c
	}
	fn(&pc)
	patterns[c.name] = pc
	return c
}

// WithDescription sets the description for the pattern
func (c *PatternConfigurator) WithDescription(description string) *PatternConfigurator {
	return c.update(func(pc *PatternConfig) {
		pc.Description = description
	})
}

// WithExamples marks known sample values, which are scored at near certainty
func (c *PatternConfigurator) WithExamples(examples ...string) *PatternConfigurator {
	return c.update(func(pc *PatternConfig) {
		pc.Examples = append(pc.Examples, examples...)
	})
}

// CaseSensitive makes the pattern match case-sensitively
func (c *PatternConfigurator) CaseSensitive() *PatternConfigurator {
	return c.update(func(pc *PatternConfig) {
		pc.CaseSensitive = true
	})
}

// Done returns to the policy builder
func (c *PatternConfigurator) Done() *PolicyBuilder {
	return c.builder
}
