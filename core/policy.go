package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrPolicyUnreadable is returned when the policy file cannot be read
	ErrPolicyUnreadable = errors.New("policy unreadable")

	// ErrPolicyMalformed is returned when the policy content cannot be parsed
	ErrPolicyMalformed = errors.New("policy malformed")
)

// Category classifies what kind of personal data a pattern detects
type Category string

const (
	// CategoryContact covers email addresses, phone numbers and similar
	CategoryContact Category = "contact"

	// CategoryFinancial covers card numbers, IBANs and bank details
	CategoryFinancial Category = "financial"

	// CategoryIdentifier covers passports, national IDs and licences
	CategoryIdentifier Category = "identifier"

	// CategorySpecial covers GDPR Article 9 data (health, biometrics, beliefs)
	CategorySpecial Category = "special_category"
)

// RiskLevel is the severity bucket used by enforcement
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Mode is the global enforcement stance
type Mode string

const (
	// ModeMonitor only records detections
	ModeMonitor Mode = "monitor"

	// ModeWarn records detections and attaches a warning
	ModeWarn Mode = "warn"

	// ModeBlock rejects any payload with a detection
	ModeBlock Mode = "block"

	// ModeSanitize redacts detections and forwards the payload
	ModeSanitize Mode = "sanitize"
)

const (
	defaultConfidenceThreshold = 0.8
	defaultReplacementChar     = "*"
	defaultMinLength           = 3
	defaultGDPRArticle         = "Article 6"
)

// PolicyMetadata contains information about the policy
type PolicyMetadata struct {
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`

	// Hash of the policy content for integrity verification
	Hash string `json:"hash,omitempty" yaml:"hash,omitempty"`
}

// PatternConfig is a single named detection rule as declared in the policy
type PatternConfig struct {
	Regex         string    `json:"regex" yaml:"regex" validate:"required"`
	Description   string    `json:"description,omitempty" yaml:"description,omitempty"`
	Category      Category  `json:"category,omitempty" yaml:"category,omitempty"`
	GDPRArticle   string    `json:"gdpr_article,omitempty" yaml:"gdpr_article,omitempty"`
	RiskLevel     RiskLevel `json:"risk_level,omitempty" yaml:"risk_level,omitempty" validate:"omitempty,oneof=low medium high"`
	CaseSensitive bool      `json:"case_sensitive,omitempty" yaml:"case_sensitive,omitempty"`
	Examples      []string  `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// WhitelistConfig lists phrases that suppress scanning of any text containing them
type WhitelistConfig struct {
	Phrases []string `json:"phrases,omitempty" yaml:"phrases,omitempty"`
}

// RedactionConfig controls how detected text is masked
type RedactionConfig struct {
	ReplacementChar string `json:"replacement_char,omitempty" yaml:"replacement_char,omitempty"`
	PreserveFormat  *bool  `json:"preserve_format,omitempty" yaml:"preserve_format,omitempty"`
	MinLength       *int   `json:"min_length,omitempty" yaml:"min_length,omitempty" validate:"omitempty,gte=0"`
}

// DetectionConfig is the pii_detection section of the policy document
type DetectionConfig struct {
	Enabled             *bool                    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	ConfidenceThreshold *float64                 `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	Patterns            map[string]PatternConfig `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Whitelist           WhitelistConfig          `json:"whitelist,omitempty" yaml:"whitelist,omitempty"`
	Redaction           RedactionConfig          `json:"redaction,omitempty" yaml:"redaction,omitempty"`
}

// RiskActions maps each risk level to an action name
type RiskActions struct {
	OnHigh   string `json:"on_high,omitempty" yaml:"on_high,omitempty"`
	OnMedium string `json:"on_medium,omitempty" yaml:"on_medium,omitempty"`
	OnLow    string `json:"on_low,omitempty" yaml:"on_low,omitempty"`
}

// GDPRConfig is the gdpr section of the policy document
type GDPRConfig struct {
	Mode    Mode         `json:"mode,omitempty" yaml:"mode,omitempty"`
	Actions *RiskActions `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// PolicyDocument is the full policy as loaded from disk
type PolicyDocument struct {
	Metadata     PolicyMetadata  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	PIIDetection DetectionConfig `json:"pii_detection" yaml:"pii_detection"`
	GDPR         GDPRConfig      `json:"gdpr" yaml:"gdpr"`
}

// ParsePolicyDocument decodes a policy document. Content starting with '{'
// is treated as JSON, anything else as YAML.
func ParsePolicyDocument(data []byte) (*PolicyDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrPolicyMalformed)
	}

	var (
		doc      PolicyDocument
		sections struct {
			PIIDetection any `json:"pii_detection" yaml:"pii_detection"`
		}
	)
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPolicyMalformed, err)
		}
		if err := json.Unmarshal(trimmed, &sections); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPolicyMalformed, err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPolicyMalformed, err)
		}
		if err := yaml.Unmarshal(trimmed, &sections); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPolicyMalformed, err)
		}
	}

	// any YAML mapping decodes into PolicyDocument, so an unrelated file
	// would otherwise load as an empty policy
	if sections.PIIDetection == nil {
		return nil, fmt.Errorf("%w: missing pii_detection section", ErrPolicyMalformed)
	}

	doc.Metadata.Hash = calculatePolicyHash(trimmed)
	return &doc, nil
}

// LoadPolicyDocument reads and decodes a policy file
func LoadPolicyDocument(path string) (*PolicyDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolicyUnreadable, err)
	}

	doc, err := ParsePolicyDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy %s: %w", path, err)
	}
	return doc, nil
}

// SavePolicy writes a policy document to disk. Files ending in .json are
// written as JSON, everything else as YAML.
func SavePolicy(doc *PolicyDocument, path string) error {
	var (
		data []byte
		err  error
	)

	doc.Metadata.Hash = ""
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to serialize policy: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write policy file: %w", err)
	}

	doc.Metadata.Hash = calculatePolicyHash(bytes.TrimSpace(data))
	return nil
}

// DefaultPolicyDocument is the minimal built-in policy used when no policy
// can be loaded. It only knows about email addresses, and its threshold sits
// below the contact confidence so those are still reported.
func DefaultPolicyDocument() *PolicyDocument {
	enabled := true
	threshold := 0.7
	return &PolicyDocument{
		Metadata: PolicyMetadata{
			Version:     "builtin",
			Description: "Built-in fallback policy",
		},
		PIIDetection: DetectionConfig{
			Enabled:             &enabled,
			ConfidenceThreshold: &threshold,
			Patterns: map[string]PatternConfig{
				"email": {
					Regex:       `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
					Description: "Email address",
					Category:    CategoryContact,
					GDPRArticle: defaultGDPRArticle,
					RiskLevel:   RiskMedium,
				},
			},
		},
		GDPR: GDPRConfig{Mode: ModeMonitor},
	}
}

// calculatePolicyHash generates a hash of the policy content for integrity checking
func calculatePolicyHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
