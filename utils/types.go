package utils

// Violation is a single PII detection, produced by the text scanner and
// persisted as-is by the audit trail.
type Violation struct {
	// Identity and correlation
	ID            string `json:"id"`
	CorrelationID string `json:"correlation_id,omitempty"`

	// Classification information
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	GDPRArticle string `json:"gdpr_article"`
	RiskLevel   string `json:"risk_level"`

	// Match information
	DetectedText    string  `json:"detected_text"`
	RedactedText    string  `json:"redacted_text"`
	ConfidenceScore float64 `json:"confidence_score"`
	Position        int     `json:"position"` // code point offset within the scanned string

	// Location information. FieldPath is nil for flat text scans.
	FieldPath  *string `json:"field_path"`
	DataSource string  `json:"data_source"`
}

// Path returns the field path or an empty string for flat text violations.
func (v Violation) Path() string {
	if v.FieldPath == nil {
		return ""
	}
	return *v.FieldPath
}

// WithFieldPath returns a copy of v addressed at path.
func (v Violation) WithFieldPath(path string) Violation {
	p := path
	v.FieldPath = &p
	return v
}
