package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BodyValidator checks raw request and response bodies before they are
// inspected
type BodyValidator struct {
	request  ValidationConfig
	response ValidationConfig
}

// NewBodyValidator creates a validator for both directions
func NewBodyValidator(request, response ValidationConfig) *BodyValidator {
	return &BodyValidator{
		request:  request,
		response: response,
	}
}

// ValidateRequest validates an outbound body
func (v *BodyValidator) ValidateRequest(body string) error {
	return validateBody(body, v.request)
}

// ValidateResponse validates an inbound body
func (v *BodyValidator) ValidateResponse(body string) error {
	return validateBody(body, v.response)
}

func validateBody(body string, config ValidationConfig) error {
	if !config.Enabled {
		return nil
	}

	if config.MaxLength > 0 && len(body) > config.MaxLength {
		return fmt.Errorf("body exceeds maximum length of %d bytes", config.MaxLength)
	}

	if config.RequireJSON && !json.Valid([]byte(body)) {
		return fmt.Errorf("body is not valid JSON")
	}

	if config.DisallowCodeBlocks && strings.Contains(body, "```") {
		return fmt.Errorf("body contains disallowed code blocks")
	}

	if config.DisallowURLs && (strings.Contains(body, "http://") || strings.Contains(body, "https://")) {
		return fmt.Errorf("body contains disallowed URLs")
	}

	return nil
}
