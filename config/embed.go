// Package config carries the default hotel GDPR policy shipped with piiguard.
package config

import (
	_ "embed"

	"github.com/SamuelRCrider/piiguard-go/core"
)

// DefaultPolicy is the raw default policy document
//
//go:embed default_policy.yaml
var DefaultPolicy []byte

// DefaultPolicyDocument parses the embedded default policy
func DefaultPolicyDocument() (*core.PolicyDocument, error) {
	return core.ParsePolicyDocument(DefaultPolicy)
}
