// Package credentials decides which secret authenticates an outbound call to
// the orchestrator. It has no I/O so every branch is testable in isolation.
package credentials

import (
	apperrors "interview-sync/internal/common/errors"
)

const (
	HeaderAPIKey          = "X-API-Key"
	HeaderBootstrapSecret = "X-Bootstrap-Secret"
)

// Purpose classifies the outbound call.
type Purpose int

const (
	// PurposeRead covers status polling and listings; an unresolved key means skip.
	PurposeRead Purpose = iota
	// PurposeBestEffort covers pushes that must not block the ATS (job/applicant sync).
	PurposeBestEffort
	// PurposeWrite covers calls that create remote state; an unresolved key is an error.
	PurposeWrite
	// PurposeBootstrap is the one-time group sync, which may fall back to the bootstrap secret.
	PurposeBootstrap
)

func (p Purpose) String() string {
	switch p {
	case PurposeRead:
		return "read"
	case PurposeBestEffort:
		return "best_effort"
	case PurposeWrite:
		return "write"
	case PurposeBootstrap:
		return "bootstrap"
	}
	return "unknown"
}

// Required reports whether an unresolved credential must fail the operation.
func (p Purpose) Required() bool {
	return p == PurposeWrite || p == PurposeBootstrap
}

// Source names where a credential came from.
type Source string

const (
	SourceOverride  Source = "override"
	SourceEntity    Source = "entity"
	SourceFallback  Source = "fallback"
	SourceBootstrap Source = "bootstrap"
)

// Sources holds every candidate secret. Empty strings mean "not configured".
type Sources struct {
	Override        string
	EntityKey       string
	FallbackKey     string
	BootstrapSecret string
}

// Credential is the header/value pair to attach to a request.
type Credential struct {
	Header string
	Value  string
	Source Source
}

type provider struct {
	source   Source
	header   string
	value    func(Sources) string
	purposes func(Purpose) bool
}

func anyPurpose(Purpose) bool { return true }

// chain is evaluated in order; the first non-empty value wins.
var chain = []provider{
	{SourceOverride, HeaderAPIKey, func(s Sources) string { return s.Override }, anyPurpose},
	{SourceEntity, HeaderAPIKey, func(s Sources) string { return s.EntityKey }, anyPurpose},
	{SourceFallback, HeaderAPIKey, func(s Sources) string { return s.FallbackKey }, anyPurpose},
	{SourceBootstrap, HeaderBootstrapSecret, func(s Sources) string { return s.BootstrapSecret },
		func(p Purpose) bool { return p == PurposeBootstrap }},
}

// Resolve returns the highest priority credential for purpose.
func Resolve(purpose Purpose, sources Sources) (Credential, bool) {
	for _, p := range chain {
		if !p.purposes(purpose) {
			continue
		}
		if v := p.value(sources); v != "" {
			return Credential{Header: p.header, Value: v, Source: p.source}, true
		}
	}
	return Credential{}, false
}

// Require is Resolve for operations that create state: a missing credential
// is a connection-kind "key not configured" error.
func Require(purpose Purpose, sources Sources, operation string) (Credential, error) {
	cred, ok := Resolve(purpose, sources)
	if !ok {
		return Credential{}, apperrors.NewKeyNotConfiguredError(operation)
	}
	return cred, nil
}
