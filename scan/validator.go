/*
Package scan implements the product scan pipeline: code validation,
the exactly-once redemption guard, and the scan orchestrator.

PURPOSE:
  A field installer scans a manufacturer QR code; the decoded string lands
  here. This package turns that untrusted text into at most one earning
  transaction, exactly once per physical code, across all users.

PIPELINE:
  raw string -> Validate -> Guard.Claim -> ledger append -> result
  (see orchestrator.go for the state machine)

THIS FILE (validator.go):
  Pure structural validation. Two URL shapes are accepted, both carrying
  the scan token at a fixed path segment:

    https://<canonical-host>/p/<token>     (printed long form)
    https://<short-host>/s/<token>         (short link on small labels)

  The token must be a version-4 UUID. Hex matching is case-insensitive,
  but the token handed downstream is normalized to lowercase so guard
  lookups see a single canonical casing.

  No side effects and no catalog access: whether the token names a real,
  unredeemed product is the guard's job.

SEE ALSO:
  - guard.go: Catalog + exactly-once claim
  - orchestrator.go: End-to-end scan state machine
*/
package scan

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/fieldloop/rewards-engine/ledger"
)

// =============================================================================
// DOMAIN CONFIGURATION
// =============================================================================

// Domains describes the two accepted QR URL shapes. Hosts are matched
// case-insensitively; path prefixes are fixed.
type Domains struct {
	CanonicalHost string // e.g. "rewards.fieldloop.com", token under /p/
	ShortHost     string // e.g. "fldp.io", token under /s/
}

func DefaultDomains() Domains {
	return Domains{
		CanonicalHost: "rewards.fieldloop.com",
		ShortHost:     "fldp.io",
	}
}

const (
	canonicalPrefix = "/p/"
	shortPrefix     = "/s/"
)

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator parses scanned strings into scan tokens. Stateless and pure.
type Validator struct {
	Domains Domains
}

func NewValidator(domains Domains) *Validator {
	return &Validator{Domains: domains}
}

// Validate checks a raw scanned string and extracts its scan token.
//
// Returns ErrMalformedCode when the string is not one of the accepted URL
// shapes, and ErrInvalidToken when the embedded token is not a version-4
// UUID. The returned token is always lowercase.
func (v *Validator) Validate(raw string) (ledger.ScanToken, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ledger.ErrMalformedCode
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", ledger.ErrMalformedCode
	}

	var tokenSegment string
	switch strings.ToLower(u.Hostname()) {
	case strings.ToLower(v.Domains.CanonicalHost):
		tokenSegment, err = fixedSegment(u.Path, canonicalPrefix)
	case strings.ToLower(v.Domains.ShortHost):
		tokenSegment, err = fixedSegment(u.Path, shortPrefix)
	default:
		return "", ledger.ErrMalformedCode
	}
	if err != nil {
		return "", err
	}

	return normalizeToken(tokenSegment)
}

// fixedSegment extracts the single path segment after prefix. Anything
// before or after it makes the code malformed.
func fixedSegment(path, prefix string) (string, error) {
	if !strings.HasPrefix(path, prefix) {
		return "", ledger.ErrMalformedCode
	}
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", ledger.ErrMalformedCode
	}
	return rest, nil
}

// normalizeToken verifies the canonical hyphenated v4 UUID shape and
// returns it lowercased.
func normalizeToken(s string) (ledger.ScanToken, error) {
	// uuid.Parse is permissive (URN form, braces, bare hex); the QR
	// payload carries exactly the hyphenated 36-char form, so reject
	// everything else up front.
	if len(s) != 36 || s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return "", ledger.ErrInvalidToken
	}

	u, err := uuid.Parse(s)
	if err != nil {
		return "", ledger.ErrInvalidToken
	}
	if u.Version() != 4 || u.Variant() != uuid.RFC4122 {
		return "", ledger.ErrInvalidToken
	}

	return ledger.ScanToken(strings.ToLower(s)), nil
}
