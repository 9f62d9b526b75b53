package scan_test

import (
	"errors"
	"testing"

	"github.com/fieldloop/rewards-engine/ledger"
	"github.com/fieldloop/rewards-engine/scan"
)

const validToken = "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"

func newTestValidator() *scan.Validator {
	return scan.NewValidator(scan.DefaultDomains())
}

func TestValidator_AcceptsBothURLShapes(t *testing.T) {
	v := newTestValidator()

	cases := []struct {
		name string
		raw  string
	}{
		{"canonical", "https://rewards.fieldloop.com/p/" + validToken},
		{"short link", "https://fldp.io/s/" + validToken},
		{"http scheme", "http://rewards.fieldloop.com/p/" + validToken},
		{"trailing slash", "https://fldp.io/s/" + validToken + "/"},
		{"uppercase host", "https://REWARDS.FIELDLOOP.COM/p/" + validToken},
		{"surrounding whitespace", "  https://fldp.io/s/" + validToken + "  "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := v.Validate(tc.raw)
			if err != nil {
				t.Fatalf("Validate(%q) failed: %v", tc.raw, err)
			}
			if token != ledger.ScanToken(validToken) {
				t.Errorf("token = %q, want %q", token, validToken)
			}
		})
	}
}

func TestValidator_NormalizesTokenCase(t *testing.T) {
	// GIVEN: A QR with uppercase hex in the token
	// WHEN: Validated
	// THEN: The token comes back lowercase so guard lookups see one
	//       canonical form

	v := newTestValidator()

	upper := "A1B2C3D4-E5F6-4A7B-8C9D-0E1F2A3B4C5D"
	token, err := v.Validate("https://rewards.fieldloop.com/p/" + upper)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if token != ledger.ScanToken(validToken) {
		t.Errorf("token = %q, want lowercase %q", token, validToken)
	}
}

func TestValidator_RejectsMalformedCodes(t *testing.T) {
	v := newTestValidator()

	cases := []struct {
		name string
		raw  string
	}{
		{"not a url", "not-a-url"},
		{"empty", ""},
		{"bare token", validToken},
		{"wrong host", "https://evil.example.com/p/" + validToken},
		{"wrong prefix on canonical", "https://rewards.fieldloop.com/s/" + validToken},
		{"wrong prefix on short", "https://fldp.io/p/" + validToken},
		{"extra path segment", "https://rewards.fieldloop.com/p/" + validToken + "/extra"},
		{"missing token", "https://rewards.fieldloop.com/p/"},
		{"ftp scheme", "ftp://rewards.fieldloop.com/p/" + validToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(tc.raw)
			if !errors.Is(err, ledger.ErrMalformedCode) {
				t.Errorf("Validate(%q) error = %v, want ErrMalformedCode", tc.raw, err)
			}
		})
	}
}

func TestValidator_RejectsInvalidTokens(t *testing.T) {
	// Well-formed URLs whose token segment is not a v4 UUID.
	v := newTestValidator()

	cases := []struct {
		name  string
		token string
	}{
		{"not hex", "zzzzzzzz-zzzz-4zzz-8zzz-zzzzzzzzzzzz"},
		{"too short", "a1b2c3d4-e5f6-4a7b-8c9d"},
		{"version 1", "a1b2c3d4-e5f6-1a7b-8c9d-0e1f2a3b4c5d"},
		{"wrong variant", "a1b2c3d4-e5f6-4a7b-cc9d-0e1f2a3b4c5d"},
		{"missing hyphens", "a1b2c3d4e5f64a7b8c9d0e1f2a3b4c5d"},
		{"urn form", "urn:uuid:" + validToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate("https://rewards.fieldloop.com/p/" + tc.token)
			if !errors.Is(err, ledger.ErrInvalidToken) {
				t.Errorf("token %q: error = %v, want ErrInvalidToken", tc.token, err)
			}
		})
	}
}

func TestValidator_CustomDomains(t *testing.T) {
	v := scan.NewValidator(scan.Domains{
		CanonicalHost: "loyalty.example.org",
		ShortHost:     "loy.al",
	})

	if _, err := v.Validate("https://loyalty.example.org/p/" + validToken); err != nil {
		t.Errorf("configured canonical host rejected: %v", err)
	}
	if _, err := v.Validate("https://rewards.fieldloop.com/p/" + validToken); !errors.Is(err, ledger.ErrMalformedCode) {
		t.Errorf("default host should be rejected under custom domains, got %v", err)
	}
}
