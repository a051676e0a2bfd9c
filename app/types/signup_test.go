package types

import (
	"strings"
	"testing"
)

func TestSignUpRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     SignUpRequest
		wantErr bool
	}{
		{"valid", SignUpRequest{Username: "alice", Email: "alice@x.com", Password: "secret"}, false},
		{"blank username", SignUpRequest{Username: "", Email: "alice@x.com", Password: "secret"}, true},
		{"short username", SignUpRequest{Username: "al", Email: "alice@x.com", Password: "secret"}, true},
		{"long username", SignUpRequest{Username: strings.Repeat("a", 51), Email: "alice@x.com", Password: "secret"}, true},
		{"max username", SignUpRequest{Username: strings.Repeat("a", 50), Email: "alice@x.com", Password: "secret"}, false},
		{"blank email", SignUpRequest{Username: "alice", Email: "", Password: "secret"}, true},
		{"bad email", SignUpRequest{Username: "alice", Email: "not-an-email", Password: "secret"}, true},
		{"blank password", SignUpRequest{Username: "alice", Email: "alice@x.com"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestSignUpRequestNormalize(t *testing.T) {
	req := SignUpRequest{Username: "  alice ", Email: " Alice@X.com "}
	req.Normalize()
	if req.Username != "alice" || req.Email != "alice@x.com" {
		t.Fatalf("unexpected normalized request: %+v", req)
	}

	blank := SignUpRequest{Username: "   ", Email: "alice@x.com", Password: "secret"}
	blank.Normalize()
	if err := blank.Validate(); err == nil {
		t.Fatalf("expected whitespace-only username to be rejected")
	}
}

func TestVerifyRequestValidate(t *testing.T) {
	if err := (VerifyRequest{}).Validate(); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if err := (VerifyRequest{Token: "abc"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
