package provisioning

import (
	"encoding/base64"
	"regexp"
	"testing"
)

var usernamePattern = regexp.MustCompile(`^anno_[a-z0-9]{6}$`)

func TestGenerateCredentials(t *testing.T) {
	c, err := GenerateCredentials(DefaultUsernamePrefix)
	if err != nil {
		t.Fatalf("GenerateCredentials() error = %v", err)
	}
	if !usernamePattern.MatchString(c.Username) {
		t.Errorf("Username = %q, want match %s", c.Username, usernamePattern)
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Password)
	if err != nil {
		t.Fatalf("Password %q is not raw URL-safe base64: %v", c.Password, err)
	}
	if len(raw) != passwordEntropyLen {
		t.Errorf("Password encodes %d bytes, want %d", len(raw), passwordEntropyLen)
	}
}

func TestGenerateCredentials_CustomPrefix(t *testing.T) {
	c, err := GenerateCredentials("study2_")
	if err != nil {
		t.Fatalf("GenerateCredentials() error = %v", err)
	}
	if !regexp.MustCompile(`^study2_[a-z0-9]{6}$`).MatchString(c.Username) {
		t.Errorf("Username = %q", c.Username)
	}
}

func TestGenerateCredentials_Distinct(t *testing.T) {
	const n = 10000
	usernames := make(map[string]struct{}, n)
	passwords := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		c, err := GenerateCredentials(DefaultUsernamePrefix)
		if err != nil {
			t.Fatalf("GenerateCredentials() error = %v", err)
		}
		if !usernamePattern.MatchString(c.Username) {
			t.Fatalf("Username = %q, want match %s", c.Username, usernamePattern)
		}
		usernames[c.Username] = struct{}{}
		passwords[c.Password] = struct{}{}
	}
	// 36^6 possible suffixes: a handful of birthday collisions across 10k
	// draws is expected, a systematic bias is not.
	if len(usernames) < n-10 {
		t.Errorf("%d distinct usernames out of %d", len(usernames), n)
	}
	if len(passwords) != n {
		t.Errorf("%d distinct passwords out of %d", len(passwords), n)
	}
}
