package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func testSealer(t *testing.T, b byte) *Sealer {
	t.Helper()
	s, err := NewSealer(bytes.Repeat([]byte{b}, 32))
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// construction
// ---------------------------------------------------------------------------

func TestNewSealer_KeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := NewSealer(make([]byte, n)); !errors.Is(err, ErrKeyLengthInvalid) {
			t.Errorf("NewSealer(%d bytes) error = %v, want ErrKeyLengthInvalid", n, err)
		}
	}
}

func TestNewSealer_CopiesKey(t *testing.T) {
	key := bytes.Repeat([]byte{3}, 32)
	s, err := NewSealer(key)
	if err != nil {
		t.Fatal(err)
	}
	sealed, _ := s.Seal("Xk3_pw")
	for i := range key {
		key[i] = 0
	}
	if got, err := s.Open(sealed); err != nil || got != "Xk3_pw" {
		t.Errorf("Open() after caller mutated key = %q, %v", got, err)
	}
}

func TestDeriveSealer(t *testing.T) {
	salt := bytes.Repeat([]byte{1}, 16)

	if _, err := DeriveSealer("pass", salt[:15], minIterations); !errors.Is(err, ErrSaltTooShort) {
		t.Errorf("short salt error = %v, want ErrSaltTooShort", err)
	}

	a, err := DeriveSealer("correct horse", salt, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := DeriveSealer("correct horse", salt, passphraseIterations)
	if err != nil {
		t.Fatal(err)
	}
	sealed, _ := a.Seal("pw")
	if got, err := b.Open(sealed); err != nil || got != "pw" {
		t.Errorf("low iteration count should fall back to the default: %q, %v", got, err)
	}

	other, _ := DeriveSealer("battery staple", salt, passphraseIterations)
	if _, err := other.Open(sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("other passphrase error = %v, want ErrDecryptionFailed", err)
	}
}

// ---------------------------------------------------------------------------
// Seal / Open
// ---------------------------------------------------------------------------

func TestSealOpen(t *testing.T) {
	s := testSealer(t, 7)
	for _, pw := range []string{"a", "Zm9vYmFyLXBhc3N3", "ünïcødé-pässwörd", strings.Repeat("x", 4096)} {
		sealed, err := s.Seal(pw)
		if err != nil {
			t.Fatalf("Seal() error = %v", err)
		}
		if !strings.HasPrefix(sealed, sealedPrefix) {
			t.Errorf("Seal() = %q, missing %q prefix", sealed, sealedPrefix)
		}
		if len(pw) > 8 && strings.Contains(sealed, pw) {
			t.Errorf("Seal() output contains the password")
		}
		got, err := s.Open(sealed)
		if err != nil || got != pw {
			t.Errorf("Open(Seal(%q)) = %q, %v", pw[:min(len(pw), 16)], got, err)
		}
	}
}

func TestSeal_EmptyPassword(t *testing.T) {
	s := testSealer(t, 7)
	sealed, err := s.Seal("")
	if err != nil || sealed != "" {
		t.Errorf("Seal(\"\") = %q, %v; want empty", sealed, err)
	}
	if got, err := s.Open(""); err != nil || got != "" {
		t.Errorf("Open(\"\") = %q, %v; want empty", got, err)
	}
}

func TestSeal_FreshNonce(t *testing.T) {
	s := testSealer(t, 7)
	a, _ := s.Seal("same")
	b, _ := s.Seal("same")
	if a == b {
		t.Error("sealing the same password twice produced identical values")
	}
}

func TestOpen_Errors(t *testing.T) {
	s := testSealer(t, 7)
	sealed, _ := s.Seal("pw")
	raw, _ := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	raw[len(raw)-1] ^= 0x01
	tampered := sealedPrefix + base64.RawURLEncoding.EncodeToString(raw)

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"no prefix", strings.TrimPrefix(sealed, sealedPrefix), ErrSealedValueCorrupted},
		{"bad base64", sealedPrefix + "!!!", ErrSealedValueCorrupted},
		{"shorter than nonce", sealedPrefix + base64.RawURLEncoding.EncodeToString([]byte("abc")), ErrSealedValueCorrupted},
		{"tampered", tampered, ErrDecryptionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Open(tt.input); !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := testSealer(t, 8).Open(sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Open() with wrong key error = %v, want ErrDecryptionFailed", err)
	}
}

// ---------------------------------------------------------------------------
// key material
// ---------------------------------------------------------------------------

func TestGenerateKey(t *testing.T) {
	a, err := GenerateKey()
	if err != nil || len(a) != 32 {
		t.Fatalf("GenerateKey() = %d bytes, %v", len(a), err)
	}
	b, _ := GenerateKey()
	if bytes.Equal(a, b) {
		t.Error("GenerateKey() returned the same key twice")
	}
}

func TestFromKeyMaterial(t *testing.T) {
	if _, err := FromKeyMaterial(""); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("empty material error = %v, want ErrEmptyKey", err)
	}

	key := []byte("0123456789abcdef0123456789abcdef")
	raw, err := FromKeyMaterial(string(key))
	if err != nil {
		t.Fatal(err)
	}
	sealed, _ := raw.Seal("pw")

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		s, err := FromKeyMaterial(enc.EncodeToString(key))
		if err != nil {
			t.Fatal(err)
		}
		if got, err := s.Open(sealed); err != nil || got != "pw" {
			t.Errorf("base64 form did not open raw-key value: %q, %v", got, err)
		}
	}

	p1, _ := FromKeyMaterial("a study passphrase")
	p2, _ := FromKeyMaterial("a study passphrase")
	sealed, _ = p1.Seal("pw")
	if got, err := p2.Open(sealed); err != nil || got != "pw" {
		t.Errorf("passphrase should derive the same key: %q, %v", got, err)
	}
}
