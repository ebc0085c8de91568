// Package crypto seals generated platform passwords before they are written to
// a registration record, so a copied spreadsheet or CSV file does not leak
// working credentials. Sealing uses AES-256-GCM; administrators recover a
// password with cmd/unseal and the same ENCRYPTION_KEY.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrKeyLengthInvalid is returned when a key is not exactly 32 bytes
	ErrKeyLengthInvalid = errors.New("crypto: key must be exactly 32 bytes for AES-256")
	// ErrSealedValueCorrupted is returned when a sealed value has no version
	// prefix, is not valid base64 or is shorter than a nonce.
	ErrSealedValueCorrupted = errors.New("crypto: sealed value is corrupted")
	// ErrDecryptionFailed is returned when GCM authentication fails, which means
	// a wrong key or a modified value.
	ErrDecryptionFailed = errors.New("crypto: decryption operation failed")
	// ErrSaltTooShort is returned when the provided salt is fewer than 16 bytes.
	ErrSaltTooShort = errors.New("crypto: salt must be at least 16 bytes")
	// ErrEmptyKey is returned by FromKeyMaterial when no key material is configured.
	ErrEmptyKey = errors.New("crypto: key material is empty")
)

// sealedPrefix marks the format of a sealed value in a record column
const sealedPrefix = "v1."

// passphraseSalt is the fixed salt used when ENCRYPTION_KEY is a passphrase
// rather than raw key bytes. Changing it makes existing sealed values unreadable.
var passphraseSalt = []byte("annotation-registration/password-seal/v1")

const (
	passphraseIterations = 210000
	minIterations        = 10000
)

// Sealer encrypts and decrypts generated passwords
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a sealer with a 32-byte key
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != 32 {
		return nil, ErrKeyLengthInvalid
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// DeriveSealer stretches a passphrase into a key with PBKDF2-SHA256.
// Iteration counts below 10000 are raised to the default.
func DeriveSealer(passphrase string, salt []byte, iterations int) (*Sealer, error) {
	if len(salt) < 16 {
		return nil, ErrSaltTooShort
	}
	if iterations < minIterations {
		iterations = passphraseIterations
	}
	return NewSealer(pbkdf2.Key([]byte(passphrase), salt, iterations, 32, sha256.New))
}

// FromKeyMaterial builds a sealer from the ENCRYPTION_KEY value. Accepted forms,
// tried in order: base64 (standard or URL alphabet) of 32 bytes as printed by
// scripts/generate-key.go, a raw 32-byte string, or any other passphrase which
// is stretched with PBKDF2.
func FromKeyMaterial(material string) (*Sealer, error) {
	if material == "" {
		return nil, ErrEmptyKey
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if key, err := enc.DecodeString(material); err == nil && len(key) == 32 {
			return NewSealer(key)
		}
	}
	if len(material) == 32 {
		return NewSealer([]byte(material))
	}
	return DeriveSealer(material, passphraseSalt, passphraseIterations)
}

// Seal encrypts password under a fresh random nonce. The empty password seals
// to the empty string so records without credentials keep an empty column.
func (s *Sealer) Seal(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(password), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	encoded, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", ErrSealedValueCorrupted
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrSealedValueCorrupted
	}
	n := s.aead.NonceSize()
	if len(raw) < n {
		return "", ErrSealedValueCorrupted
	}
	plain, err := s.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}

// GenerateKey creates a random 32-byte key
func GenerateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}
