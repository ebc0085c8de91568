package provisioning

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	// DefaultUsernamePrefix is prepended to every generated username
	DefaultUsernamePrefix = "anno_"

	usernameAlphabet   = "abcdefghijklmnopqrstuvwxyz0123456789"
	usernameSuffixLen  = 6
	passwordEntropyLen = 12
)

// Credentials are generated once per workflow run and never reused
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GenerateCredentials returns a username of prefix plus 6 characters drawn
// uniformly from [a-z0-9] and a URL-safe password encoding 12 random bytes.
func GenerateCredentials(prefix string) (Credentials, error) {
	username, err := generateUsername(prefix)
	if err != nil {
		return Credentials{}, err
	}
	password, err := generatePassword()
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Username: username, Password: password}, nil
}

func generateUsername(prefix string) (string, error) {
	max := big.NewInt(int64(len(usernameAlphabet)))
	suffix := make([]byte, usernameSuffixLen)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate username: %w", err)
		}
		suffix[i] = usernameAlphabet[n.Int64()]
	}
	return prefix + string(suffix), nil
}

func generatePassword() (string, error) {
	b := make([]byte, passwordEntropyLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
