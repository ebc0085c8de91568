// Package wizard - tokens.go issues and verifies the signed step tokens that
// carry a registrant's answers between wizard steps, so the server keeps no
// session state.
package wizard

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/annotation-study/registration/internal/registration"
)

// Step is the wizard page a token unlocks
type Step int

const (
	// StepInstructions follows accepted demographics
	StepInstructions Step = 2
	// StepCredentials follows a passed comprehension check
	StepCredentials Step = 3
)

const (
	issuer     = "annotation-registration"
	defaultTTL = 2 * time.Hour
	minSecret  = 32
)

var (
	ErrInvalidToken  = errors.New("invalid or expired step token")
	ErrWrongStep     = errors.New("step token is not valid for this step")
	ErrTokenConsumed = errors.New("step token has already been used")
	ErrWeakSecret    = fmt.Errorf("wizard token secret must be at least %d characters", minSecret)
)

// StepClaims is the JWT payload of a step token
type StepClaims struct {
	Step         Step                      `json:"step"`
	Demographics registration.Demographics `json:"demographics"`
	jwt.RegisteredClaims
}

// Tokens signs step tokens with HS256 and remembers consumed token ids until
// they expire
type Tokens struct {
	secret   []byte
	ttl      time.Duration
	consumed *gocache.Cache
}

// NewTokens creates a token service. A zero ttl defaults to two hours.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if len(secret) < minSecret {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Tokens{
		secret:   []byte(secret),
		ttl:      ttl,
		consumed: gocache.New(ttl, 10*time.Minute),
	}, nil
}

// GenerateSecret returns a random hex secret for development use. Tokens
// signed with it do not survive a restart.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Issue signs a token unlocking step for the given demographics
func (t *Tokens) Issue(step Step, d registration.Demographics) (string, error) {
	now := time.Now()
	claims := &StepClaims{
		Step:         step,
		Demographics: d,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses a token and checks that it unlocks one of the accepted steps
func (t *Tokens) Verify(tokenString string, accept ...Step) (*StepClaims, error) {
	claims := &StepClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if !slices.Contains(accept, claims.Step) {
		return nil, ErrWrongStep
	}
	if _, used := t.consumed.Get(claims.ID); used {
		return nil, ErrTokenConsumed
	}
	return claims, nil
}

// Consume marks the token as used. Only the first call for a token id
// succeeds.
func (t *Tokens) Consume(claims *StepClaims) error {
	ttl := t.ttl
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	if err := t.consumed.Add(claims.ID, struct{}{}, ttl); err != nil {
		return ErrTokenConsumed
	}
	return nil
}
