package wizard

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/annotation-study/registration/internal/registration"
)

const testSecret = "test-wizard-secret-that-is-32-chars!"

func newTestTokens(t *testing.T) *Tokens {
	t.Helper()
	tok, err := NewTokens(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}
	return tok
}

func demographics() registration.Demographics {
	return registration.Demographics{
		Languages:      []string{"Czech"},
		Age:            22,
		Nationality:    "Czech",
		NativeLanguage: "Czech",
		Education:      "Bachelor's degree",
		Consent:        true,
	}
}

func TestNewTokens_WeakSecret(t *testing.T) {
	if _, err := NewTokens("short", time.Hour); !errors.Is(err, ErrWeakSecret) {
		t.Errorf("NewTokens() error = %v, want ErrWeakSecret", err)
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateSecret()
	if len(a) != 64 || a == b {
		t.Errorf("GenerateSecret() = %q, %q", a, b)
	}
	if _, err := NewTokens(a, 0); err != nil {
		t.Errorf("generated secret rejected: %v", err)
	}
}

func TestIssueVerify(t *testing.T) {
	tok := newTestTokens(t)
	s, err := tok.Issue(StepInstructions, demographics())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := tok.Verify(s, StepInstructions, StepCredentials)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Step != StepInstructions || claims.Demographics.Languages[0] != "Czech" || claims.Demographics.Age != 22 {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Error("token has no id")
	}
}

func TestVerify_WrongStep(t *testing.T) {
	tok := newTestTokens(t)
	s, _ := tok.Issue(StepInstructions, demographics())
	if _, err := tok.Verify(s, StepCredentials); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Verify() error = %v, want ErrWrongStep", err)
	}
}

func TestVerify_Rejects(t *testing.T) {
	tok := newTestTokens(t)
	other, _ := NewTokens("another-secret-that-is-also-32-chars", time.Hour)
	foreign, _ := other.Issue(StepCredentials, demographics())

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &StepClaims{
		Step: StepCredentials,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "old",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredString, _ := expired.SignedString([]byte(testSecret))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &StepClaims{
		Step: StepCredentials,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "none",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noneString, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, s := range map[string]string{
		"garbage":        "not-a-token",
		"foreign secret": foreign,
		"expired":        expiredString,
		"alg none":       noneString,
		"empty":          "",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := tok.Verify(s, StepCredentials); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestConsume_SingleUse(t *testing.T) {
	tok := newTestTokens(t)
	s, _ := tok.Issue(StepCredentials, demographics())

	claims, err := tok.Verify(s, StepCredentials)
	if err != nil {
		t.Fatal(err)
	}
	if err := tok.Consume(claims); err != nil {
		t.Fatalf("first Consume() error = %v", err)
	}
	if err := tok.Consume(claims); !errors.Is(err, ErrTokenConsumed) {
		t.Errorf("second Consume() error = %v, want ErrTokenConsumed", err)
	}
	if _, err := tok.Verify(s, StepCredentials); !errors.Is(err, ErrTokenConsumed) {
		t.Errorf("Verify() after consume error = %v, want ErrTokenConsumed", err)
	}
}

func TestConsume_Concurrent(t *testing.T) {
	tok := newTestTokens(t)
	s, _ := tok.Issue(StepCredentials, demographics())
	claims, _ := tok.Verify(s, StepCredentials)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tok.Consume(claims) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Errorf("successful consumes = %d, want 1", wins.Load())
	}
}
