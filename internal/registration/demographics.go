// Package registration holds the registrant's answers, their validation and
// the flat record written to the registration log.
package registration

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Demographics are the answers collected on the first wizard step
type Demographics struct {
	Languages      []string  `json:"languages"`
	Age            int       `json:"age"`
	Nationality    string    `json:"nationality"`
	NativeLanguage string    `json:"native_language"`
	Education      string    `json:"education"`
	Email          string    `json:"email,omitempty"`
	Consent        bool      `json:"consent"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// Options are the allowed values the answers are checked against
type Options struct {
	Languages       []string
	Nationalities   []string
	NativeLanguages []string
	EducationLevels []string
	MinAge          int
	MaxAge          int
}

// Normalize trims free-text input in place.
func (d *Demographics) Normalize() {
	d.Email = strings.TrimSpace(d.Email)
	d.Nationality = strings.TrimSpace(d.Nationality)
	d.NativeLanguage = strings.TrimSpace(d.NativeLanguage)
	d.Education = strings.TrimSpace(d.Education)
}

// Validate returns one message per problem, in form order. An empty result
// means the answers are acceptable.
func (d *Demographics) Validate(opts Options) []string {
	var errs []string

	if len(d.Languages) == 0 {
		errs = append(errs, "Please select at least one language.")
	}
	for _, l := range d.Languages {
		if !slices.Contains(opts.Languages, l) {
			errs = append(errs, fmt.Sprintf("%q is not one of the study languages.", l))
		}
	}
	if d.Age < opts.MinAge || d.Age > opts.MaxAge {
		errs = append(errs, fmt.Sprintf("Age must be between %d and %d.", opts.MinAge, opts.MaxAge))
	}
	if !slices.Contains(opts.Nationalities, d.Nationality) {
		errs = append(errs, "Please select your nationality.")
	}
	if !slices.Contains(opts.EducationLevels, d.Education) {
		errs = append(errs, "Please select your education level.")
	}
	if !slices.Contains(opts.NativeLanguages, d.NativeLanguage) {
		errs = append(errs, "Please select your native language.")
	}
	if d.Email != "" && !strings.Contains(d.Email, "@") {
		errs = append(errs, "The email address entered does not appear to be valid.")
	}
	if !d.Consent {
		errs = append(errs, "You must agree to the consent statement to proceed.")
	}

	return errs
}
