package registration

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Header is the column order of a flattened record. Sinks that keep a header
// row write exactly these names.
var Header = []string{
	"registration_id",
	"languages",
	"age",
	"nationality",
	"native_language",
	"education",
	"email",
	"registered_at",
	"generated_username",
	"api_reachable",
	"account_created",
	"projects_assigned",
	"project_assignments",
	"password_sealed",
}

const languageSeparator = ", "

// ErrMalformedRecord is returned by ParseRecord for rows that do not match Header
var ErrMalformedRecord = errors.New("malformed registration record")

// Assignment is the outcome of granting one project membership
type Assignment struct {
	Language string `json:"language"`
	Project  string `json:"project"`
	Assigned bool   `json:"assigned"`
}

// Record is the flat, append-only log entry for one workflow run
type Record struct {
	ID             string       `json:"registration_id" db:"id"`
	Languages      []string     `json:"languages"`
	Age            int          `json:"age"`
	Nationality    string       `json:"nationality"`
	NativeLanguage string       `json:"native_language"`
	Education      string       `json:"education"`
	Email          string       `json:"email"`
	RegisteredAt   time.Time    `json:"registered_at"`
	Username       string       `json:"generated_username"`
	Reachable      bool         `json:"api_reachable"`
	AccountCreated bool         `json:"account_created"`
	Assignments    []Assignment `json:"project_assignments"`
	PasswordSealed string       `json:"password_sealed,omitempty"`
}

// Outcome is the provisioning summary copied into a record
type Outcome struct {
	Username       string
	Reachable      bool
	AccountCreated bool
	Assignments    []Assignment
	PasswordSealed string
}

// NewRecord combines answers and outcome into a record with a fresh id.
func NewRecord(d Demographics, o Outcome) *Record {
	registeredAt := d.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now()
	}
	return &Record{
		ID:             uuid.New().String(),
		Languages:      append([]string(nil), d.Languages...),
		Age:            d.Age,
		Nationality:    d.Nationality,
		NativeLanguage: d.NativeLanguage,
		Education:      d.Education,
		Email:          d.Email,
		RegisteredAt:   registeredAt.UTC(),
		Username:       o.Username,
		Reachable:      o.Reachable,
		AccountCreated: o.AccountCreated,
		Assignments:    append([]Assignment(nil), o.Assignments...),
		PasswordSealed: o.PasswordSealed,
	}
}

// ProjectsAssigned counts the successful assignments
func (r *Record) ProjectsAssigned() int {
	n := 0
	for _, a := range r.Assignments {
		if a.Assigned {
			n++
		}
	}
	return n
}

// Fields returns the record values in Header order.
func (r *Record) Fields() []string {
	assignments := r.Assignments
	if assignments == nil {
		assignments = []Assignment{}
	}
	// Marshalling a slice of plain structs cannot fail.
	encoded, _ := json.Marshal(assignments)

	return []string{
		r.ID,
		strings.Join(r.Languages, languageSeparator),
		strconv.Itoa(r.Age),
		r.Nationality,
		r.NativeLanguage,
		r.Education,
		r.Email,
		r.RegisteredAt.UTC().Format(time.RFC3339),
		r.Username,
		strconv.FormatBool(r.Reachable),
		strconv.FormatBool(r.AccountCreated),
		strconv.Itoa(r.ProjectsAssigned()),
		string(encoded),
		r.PasswordSealed,
	}
}

// ParseRecord rebuilds a record from a header and a values row as written by
// Fields. Columns are matched by name, so reordered sheets still parse.
func ParseRecord(header, values []string) (*Record, error) {
	if len(header) != len(values) {
		return nil, fmt.Errorf("%w: %d columns, %d values", ErrMalformedRecord, len(header), len(values))
	}
	col := make(map[string]string, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = values[i]
	}
	for _, h := range Header {
		if _, ok := col[h]; !ok && h != "password_sealed" {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedRecord, h)
		}
	}

	r := &Record{
		ID:             col["registration_id"],
		Nationality:    col["nationality"],
		NativeLanguage: col["native_language"],
		Education:      col["education"],
		Email:          col["email"],
		Username:       col["generated_username"],
		PasswordSealed: col["password_sealed"],
	}

	if langs := col["languages"]; langs != "" {
		r.Languages = strings.Split(langs, languageSeparator)
	}

	var err error
	if r.Age, err = strconv.Atoi(col["age"]); err != nil {
		return nil, fmt.Errorf("%w: age: %v", ErrMalformedRecord, err)
	}
	if r.RegisteredAt, err = time.Parse(time.RFC3339, col["registered_at"]); err != nil {
		return nil, fmt.Errorf("%w: registered_at: %v", ErrMalformedRecord, err)
	}
	if r.Reachable, err = strconv.ParseBool(col["api_reachable"]); err != nil {
		return nil, fmt.Errorf("%w: api_reachable: %v", ErrMalformedRecord, err)
	}
	if r.AccountCreated, err = strconv.ParseBool(col["account_created"]); err != nil {
		return nil, fmt.Errorf("%w: account_created: %v", ErrMalformedRecord, err)
	}
	if raw := col["project_assignments"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.Assignments); err != nil {
			return nil, fmt.Errorf("%w: project_assignments: %v", ErrMalformedRecord, err)
		}
	}

	return r, nil
}
