// Package models - registration.go defines the Registration row stored by the
// postgres sink, one per provisioning run.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/annotation-study/registration/internal/registration"
)

// Registration is one row of the registrations table
type Registration struct {
	ID                 string    `db:"id" json:"id"`
	Languages          string    `db:"languages" json:"languages"` // display names joined with ", "
	Age                int       `db:"age" json:"age"`
	Nationality        string    `db:"nationality" json:"nationality"`
	NativeLanguage     string    `db:"native_language" json:"native_language"`
	Education          string    `db:"education" json:"education"`
	Email              string    `db:"email" json:"email"`
	RegisteredAt       time.Time `db:"registered_at" json:"registered_at"`
	GeneratedUsername  string    `db:"generated_username" json:"generated_username"`
	APIReachable       bool      `db:"api_reachable" json:"api_reachable"`
	AccountCreated     bool      `db:"account_created" json:"account_created"`
	ProjectsAssigned   int       `db:"projects_assigned" json:"projects_assigned"`
	ProjectAssignments []byte    `db:"project_assignments" json:"-"` // JSONB array of assignments
	PasswordSealed     *string   `db:"password_sealed" json:"-"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// RegistrationFromRecord flattens a record into a row
func RegistrationFromRecord(rec *registration.Record) (*Registration, error) {
	assignments := rec.Assignments
	if assignments == nil {
		assignments = []registration.Assignment{}
	}
	encoded, err := json.Marshal(assignments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode project assignments: %w", err)
	}

	row := &Registration{
		ID:                 rec.ID,
		Languages:          strings.Join(rec.Languages, ", "),
		Age:                rec.Age,
		Nationality:        rec.Nationality,
		NativeLanguage:     rec.NativeLanguage,
		Education:          rec.Education,
		Email:              rec.Email,
		RegisteredAt:       rec.RegisteredAt,
		GeneratedUsername:  rec.Username,
		APIReachable:       rec.Reachable,
		AccountCreated:     rec.AccountCreated,
		ProjectsAssigned:   rec.ProjectsAssigned(),
		ProjectAssignments: encoded,
	}
	if rec.PasswordSealed != "" {
		sealed := rec.PasswordSealed
		row.PasswordSealed = &sealed
	}
	return row, nil
}

// Record converts the row back into a registration record
func (r *Registration) Record() (*registration.Record, error) {
	rec := &registration.Record{
		ID:             r.ID,
		Age:            r.Age,
		Nationality:    r.Nationality,
		NativeLanguage: r.NativeLanguage,
		Education:      r.Education,
		Email:          r.Email,
		RegisteredAt:   r.RegisteredAt.UTC(),
		Username:       r.GeneratedUsername,
		Reachable:      r.APIReachable,
		AccountCreated: r.AccountCreated,
	}
	if r.Languages != "" {
		rec.Languages = strings.Split(r.Languages, ", ")
	}
	if len(r.ProjectAssignments) > 0 {
		if err := json.Unmarshal(r.ProjectAssignments, &rec.Assignments); err != nil {
			return nil, fmt.Errorf("failed to decode project assignments for %s: %w", r.ID, err)
		}
	}
	if r.PasswordSealed != nil {
		rec.PasswordSealed = *r.PasswordSealed
	}
	return rec, nil
}
