// Package provisioning drives account setup for one registrant: credentials,
// platform account, project memberships and the registration record.
package provisioning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/annotation-study/registration/internal/languages"
	"github.com/annotation-study/registration/internal/platform"
	"github.com/annotation-study/registration/internal/registration"
	"github.com/annotation-study/registration/internal/telemetry"
)

// Run outcomes used as the provisioning_runs_total label
const (
	OutcomeComplete       = "complete"
	OutcomePartial        = "partial"
	OutcomeAccountPending = "account_pending"
	OutcomeUnreachable    = "unreachable"
)

// PlatformClient is the subset of the platform client the workflow drives
type PlatformClient interface {
	Ping(ctx context.Context) bool
	CreateUser(ctx context.Context, username, password, email string) bool
	AddUserToProject(ctx context.Context, username, projectName, role string) bool
}

// ClientFactory builds a fresh client for each run
type ClientFactory func() PlatformClient

// Recorder persists registration records
type Recorder interface {
	Record(ctx context.Context, rec *registration.Record) error
}

// Sealer encrypts the generated password before it is recorded
type Sealer interface {
	Seal(plaintext string) (string, error)
}

// Result is the outcome of one run. Reachable false implies UserCreated false,
// and UserCreated false implies no assignments.
type Result struct {
	Credentials
	Reachable   bool                      `json:"reachable"`
	UserCreated bool                      `json:"user_created"`
	Assignments []registration.Assignment `json:"assignments"`
	RecordID    string                    `json:"registration_id"`
	// Record is the entry submitted to the recorder
	Record *registration.Record `json:"-"`
}

// Outcome labels the run for metrics and logs
func (r Result) Outcome() string {
	switch {
	case !r.Reachable:
		return OutcomeUnreachable
	case !r.UserCreated:
		return OutcomeAccountPending
	}
	for _, a := range r.Assignments {
		if !a.Assigned {
			return OutcomePartial
		}
	}
	return OutcomeComplete
}

// Workflow provisions registrants. It keeps no state between runs and is safe
// for concurrent use.
type Workflow struct {
	newClient      ClientFactory
	table          *languages.Table
	recorder       Recorder
	sealer         Sealer
	usernamePrefix string
	role           string
	logger         *slog.Logger
}

// Option customises a Workflow
type Option func(*Workflow)

// WithSealer stores an encrypted copy of each password in the record
func WithSealer(s Sealer) Option {
	return func(w *Workflow) { w.sealer = s }
}

// WithUsernamePrefix overrides DefaultUsernamePrefix
func WithUsernamePrefix(prefix string) Option {
	return func(w *Workflow) { w.usernamePrefix = prefix }
}

// WithRole overrides the project role granted to new accounts
func WithRole(role string) Option {
	return func(w *Workflow) { w.role = role }
}

// NewWorkflow creates a workflow
func NewWorkflow(factory ClientFactory, table *languages.Table, recorder Recorder, opts ...Option) *Workflow {
	w := &Workflow{
		newClient:      factory,
		table:          table,
		recorder:       recorder,
		usernamePrefix: DefaultUsernamePrefix,
		role:           platform.DefaultRole,
		logger:         slog.Default().With("component", "provisioning"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Provision runs the workflow for one registrant. The only errors returned are
// an unknown language in the selection, detected before any network call, and
// a failure of the system random source. Platform and recorder failures show
// up as false fields in the result.
//
// Cancellation of ctx is ignored once the run starts: an account created on
// the platform must always be followed by the record write.
func (w *Workflow) Provision(ctx context.Context, d registration.Demographics) (Result, error) {
	ctx = context.WithoutCancel(ctx)

	langs, err := w.table.Resolve(d.Languages)
	if err != nil {
		return Result{}, fmt.Errorf("provisioning aborted: %w", err)
	}

	creds, err := GenerateCredentials(w.usernamePrefix)
	if err != nil {
		return Result{}, err
	}

	res := Result{Credentials: creds, Assignments: []registration.Assignment{}}
	client := w.newClient()

	res.Reachable = client.Ping(ctx)
	if res.Reachable {
		res.UserCreated = client.CreateUser(ctx, creds.Username, creds.Password, d.Email)
	}
	if res.UserCreated {
		for _, l := range langs {
			ok := client.AddUserToProject(ctx, creds.Username, l.Project, w.role)
			res.Assignments = append(res.Assignments, registration.Assignment{
				Language: l.Name,
				Project:  l.Project,
				Assigned: ok,
			})
		}
	}

	res.Record = w.record(ctx, d, res)
	res.RecordID = res.Record.ID

	outcome := res.Outcome()
	telemetry.ProvisioningRunsTotal.WithLabelValues(outcome).Inc()
	w.logger.Info("provisioning finished",
		"username", res.Username,
		"outcome", outcome,
		"reachable", res.Reachable,
		"user_created", res.UserCreated,
		"assignments", len(res.Assignments))

	return res, nil
}

// record submits exactly one record and absorbs every failure.
func (w *Workflow) record(ctx context.Context, d registration.Demographics, res Result) *registration.Record {
	outcome := registration.Outcome{
		Username:       res.Username,
		Reachable:      res.Reachable,
		AccountCreated: res.UserCreated,
		Assignments:    res.Assignments,
	}
	if w.sealer != nil {
		sealed, err := w.sealer.Seal(res.Password)
		if err != nil {
			w.logger.Error("failed to seal password, recording without it", "username", res.Username, "error", err)
		} else {
			outcome.PasswordSealed = sealed
		}
	}

	rec := registration.NewRecord(d, outcome)
	if w.recorder == nil {
		w.logger.Warn("no recorder configured, registration not saved", "username", res.Username)
		return rec
	}
	if err := w.recorder.Record(ctx, rec); err != nil {
		w.logger.Error("registration record not saved", "registration_id", rec.ID, "username", res.Username, "error", err)
	}
	return rec
}
