// Package platform is a client for the INCEpTION remote API (AERO v1).
//
// Platform setup required:
//  1. remote-api.enabled=true in settings.properties, then restart.
//  2. An admin account with ROLE_ADMIN, ROLE_USER and ROLE_REMOTE.
//
// Every exported operation reports success as a bool (or an empty result) and
// never returns an error: callers treat any failure as "manual provisioning
// required". The failure class is still visible through logs and the
// platform_requests_total metric.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/annotation-study/registration/internal/telemetry"
)

const (
	projectsPath = "/api/aero/v1/projects"
	usersPath    = "/api/aero/v1/users"

	// DefaultRole is the project role granted when none is configured
	DefaultRole = "ANNOTATOR"

	defaultPingTimeout    = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second

	// maxErrorBody caps how much of an error response is kept for logging
	maxErrorBody = 4096
)

// Operation names used as the metric label
const (
	opPing         = "ping"
	opListProjects = "list_projects"
	opCreateUser   = "create_user"
	opAddMember    = "add_member"
)

// Options configure a Client
type Options struct {
	BaseURL        string
	Username       string
	Password       string
	PingTimeout    time.Duration
	RequestTimeout time.Duration
	// HTTPClient overrides the transport; nil uses a fresh client
	HTTPClient *http.Client
}

// Client talks to one platform instance using HTTP basic authentication.
// A Client holds no state between calls.
type Client struct {
	baseURL        string
	username       string
	password       string
	pingTimeout    time.Duration
	requestTimeout time.Duration
	httpClient     *http.Client
	logger         *slog.Logger
}

// Project is one entry of the project list
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type projectListResponse struct {
	Body []Project `json:"body"`
}

type createUserRequest struct {
	// DisplayName and UIName carry the same value; platform releases differ in
	// which of the two names they read.
	DisplayName string   `json:"displayName"`
	UIName      string   `json:"uiName"`
	Password    string   `json:"password"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Enabled     bool     `json:"enabled"`
}

type addMemberRequest struct {
	User string `json:"user"`
	Role string `json:"role"`
}

// NewClient creates a platform client
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		username:       opts.Username,
		password:       opts.Password,
		pingTimeout:    opts.PingTimeout,
		requestTimeout: opts.RequestTimeout,
		httpClient:     opts.HTTPClient,
		logger:         slog.Default().With("component", "platform"),
	}
	if c.pingTimeout <= 0 {
		c.pingTimeout = defaultPingTimeout
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = defaultRequestTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

// BaseURL returns the platform URL the client was built for
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping reports whether the platform answers the project list endpoint without
// a server error. Client errors such as 401 still count as reachable.
func (c *Client) Ping(ctx context.Context) bool {
	start := time.Now()
	err := c.ping(ctx)
	c.observe(opPing, start, err)
	if err != nil {
		c.logger.Warn("platform unreachable", "url", c.baseURL, "error", err)
		return false
	}
	return true
}

func (c *Client) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, projectsPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode >= http.StatusInternalServerError {
		return NewAPIError(resp.StatusCode, "", ErrUnexpectedStatus)
	}
	return nil
}

// ListProjects returns every project visible to the admin account. Any failure
// yields an empty list, indistinguishable from a platform without projects.
func (c *Client) ListProjects(ctx context.Context) []Project {
	start := time.Now()
	projects, err := c.listProjects(ctx)
	c.observe(opListProjects, start, err)
	if err != nil {
		c.logger.Error("failed to list projects", "path", projectsPath, "error", err)
		return []Project{}
	}
	return projects
}

func (c *Client) listProjects(ctx context.Context) ([]Project, error) {
	var out projectListResponse
	if err := c.doJSON(ctx, http.MethodGet, projectsPath, nil, &out); err != nil {
		return nil, err
	}
	if out.Body == nil {
		return []Project{}, nil
	}
	return out.Body, nil
}

// FindProjectID scans the project list for an exact, case-sensitive name match.
func (c *Client) FindProjectID(ctx context.Context, name string) (int64, bool) {
	for _, p := range c.ListProjects(ctx) {
		if p.Name == name {
			return p.ID, true
		}
	}
	c.logger.Warn("project not found", "project", name)
	return 0, false
}

// CreateUser creates an enabled account with ROLE_USER. False means the
// account must be set up manually; it is not a transient fault.
func (c *Client) CreateUser(ctx context.Context, username, password, email string) bool {
	payload := createUserRequest{
		DisplayName: username,
		UIName:      username,
		Password:    password,
		Email:       email,
		Roles:       []string{"ROLE_USER"},
		Enabled:     true,
	}

	start := time.Now()
	err := c.doJSON(ctx, http.MethodPost, usersPath, payload, nil)
	c.observe(opCreateUser, start, err)
	if err != nil {
		c.logger.Warn("user creation failed, manual setup needed", "username", username, "error", err)
		return false
	}
	c.logger.Info("user created", "username", username)
	return true
}

// AddUserToProject grants role on the named project. An unknown project name
// returns false without issuing the membership request.
func (c *Client) AddUserToProject(ctx context.Context, username, projectName, role string) bool {
	if role == "" {
		role = DefaultRole
	}

	projectID, ok := c.FindProjectID(ctx, projectName)
	if !ok {
		telemetry.PlatformRequestsTotal.WithLabelValues(opAddMember, string(OutcomeNotFound)).Inc()
		return false
	}

	path := fmt.Sprintf("%s/%d/members", projectsPath, projectID)
	start := time.Now()
	err := c.doJSON(ctx, http.MethodPost, path, addMemberRequest{User: username, Role: role}, nil)
	c.observe(opAddMember, start, err)
	if err != nil {
		c.logger.Error("failed to add user to project",
			"username", username, "project", projectName, "project_id", projectID, "error", err)
		return false
	}
	c.logger.Info("user added to project", "username", username, "project", projectName, "role", role)
	return true
}

// doJSON performs one request with the per-request timeout. A non-nil body is
// sent as JSON; a non-nil out receives the decoded 2xx response.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return NewAPIError(resp.StatusCode, strings.TrimSpace(string(respBody)), ErrUnexpectedStatus)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) observe(op string, start time.Time, err error) {
	telemetry.PlatformRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	telemetry.PlatformRequestsTotal.WithLabelValues(op, string(Classify(err))).Inc()
}
