// Package platformtest provides an in-process fake of the INCEpTION remote API
// for tests.
package platformtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Membership is one recorded membership request
type Membership struct {
	ProjectID int64
	User      string
	Role      string
}

// Server is a fake platform. Zero-value status fields mean success.
type Server struct {
	*httptest.Server

	mu sync.Mutex
	// Projects maps project name to id
	Projects map[string]int64
	// ProjectsStatus overrides the project list status code
	ProjectsStatus int
	// ProjectsBody, when set, replaces the project list response body
	ProjectsBody string
	// CreateUserStatus overrides the user creation status code
	CreateUserStatus int
	// MemberStatus overrides the membership status code per project id
	MemberStatus map[int64]int

	Username string
	Password string

	users       []map[string]interface{}
	memberships []Membership
	requests    int
}

// New starts a fake platform with the given projects and basic-auth account
// admin/admin. The server is closed when the test ends.
func New(t *testing.T, projects map[string]int64) *Server {
	t.Helper()
	s := &Server{
		Projects:     projects,
		MemberStatus: map[int64]int{},
		Username:     "admin",
		Password:     "admin",
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Users returns the recorded user creation payloads
func (s *Server) Users() []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]interface{}(nil), s.users...)
}

// Memberships returns the recorded membership requests in arrival order
func (s *Server) Memberships() []Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Membership(nil), s.memberships...)
}

// Requests returns the number of requests served
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Set runs fn with the server lock held, for changing behaviour mid-test
func (s *Server) Set(fn func(s *Server)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	if u, p, ok := r.BasicAuth(); !ok || u != s.Username || p != s.Password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	path := r.URL.Path
	switch {
	case path == "/api/aero/v1/projects" && r.Method == http.MethodGet:
		if s.ProjectsStatus != 0 {
			http.Error(w, "projects unavailable", s.ProjectsStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if s.ProjectsBody != "" {
			_, _ = w.Write([]byte(s.ProjectsBody))
			return
		}
		body := make([]map[string]interface{}, 0, len(s.Projects))
		for name, id := range s.Projects {
			body = append(body, map[string]interface{}{"id": id, "name": name})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"messages": []string{}, "body": body})

	case path == "/api/aero/v1/users" && r.Method == http.MethodPost:
		if s.CreateUserStatus != 0 {
			http.Error(w, `{"messages":[{"level":"ERROR","message":"user creation disabled"}]}`, s.CreateUserStatus)
			return
		}
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		s.users = append(s.users, payload)
		w.WriteHeader(http.StatusCreated)

	case strings.HasPrefix(path, "/api/aero/v1/projects/") && strings.HasSuffix(path, "/members") && r.Method == http.MethodPost:
		idPart := strings.TrimSuffix(strings.TrimPrefix(path, "/api/aero/v1/projects/"), "/members")
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if status := s.MemberStatus[id]; status != 0 {
			http.Error(w, "membership rejected", status)
			return
		}
		var payload struct {
			User string `json:"user"`
			Role string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		s.memberships = append(s.memberships, Membership{ProjectID: id, User: payload.User, Role: payload.Role})
		w.WriteHeader(http.StatusCreated)

	default:
		http.NotFound(w, r)
	}
}
