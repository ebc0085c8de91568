// Package registrations implements the HTTP handlers for the registration
// wizard. Each step hands the client a signed step token that carries the
// answers given so far; the handlers keep no session state.
package registrations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/content"
	"github.com/annotation-study/registration/internal/languages"
	"github.com/annotation-study/registration/internal/provisioning"
	"github.com/annotation-study/registration/internal/registration"
	"github.com/annotation-study/registration/internal/telemetry"
	"github.com/annotation-study/registration/internal/wizard"
)

const (
	statusAssigned = "Assigned"
	statusPending  = "Pending — contact admin"
)

// ContentSource loads the instruction content for an ISO language code
type ContentSource interface {
	Load(code string) (*content.Setup, error)
}

// Provisioner runs the provisioning workflow for one registrant
type Provisioner interface {
	Provision(ctx context.Context, d registration.Demographics) (provisioning.Result, error)
}

// Notifier is told about every finished registration
type Notifier interface {
	NotifyAsync(rec *registration.Record)
}

// Handlers holds all dependencies for the wizard endpoints.
type Handlers struct {
	cfg         *config.Config
	table       *languages.Table
	content     ContentSource
	tokens      *wizard.Tokens
	provisioner Provisioner
	notifier    Notifier
	logger      *slog.Logger
}

// NewHandlers creates a new Handlers instance. notifier may be nil.
func NewHandlers(
	cfg *config.Config,
	table *languages.Table,
	contentSource ContentSource,
	tokens *wizard.Tokens,
	provisioner Provisioner,
	notifier Notifier,
) *Handlers {
	return &Handlers{
		cfg:         cfg,
		table:       table,
		content:     contentSource,
		tokens:      tokens,
		provisioner: provisioner,
		notifier:    notifier,
		logger:      slog.Default().With("component", "wizard"),
	}
}

// RegisterRoutes mounts the wizard endpoints on group
func (h *Handlers) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/study", h.GetStudy)
	group.POST("/registrations/demographics", h.SubmitDemographics)
	group.GET("/registrations/instructions", h.GetInstructions)
	group.POST("/registrations/quiz", h.SubmitQuiz)
	group.POST("/registrations/provision", h.Provision)
}

// @Summary      Study information
// @Description  Returns the study title, the option lists for the demographics form and the platform contact details.
// @Tags         Wizard
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/study [get]
func (h *Handlers) GetStudy(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"title":            h.cfg.Study.Title,
		"languages":        h.table.All(),
		"nationalities":    h.cfg.Study.Nationalities,
		"native_languages": h.cfg.Study.NativeLanguages,
		"education_levels": h.cfg.Study.EducationLevels,
		"min_age":          h.cfg.Study.MinAge,
		"max_age":          h.cfg.Study.MaxAge,
		"pass_threshold":   h.passThreshold(),
		"platform_url":     h.cfg.Platform.URL,
		"admin_email":      h.cfg.Study.AdminEmail,
	})
}

// @Summary      Submit demographics
// @Description  Validates the step 1 answers. On success returns a token unlocking the instructions step.
// @Tags         Wizard
// @Accept       json
// @Produce      json
// @Param        body  body  registration.Demographics  true  "Demographic answers"
// @Success      200  {object}  map[string]interface{}  "token, step"
// @Failure      400  {object}  map[string]interface{}  "Malformed request body"
// @Failure      422  {object}  map[string]interface{}  "errors: validation messages"
// @Router       /api/v1/registrations/demographics [post]
func (h *Handlers) SubmitDemographics(c *gin.Context) {
	var d registration.Demographics
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	d.Normalize()
	if errs := d.Validate(h.options()); len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}
	d.RegisteredAt = time.Now().UTC()

	token, err := h.tokens.Issue(wizard.StepInstructions, d)
	if err != nil {
		h.logger.Error("failed to issue step token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue step token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "step": wizard.StepInstructions})
}

// languageContent is the instruction content of one selected language
type languageContent struct {
	Language     string                     `json:"language"`
	Code         string                     `json:"code"`
	Instructions content.Instructions       `json:"instructions"`
	Examples     string                     `json:"examples_intro"`
	Worked       []content.WorkedExample    `json:"worked_examples"`
	Practice     []content.PracticeQuestion `json:"practice_questions"`

	check content.ComprehensionCheck
}

// @Summary      Instructions and comprehension check
// @Description  Returns the instructions for every selected language that has content and the comprehension check of the first one, without answers.
// @Tags         Wizard
// @Produce      json
// @Param        Authorization  header  string  false  "Bearer step token"
// @Param        token          query   string  false  "Step token"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}  "Missing or invalid step token"
// @Failure      404  {object}  map[string]interface{}  "No content for any selected language"
// @Router       /api/v1/registrations/instructions [get]
func (h *Handlers) GetInstructions(c *gin.Context) {
	claims, ok := h.verify(c, stepToken(c, ""), wizard.StepInstructions, wizard.StepCredentials)
	if !ok {
		return
	}

	available, warnings := h.loadContent(claims.Demographics.Languages)
	if len(available) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("No instruction files are available for your selected languages. Please contact %s.",
				h.cfg.Study.AdminEmail),
			"warnings": warnings,
		})
		return
	}

	primary := available[0]
	c.JSON(http.StatusOK, gin.H{
		"languages":           available,
		"warnings":            warnings,
		"primary_language":    primary.Code,
		"comprehension_check": primary.check.Redacted(),
		"pass_threshold":      h.passThreshold(),
	})
}

// QuizRequest is the comprehension check submission
type QuizRequest struct {
	Token string `json:"token"`
	// Answers maps question id to the chosen option text
	Answers map[string]string `json:"answers"`
}

// @Summary      Submit comprehension check
// @Description  Scores the answers against the check of the primary language. On a pass returns a token unlocking the credentials step.
// @Tags         Wizard
// @Accept       json
// @Produce      json
// @Param        body  body  QuizRequest  true  "Step token and answers"
// @Success      200  {object}  map[string]interface{}  "passed, score, token, step"
// @Failure      401  {object}  map[string]interface{}  "Missing or invalid step token"
// @Failure      404  {object}  map[string]interface{}  "No content for any selected language"
// @Failure      422  {object}  map[string]interface{}  "passed=false, score, missed, message"
// @Router       /api/v1/registrations/quiz [post]
func (h *Handlers) SubmitQuiz(c *gin.Context) {
	var req QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	claims, ok := h.verify(c, stepToken(c, req.Token), wizard.StepInstructions)
	if !ok {
		return
	}

	available, _ := h.loadContent(claims.Demographics.Languages)
	if len(available) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no comprehension check is available for the selected languages"})
		return
	}
	primary := available[0]

	ev := content.Evaluate(primary.check, req.Answers, h.passThreshold())
	if !ev.Passed {
		telemetry.QuizAttemptsTotal.WithLabelValues(primary.Code, "fail").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"passed":   false,
			"score":    ev.Score,
			"total":    ev.Total,
			"required": ev.Required,
			"missed":   ev.Missed,
			"message":  ev.Message(),
		})
		return
	}
	telemetry.QuizAttemptsTotal.WithLabelValues(primary.Code, "pass").Inc()

	token, err := h.tokens.Issue(wizard.StepCredentials, claims.Demographics)
	if err != nil {
		h.logger.Error("failed to issue step token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue step token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"passed":   true,
		"score":    ev.Score,
		"total":    ev.Total,
		"required": ev.Required,
		"token":    token,
		"step":     wizard.StepCredentials,
	})
}

// ProvisionRequest carries the credentials step token
type ProvisionRequest struct {
	Token string `json:"token"`
}

// ProjectStatus is one row of the assigned projects list
type ProjectStatus struct {
	Language string `json:"language"`
	Project  string `json:"project"`
	Status   string `json:"status"`
}

// ProvisionResponse is shown once; the password is not stored in clear text
type ProvisionResponse struct {
	RegistrationID string          `json:"registration_id"`
	Username       string          `json:"username"`
	Password       string          `json:"password"`
	Reachable      bool            `json:"reachable"`
	AccountCreated bool            `json:"account_created"`
	Projects       []ProjectStatus `json:"projects"`
	PlatformURL    string          `json:"platform_url"`
	AdminEmail     string          `json:"admin_email"`
	Message        string          `json:"message,omitempty"`
}

// @Summary      Provision account
// @Description  Creates the platform account, assigns the selected projects and records the registration. The step token is single use.
// @Tags         Wizard
// @Accept       json
// @Produce      json
// @Param        body  body  ProvisionRequest  true  "Step token"
// @Success      200  {object}  ProvisionResponse
// @Failure      401  {object}  map[string]interface{}  "Missing or invalid step token"
// @Failure      409  {object}  map[string]interface{}  "Step token already used"
// @Failure      422  {object}  map[string]interface{}  "Selection names an unknown language"
// @Router       /api/v1/registrations/provision [post]
func (h *Handlers) Provision(c *gin.Context) {
	var req ProvisionRequest
	// An empty body is fine when the token comes in the header.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	claims, ok := h.verify(c, stepToken(c, req.Token), wizard.StepCredentials)
	if !ok {
		return
	}
	if err := h.tokens.Consume(claims); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	// The token is spent, so the run completes even if the registrant disconnects.
	res, err := h.provisioner.Provision(context.WithoutCancel(c.Request.Context()), claims.Demographics)
	if err != nil {
		if errors.Is(err, languages.ErrUnknownLanguage) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("provisioning failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provisioning failed"})
		return
	}

	if h.notifier != nil && res.Record != nil {
		h.notifier.NotifyAsync(res.Record)
	}

	c.JSON(http.StatusOK, h.provisionResponse(res))
}

func (h *Handlers) provisionResponse(res provisioning.Result) ProvisionResponse {
	out := ProvisionResponse{
		RegistrationID: res.RecordID,
		Username:       res.Username,
		Password:       res.Password,
		Reachable:      res.Reachable,
		AccountCreated: res.UserCreated,
		Projects:       make([]ProjectStatus, 0, len(res.Assignments)),
		PlatformURL:    h.cfg.Platform.URL,
		AdminEmail:     h.cfg.Study.AdminEmail,
	}
	for _, a := range res.Assignments {
		status := statusPending
		if a.Assigned {
			status = statusAssigned
		}
		out.Projects = append(out.Projects, ProjectStatus{Language: a.Language, Project: a.Project, Status: status})
	}
	if !res.UserCreated {
		out.Message = fmt.Sprintf("Your registration was saved, but the account could not be created automatically. "+
			"Please contact %s. Your credentials will be sent to you shortly.", h.cfg.Study.AdminEmail)
	}
	return out
}

// loadContent returns the content of each selected language in selection
// order, once per code, plus a warning for each language without content.
func (h *Handlers) loadContent(selected []string) ([]languageContent, []string) {
	available := []languageContent{}
	warnings := []string{}
	seen := map[string]bool{}

	for _, name := range selected {
		lang, err := h.table.Lookup(name)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s is not one of the study languages.", name))
			continue
		}
		if seen[lang.Code] {
			continue
		}
		seen[lang.Code] = true

		setup, err := h.content.Load(lang.Code)
		if err != nil {
			if !errors.Is(err, content.ErrNotFound) {
				h.logger.Error("failed to load content", "language", lang.Code, "error", err)
			}
			warnings = append(warnings, fmt.Sprintf("Instructions for %s are not available yet.", lang.Name))
			continue
		}
		ex := setup.ExampleAnnotations
		available = append(available, languageContent{
			Language:     lang.Name,
			Code:         lang.Code,
			Instructions: setup.Instructions,
			Examples:     ex.Instructions,
			Worked:       ex.WorkedExamples,
			Practice:     ex.PracticeQuestions,
			check:        ex.ComprehensionCheck,
		})
	}
	return available, warnings
}

// verify checks the step token and writes the error response when it fails
func (h *Handlers) verify(c *gin.Context, token string, accept ...wizard.Step) (*wizard.StepClaims, bool) {
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "step token required"})
		return nil, false
	}
	claims, err := h.tokens.Verify(token, accept...)
	switch {
	case err == nil:
		return claims, true
	case errors.Is(err, wizard.ErrTokenConsumed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, wizard.ErrWrongStep):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"error": wizard.ErrInvalidToken.Error()})
	}
	return nil, false
}

// stepToken reads the token from the Authorization header, then the body
// field, then the token query parameter
func stepToken(c *gin.Context, fromBody string) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if fromBody != "" {
		return fromBody
	}
	return c.Query("token")
}

func (h *Handlers) options() registration.Options {
	return registration.Options{
		Languages:       h.table.Names(),
		Nationalities:   h.cfg.Study.Nationalities,
		NativeLanguages: h.cfg.Study.NativeLanguages,
		EducationLevels: h.cfg.Study.EducationLevels,
		MinAge:          h.cfg.Study.MinAge,
		MaxAge:          h.cfg.Study.MaxAge,
	}
}

func (h *Handlers) passThreshold() int {
	if h.cfg.Content.PassThreshold < 1 {
		return content.DefaultPassThreshold
	}
	return h.cfg.Content.PassThreshold
}
