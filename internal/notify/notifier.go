// Package notify e-mails the study administrator when a registration needs
// manual account or project setup on the annotation platform.
package notify

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/registration"
	"github.com/annotation-study/registration/internal/safego"
	"github.com/annotation-study/registration/internal/telemetry"
)

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// AdminNotifier sends manual-setup notices. A notifier built from a disabled
// config is a no-op.
type AdminNotifier struct {
	cfg         *config.NotificationsConfig
	adminEmail  string
	platformURL string
	studyTitle  string
	send        sendFunc
	logger      *slog.Logger
}

// NewAdminNotifier creates a notifier sending to adminEmail
func NewAdminNotifier(cfg *config.NotificationsConfig, adminEmail, platformURL, studyTitle string) *AdminNotifier {
	n := &AdminNotifier{
		cfg:         cfg,
		adminEmail:  adminEmail,
		platformURL: platformURL,
		studyTitle:  studyTitle,
		logger:      slog.Default().With("component", "notify"),
	}
	n.send = n.sendMail
	return n
}

// Enabled reports whether notices are actually sent
func (n *AdminNotifier) Enabled() bool {
	return n != nil && n.cfg.Enabled && n.cfg.SMTP.Host != "" && n.adminEmail != ""
}

// NeedsManualSetup reports whether an administrator has to finish the
// registration by hand
func NeedsManualSetup(rec *registration.Record) bool {
	return !rec.AccountCreated || rec.ProjectsAssigned() < len(rec.Assignments)
}

// NotifyAsync sends the notice for rec in the background
func (n *AdminNotifier) NotifyAsync(rec *registration.Record) {
	if !n.Enabled() || !NeedsManualSetup(rec) {
		return
	}
	safego.Go("admin-notification", func() {
		_ = n.Notify(rec)
	})
}

// Notify sends the manual-setup notice for rec synchronously
func (n *AdminNotifier) Notify(rec *registration.Record) error {
	if !n.Enabled() {
		return nil
	}

	smtpCfg := &n.cfg.SMTP
	subject, body := n.compose(rec)
	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		smtpCfg.From, n.adminEmail, subject,
	)
	msg := []byte(headers + body + "\r\n")

	addr := fmt.Sprintf("%s:%d", smtpCfg.Host, smtpCfg.Port)
	var auth smtp.Auth
	if smtpCfg.Username != "" {
		auth = smtp.PlainAuth("", smtpCfg.Username, smtpCfg.Password, smtpCfg.Host)
	}

	if err := n.send(addr, auth, smtpCfg.From, []string{n.adminEmail}, msg); err != nil {
		telemetry.AdminNotificationsTotal.WithLabelValues("failed").Inc()
		n.logger.Error("failed to send manual setup notification",
			"registration_id", rec.ID, "username", rec.Username, "error", err)
		return err
	}
	telemetry.AdminNotificationsTotal.WithLabelValues("sent").Inc()
	n.logger.Info("manual setup notification sent", "registration_id", rec.ID, "username", rec.Username)
	return nil
}

func (n *AdminNotifier) compose(rec *registration.Record) (string, string) {
	subject := fmt.Sprintf("[%s] Manual setup needed for %s", n.studyTitle, rec.Username)

	var reason string
	switch {
	case !rec.Reachable:
		reason = "The annotation platform was unreachable, so no account was created."
	case !rec.AccountCreated:
		reason = "The platform rejected the account creation request."
	default:
		reason = "The account exists but some project memberships could not be granted."
	}

	lines := []string{
		"A participant completed registration but needs manual setup.",
		"",
		reason,
		"",
		fmt.Sprintf("Registration ID: %s", rec.ID),
		fmt.Sprintf("Username:        %s", rec.Username),
		fmt.Sprintf("Registered at:   %s", rec.RegisteredAt.UTC().Format(time.RFC1123)),
		fmt.Sprintf("Account created: %t", rec.AccountCreated),
		"",
		"Projects:",
	}
	for _, a := range rec.Assignments {
		status := "assigned"
		if !rec.AccountCreated || !a.Assigned {
			status = "PENDING"
		}
		lines = append(lines, fmt.Sprintf("  - %s (%s): %s", a.Language, a.Project, status))
	}
	if rec.Email != "" {
		lines = append(lines, "", fmt.Sprintf("Participant e-mail: %s", rec.Email))
	}
	lines = append(lines, "", fmt.Sprintf("Platform: %s", n.platformURL))

	return subject, strings.Join(lines, "\r\n")
}

// sendMail uses implicit TLS when UseTLS is set and falls back to
// smtp.SendMail, which upgrades with STARTTLS when the server offers it
func (n *AdminNotifier) sendMail(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	if !n.cfg.SMTP.UseTLS {
		return smtp.SendMail(addr, auth, from, to, msg)
	}

	host, _, _ := net.SplitHostPort(addr)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return smtp.SendMail(addr, auth, from, to, msg)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}
