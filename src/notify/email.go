package notify

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"clinic-ops/src/models"
)

// Notifier delivers newly created alerts to staff.
type Notifier interface {
	NotifyAlerts(ctx context.Context, alerts []models.Alert) error
}

type NopNotifier struct{}

func (NopNotifier) NotifyAlerts(ctx context.Context, alerts []models.Alert) error {
	return nil
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Clinic   string
}

// Sender matches gomail.Dialer so tests can swap the transport.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailNotifier struct {
	Config EmailConfig
	Sender Sender
}

func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		Config: cfg,
		Sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (n *EmailNotifier) NotifyAlerts(ctx context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 || len(n.Config.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.Config.From)
	m.SetHeader("To", n.Config.To...)
	m.SetHeader("Subject", Subject(n.Config.Clinic, alerts))
	m.SetBody("text/plain", Body(alerts))

	return n.Sender.DialAndSend(m)
}

func Subject(clinic string, alerts []models.Alert) string {
	if clinic == "" {
		clinic = "Clinic"
	}
	return fmt.Sprintf("[%s] %d new inventory alert(s)", clinic, len(alerts))
}

func Body(alerts []models.Alert) string {
	var b strings.Builder
	for _, a := range alerts {
		fmt.Fprintf(&b, "[%s] %s: %s\n", strings.ToUpper(string(a.Severity)), a.Type, a.Message)
	}
	return b.String()
}
