package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"github.com/smukkama/traffic-monitor/internal/database"
	"github.com/smukkama/traffic-monitor/pkg/config"
)

// EmailNotifier sends the batched traffic alert email.
type EmailNotifier struct {
	config *config.SMTPConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

type alertView struct {
	PointName string
	Message   string
	Stars     string
}

type batchView struct {
	Time   string
	Alerts []alertView
}

var batchTemplate = template.Must(template.New("alerts").Parse(`
<h2>Traffic Alerts</h2>
<p><strong>Time:</strong> {{.Time}}</p>
<h3>Critical Conditions:</h3>
<ul>
{{range .Alerts}}<li><strong>{{.PointName}}:</strong> {{.Message}} {{.Stars}}</li>
{{end}}</ul>
<p>This is an automated message from the traffic monitoring system.</p>
`))

// Dispatch sends one email covering the whole batch. The caller passes
// alerts already sorted by descending severity.
func (e *EmailNotifier) Dispatch(ctx context.Context, alerts []*database.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	subject := fmt.Sprintf("🚨 Traffic Alert - %s", time.Now().Format("2006-01-02 15:04"))

	view := batchView{Time: time.Now().Format("2006-01-02 15:04:05")}
	for _, a := range alerts {
		view.Alerts = append(view.Alerts, alertView{
			PointName: a.PointName,
			Message:   a.Message,
			Stars:     strings.Repeat("⭐", a.Severity),
		})
	}

	var buf bytes.Buffer
	if err := batchTemplate.Execute(&buf, view); err != nil {
		return fmt.Errorf("failed to render alert email: %w", err)
	}

	return e.sendEmail(subject, buf.String())
}

func (e *EmailNotifier) sendEmail(subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		fmt.Printf("SMTP not configured, skipping email:\nSubject: %s\n%s\n", subject, body)
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n"
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	if err := smtp.SendMail(addr, auth, e.config.From, []string{e.config.To}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fmt.Printf("Email sent successfully: %s\n", subject)
	return nil
}
