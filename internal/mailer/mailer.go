package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"jobintake/internal/config"
	"jobintake/internal/database"
)

// Mailer 通过 SMTP 发送申请相关的事务性邮件。
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	company string
}

// New 根据 SMTP 配置构造 Mailer。
func New(cfg config.SMTPConfig, company string) *Mailer {
	return &Mailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		company: company,
	}
}

// statusInfo 描述某个状态变更邮件的主题、正文与主题色。
type statusInfo struct {
	Subject string
	Message string
	Color   string
}

// 状态变更邮件文案。回到 pending 的流转不发邮件。
var statusMessages = map[string]statusInfo{
	database.StatusReviewing: {
		Subject: "Application Under Review",
		Message: "Your application is currently being reviewed by our team.",
		Color:   "#fbbf24",
	},
	database.StatusInterview: {
		Subject: "Interview Invitation",
		Message: "Congratulations! We would like to invite you for an interview.",
		Color:   "#3b82f6",
	},
	database.StatusAccepted: {
		Subject: "Application Accepted - Congratulations!",
		Message: "We are pleased to inform you that your application has been accepted!",
		Color:   "#10b981",
	},
	database.StatusRejected: {
		Subject: "Application Status Update",
		Message: "Thank you for your interest. Unfortunately, we have decided to move forward with other candidates.",
		Color:   "#ef4444",
	},
}

// SendApplicationConfirmation 发送申请确认邮件。
func (m *Mailer) SendApplicationConfirmation(app *database.Application) error {
	body, err := render(confirmationTemplate, confirmationData{
		FirstName:         app.FirstName,
		LastName:          app.LastName,
		Position:          app.Position,
		Department:        app.Department,
		EmploymentType:    app.EmploymentType,
		ApplicationNumber: app.ApplicationNumber,
		SubmittedAt:       app.SubmittedAt.Format("Jan 2, 2006 15:04 MST"),
		Company:           m.company,
		Year:              time.Now().Year(),
	})
	if err != nil {
		return fmt.Errorf("render confirmation email: %w", err)
	}

	subject := fmt.Sprintf("Application Received - %s", app.Position)
	return m.send(app.Email, subject, body)
}

// SendStatusUpdate 发送状态变更邮件。未知状态直接跳过，不视为错误。
func (m *Mailer) SendStatusUpdate(app *database.Application, status string) error {
	info, ok := statusMessages[status]
	if !ok {
		return nil
	}

	body, err := render(statusTemplate, statusData{
		FirstName:         app.FirstName,
		LastName:          app.LastName,
		Position:          app.Position,
		ApplicationNumber: app.ApplicationNumber,
		Notes:             app.Notes,
		Subject:           info.Subject,
		Message:           info.Message,
		Color:             info.Color,
		Company:           m.company,
		Year:              time.Now().Year(),
	})
	if err != nil {
		return fmt.Errorf("render status email: %w", err)
	}

	return m.send(app.Email, info.Subject, body)
}

func (m *Mailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.company)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %q: %w", to, err)
	}
	return nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
