package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"time"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Mailer handles sending emails
type Mailer struct {
	config Config
}

// New creates a new Mailer instance
func New(cfg Config) *Mailer {
	return &Mailer{config: cfg}
}

// SendDeviceAlert notifies an account that a login from a new device has
// replaced its active session.
func (m *Mailer) SendDeviceAlert(toEmail, userAgent, platform string, when time.Time) error {
	subject := "BP PowerPlay - New device sign-in"

	body, err := m.renderDeviceAlertTemplate(toEmail, userAgent, platform, when)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return m.send(toEmail, subject, body)
}

// send delivers an email via SMTP
func (m *Mailer) send(to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%s", m.config.Host, m.config.Port)

	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", m.config.FromName, m.config.From),
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=\"utf-8\"",
	}

	var msg bytes.Buffer
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	err := smtp.SendMail(addr, auth, m.config.From, []string{to}, msg.Bytes())
	if err != nil {
		log.Printf("❌ Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}

// renderDeviceAlertTemplate returns the HTML body for the new-device notice
func (m *Mailer) renderDeviceAlertTemplate(email, userAgent, platform string, when time.Time) (string, error) {
	tmpl := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#0f0f23;font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;">
    <div style="max-width:500px;margin:40px auto;background:linear-gradient(135deg,#1a1a2e 0%,#16213e 100%);border-radius:16px;overflow:hidden;border:1px solid rgba(245,158,11,0.2);">
        <!-- Header -->
        <div style="background:linear-gradient(135deg,#f59e0b 0%,#d97706 100%);padding:32px;text-align:center;">
            <h1 style="color:#fff;margin:0;font-size:28px;font-weight:700;">⚡ BP PowerPlay</h1>
            <p style="color:rgba(255,255,255,0.85);margin:8px 0 0;font-size:14px;">New Device Sign-in</p>
        </div>

        <!-- Body -->
        <div style="padding:32px;">
            <p style="color:#e2e8f0;font-size:16px;line-height:1.6;margin:0 0 24px;">
                Hi <strong style="color:#fbbf24;">{{.Email}}</strong>,
            </p>
            <p style="color:#94a3b8;font-size:14px;line-height:1.6;margin:0 0 24px;">
                Your account was just signed in from a new device. The previous
                device has been signed out, since only one device can hold your
                session at a time.
            </p>

            <!-- Device info -->
            <div style="background:rgba(245,158,11,0.1);border:2px dashed rgba(245,158,11,0.4);border-radius:12px;padding:24px;margin:0 0 24px;">
                <p style="color:#cbd5e1;font-size:13px;margin:0 0 8px;"><strong>Device:</strong> {{.UserAgent}}</p>
                <p style="color:#cbd5e1;font-size:13px;margin:0 0 8px;"><strong>Platform:</strong> {{.Platform}}</p>
                <p style="color:#cbd5e1;font-size:13px;margin:0;"><strong>Time:</strong> {{.When}}</p>
            </div>

            <p style="color:#64748b;font-size:13px;line-height:1.5;margin:0;">
                If this was you, no action is needed. If it wasn't, change your
                password right away.
            </p>
        </div>

        <!-- Footer -->
        <div style="padding:16px 32px;border-top:1px solid rgba(245,158,11,0.1);text-align:center;">
            <p style="color:#475569;font-size:12px;margin:0;">© 2026 BP PowerPlay. All rights reserved.</p>
        </div>
    </div>
</body>
</html>`

	t, err := template.New("device_alert").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = t.Execute(&buf, map[string]interface{}{
		"Email":     email,
		"UserAgent": userAgent,
		"Platform":  platform,
		"When":      when.Format(time.RFC1123),
	})
	return buf.String(), err
}
