package mailer

import (
	"fmt"
	"html/template"
	"strings"
)

const (
	TemplateOTP           = "otp"
	TemplatePasswordReset = "password_reset"
)

const otpTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <p>Hi {{.Username}},</p>
  <p>Your verification code is:</p>
  <p style="font-size: 24px; font-weight: bold; letter-spacing: 4px;">{{.Code}}</p>
  <p>The code expires in {{.ExpiresInMinutes}} minutes. If you did not sign up, ignore this email.</p>
</body>
</html>`

const passwordResetTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <p>Hi {{.Username}},</p>
  <p>We received a request to reset your password.</p>
  <p><a href="{{.Link}}">Reset your password</a></p>
  <p>The link expires in {{.ExpiresInMinutes}} minutes and works once. If you did not ask for it, ignore this email.</p>
</body>
</html>`

// OTPData fills the verification code template
type OTPData struct {
	Username         string
	Code             string
	ExpiresInMinutes int
}

// PasswordResetData fills the reset link template
type PasswordResetData struct {
	Username         string
	Link             string
	ExpiresInMinutes int
}

// Renderer executes the built-in templates
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses the built-in templates
func NewRenderer() (*Renderer, error) {
	sources := map[string]string{
		TemplateOTP:           otpTemplate,
		TemplatePasswordReset: passwordResetTemplate,
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(sources))}
	for name, src := range sources {
		tpl, err := template.New(name).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = tpl
	}

	return r, nil
}

func (r *Renderer) Render(name string, data any) (string, error) {
	tpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("template not found: %s", name)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}
