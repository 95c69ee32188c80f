package mailer

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"
)

// Mailer renders account mail and hands it to a Sender
type Mailer struct {
	sender   Sender
	renderer *Renderer
	resetURL string
	recorder DispatchRecorder
}

// New creates a mailer; resetURL is the page that receives ?token=
func New(sender Sender, renderer *Renderer, resetURL string, recorder DispatchRecorder) *Mailer {
	return &Mailer{
		sender:   sender,
		renderer: renderer,
		resetURL: resetURL,
		recorder: recorder,
	}
}

func (m *Mailer) SendOTP(ctx context.Context, to, username, code string, ttl time.Duration) error {
	body, err := m.renderer.Render(TemplateOTP, OTPData{
		Username:         username,
		Code:             code,
		ExpiresInMinutes: minutes(ttl),
	})
	if err != nil {
		return err
	}

	return m.send(ctx, &Message{To: to, Subject: "Your verification code", HTMLBody: body})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, username, token string, ttl time.Duration) error {
	link, err := m.resetLink(token)
	if err != nil {
		return err
	}

	body, err := m.renderer.Render(TemplatePasswordReset, PasswordResetData{
		Username:         username,
		Link:             link,
		ExpiresInMinutes: minutes(ttl),
	})
	if err != nil {
		return err
	}

	return m.send(ctx, &Message{To: to, Subject: "Reset your password", HTMLBody: body})
}

func (m *Mailer) send(ctx context.Context, msg *Message) error {
	if err := m.sender.Send(ctx, msg); err != nil {
		m.recorder.RecordMailDispatch(ctx, resultFailed)
		return err
	}
	if _, ok := m.sender.(*QueueSender); ok {
		m.recorder.RecordMailDispatch(ctx, resultQueued)
	} else {
		m.recorder.RecordMailDispatch(ctx, resultSent)
	}
	return nil
}

func (m *Mailer) resetLink(token string) (string, error) {
	u, err := url.Parse(m.resetURL)
	if err != nil {
		return "", fmt.Errorf("invalid reset url: %w", err)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func minutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
