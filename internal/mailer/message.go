// Package mailer renders and delivers transactional mail.
package mailer

import "context"

// Message is one outgoing mail
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"htmlBody"`
}

// Sender delivers a rendered message
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// DispatchRecorder counts delivery outcomes
type DispatchRecorder interface {
	RecordMailDispatch(ctx context.Context, result string)
}

const (
	resultSent   = "sent"
	resultFailed = "failed"
	resultQueued = "queued"
)
