package adapter

import "context"

type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// EmailSender delivers best-effort mail. Callers log failures and never fail
// the parent operation on a send error.
type EmailSender interface {
	Send(ctx context.Context, e Email) error
}
