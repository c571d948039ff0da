package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"club-payment-service/internal/domain/ports/adapter"
)

var _ adapter.EmailSender = (*PostmarkSender)(nil)

// PostmarkSender delivers transactional mail through Postmark.
type PostmarkSender struct {
	client *postmark.Client
	from   string
}

func NewPostmarkSender(serverToken, from string) (*PostmarkSender, error) {
	if serverToken == "" {
		return nil, errors.New("postmark server token empty")
	}
	if from == "" {
		return nil, errors.New("sender address empty")
	}
	return &PostmarkSender{
		client: postmark.NewClient(serverToken, ""),
		from:   from,
	}, nil
}

func (s *PostmarkSender) Send(ctx context.Context, e adapter.Email) error {
	msg := postmark.Email{
		From:     s.from,
		To:       e.To,
		Subject:  e.Subject,
		HTMLBody: e.HTML,
		TextBody: e.Text,
	}
	resp, err := s.client.SendEmail(ctx, msg)
	if err != nil {
		return fmt.Errorf("postmark send: %w", err)
	}
	if resp.ErrorCode != 0 {
		return fmt.Errorf("postmark send: code %d: %s", resp.ErrorCode, resp.Message)
	}
	return nil
}
