package mail

import (
	"context"
	"errors"
	"fmt"

	"callbridge/internal/observability"

	"github.com/resendlabs/resend-go"
)

var ErrMissingSetting = errors.New("mail setting is empty")

// TranscriptMail is a rendered call transcript.
type TranscriptMail struct {
	CallSID string
	HTML    string
	Text    string
}

// Subject is the subject line used for the transcript of callSID.
func Subject(callSID string) string {
	return "Call transcript " + callSID
}

type emailSender interface {
	Send(params *resend.SendEmailRequest) (resend.SendEmailResponse, error)
}

// Client delivers call transcripts through Resend to a fixed recipient.
type Client struct {
	emails emailSender
	from   string
	to     string
	logger *observability.Logger
}

func NewClient(apiKey, from, to string, logger *observability.Logger) (*Client, error) {
	for name, value := range map[string]string{"api key": apiKey, "sender": from, "recipient": to} {
		if value == "" {
			return nil, fmt.Errorf("resend %s: %w", name, ErrMissingSetting)
		}
	}
	client := resend.NewClient(apiKey)
	if client == nil {
		return nil, fmt.Errorf("failed to create Resend client")
	}

	return &Client{
		emails: client.Emails,
		from:   from,
		to:     to,
		logger: logger,
	}, nil
}

// SendTranscript mails one transcript and returns the Resend message id.
func (c *Client) SendTranscript(ctx context.Context, m TranscriptMail) (string, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_sid", Value: m.CallSID},
		observability.Field{Key: "email_to", Value: c.to},
	)
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}

	res, err := c.emails.Send(&resend.SendEmailRequest{
		From:    c.from,
		To:      []string{c.to},
		Subject: Subject(m.CallSID),
		Html:    m.HTML,
		Text:    m.Text,
	})
	if err != nil {
		c.logger.Error(ctx, "failed to send transcript email", err)
		return "", fmt.Errorf("resend: failed to send transcript email: %w", err)
	}

	c.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "email_id", Value: res.Id},
	), "transcript email sent")
	return res.Id, nil
}
