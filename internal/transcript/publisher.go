package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"callbridge/internal/clients/kafka"
	"callbridge/internal/clients/mail"
)

// Publishers fans a transcript out to every sink and joins their errors.
type Publishers []Publisher

func (p Publishers) Publish(ctx context.Context, callSID string, entries []Entry) error {
	var errs []error
	for _, publisher := range p {
		if publisher == nil {
			continue
		}
		if err := publisher.Publish(ctx, callSID, entries); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TranscriptMailer is implemented by the Resend mail client.
//
//go:generate go run go.uber.org/mock/mockgen@latest -source=publisher.go -destination=mocks_test.go -package=transcript
type TranscriptMailer interface {
	SendTranscript(ctx context.Context, m mail.TranscriptMail) (string, error)
}

// MailPublisher e-mails finished transcripts.
type MailPublisher struct {
	mailer TranscriptMailer
}

func NewMailPublisher(mailer TranscriptMailer) *MailPublisher {
	return &MailPublisher{mailer: mailer}
}

var mailTemplate = template.Must(template.New("transcript").Parse(`<html>
	<body>
		<h1>Call transcript</h1>
		<p>Call {{.CallSID}}</p>
		<table>
		{{- range .Entries}}
			<tr><td>{{.At.Format "15:04:05"}}</td><td><strong>{{.Role}}</strong></td><td>{{.Text}}</td></tr>
		{{- end}}
		</table>
	</body>
</html>`))

func (p *MailPublisher) Publish(ctx context.Context, callSID string, entries []Entry) error {
	var body bytes.Buffer
	if err := mailTemplate.Execute(&body, struct {
		CallSID string
		Entries []Entry
	}{callSID, entries}); err != nil {
		return fmt.Errorf("failed to render transcript email: %w", err)
	}

	var text strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&text, "[%s] %s: %s\n", entry.At.Format("15:04:05"), entry.Role, entry.Text)
	}

	m := mail.TranscriptMail{CallSID: callSID, HTML: body.String(), Text: text.String()}
	if _, err := p.mailer.SendTranscript(ctx, m); err != nil {
		return fmt.Errorf("failed to email transcript: %w", err)
	}
	return nil
}

// EventPublisher is implemented by the Kafka producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event kafka.EventMessage) error
}

// KafkaPublisher emits a call.transcript.completed event.
type KafkaPublisher struct {
	events EventPublisher
}

func NewKafkaPublisher(events EventPublisher) *KafkaPublisher {
	return &KafkaPublisher{events: events}
}

func (p *KafkaPublisher) Publish(ctx context.Context, callSID string, entries []Entry) error {
	event := kafka.NewEvent(kafka.EventTranscriptCompleted, callSID, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
	if err := p.events.PublishEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to publish transcript event: %w", err)
	}
	return nil
}
