package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"callbridge/internal/callcontext"
	"callbridge/internal/clients/kafka"
	"callbridge/internal/observability"
	"callbridge/internal/transcript"
	"callbridge/internal/voicecall/session"
)

// CallService places and ends calls with the telephony provider
type CallService interface {
	CreateCall(ctx context.Context, to, from, callbackURL string) (string, error)
	CompleteCall(ctx context.Context, callSID string) error
}

// ContextStore defines the call context operations required by VoiceCallProcessor
type ContextStore interface {
	Set(ctx context.Context, key string, cc callcontext.CallContext, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Issue(ctx context.Context, cc callcontext.CallContext, ttl time.Duration) (string, error)
}

// TranscriptStore defines the live transcript operations
type TranscriptStore interface {
	Append(ctx context.Context, callSID string, entry transcript.Entry) error
	List(ctx context.Context, callSID string) ([]transcript.Entry, error)
	Delete(ctx context.Context, callSID string) error
}

// EventPublisher publishes call lifecycle events
type EventPublisher interface {
	PublishEvent(ctx context.Context, event kafka.EventMessage) error
}

var (
	ErrMissingDestination = errors.New("destination phone number is required")
	ErrCallFailed         = errors.New("failed to initiate call")
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrShuttingDown       = errors.New("voice call processor is shutting down")
)

// Config holds the processor settings taken from application config
type Config struct {
	BaseURL    string
	FromNumber string
	ContextTTL time.Duration
	Session    session.Config
}

// Dependencies are the collaborators shared by every call. Events,
// Transcripts and Publisher are optional.
type Dependencies struct {
	Calls       CallService
	Contexts    ContextStore
	Resolver    session.ContextResolver
	Dialer      session.RealtimeDialer
	Transcripts TranscriptStore
	Publisher   transcript.Publisher
	Events      EventPublisher
}

type VoiceCallProcessor struct {
	cfg    Config
	deps   Dependencies
	logger *observability.Logger

	mu       sync.Mutex
	sessions map[string]*session.Controller
	calls    map[string]*session.Controller
	closed   bool
}

func New(cfg Config, deps Dependencies, logger *observability.Logger) *VoiceCallProcessor {
	if cfg.ContextTTL <= 0 {
		cfg.ContextTTL = callcontext.DefaultTTL
	}
	return &VoiceCallProcessor{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		sessions: make(map[string]*session.Controller),
		calls:    make(map[string]*session.Controller),
	}
}

type StartCallRequest struct {
	To      string
	Context callcontext.CallContext
}

type StartCallResult struct {
	CallSID    string
	ContextKey string
}

// StartCall stores the call context and places the outbound call. The
// context is stored under an issued key before dialing and under the call
// sid once it is known.
func (p *VoiceCallProcessor) StartCall(ctx context.Context, req StartCallRequest) (StartCallResult, error) {
	to := strings.TrimSpace(req.To)
	if to == "" {
		return StartCallResult{}, ErrMissingDestination
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "to", Value: to})

	key, err := p.deps.Contexts.Issue(ctx, req.Context, p.cfg.ContextTTL)
	if err != nil {
		p.logger.Error(ctx, "failed to store call context", err)
		return StartCallResult{}, fmt.Errorf("context store: %w", err)
	}

	callSID, err := p.deps.Calls.CreateCall(ctx, to, p.cfg.FromNumber, p.CallbackURL(key))
	if err != nil {
		p.logger.Error(ctx, "failed to create call", err)
		if delErr := p.deps.Contexts.Delete(ctx, key); delErr != nil {
			p.logger.WarnWithError(ctx, "failed to delete context of failed call", delErr)
		}
		return StartCallResult{}, fmt.Errorf("%w: %v", ErrCallFailed, err)
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: callSID})
	if err := p.deps.Contexts.Set(ctx, callSID, req.Context, p.cfg.ContextTTL); err != nil {
		// the issued key still resolves, so the call goes ahead
		p.logger.WarnWithError(ctx, "failed to store call context under call sid", err)
	}

	if p.deps.Events != nil {
		event := kafka.NewEvent(kafka.EventCallCreated, callSID, map[string]interface{}{
			"to":          to,
			"context_key": key,
		})
		if err := p.deps.Events.PublishEvent(ctx, event); err != nil {
			p.logger.WarnWithError(ctx, "failed to publish call created event", err)
		}
	}

	p.logger.Info(ctx, "outbound call started")
	return StartCallResult{CallSID: callSID, ContextKey: key}, nil
}

// CallbackURL is where the telephony provider fetches the call flow markup.
func (p *VoiceCallProcessor) CallbackURL(contextKey string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + "/outgoing-call?" + session.ContextParameter + "=" + url.QueryEscape(contextKey)
}

// StreamURL is the media stream endpoint announced in the call flow markup.
func StreamURL(host string) string {
	return "wss://" + host + "/media-stream"
}

// RunSession relays one media stream until the call ends. It returns
// ErrShuttingDown once Shutdown has been called, and session.ErrDuplicateCall
// when the stream starts for a call that is already being relayed.
func (p *VoiceCallProcessor) RunSession(ctx context.Context, media session.MediaChannel) error {
	deps := session.Dependencies{
		Registry:    p,
		Dialer:      p.deps.Dialer,
		Calls:       p.deps.Calls,
		Resolver:    p.deps.Resolver,
		Contexts:    p.deps.Contexts,
		Transcripts: p.deps.Transcripts,
		Publisher:   p.deps.Publisher,
		Logger:      p.logger,
	}
	ctrl := session.NewController(media, deps, p.cfg.Session)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = media.Close()
		return ErrShuttingDown
	}
	p.sessions[ctrl.ID()] = ctrl
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.sessions, ctrl.ID())
		p.mu.Unlock()
	}()

	return ctrl.Run(ctx)
}

// Claim binds callSID to ctrl unless another session already relays it.
func (p *VoiceCallProcessor) Claim(callSID string, ctrl *session.Controller) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if owner, ok := p.calls[callSID]; ok && owner != ctrl {
		return false
	}
	p.calls[callSID] = ctrl
	return true
}

// Release unbinds callSID if ctrl still holds it.
func (p *VoiceCallProcessor) Release(callSID string, ctrl *session.Controller) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls[callSID] == ctrl {
		delete(p.calls, callSID)
	}
}

// ActiveSessions returns the number of calls being relayed.
func (p *VoiceCallProcessor) ActiveSessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Shutdown stops accepting media streams, ends every live session and
// waits for their cleanup or for ctx to end.
func (p *VoiceCallProcessor) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	live := make([]*session.Controller, 0, len(p.sessions))
	for _, ctrl := range p.sessions {
		live = append(live, ctrl)
	}
	p.mu.Unlock()

	p.logger.Info(observability.WithFields(ctx, observability.Field{Key: "sessions", Value: len(live)}), "closing live sessions")
	for _, ctrl := range live {
		ctrl.Close()
	}
	for _, ctrl := range live {
		select {
		case <-ctrl.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Transcript returns what has been said so far on a live call.
func (p *VoiceCallProcessor) Transcript(ctx context.Context, callSID string) ([]transcript.Entry, error) {
	if p.deps.Transcripts == nil {
		return nil, ErrTranscriptNotFound
	}
	entries, err := p.deps.Transcripts.List(ctx, callSID)
	if err != nil {
		p.logger.Error(ctx, "failed to list transcript", err)
		return nil, fmt.Errorf("transcript store: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrTranscriptNotFound
	}
	return entries, nil
}
