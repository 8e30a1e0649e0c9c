package handler

//go:generate go run go.uber.org/mock/mockgen@latest -source=handler.go -destination=mocks_test.go -package=handler

import (
	"context"
	"net/http"

	"callbridge/internal/observability"
	"callbridge/internal/transcript"
	"callbridge/internal/voicecall/processor"
	"callbridge/internal/voicecall/session"

	"github.com/gorilla/websocket"
)

// VoiceCallProcessor defines the call operations the handlers need
type VoiceCallProcessor interface {
	StartCall(ctx context.Context, req processor.StartCallRequest) (processor.StartCallResult, error)
	RunSession(ctx context.Context, media session.MediaChannel) error
	Transcript(ctx context.Context, callSID string) ([]transcript.Entry, error)
}

// SignatureValidator checks that a webhook really came from Twilio
type SignatureValidator interface {
	ValidateSignature(url string, params map[string]string, signature string) bool
}

type Handler struct {
	processor VoiceCallProcessor
	validator SignatureValidator
	baseURL   string
	logger    *observability.Logger
}

// New builds the voice call handlers. A nil validator disables webhook
// signature checks.
func New(processor VoiceCallProcessor, validator SignatureValidator, baseURL string, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		validator: validator,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// Twilio connects from its own media servers, so there is no browser origin to check
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}
