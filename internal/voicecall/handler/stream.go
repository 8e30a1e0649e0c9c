package handler

import (
	"context"
	"net/http"
	"strings"

	"callbridge/internal/apierrors"
	"callbridge/internal/voicecall/processor"
	"callbridge/internal/voicecall/session"
	"callbridge/internal/voicecall/twilio"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"
)

const (
	greetingVoice = "Polly.Joanna"
	greeting      = "You are now connected with FAST TRACK AI assistant."
	handoff       = "Transfering your call to Fast Track Agent, Speak when you are ready."
)

// HandleOutgoingCall answers Twilio's call flow webhook with markup that
// greets the callee and opens a media stream back to this server
func (h *Handler) HandleOutgoingCall(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.validRequest(c) {
		apierrors.RespondWithError(c, apierrors.Forbidden(apierrors.CodeInvalidSignature, "Invalid Twilio signature"))
		return
	}

	contextKey := c.Query(session.ContextParameter)
	stream := twiml.VoiceStream{Url: processor.StreamURL(c.Request.Host)}
	if contextKey != "" {
		stream.InnerElements = []twiml.Element{
			twiml.VoiceParameter{Name: session.ContextParameter, Value: contextKey},
		}
	} else {
		h.logger.Warn(ctx, "call flow requested without context key")
	}

	markup, err := twiml.Voice([]twiml.Element{
		twiml.VoiceSay{Message: greeting, Voice: greetingVoice},
		twiml.VoicePause{Length: "1"},
		twiml.VoiceSay{Message: handoff, Voice: greetingVoice},
		twiml.VoiceConnect{InnerElements: []twiml.Element{stream}},
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	h.logger.Debug(ctx, "call flow markup served")
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, markup)
}

// validRequest checks X-Twilio-Signature against the public URL Twilio called
// and the POSTed form fields.
func (h *Handler) validRequest(c *gin.Context) bool {
	if h.validator == nil {
		return true
	}

	params := map[string]string{}
	if c.Request.Method == http.MethodPost {
		if err := c.Request.ParseForm(); err != nil {
			h.logger.WarnWithError(c.Request.Context(), "failed to parse webhook form", err)
			return false
		}
		for key, values := range c.Request.PostForm {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
	}

	url := strings.TrimRight(h.baseURL, "/") + c.Request.URL.RequestURI()
	return h.validator.ValidateSignature(url, params, c.GetHeader("X-Twilio-Signature"))
}

// HandleMediaStream upgrades Twilio's media stream and relays it until the
// call ends
func (h *Handler) HandleMediaStream(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(ctx, "WebSocket upgrade failed", err)
		return
	}

	// the session outlives the HTTP request context once hijacked
	sessionCtx := context.WithoutCancel(ctx)
	if err := h.processor.RunSession(sessionCtx, twilio.NewMediaStream(conn)); err != nil {
		h.logger.WarnWithError(ctx, "media stream session ended with error", err)
		return
	}
	h.logger.Info(ctx, "media stream session ended")
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleHealth reports that the server is up
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Message: "Media stream relay is running"})
}
