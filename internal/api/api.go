package api

import (
	voiceHandler "callbridge/internal/voicecall/handler"

	"github.com/gin-gonic/gin"
)

type API struct {
	router           *gin.RouterGroup
	voiceHandler     voiceHandler.Handler
	startCallLimiter gin.HandlerFunc
}

// New builds the route table. startCallLimiter guards call creation and may
// be nil.
func New(router *gin.RouterGroup, voiceHandler voiceHandler.Handler, startCallLimiter gin.HandlerFunc) API {
	return API{
		router:           router,
		voiceHandler:     voiceHandler,
		startCallLimiter: startCallLimiter,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()

	// Twilio fetches the call flow with the method set on the call, accept both
	a.router.Match([]string{"GET", "POST"}, "/outgoing-call", a.voiceHandler.HandleOutgoingCall)
	a.router.GET("/media-stream", a.voiceHandler.HandleMediaStream)

	startCall := []gin.HandlerFunc{a.voiceHandler.HandleStartCall}
	if a.startCallLimiter != nil {
		startCall = append([]gin.HandlerFunc{a.startCallLimiter}, startCall...)
	}
	a.router.POST("/start-call", startCall...)
	callsGroup := a.router.Group("/calls")
	{
		callsGroup.GET("/:callSid/transcript", a.voiceHandler.HandleTranscript)
	}
}

func (a *API) Health() {
	a.router.GET("/", a.voiceHandler.HandleHealth)
	a.router.GET("/health", a.voiceHandler.HandleHealth)
}
