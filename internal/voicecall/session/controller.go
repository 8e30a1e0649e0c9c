package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"callbridge/internal/callcontext"
	"callbridge/internal/clients/openai"
	"callbridge/internal/observability"
	"callbridge/internal/transcript"
	"callbridge/internal/voice/audio"
	"callbridge/internal/voicecall/twilio"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ContextParameter is the stream custom parameter carrying the correlation
// key issued when the call was created.
const ContextParameter = "contextId"

// MediaChannel is the telephony side of a call.
type MediaChannel interface {
	ReadEvent() (twilio.Event, error)
	SendMedia(streamSID, payload string) error
	SendMark(streamSID, name string) error
	SendClear(streamSID string) error
	Close() error
}

// RealtimeConn is the AI side of a call.
type RealtimeConn interface {
	Send(event openai.ClientEvent) error
	ReadEvent() (openai.ServerEvent, error)
	Close() error
}

type RealtimeDialer interface {
	Dial(ctx context.Context) (RealtimeConn, error)
}

type CallControl interface {
	CompleteCall(ctx context.Context, callSID string) error
}

type ContextResolver interface {
	Resolve(ctx context.Context, keys ...string) (callcontext.CallContext, string, error)
}

type ContextRemover interface {
	Delete(ctx context.Context, key string) error
}

// CallRegistry binds a call sid to the one controller relaying it. Claim
// reports false when another controller already holds the call.
type CallRegistry interface {
	Claim(callSID string, ctrl *Controller) bool
	Release(callSID string, ctrl *Controller)
}

// ErrDuplicateCall is returned by Run when the stream belongs to a call
// that already has a live session.
var ErrDuplicateCall = errors.New("call already has a live session")

// Config tunes a session.
type Config struct {
	Voice              string
	Temperature        float64
	TranscriptionModel string
	GoodbyeDelay       time.Duration
	ClosingPhrases     []string
	CleanupTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Voice:              "shimmer",
		Temperature:        0.8,
		TranscriptionModel: "whisper-1",
		GoodbyeDelay:       6 * time.Second,
		ClosingPhrases:     DefaultClosingPhrases,
		CleanupTimeout:     5 * time.Second,
	}
}

// Dependencies are shared by every session. Publisher, Transcripts and
// Registry may be nil.
type Dependencies struct {
	Registry    CallRegistry
	Dialer      RealtimeDialer
	Calls       CallControl
	Resolver    ContextResolver
	Contexts    ContextRemover
	Transcripts transcript.Store
	Publisher   transcript.Publisher
	Logger      *observability.Logger
}

type dialResult struct {
	conn RealtimeConn
	err  error
}

type resolveResult struct {
	cc  callcontext.CallContext
	key string
	err error
}

type transcriptWrite struct {
	callSID string
	entry   transcript.Entry
}

type stats struct {
	chunksIn    int
	chunksOut   int
	droppedIn   int
	marksSent   int
	marksAcked  int
	bargeIns    int
	callerAudio time.Duration
	agentAudio  time.Duration
}

// Controller relays one call between the telephony media stream and the
// Realtime API. All session state is owned by the goroutine running Run;
// transport readers only decode and forward events to it.
type Controller struct {
	id      string
	media   MediaChannel
	deps    Dependencies
	cfg     Config
	closing ClosingDetector
	now     func() time.Time

	session             *CallSession
	ai                  RealtimeConn
	configured          bool
	contextKey          string
	claimed             bool
	completionRequested bool
	startedAt           time.Time
	stats               stats

	logCtx         context.Context
	cancel         context.CancelFunc
	terminateTimer *time.Timer
	terminateC     <-chan time.Time

	mediaEvents chan twilio.Event
	mediaErr    chan error
	aiEvents    chan openai.ServerEvent
	aiErr       chan error
	resolved    chan resolveResult

	dialMu   sync.Mutex
	dialed   chan dialResult
	released bool

	writes     chan transcriptWrite
	writerDone chan struct{}

	stopOnce    sync.Once
	stop        chan struct{}
	cleanupOnce sync.Once
	done        chan struct{}
}

func NewController(media MediaChannel, deps Dependencies, cfg Config) *Controller {
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = DefaultConfig().CleanupTimeout
	}
	return &Controller{
		id:          uuid.NewString(),
		media:       media,
		deps:        deps,
		cfg:         cfg,
		closing:     NewClosingDetector(cfg.ClosingPhrases),
		now:         time.Now,
		session:     NewCallSession(),
		mediaEvents: make(chan twilio.Event, 64),
		mediaErr:    make(chan error, 1),
		aiEvents:    make(chan openai.ServerEvent, 64),
		aiErr:       make(chan error, 1),
		resolved:    make(chan resolveResult, 1),
		dialed:      make(chan dialResult, 1),
		writes:      make(chan transcriptWrite, 64),
		writerDone:  make(chan struct{}),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (c *Controller) ID() string { return c.id }

// Done is closed once cleanup has finished.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Session exposes the call state. Only read it after Done is closed.
func (c *Controller) Session() *CallSession { return c.session }

// Close asks Run to end the session. It does not wait.
func (c *Controller) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Run relays the call until the caller hangs up, the agent says goodbye,
// a transport fails or ctx ends. Cleanup always runs before it returns.
func (c *Controller) Run(ctx context.Context) (err error) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.logCtx = observability.WithFields(ctx, observability.Field{Key: "session_id", Value: c.id})
	c.startedAt = c.now()

	defer func() { c.cleanup(err) }()

	go c.writeTranscripts(c.logCtx)
	go c.readMedia(ctx, c.logCtx)
	go c.dial(ctx)

	c.deps.Logger.Info(c.logCtx, "media stream connected")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-c.stop:
			return nil

		case event := <-c.mediaEvents:
			if end, endErr := c.handleMedia(ctx, event); end {
				return endErr
			}

		case readErr := <-c.mediaErr:
			if websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.deps.Logger.Info(c.logCtx, "media stream closed by caller side")
			} else {
				c.deps.Logger.InfoWithError(c.logCtx, "media stream ended", readErr)
			}
			return nil

		case res := <-c.dialed:
			if res.err != nil {
				return res.err
			}
			c.ai = res.conn
			go c.readRealtime(ctx, c.logCtx, res.conn)
			c.configure()

		case event := <-c.aiEvents:
			c.handleRealtime(event)

		case readErr := <-c.aiErr:
			return readErr

		case res := <-c.resolved:
			c.applyContext(res)

		case <-c.terminateC:
			c.deps.Logger.Info(c.logCtx, "goodbye delay elapsed, ending call")
			c.requestCompletion()
			return nil
		}
	}
}

func (c *Controller) readMedia(ctx, logCtx context.Context) {
	for {
		event, err := c.media.ReadEvent()
		if err != nil {
			if errors.Is(err, twilio.ErrUnknownEvent) {
				c.deps.Logger.Debug(logCtx, err.Error())
				continue
			}
			if errors.Is(err, twilio.ErrMalformedEvent) {
				c.deps.Logger.WarnWithError(logCtx, "skipping malformed media stream message", err)
				continue
			}
			select {
			case c.mediaErr <- err:
			case <-ctx.Done():
			}
			return
		}

		select {
		case c.mediaEvents <- event:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) readRealtime(ctx, logCtx context.Context, conn RealtimeConn) {
	for {
		event, err := conn.ReadEvent()
		if err != nil {
			if errors.Is(err, openai.ErrUnhandledEvent) {
				c.deps.Logger.Debug(logCtx, err.Error())
				continue
			}
			if errors.Is(err, openai.ErrMalformedEvent) {
				c.deps.Logger.WarnWithError(logCtx, "skipping malformed realtime message", err)
				continue
			}
			select {
			case c.aiErr <- err:
			case <-ctx.Done():
			}
			return
		}

		select {
		case c.aiEvents <- event:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) dial(ctx context.Context) {
	conn, err := c.deps.Dialer.Dial(ctx)

	c.dialMu.Lock()
	defer c.dialMu.Unlock()
	if c.released {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	c.dialed <- dialResult{conn: conn, err: err}
}

// releaseDial closes a connection that was dialed but never picked up by Run.
func (c *Controller) releaseDial() {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()
	c.released = true
	select {
	case res := <-c.dialed:
		if res.conn != nil {
			_ = res.conn.Close()
		}
	default:
	}
}

func (c *Controller) resolve(ctx context.Context, keys ...string) {
	cc, key, err := c.deps.Resolver.Resolve(ctx, keys...)
	c.resolved <- resolveResult{cc: cc, key: key, err: err}
}

// handleMedia reports whether the event ends the session, and with which error.
func (c *Controller) handleMedia(ctx context.Context, event twilio.Event) (bool, error) {
	switch ev := event.(type) {
	case twilio.ConnectedEvent:
		c.deps.Logger.Debug(c.logCtx, "media stream handshake received")

	case twilio.StartEvent:
		if err := c.start(ctx, ev); err != nil {
			return true, err
		}

	case twilio.MediaEvent:
		c.relayCallerAudio(ev)

	case twilio.MarkEvent:
		c.ackMark(ev)

	case twilio.StopEvent:
		c.deps.Logger.Info(c.logCtx, "media stream stopped")
		return true, nil
	}
	return false, nil
}

func (c *Controller) start(ctx context.Context, ev twilio.StartEvent) error {
	if c.session.Started() {
		c.deps.Logger.WarnWithError(c.logCtx, "ignoring repeated start event", ErrAlreadyStarted)
		return nil
	}
	// a rejected stream never binds the call sid
	if c.deps.Registry != nil && ev.CallSID != "" {
		if !c.deps.Registry.Claim(ev.CallSID, c) {
			c.deps.Logger.Warn(observability.WithFields(c.logCtx,
				observability.Field{Key: "call_sid", Value: ev.CallSID},
				observability.Field{Key: "stream_sid", Value: ev.StreamSID},
			), "rejecting second media stream for live call")
			return ErrDuplicateCall
		}
		c.claimed = true
	}
	if err := c.session.Start(ev.CallSID, ev.StreamSID); err != nil {
		c.deps.Logger.WarnWithError(c.logCtx, "ignoring repeated start event", err)
		return nil
	}
	c.contextKey = ev.CustomParameters[ContextParameter]
	c.logCtx = observability.WithFields(c.logCtx,
		observability.Field{Key: "call_sid", Value: ev.CallSID},
		observability.Field{Key: "stream_sid", Value: ev.StreamSID},
	)
	c.deps.Logger.Info(c.logCtx, "media stream started")

	go c.resolve(ctx, ev.CallSID, c.contextKey)
	return nil
}

func (c *Controller) applyContext(res resolveResult) {
	degraded := res.err != nil
	if degraded {
		c.deps.Logger.WarnWithError(c.logCtx, "call context unavailable, using generic instructions", res.err)
	} else {
		c.deps.Logger.Info(observability.WithFields(c.logCtx,
			observability.Field{Key: "context_key", Value: res.key},
		), "call context resolved")
	}

	if err := c.session.LoadContext(res.cc, degraded); err != nil {
		c.deps.Logger.WarnWithError(c.logCtx, "ignoring second call context", err)
		return
	}
	c.configure()
}

// configure sends session.update once both the realtime connection and the
// call context are available.
func (c *Controller) configure() {
	if c.configured || c.ai == nil || !c.session.ContextLoaded() {
		return
	}

	update := openai.SessionUpdate{Session: openai.SessionConfig{
		TurnDetection:     openai.TurnDetection{Type: openai.TurnDetectionServer},
		InputAudioFormat:  openai.AudioFormatG711ULaw,
		OutputAudioFormat: openai.AudioFormatG711ULaw,
		Voice:             c.cfg.Voice,
		Instructions:      Instructions(c.session.Context(), c.session.Degraded()),
		Modalities:        []string{"text", "audio"},
		Temperature:       c.cfg.Temperature,
	}}
	if c.cfg.TranscriptionModel != "" {
		update.Session.InputAudioTranscription = &openai.InputAudioTranscription{Model: c.cfg.TranscriptionModel}
	}

	if err := c.ai.Send(update); err != nil {
		c.deps.Logger.Error(c.logCtx, "failed to configure realtime session", err)
		return
	}
	c.configured = true

	if err := c.session.Transition(Active); err != nil {
		c.deps.Logger.Debug(c.logCtx, err.Error())
	}
	c.deps.Logger.Info(c.logCtx, "realtime session configured")
}

func (c *Controller) relayCallerAudio(ev twilio.MediaEvent) {
	c.session.ObserveMedia(ev.Timestamp)
	c.stats.chunksIn++

	if c.ai == nil {
		c.stats.droppedIn++
		return
	}
	if err := c.ai.Send(openai.InputAudioAppend{Audio: ev.Payload}); err != nil {
		c.deps.Logger.WarnWithError(c.logCtx, "failed to forward caller audio", err)
		return
	}
	c.stats.callerAudio += audio.PayloadDuration(ev.Payload)
}

func (c *Controller) ackMark(ev twilio.MarkEvent) {
	token, ok := c.session.AckMark()
	if !ok {
		c.deps.Logger.Debug(c.logCtx, "mark acknowledged with no mark outstanding")
		return
	}
	c.stats.marksAcked++
	if token != ev.MarkName {
		c.deps.Logger.Warn(observability.WithFields(c.logCtx,
			observability.Field{Key: "expected_mark", Value: token},
			observability.Field{Key: "received_mark", Value: ev.MarkName},
		), "mark acknowledged out of order")
	}
}

func (c *Controller) handleRealtime(event openai.ServerEvent) {
	switch ev := event.(type) {
	case openai.AudioDelta:
		c.relayAgentAudio(ev)

	case openai.SpeechStarted:
		c.bargeIn()

	case openai.AudioTranscriptDone:
		c.agentSaid(ev.Transcript)

	case openai.InputTranscriptionCompleted:
		c.record(transcript.RoleCaller, ev.Transcript)

	case openai.ErrorEvent:
		c.deps.Logger.Error(c.logCtx, "realtime service reported an error", ev)

	case openai.SessionCreated, openai.SessionUpdated:
		c.deps.Logger.Debug(c.logCtx, event.EventType())
	}
}

func (c *Controller) relayAgentAudio(ev openai.AudioDelta) {
	if !c.session.Started() {
		c.deps.Logger.Debug(c.logCtx, "dropping agent audio before stream start")
		return
	}
	streamID := c.session.StreamID

	if err := c.media.SendMedia(streamID, ev.Delta); err != nil {
		c.deps.Logger.WarnWithError(c.logCtx, "failed to send agent audio", err)
		return
	}
	c.stats.chunksOut++
	c.stats.agentAudio += audio.PayloadDuration(ev.Delta)

	token := uuid.NewString()
	if c.session.RecordChunk(ev.ItemID, token) {
		c.deps.Logger.Debug(c.logCtx, "agent response started")
	}
	if err := c.media.SendMark(streamID, token); err != nil {
		c.deps.Logger.WarnWithError(c.logCtx, "failed to send mark", err)
		return
	}
	c.stats.marksSent++
}

func (c *Controller) bargeIn() {
	truncation, interrupted := c.session.Interrupt()
	if !interrupted {
		return
	}
	c.stats.bargeIns++

	if truncation.ItemID != "" {
		err := c.ai.Send(openai.ItemTruncate{
			ItemID:       truncation.ItemID,
			ContentIndex: 0,
			AudioEndMs:   truncation.AudioEndMs,
		})
		if err != nil {
			c.deps.Logger.WarnWithError(c.logCtx, "failed to truncate agent item", err)
		}
	} else {
		c.deps.Logger.Debug(c.logCtx, "interrupted response has no item id, skipping truncate")
	}

	if err := c.media.SendClear(c.session.StreamID); err != nil {
		c.deps.Logger.WarnWithError(c.logCtx, "failed to clear playback", err)
	}

	c.deps.Logger.Info(observability.WithFields(c.logCtx,
		observability.Field{Key: "item_id", Value: truncation.ItemID},
		observability.Field{Key: "audio_end_ms", Value: truncation.AudioEndMs},
	), "caller interrupted agent")
}

func (c *Controller) agentSaid(text string) {
	c.record(transcript.RoleAgent, text)

	if !c.closing.Matches(text) || !c.session.RequestTermination() {
		return
	}
	c.deps.Logger.Info(observability.WithFields(c.logCtx,
		observability.Field{Key: "delay_ms", Value: c.cfg.GoodbyeDelay.Milliseconds()},
	), "closing phrase detected")
	c.terminateTimer = time.NewTimer(c.cfg.GoodbyeDelay)
	c.terminateC = c.terminateTimer.C
}

func (c *Controller) record(role transcript.Role, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	entry := c.session.AppendTranscript(role, text, c.now())

	if c.deps.Transcripts == nil || c.session.CallID == "" {
		return
	}
	select {
	case c.writes <- transcriptWrite{callSID: c.session.CallID, entry: entry}:
	default:
		c.deps.Logger.Warn(c.logCtx, "transcript writer backlogged, entry kept in memory only")
	}
}

// writeTranscripts persists entries in order without blocking the relay.
func (c *Controller) writeTranscripts(logCtx context.Context) {
	defer close(c.writerDone)
	for w := range c.writes {
		ctx, cancel := c.detached(logCtx)
		if err := c.deps.Transcripts.Append(ctx, w.callSID, w.entry); err != nil {
			c.deps.Logger.WarnWithError(logCtx, "failed to persist transcript entry", err)
		}
		cancel()
	}
}

func (c *Controller) requestCompletion() {
	callSID := c.session.CallID
	if c.completionRequested || callSID == "" {
		return
	}
	c.completionRequested = true

	ctx, cancel := c.detached(c.logCtx)
	defer cancel()
	if err := c.deps.Calls.CompleteCall(ctx, callSID); err != nil {
		c.deps.Logger.Error(c.logCtx, "failed to complete call", err)
		return
	}
	c.deps.Logger.Info(c.logCtx, "call completed")
}

// detached returns a bounded context that outlives session cancellation.
func (c *Controller) detached(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), c.cfg.CleanupTimeout)
}

// cleanup releases everything the session holds. It runs once, whatever
// path ended the session.
func (c *Controller) cleanup(reason error) {
	c.cleanupOnce.Do(func() {
		defer close(c.done)

		if err := c.session.Transition(Terminating); err != nil {
			c.deps.Logger.Debug(c.logCtx, err.Error())
		}
		if reason != nil && !errors.Is(reason, context.Canceled) {
			c.deps.Logger.WarnWithError(c.logCtx, "session ended with error", reason)
		}

		c.cancel()
		if c.terminateTimer != nil {
			c.terminateTimer.Stop()
		}
		c.releaseDial()

		if err := c.media.Close(); err != nil {
			c.deps.Logger.Debug(c.logCtx, "media stream close: "+err.Error())
		}
		if c.ai != nil {
			if err := c.ai.Close(); err != nil {
				c.deps.Logger.Debug(c.logCtx, "realtime close: "+err.Error())
			}
		}

		c.requestCompletion()
		c.forgetContext()

		close(c.writes)
		<-c.writerDone
		c.publishTranscript()

		if c.claimed {
			c.deps.Registry.Release(c.session.CallID, c)
		}

		c.emitMetrics()
		_ = c.session.Transition(Closed)
		c.deps.Logger.Info(c.logCtx, "session closed")
	})
}

func (c *Controller) forgetContext() {
	if c.deps.Contexts == nil {
		return
	}
	ctx, cancel := c.detached(c.logCtx)
	defer cancel()

	for _, key := range []string{c.session.CallID, c.contextKey} {
		if key == "" {
			continue
		}
		if err := c.deps.Contexts.Delete(ctx, key); err != nil {
			c.deps.Logger.WarnWithError(c.logCtx, "failed to delete call context", err)
		}
	}
}

func (c *Controller) publishTranscript() {
	callSID := c.session.CallID
	if callSID == "" {
		return
	}
	ctx, cancel := c.detached(c.logCtx)
	defer cancel()

	if entries := c.session.Transcript(); len(entries) > 0 && c.deps.Publisher != nil {
		if err := c.deps.Publisher.Publish(ctx, callSID, entries); err != nil {
			c.deps.Logger.Error(c.logCtx, "failed to publish transcript", err)
		}
	}
	if c.deps.Transcripts != nil {
		if err := c.deps.Transcripts.Delete(ctx, callSID); err != nil {
			c.deps.Logger.WarnWithError(c.logCtx, "failed to delete transcript", err)
		}
	}
}

func (c *Controller) emitMetrics() {
	c.deps.Logger.Metrics(c.logCtx,
		observability.MetricField{Key: "chunks_in", Value: c.stats.chunksIn},
		observability.MetricField{Key: "chunks_out", Value: c.stats.chunksOut},
		observability.MetricField{Key: "chunks_dropped", Value: c.stats.droppedIn},
		observability.MetricField{Key: "caller_audio_ms", Value: c.stats.callerAudio.Milliseconds()},
		observability.MetricField{Key: "agent_audio_ms", Value: c.stats.agentAudio.Milliseconds()},
		observability.MetricField{Key: "marks_sent", Value: c.stats.marksSent},
		observability.MetricField{Key: "marks_acked", Value: c.stats.marksAcked},
		observability.MetricField{Key: "barge_ins", Value: c.stats.bargeIns},
		observability.MetricField{Key: "degraded", Value: c.session.Degraded()},
		observability.MetricField{Key: "duration_ms", Value: c.now().Sub(c.startedAt).Milliseconds()},
	)
}
