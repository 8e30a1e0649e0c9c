package session

import (
	"errors"
	"fmt"
	"time"

	"callbridge/internal/callcontext"
	"callbridge/internal/transcript"
)

var (
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrAlreadyStarted    = errors.New("session already started")
	ErrContextLoaded     = errors.New("call context already loaded")
)

type State int

const (
	AwaitingContext State = iota
	Active
	Interrupted
	Terminating
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingContext:
		return "awaiting_context"
	case Active:
		return "active"
	case Interrupted:
		return "interrupted"
	case Terminating:
		return "terminating"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State][]State{
	AwaitingContext: {Active, Terminating},
	Active:          {Interrupted, Terminating},
	Interrupted:     {Active, Terminating},
	Terminating:     {Closed},
}

// Truncation tells the AI service where playback of an item stopped.
type Truncation struct {
	ItemID     string
	AudioEndMs int64
}

// CallSession is the per-call relay state. It is not safe for concurrent
// use; the Controller owns it from a single goroutine.
type CallSession struct {
	CallID   string
	StreamID string

	state      State
	mediaClock int64

	responseStart    int64
	hasResponseStart bool
	activeItemID     string
	marks            MarkQueue

	context       callcontext.CallContext
	contextLoaded bool
	degraded      bool

	terminationRequested bool
	transcript           []transcript.Entry
}

func NewCallSession() *CallSession {
	return &CallSession{state: AwaitingContext}
}

func (s *CallSession) State() State { return s.state }

// MediaClock is the latest caller media timestamp in milliseconds.
func (s *CallSession) MediaClock() int64 { return s.mediaClock }

func (s *CallSession) Started() bool { return s.StreamID != "" }

// Start binds the session to its call and stream.
func (s *CallSession) Start(callID, streamID string) error {
	if s.Started() {
		return ErrAlreadyStarted
	}
	s.CallID = callID
	s.StreamID = streamID
	s.mediaClock = 0
	s.resetPlayback()
	return nil
}

// ObserveMedia advances the media clock. Older timestamps are ignored.
func (s *CallSession) ObserveMedia(ts int64) {
	if ts > s.mediaClock {
		s.mediaClock = ts
	}
}

// LoadContext records the resolved context. It can only happen once.
func (s *CallSession) LoadContext(cc callcontext.CallContext, degraded bool) error {
	if s.contextLoaded {
		return ErrContextLoaded
	}
	s.context = cc
	s.degraded = degraded
	s.contextLoaded = true
	return nil
}

func (s *CallSession) ContextLoaded() bool { return s.contextLoaded }

func (s *CallSession) Context() callcontext.CallContext { return s.context }

func (s *CallSession) Degraded() bool { return s.degraded }

// RecordChunk notes that one agent audio chunk was sent to the caller under
// token. It reports whether the chunk starts a new response, which is the
// case for the first chunk after a reset and for the first chunk of a
// different item.
func (s *CallSession) RecordChunk(itemID, token string) bool {
	first := !s.hasResponseStart || (itemID != "" && itemID != s.activeItemID)
	if first {
		s.responseStart = s.mediaClock
		s.hasResponseStart = true
	}
	if itemID != "" {
		s.activeItemID = itemID
	}
	s.marks.Push(token)
	if s.state == Interrupted {
		s.state = Active
	}
	return first
}

// AckMark pops the oldest outstanding token.
func (s *CallSession) AckMark() (string, bool) {
	return s.marks.Pop()
}

func (s *CallSession) PendingMarks() int { return s.marks.Len() }

func (s *CallSession) ActiveItemID() string { return s.activeItemID }

// ResponseStart is the media clock value when the current response began.
func (s *CallSession) ResponseStart() (int64, bool) {
	return s.responseStart, s.hasResponseStart
}

// Interrupt handles caller speech over agent audio. When audio is still
// queued for playback it returns the truncation point and resets the
// playback bookkeeping in one step. It returns false when nothing is playing.
func (s *CallSession) Interrupt() (Truncation, bool) {
	if s.marks.Len() == 0 || !s.hasResponseStart {
		return Truncation{}, false
	}

	elapsed := s.mediaClock - s.responseStart
	if elapsed < 0 {
		elapsed = 0
	}
	t := Truncation{ItemID: s.activeItemID, AudioEndMs: elapsed}

	s.resetPlayback()
	if s.state == Active {
		s.state = Interrupted
	}
	return t, true
}

func (s *CallSession) resetPlayback() {
	s.marks.Clear()
	s.activeItemID = ""
	s.responseStart = 0
	s.hasResponseStart = false
}

// Transition moves the session to another state. Moving to the current
// state is a no-op; Closed is terminal.
func (s *CallSession) Transition(to State) error {
	if s.state == to {
		return nil
	}
	for _, allowed := range transitions[s.state] {
		if allowed == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
}

// RequestTermination enters Terminating the first time it is called and
// reports whether this call did so.
func (s *CallSession) RequestTermination() bool {
	if s.terminationRequested || s.state == Closed {
		return false
	}
	s.terminationRequested = true
	s.state = Terminating
	return true
}

// AppendTranscript records a completed utterance and returns it.
func (s *CallSession) AppendTranscript(role transcript.Role, text string, at time.Time) transcript.Entry {
	entry := transcript.Entry{Role: role, Text: text, At: at}
	s.transcript = append(s.transcript, entry)
	return entry
}

// Transcript returns a copy of the utterances recorded so far.
func (s *CallSession) Transcript() []transcript.Entry {
	out := make([]transcript.Entry, len(s.transcript))
	copy(out, s.transcript)
	return out
}
