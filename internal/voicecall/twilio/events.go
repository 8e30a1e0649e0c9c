package twilio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownEvent   = errors.New("twilio: unknown media stream event")
	ErrMalformedEvent = errors.New("twilio: malformed media stream event")
)

// Event is one inbound media stream message.
type Event interface {
	Name() string
}

// ConnectedEvent is the first message on a new stream.
type ConnectedEvent struct {
	Protocol string
}

func (ConnectedEvent) Name() string { return "connected" }

// StartEvent identifies the stream and the call it belongs to.
type StartEvent struct {
	StreamSID        string
	CallSID          string
	CustomParameters map[string]string
}

func (StartEvent) Name() string { return "start" }

// MediaEvent is one chunk of caller audio. Timestamp is milliseconds since
// the stream started.
type MediaEvent struct {
	Timestamp int64
	Payload   string
}

func (MediaEvent) Name() string { return "media" }

// MarkEvent acknowledges that playback reached a previously sent mark.
type MarkEvent struct {
	MarkName string
}

func (MarkEvent) Name() string { return "mark" }

type StopEvent struct{}

func (StopEvent) Name() string { return "stop" }

type wireEvent struct {
	Event     string `json:"event"`
	Protocol  string `json:"protocol"`
	StreamSid string `json:"streamSid"`
	Start     *struct {
		StreamSid        string            `json:"streamSid"`
		CallSid          string            `json:"callSid"`
		CustomParameters map[string]string `json:"customParameters"`
	} `json:"start"`
	Media *struct {
		Timestamp json.RawMessage `json:"timestamp"`
		Payload   string          `json:"payload"`
	} `json:"media"`
	Mark *struct {
		Name string `json:"name"`
	} `json:"mark"`
}

// ParseEvent decodes one inbound message.
func ParseEvent(data []byte) (Event, error) {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch wire.Event {
	case "connected":
		return ConnectedEvent{Protocol: wire.Protocol}, nil

	case "start":
		if wire.Start == nil {
			return nil, fmt.Errorf("%w: start without body", ErrMalformedEvent)
		}
		streamSID := wire.Start.StreamSid
		if streamSID == "" {
			streamSID = wire.StreamSid
		}
		if streamSID == "" {
			return nil, fmt.Errorf("%w: start without streamSid", ErrMalformedEvent)
		}
		params := wire.Start.CustomParameters
		if params == nil {
			params = map[string]string{}
		}
		return StartEvent{
			StreamSID:        streamSID,
			CallSID:          wire.Start.CallSid,
			CustomParameters: params,
		}, nil

	case "media":
		if wire.Media == nil {
			return nil, fmt.Errorf("%w: media without body", ErrMalformedEvent)
		}
		ts, err := parseTimestamp(wire.Media.Timestamp)
		if err != nil {
			return nil, err
		}
		return MediaEvent{Timestamp: ts, Payload: wire.Media.Payload}, nil

	case "mark":
		if wire.Mark == nil {
			return nil, fmt.Errorf("%w: mark without body", ErrMalformedEvent)
		}
		return MarkEvent{MarkName: wire.Mark.Name}, nil

	case "stop":
		return StopEvent{}, nil

	case "":
		return nil, fmt.Errorf("%w: missing event tag", ErrMalformedEvent)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, wire.Event)
	}
}

// parseTimestamp accepts the string form Twilio sends as well as a bare number.
func parseTimestamp(raw json.RawMessage) (int64, error) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" {
		return 0, fmt.Errorf("%w: media without timestamp", ErrMalformedEvent)
	}
	ts, err := strconv.ParseInt(text, 10, 64)
	if err != nil || ts < 0 {
		return 0, fmt.Errorf("%w: bad media timestamp %q", ErrMalformedEvent, text)
	}
	return ts, nil
}

type outboundMedia struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

type outboundMark struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
	Mark      struct {
		Name string `json:"name"`
	} `json:"mark"`
}

type outboundClear struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
}
