package openai

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnhandledEvent = errors.New("openai: unhandled realtime event")
	ErrMalformedEvent = errors.New("openai: malformed realtime event")
)

// Audio formats and turn detection modes understood by the Realtime API.
const (
	AudioFormatG711ULaw = "g711_ulaw"
	TurnDetectionServer = "server_vad"
)

// ClientEvent is a message sent to the Realtime API.
type ClientEvent interface {
	EventType() string
}

type TurnDetection struct {
	Type string `json:"type"`
}

type InputAudioTranscription struct {
	Model string `json:"model"`
}

// SessionConfig is the payload of session.update.
type SessionConfig struct {
	TurnDetection           TurnDetection            `json:"turn_detection"`
	InputAudioFormat        string                   `json:"input_audio_format"`
	OutputAudioFormat       string                   `json:"output_audio_format"`
	Voice                   string                   `json:"voice"`
	Instructions            string                   `json:"instructions"`
	Modalities              []string                 `json:"modalities"`
	Temperature             float64                  `json:"temperature"`
	InputAudioTranscription *InputAudioTranscription `json:"input_audio_transcription,omitempty"`
}

type SessionUpdate struct {
	Session SessionConfig `json:"session"`
}

func (SessionUpdate) EventType() string { return "session.update" }

func (e SessionUpdate) MarshalJSON() ([]byte, error) {
	type body SessionUpdate
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{e.EventType(), body(e)})
}

// InputAudioAppend carries one base64 μ-law chunk of caller audio.
type InputAudioAppend struct {
	Audio string `json:"audio"`
}

func (InputAudioAppend) EventType() string { return "input_audio_buffer.append" }

func (e InputAudioAppend) MarshalJSON() ([]byte, error) {
	type body InputAudioAppend
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{e.EventType(), body(e)})
}

// ItemTruncate cuts an assistant item at the point playback stopped.
type ItemTruncate struct {
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMs   int64  `json:"audio_end_ms"`
}

func (ItemTruncate) EventType() string { return "conversation.item.truncate" }

func (e ItemTruncate) MarshalJSON() ([]byte, error) {
	type body ItemTruncate
	return json.Marshal(struct {
		Type string `json:"type"`
		body
	}{e.EventType(), body(e)})
}

// ServerEvent is a message received from the Realtime API.
type ServerEvent interface {
	EventType() string
}

// AudioDelta is a chunk of synthesized agent audio, base64 μ-law.
type AudioDelta struct {
	ItemID string `json:"item_id"`
	Delta  string `json:"delta"`
}

func (AudioDelta) EventType() string { return "response.audio.delta" }

// AudioTranscriptDone is the full text of what the agent said in one item.
type AudioTranscriptDone struct {
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

func (AudioTranscriptDone) EventType() string { return "response.audio_transcript.done" }

// InputTranscriptionCompleted is the recognized text of a caller utterance.
type InputTranscriptionCompleted struct {
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

func (InputTranscriptionCompleted) EventType() string {
	return "conversation.item.input_audio_transcription.completed"
}

// SpeechStarted means the service detected the caller talking.
type SpeechStarted struct {
	ItemID       string `json:"item_id"`
	AudioStartMs int64  `json:"audio_start_ms"`
}

func (SpeechStarted) EventType() string { return "input_audio_buffer.speech_started" }

type SessionCreated struct{}

func (SessionCreated) EventType() string { return "session.created" }

type SessionUpdated struct{}

func (SessionUpdated) EventType() string { return "session.updated" }

// ErrorEvent is a protocol-level error reported by the service.
type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (ErrorEvent) EventType() string { return "error" }

func (e ErrorEvent) Error() string {
	return fmt.Sprintf("openai realtime error %s (%s): %s", e.Code, e.Type, e.Message)
}

// ParseServerEvent decodes one Realtime API message.
func ParseServerEvent(data []byte) (ServerEvent, error) {
	var envelope struct {
		Type  string          `json:"type"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch envelope.Type {
	case "response.audio.delta":
		return decode[AudioDelta](data)
	case "response.audio_transcript.done":
		return decode[AudioTranscriptDone](data)
	case "conversation.item.input_audio_transcription.completed":
		return decode[InputTranscriptionCompleted](data)
	case "input_audio_buffer.speech_started":
		return decode[SpeechStarted](data)
	case "session.created":
		return SessionCreated{}, nil
	case "session.updated":
		return SessionUpdated{}, nil
	case "error":
		var event ErrorEvent
		if len(envelope.Error) > 0 {
			if err := json.Unmarshal(envelope.Error, &event); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
			}
		}
		return event, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledEvent, envelope.Type)
	}
}

func decode[T ServerEvent](data []byte) (ServerEvent, error) {
	var event T
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return event, nil
}
