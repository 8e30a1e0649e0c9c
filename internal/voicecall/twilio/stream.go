package twilio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// MediaStream is the server side of a Twilio media stream websocket.
// Writes are serialized; ReadEvent must be called from a single reader.
type MediaStream struct {
	conn       *websocket.Conn
	writeMutex sync.Mutex
	closeOnce  sync.Once
	closeErr   error
}

func NewMediaStream(conn *websocket.Conn) *MediaStream {
	return &MediaStream{conn: conn}
}

// ReadEvent blocks for the next message. Errors wrapping ErrUnknownEvent or
// ErrMalformedEvent leave the stream usable; any other error ends it.
func (s *MediaStream) ReadEvent() (Event, error) {
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return ParseEvent(msg)
}

// SendMedia plays a base64 μ-law payload to the caller.
func (s *MediaStream) SendMedia(streamSID, payload string) error {
	msg := outboundMedia{Event: "media", StreamSid: streamSID}
	msg.Media.Payload = payload
	return s.write(msg)
}

// SendMark asks Twilio to echo name back once playback reaches this point.
func (s *MediaStream) SendMark(streamSID, name string) error {
	msg := outboundMark{Event: "mark", StreamSid: streamSID}
	msg.Mark.Name = name
	return s.write(msg)
}

// SendClear discards audio buffered for playback.
func (s *MediaStream) SendClear(streamSID string) error {
	return s.write(outboundClear{Event: "clear", StreamSid: streamSID})
}

func (s *MediaStream) write(msg interface{}) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("twilio media stream write: %w", err)
	}
	return nil
}

// Close sends a close frame and releases the connection. Safe to call twice.
func (s *MediaStream) Close() error {
	s.closeOnce.Do(func() {
		s.writeMutex.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMutex.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
