package openai

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"callbridge/internal/observability"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// RealtimeDialer opens Realtime API websocket sessions.
type RealtimeDialer struct {
	url    string
	apiKey string
	dialer *websocket.Dialer
	logger *observability.Logger
}

func NewRealtimeDialer(url, apiKey string, logger *observability.Logger) (*RealtimeDialer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return &RealtimeDialer{
		url:    url,
		apiKey: apiKey,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger,
	}, nil
}

// Dial connects and returns once the websocket handshake succeeded.
func (d *RealtimeDialer) Dial(ctx context.Context) (*RealtimeConn, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+d.apiKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := d.dialer.DialContext(ctx, d.url, headers)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("openai realtime handshake failed with status %d: %w", resp.StatusCode, err)
		} else {
			err = fmt.Errorf("openai realtime dial failed: %w", err)
		}
		d.logger.Error(ctx, "Failed to connect to OpenAI realtime endpoint", err)
		return nil, err
	}

	d.logger.Info(ctx, "connected to OpenAI realtime")
	return &RealtimeConn{conn: conn}, nil
}

// RealtimeConn is one Realtime API session. Send may be called from any
// goroutine; ReadEvent must be called from a single reader.
type RealtimeConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewRealtimeConn(conn *websocket.Conn) *RealtimeConn {
	return &RealtimeConn{conn: conn}
}

func (c *RealtimeConn) Send(event ClientEvent) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(event); err != nil {
		return fmt.Errorf("openai realtime: failed to send %s: %w", event.EventType(), err)
	}
	return nil
}

// ReadEvent blocks for the next server event. Errors wrapping
// ErrUnhandledEvent or ErrMalformedEvent leave the connection usable; any
// other error means the connection is gone.
func (c *RealtimeConn) ReadEvent() (ServerEvent, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return ParseServerEvent(data)
}

// Close sends a close frame and releases the connection. Safe to call twice.
func (c *RealtimeConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
