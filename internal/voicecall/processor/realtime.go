package processor

import (
	"context"

	"callbridge/internal/clients/openai"
	"callbridge/internal/voicecall/session"
)

type realtimeDialer struct {
	dialer *openai.RealtimeDialer
}

// NewRealtimeDialer adapts the OpenAI dialer to the session interface.
func NewRealtimeDialer(dialer *openai.RealtimeDialer) session.RealtimeDialer {
	return realtimeDialer{dialer: dialer}
}

func (d realtimeDialer) Dial(ctx context.Context) (session.RealtimeConn, error) {
	conn, err := d.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
