// Package audio holds helpers for the G.711 μ-law audio carried by media
// streams. Payloads are relayed untouched; these helpers only measure them.
package audio

import (
	"encoding/base64"
	"strings"
	"time"
)

// Twilio media streams and the Realtime g711_ulaw format both use
// 8 kHz mono μ-law, one byte per sample.
const (
	SampleRate     = 8000
	BytesPerSample = 1
)

// DecodedLen returns the number of audio bytes a base64 payload carries
// without decoding it.
func DecodedLen(payload string) int {
	n := len(payload)
	if n == 0 {
		return 0
	}
	padding := len(payload) - len(strings.TrimRight(payload, "="))
	return n/4*3 + decodedTail(n%4) - padding
}

func decodedTail(rem int) int {
	// Unpadded input ends in a 2 or 3 character group.
	switch rem {
	case 2:
		return 1
	case 3:
		return 2
	default:
		return 0
	}
}

// PayloadDuration is the playback length of a base64 μ-law payload.
func PayloadDuration(payload string) time.Duration {
	samples := DecodedLen(payload) / BytesPerSample
	return time.Duration(samples) * time.Second / SampleRate
}

// ValidPayload reports whether payload is well-formed standard base64.
func ValidPayload(payload string) bool {
	_, err := base64.StdEncoding.DecodeString(payload)
	return err == nil
}
