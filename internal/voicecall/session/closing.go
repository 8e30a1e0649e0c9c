package session

import "strings"

// DefaultClosingPhrases end the call when the agent says any of them.
var DefaultClosingPhrases = []string{"goodbye", "take care", "have a nice day"}

// ClosingDetector spots closing phrases in completed agent transcripts.
type ClosingDetector struct {
	phrases []string
}

func NewClosingDetector(phrases []string) ClosingDetector {
	if len(phrases) == 0 {
		phrases = DefaultClosingPhrases
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return ClosingDetector{phrases: lowered}
}

// Matches reports whether text contains a closing phrase, ignoring case.
func (d ClosingDetector) Matches(text string) bool {
	text = strings.ToLower(text)
	for _, p := range d.phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
