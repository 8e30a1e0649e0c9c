package session

// MarkQueue holds the tokens of agent audio chunks that were sent to the
// caller but not yet confirmed as played, oldest first.
type MarkQueue struct {
	tokens []string
}

func (q *MarkQueue) Push(token string) {
	q.tokens = append(q.tokens, token)
}

// Pop removes the oldest token.
func (q *MarkQueue) Pop() (string, bool) {
	if len(q.tokens) == 0 {
		return "", false
	}
	token := q.tokens[0]
	q.tokens[0] = ""
	q.tokens = q.tokens[1:]
	return token, true
}

func (q *MarkQueue) Len() int {
	return len(q.tokens)
}

func (q *MarkQueue) Clear() {
	q.tokens = nil
}
