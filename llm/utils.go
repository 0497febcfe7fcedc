package llm

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/google/uuid"
)

// generateRequestID creates a unique ID for request tracking. It doubles as
// the correlation ID of both inspections of one exchange.
func generateRequestID() string {
	return uuid.NewString()
}

// estimateTokens provides a rough estimate of tokens in text
func estimateTokens(text string) int {
	// Rough estimate: 1 token ≈ 4 characters for English text
	return utf8.RuneCountInString(text) / 4
}

// estimateConversationTokens provides a rough estimate of tokens in a conversation
func estimateConversationTokens(messages []Message) int {
	// 4 tokens of framing per message
	total := len(messages) * 4
	for _, msg := range messages {
		total += estimateTokens(msg.Content)
	}
	return total
}

// encodeBody turns an inspected value back into wire bytes. Plain strings
// are returned as-is so non-JSON bodies round-trip unchanged.
func encodeBody(v any) ([]byte, error) {
	if s, ok := v.(string); ok {
		return []byte(s), nil
	}
	return json.Marshal(v)
}

// outputText extracts the reply text from a provider body. Objects with an
// "output" or "content" string field yield that field; anything else is
// returned verbatim.
func outputText(body []byte) string {
	var obj map[string]interface{}
	if json.Unmarshal(body, &obj) == nil {
		for _, key := range []string{"output", "content"} {
			if s, ok := obj[key].(string); ok {
				return s
			}
		}
	}
	return string(body)
}
