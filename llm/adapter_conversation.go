package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// ProcessConversation sends the conversation plus a new user message as a
// chat body. On success both the user message and the guarded reply are
// appended to conv.
func (a *GuardedAdapter) ProcessConversation(ctx context.Context, conv *Conversation, newUserMessage string) (string, error) {
	messages := make([]Message, 0, len(conv.Messages)+1)
	messages = append(messages, conv.Messages...)
	messages = append(messages, Message{Role: "user", Content: newUserMessage})

	body, err := json.Marshal(map[string]interface{}{
		"model":    a.config.Model,
		"messages": messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode conversation: %w", err)
	}

	out, exchange, err := a.ProcessBody(ctx, body)
	if err != nil {
		return "", err
	}
	reply := outputText(out)

	conv.AddUserMessage(newUserMessage)
	conv.AddAssistantMessage(reply)

	a.requestLog.LogResponse(exchange.RequestID, map[string]interface{}{
		"conversation_length": len(conv.Messages),
		"input_tokens_est":    estimateConversationTokens(messages),
		"output_tokens_est":   estimateTokens(reply),
	}, exchange.Duration, "verbose")

	return reply, nil
}
