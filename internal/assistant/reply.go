package assistant

import (
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ExtractReply walks a chronologically ordered message list from newest to
// oldest and returns the first assistant-authored text, trimmed. ok is false
// when no such text exists.
func ExtractReply(messages []openai.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		// Only the first matching entry is considered, even if its text is empty.
		if len(msg.Content) == 0 || msg.Content[0].Text == nil {
			return "", false
		}
		text := strings.TrimSpace(msg.Content[0].Text.Value)
		if text == "" {
			return "", false
		}
		return text, true
	}
	return "", false
}
