// Package chat flattens OpenAI-style conversations into the flat prompt
// template the inference binary consumes, and recovers the assistant reply
// from the binary's output, which echoes the prompt before generating.
package chat

import (
	"strings"
	"time"

	"github.com/bitnetlabs/bitnet/internal/domain"
)

// assistantMarker separates the echoed prompt from the generated reply.
const assistantMarker = "Assistant: "

var roleLabels = map[string]string{
	domain.RoleSystem:    "System",
	domain.RoleUser:      "User",
	domain.RoleAssistant: "Assistant",
}

// FormatPrompt flattens a conversation into "<Role>: <content>" blocks and
// ends with the assistant cue so generation continues the reply. The
// template is fixed and lossy: role labels occurring inside message content
// are not escaped.
func FormatPrompt(messages []domain.ChatMessage) string {
	var sb strings.Builder
	for _, msg := range messages {
		label, ok := roleLabels[msg.Role]
		if !ok {
			label = msg.Role
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString(assistantMarker)
	return sb.String()
}

// Reply extracts the assistant reply from raw one-shot output: everything
// after the last assistant cue, whitespace-trimmed. With no cue present the
// whole trimmed output is the reply.
func Reply(raw string) string {
	if idx := strings.LastIndex(raw, assistantMarker); idx >= 0 {
		raw = raw[idx+len(assistantMarker):]
	}
	return strings.TrimSpace(raw)
}

// ParseCompletion wraps the extracted reply in a chat.completion envelope.
func ParseCompletion(raw, model string) domain.ChatCompletion {
	return domain.ChatCompletion{
		ID:      "chat-" + model,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []domain.ChatChoice{{
			Index: 0,
			Message: domain.ChatMessage{
				Role:    domain.RoleAssistant,
				Content: Reply(raw),
			},
			FinishReason: "stop",
		}},
	}
}

// StreamFilter turns a raw output stream into chat.completion.chunk
// envelopes. The binary echoes the prompt first, so everything up to and
// including the first assistant cue is suppressed; the remainder of the
// cue-completing chunk and all later chunks pass through as deltas. The cue
// may arrive split across chunks, hence the buffer.
type StreamFilter struct {
	model       string
	buf         strings.Builder
	passthrough bool
}

// NewStreamFilter returns a filter for one streaming chat call.
func NewStreamFilter(model string) *StreamFilter {
	return &StreamFilter{model: model}
}

// Feed consumes one raw chunk. It returns a delta chunk and true once
// there is reply text to emit; suppressed or empty input returns false.
func (f *StreamFilter) Feed(text string) (domain.ChatChunk, bool) {
	if !f.passthrough {
		f.buf.WriteString(text)
		s := f.buf.String()
		idx := strings.Index(s, assistantMarker)
		if idx < 0 {
			return domain.ChatChunk{}, false
		}
		f.passthrough = true
		text = s[idx+len(assistantMarker):]
		f.buf.Reset()
	}
	if text == "" {
		return domain.ChatChunk{}, false
	}
	return f.chunk(domain.Delta{Role: domain.RoleAssistant, Content: text}, nil), true
}

// Finish returns the closing chunk: empty delta, finish_reason "stop".
func (f *StreamFilter) Finish() domain.ChatChunk {
	reason := "stop"
	return f.chunk(domain.Delta{}, &reason)
}

func (f *StreamFilter) chunk(delta domain.Delta, finish *string) domain.ChatChunk {
	return domain.ChatChunk{
		ID:      "chat-" + f.model,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   f.model,
		Choices: []domain.ChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
	}
}
