package engine

import (
	"context"
	"strings"
	"time"

	"github.com/bitnetlabs/bitnet/internal/domain"
)

// ─── Mock Runner (no native binary required) ────────────────────────────────
// Mirrors the real binary's observable behavior: the prompt is echoed
// first, then a canned response streams out. Keeps the whole system
// operable — CLI, API, chat — on machines without a bitnet.cpp build.

var mockResponses = []string{
	"I'm a BitNet model running in mock mode. I can't provide real responses yet.",
	"This is a placeholder response from the mock llama-cli implementation.",
	"When the real BitNet.cpp integration is complete, you'll see actual model outputs here.",
	"For now, I'm just generating random text to simulate a response.",
}

var mockConversationResponses = []string{
	"In conversation mode, I would maintain context between messages.",
	"The real BitNet models will be able to have coherent conversations.",
	"This is just a simulation of the conversation mode.",
}

// MockRunner fakes the inference binary. Response selection is
// deterministic on the prompt so tests can assert output.
type MockRunner struct {
	delay time.Duration // per-chunk pause on the stream path
}

// NewMockRunner returns a mock with a small per-chunk delay to make
// streaming observable.
func NewMockRunner() *MockRunner {
	return &MockRunner{delay: 10 * time.Millisecond}
}

// Name implements domain.Runner.
func (m *MockRunner) Name() string { return "mock" }

// pickResponse chooses a canned response deterministically.
func pickResponse(prompt string, conversation bool) string {
	pool := mockResponses
	if conversation {
		pool = append(append([]string{}, mockResponses...), mockConversationResponses...)
	}
	return pool[len(prompt)%len(pool)]
}

// RunOnce returns the echoed prompt followed by the canned response, the
// same shape the real binary writes to stdout.
func (m *MockRunner) RunOnce(_ context.Context, _, prompt string, params domain.GenerationParams) (string, error) {
	return prompt + "\n" + pickResponse(prompt, params.Conversation) + "\n", nil
}

// RunStream emits the echoed prompt as one chunk, then the response word
// by word, then the closing newline.
func (m *MockRunner) RunStream(ctx context.Context, _, prompt string, params domain.GenerationParams) (<-chan domain.Chunk, error) {
	response := pickResponse(prompt, params.Conversation)

	words := strings.Fields(response)

	// Buffer covers the worst case (prompt + every word + newline), so
	// sends never block and cancellation is checked before each chunk.
	ch := make(chan domain.Chunk, len(words)+2)
	go func() {
		defer close(ch)

		// The real binary echoes the prompt before generating
		if err := ctx.Err(); err != nil {
			ch <- domain.Chunk{Err: err}
			return
		}
		ch <- domain.Chunk{Text: prompt + "\n"}

		for i, word := range words {
			text := word
			if i < len(words)-1 {
				text += " "
			}
			if err := ctx.Err(); err != nil {
				ch <- domain.Chunk{Err: err}
				return
			}
			ch <- domain.Chunk{Text: text}
			time.Sleep(m.delay) // Simulate inference time
		}

		if err := ctx.Err(); err != nil {
			ch <- domain.Chunk{Err: err}
			return
		}
		ch <- domain.Chunk{Text: "\n"}
	}()

	return ch, nil
}

var _ domain.Runner = (*MockRunner)(nil)
