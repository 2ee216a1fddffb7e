package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bitnetlabs/bitnet/internal/domain"
)

func TestMockRunner_RunOnce(t *testing.T) {
	r := &MockRunner{}

	out, err := r.RunOnce(context.Background(), "/m/model.gguf", "Hi", domain.DefaultParams())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if !strings.HasPrefix(out, "Hi\n") {
		t.Errorf("output should echo the prompt first, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("output should end with a newline, got %q", out)
	}
	if len(out) <= len("Hi\n\n") {
		t.Errorf("no canned response in output: %q", out)
	}
}

func TestMockRunner_Deterministic(t *testing.T) {
	r := &MockRunner{}
	ctx := context.Background()

	first, err := r.RunOnce(ctx, "/m/model.gguf", "same prompt", domain.DefaultParams())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	second, err := r.RunOnce(ctx, "/m/model.gguf", "same prompt", domain.DefaultParams())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if first != second {
		t.Errorf("same prompt produced different output:\n%q\n%q", first, second)
	}
}

func TestMockRunner_ConversationWidensPool(t *testing.T) {
	// The pools differ in size, so the same prompt length can land on
	// different responses; what must hold is that both modes answer.
	r := &MockRunner{}
	params := domain.DefaultParams()
	params.Conversation = true

	out, err := r.RunOnce(context.Background(), "/m/model.gguf", "Hello there", params)
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	all := append(append([]string{}, mockResponses...), mockConversationResponses...)
	var matched bool
	for _, resp := range all {
		if strings.Contains(out, resp) {
			matched = true
			break
		}
	}
	if !matched {
		t.Errorf("output %q contains no known canned response", out)
	}
}

func TestMockRunner_RunStream(t *testing.T) {
	r := &MockRunner{}

	ch, err := r.RunStream(context.Background(), "/m/model.gguf", "Hi", domain.DefaultParams())
	if err != nil {
		t.Fatalf("RunStream() error: %v", err)
	}
	out, streamErr := collect(t, ch)
	if streamErr != nil {
		t.Fatalf("stream error: %v", streamErr)
	}

	// Streaming must reassemble to the one-shot output
	once, err := r.RunOnce(context.Background(), "/m/model.gguf", "Hi", domain.DefaultParams())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if out != once {
		t.Errorf("streamed output = %q, want %q", out, once)
	}
}

func TestMockRunner_RunStream_PromptIsOneChunk(t *testing.T) {
	r := &MockRunner{}

	// Trailing space must survive, as in a chat prompt's "Assistant: " tail
	prompt := "User: Hi\n\nAssistant: "
	ch, err := r.RunStream(context.Background(), "/m/model.gguf", prompt, domain.DefaultParams())
	if err != nil {
		t.Fatalf("RunStream() error: %v", err)
	}
	first, ok := <-ch
	if !ok {
		t.Fatal("stream closed before first chunk")
	}
	if first.Text != prompt+"\n" {
		t.Errorf("first chunk = %q, want prompt echoed verbatim", first.Text)
	}
	collect(t, ch)
}

func TestMockRunner_RunStream_Cancel(t *testing.T) {
	r := NewMockRunner() // keep the delay so cancellation lands mid-stream

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := r.RunStream(ctx, "/m/model.gguf", "Hi", domain.DefaultParams())
	if err != nil {
		t.Fatalf("RunStream() error: %v", err)
	}
	cancel()

	_, streamErr := collect(t, ch)
	if !errors.Is(streamErr, context.Canceled) {
		t.Errorf("stream error = %v, want context.Canceled", streamErr)
	}
}

func TestRunnerNames(t *testing.T) {
	if got := (&MockRunner{}).Name(); got != "mock" {
		t.Errorf("MockRunner.Name() = %q, want %q", got, "mock")
	}
	if got := (&SubprocessRunner{}).Name(); got != "subprocess" {
		t.Errorf("SubprocessRunner.Name() = %q, want %q", got, "subprocess")
	}
}
