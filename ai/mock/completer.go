package mock

import (
	"context"

	"github.com/poiesic/tessera/ai"
)

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, returns an empty JSON object with finish reason "stop".
	CompleteFunc func(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResult, error)

	// Requests records every request received, in order. Tests use it to
	// assert on prompts and continuation messages.
	Requests []ai.CompletionRequest

	callCount int
}

// NewMockCompleter creates a mock completer with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockCompleter().
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete records the request and delegates to CompleteFunc if set.
func (m *MockCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResult, error) {
	m.callCount++
	m.Requests = append(m.Requests, req)

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}

	return &ai.CompletionResult{Text: "{}", FinishReason: ai.FinishStop}, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	return m.callCount
}

// Reset clears recorded requests, the call count and injected behavior.
func (m *MockCompleter) Reset() {
	m.callCount = 0
	m.Requests = nil
	m.CompleteFunc = nil
}

// ScriptedCompleter returns a mock whose Complete calls step through the
// given results in order, repeating the final result once the script is
// exhausted.
func ScriptedCompleter(results ...*ai.CompletionResult) *MockCompleter {
	m := NewMockCompleter()
	step := 0
	m.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResult, error) {
		result := results[step]
		if step < len(results)-1 {
			step++
		}
		return result, nil
	}
	return m
}
