package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockCall records one Complete invocation against a MockClient.
type MockCall struct {
	Prompt      string
	Temperature float64
}

type mockStep struct {
	response string
	err      error
}

// MockClient implements Client for tests. Responses and errors are handed
// out in the order they were enqueued, and every call is recorded.
type MockClient struct {
	mu    sync.Mutex
	queue []mockStep
	calls []MockCall
}

// NewMockClient creates a MockClient preloaded with the given responses.
func NewMockClient(responses ...string) *MockClient {
	m := &MockClient{}
	for _, r := range responses {
		m.Enqueue(r)
	}
	return m
}

// Enqueue appends a successful response to the queue.
func (m *MockClient) Enqueue(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockStep{response: response})
}

// EnqueueError appends a failing step to the queue.
func (m *MockClient) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockStep{err: err})
}

// Complete implements Client. An exhausted queue is a test bug and comes
// back as an error naming the unexpected call.
func (m *MockClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Prompt: prompt, Temperature: temperature})

	if len(m.queue) == 0 {
		return "", fmt.Errorf("mock client: unexpected call %d, response queue empty", len(m.calls))
	}
	step := m.queue[0]
	m.queue = m.queue[1:]
	return step.response, step.err
}

// Calls returns a copy of the recorded calls.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Complete was invoked.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
