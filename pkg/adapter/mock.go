package adapter

import (
	"context"
	"fmt"
	"sync"
)

// MockClient returns deterministic responses for local runs and tests.
// With a Script set it replays responses in order regardless of the
// prompt, which is how correction-loop tests stage multi-attempt runs.
type MockClient struct {
	mu              sync.Mutex
	responses       map[string]string
	script          []string
	scriptIndex     int
	defaultResponse string
	err             error

	// Prompts records every prompt Complete received, in order.
	Prompts []string
}

// NewMockClient creates a mock client with a default response.
func NewMockClient() *MockClient {
	return &MockClient{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockClientWithResponses creates a mock client with per-prompt
// responses.
func NewMockClientWithResponses(responses map[string]string, defaultResponse string) *MockClient {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockClient{responses: responses, defaultResponse: defaultResponse}
}

// NewScriptedMockClient creates a mock client that replays responses
// in order. Calls past the end of the script repeat the last entry.
func NewScriptedMockClient(script ...string) *MockClient {
	return &MockClient{script: script, defaultResponse: "mock response:"}
}

// Fail makes every subsequent Complete call return err.
func (a *MockClient) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Name returns the adapter identifier.
func (a *MockClient) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (a *MockClient) Models() []string {
	return []string{"mock-1"}
}

// Complete returns a deterministic response for the prompt.
func (a *MockClient) Complete(_ context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Prompts = append(a.Prompts, prompt)
	if a.err != nil {
		return "", a.err
	}
	if len(a.script) > 0 {
		response := a.script[len(a.script)-1]
		if a.scriptIndex < len(a.script) {
			response = a.script[a.scriptIndex]
			a.scriptIndex++
		}
		return response, nil
	}
	if response, ok := a.responses[prompt]; ok {
		return response, nil
	}
	return fmt.Sprintf("%s\n%s", a.defaultResponse, prompt), nil
}

// CallCount reports how many Complete calls the mock has served.
func (a *MockClient) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Prompts)
}
