package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// UpstreamClient implements the Client interface for a self-hosted
// model behind a simple question/answer HTTP endpoint.
type UpstreamClient struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// upstreamRequest is the question/answer request shape.
type upstreamRequest struct {
	Question string `json:"question"`
	Model    string `json:"model,omitempty"`
}

// upstreamResponse is the question/answer response shape. Either the
// answer or an error message is set.
type upstreamResponse struct {
	Answer string `json:"answer"`
	Error  string `json:"error,omitempty"`
}

// NewUpstreamClient creates a client for a question/answer endpoint.
// The API key is optional; self-hosted deployments often run open.
func NewUpstreamClient(endpoint, apiKey, model string) (*UpstreamClient, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("upstream endpoint is required")
	}

	return &UpstreamClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the adapter identifier.
func (a *UpstreamClient) Name() string {
	return "upstream"
}

// Models returns the configured model, when one is set.
func (a *UpstreamClient) Models() []string {
	if a.model == "" {
		return nil
	}
	return []string{a.model}
}

// Complete posts the prompt as a question and returns the answer.
func (a *UpstreamClient) Complete(ctx context.Context, prompt string) (string, error) {
	jsonBody, err := json.Marshal(upstreamRequest{Question: prompt, Model: a.model})
	if err != nil {
		return "", &TransportError{Kind: TransportRequest, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.endpoint+"/ask", bytes.NewReader(jsonBody))
	if err != nil {
		return "", &TransportError{Kind: TransportRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", wrapTransport(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Kind: TransportProtocol, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{
			Kind:   TransportUpstreamStatus,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var parsed upstreamResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &TransportError{Kind: TransportProtocol, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if parsed.Error != "" {
		return "", &TransportError{Kind: TransportProtocol, Err: fmt.Errorf("upstream error: %s", parsed.Error)}
	}
	return parsed.Answer, nil
}
