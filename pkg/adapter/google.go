package adapter

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultGoogleModel = "gemini-2.0-pro"

// GoogleClient implements the Client interface for Gemini models.
type GoogleClient struct {
	client *genai.Client
	model  string
}

// NewGoogleClient creates a new Google Gemini client.
func NewGoogleClient(apiKey, model string) (*GoogleClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}
	if model == "" {
		model = defaultGoogleModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleClient{client: client, model: model}, nil
}

// Name returns the adapter identifier.
func (a *GoogleClient) Name() string {
	return "google"
}

// Models returns the list of supported Gemini models.
func (a *GoogleClient) Models() []string {
	return []string{
		"gemini-2.0-pro",
	}
}

// Complete sends a prompt to Gemini and returns the response text.
func (a *GoogleClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), nil)
	if err != nil {
		return "", wrapTransport(ctx, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", &TransportError{Kind: TransportProtocol, Err: fmt.Errorf("google returned no candidates")}
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}
	return content, nil
}
