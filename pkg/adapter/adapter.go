// Package adapter connects the pipeline to upstream language models.
// Each provider gets one adapter; all of them expose the same
// single-call Client interface, so the correction loop never knows
// which provider it is talking to.
package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Client is the single operation the pipeline needs from a model.
type Client interface {
	// Complete sends a prompt and returns the raw response text.
	// Transport-level failures come back as a *TransportError.
	Complete(ctx context.Context, prompt string) (string, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Options configures adapter construction.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	// Endpoint overrides the provider base URL. Only the generic
	// upstream adapter uses it.
	Endpoint string
	// Timeout bounds every Complete call. Zero means no adapter-level
	// deadline beyond the caller's context.
	Timeout time.Duration
}

// New builds the adapter for opts.Provider.
func New(opts Options) (Client, error) {
	var client Client
	var err error

	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "anthropic":
		client, err = NewAnthropicClient(opts.APIKey, opts.Model)
	case "openai":
		client, err = NewOpenAIClient(opts.APIKey, opts.Model)
	case "google":
		client, err = NewGoogleClient(opts.APIKey, opts.Model)
	case "upstream":
		client, err = NewUpstreamClient(opts.Endpoint, opts.APIKey, opts.Model)
	case "mock":
		client = NewMockClient()
	default:
		return nil, fmt.Errorf("unknown provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	if opts.Timeout > 0 {
		client = &deadlineClient{inner: client, timeout: opts.Timeout}
	}
	return client, nil
}

// deadlineClient applies a fixed per-call timeout on top of whatever
// deadline the caller's context already carries.
type deadlineClient struct {
	inner   Client
	timeout time.Duration
}

func (d *deadlineClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	text, err := d.inner.Complete(ctx, prompt)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return "", &TransportError{Kind: TransportTimeout, Err: err}
	}
	return text, err
}

func (d *deadlineClient) Name() string     { return d.inner.Name() }
func (d *deadlineClient) Models() []string { return d.inner.Models() }
