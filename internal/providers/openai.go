package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider for OpenAI-compatible APIs
// (OpenAI, DeepSeek, Moonshot, VLLM, etc.)
type OpenAIProvider struct {
	name   string
	client *openai.Client
}

// NewOpenAIProvider creates a provider. baseURL overrides the API endpoint
// for OpenAI-compatible vendors; empty means api.openai.com.
func NewOpenAIProvider(name, apiKey, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIProvider{name: name, client: openai.NewClientWithConfig(cfg)}
}

func (p *OpenAIProvider) Name() string { return p.name }

// Complete sends a single-turn chat completion request. The caller bounds
// the call with a context deadline; there is no retry here — one inbound
// message gets at most one backend attempt and exactly one reply.
func (p *OpenAIProvider) Complete(ctx context.Context, model, promptText string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: promptText},
		},
	})
	if err != nil {
		return "", p.classify(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &BackendError{
			Kind:     FaultMalformed,
			Provider: p.name,
			Err:      errors.New("empty completion choices"),
		}
	}
	return resp.Choices[0].Message.Content, nil
}

// classify folds transport errors into the BackendError taxonomy.
func (p *OpenAIProvider) classify(err error) error {
	kind := FaultRejected
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = FaultTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = FaultTimeout
	case isDecodeError(err):
		kind = FaultMalformed
	}
	return &BackendError{Kind: kind, Provider: p.name, Err: err}
}

// isDecodeError reports whether the backend answered with bytes the client
// could not parse. A well-formed API error payload is a rejection, not a
// malformed response.
func isDecodeError(err error) bool {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	if errors.As(err, &apiErr) || errors.As(err, &reqErr) {
		return false
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
