package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dongjiahong/qa-system/internal/domain"
)

// keepAliveForever keeps the model loaded between drill calls so retries do
// not pay the model load cost.
const keepAliveForever = -1

type generateRequest struct {
	Model     string                 `json:"model"`
	Prompt    string                 `json:"prompt"`
	Stream    bool                   `json:"stream"`
	KeepAlive int                    `json:"keep_alive"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generator sends prompts to Ollama's generate endpoint.
type Generator struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

// NewGenerator constructs a generator for the given endpoint and model name.
// The HTTP client carries no timeout of its own; callers bound each request
// through the context.
func NewGenerator(baseURL, model string, client *http.Client) *Generator {
	if client == nil {
		client = &http.Client{}
	}
	return &Generator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
	}
}

// Generate sends the prompt to Ollama and returns the completion. Transport
// failures and server errors map to ErrModelUnavailable so the pipelines can
// treat them as retryable.
func (g *Generator) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (*domain.LLMResponse, error) {
	reqBody := generateRequest{
		Model:     g.Model,
		Prompt:    prompt,
		Stream:    false,
		KeepAlive: keepAliveForever,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
		},
	}
	if opts.MaxTokens > 0 {
		reqBody.Options["num_predict"] = opts.MaxTokens
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", g.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: generate endpoint returned %d: %s", domain.ErrModelUnavailable, resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("%w: generate endpoint returned %d: %s", domain.ErrModelResponse, resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode generate response: %v", domain.ErrModelResponse, err)
	}

	text := strings.TrimSpace(genResp.Response)
	if text == "" {
		return nil, fmt.Errorf("%w: empty completion", domain.ErrModelResponse)
	}

	return &domain.LLMResponse{
		Text: text,
		Done: genResp.Done,
	}, nil
}

// Version returns the wrapped model name.
func (g *Generator) Version() string {
	return g.Model
}

var _ domain.LLMClient = (*Generator)(nil)
