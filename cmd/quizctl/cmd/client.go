package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dongjiahong/qa-system/internal/domain"
)

// apiClient is a thin HTTP client for the quiz server API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Question generation retries server-side; give it room.
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

type apiError struct {
	Message string `json:"error"`
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach quiz server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *apiClient) GenerateQuestion(ctx context.Context, kb, difficulty, strategy string) (*domain.Question, error) {
	var question domain.Question
	err := c.do(ctx, http.MethodPost, "/v1/quiz/"+kb+"/questions", map[string]interface{}{
		"difficulty": difficulty,
		"strategy":   strategy,
	}, &question)
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (c *apiClient) SubmitAttempt(ctx context.Context, kb string, question *domain.Question, answer string) (*domain.QARecord, error) {
	var record domain.QARecord
	err := c.do(ctx, http.MethodPost, "/v1/quiz/"+kb+"/attempts", map[string]interface{}{
		"question":    question,
		"user_answer": answer,
	}, &record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *apiClient) History(ctx context.Context, kb string, limit int) ([]domain.QARecord, error) {
	var out struct {
		Records []domain.QARecord `json:"records"`
	}
	path := fmt.Sprintf("/v1/quiz/%s/history?limit=%d", kb, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

type statsResponse struct {
	KBName  string                    `json:"kb_name"`
	Content domain.KnowledgeBaseStats `json:"content"`
	History domain.HistoryStatistics  `json:"history"`
}

func (c *apiClient) Stats(ctx context.Context, kb string) (*statsResponse, error) {
	var out statsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/quiz/"+kb+"/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) Enrich(ctx context.Context, kb string) (int, error) {
	var out struct {
		Enqueued int `json:"enqueued"`
	}
	if err := c.do(ctx, http.MethodPost, "/internal/quiz/"+kb+"/enrich", nil, &out); err != nil {
		return 0, err
	}
	return out.Enqueued, nil
}
