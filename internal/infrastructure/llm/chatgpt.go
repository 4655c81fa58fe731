package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsCurator/internal/config"
	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// ChatGPTEnricher implements ports.Enricher backed by OpenAI-compatible APIs.
type ChatGPTEnricher struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Enricher = (*ChatGPTEnricher)(nil)

// NewChatGPTEnricher builds a client from configuration.
func NewChatGPTEnricher(cfg config.ChatGPTConfig) *ChatGPTEnricher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatGPTEnricher{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type enrichPrompt struct {
	Task   string                     `json:"task"`
	Schema json.RawMessage            `json:"schema"`
	Items  []domain.EnrichmentRequest `json:"items"`
}

const responseSchema = `{"type":"object","properties":{"items":{"type":"array","items":{"type":"object",` +
	`"properties":{"id":{"type":"string"},"meaning":{"type":"string"},"impact":{"type":"string"},` +
	`"affected":{"type":"string"}},"required":["id","meaning","impact","affected"]}}},"required":["items"]}`

type enrichedItem struct {
	ID string `json:"id"`
	domain.Enrichment
}

// Enrich asks the model to categorize the batch in one request.
func (c *ChatGPTEnricher) Enrich(ctx context.Context, items []domain.EnrichmentRequest) (map[string]domain.Enrichment, error) {
	if c == nil {
		return nil, fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("chatgpt client misconfigured")
	}
	if len(items) == 0 {
		return map[string]domain.Enrichment{}, nil
	}

	prompt, err := json.Marshal(enrichPrompt{
		Task:   safePrompt(c.systemPrompt),
		Schema: json.RawMessage(responseSchema),
		Items:  items,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal prompt: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"model":           c.model,
		"temperature":     0,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "user", "content": string(prompt)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send enrichment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("chatgpt returned no choices")
	}

	var parsed struct {
		Items []enrichedItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("decode enrichment content: %w", err)
	}

	out := make(map[string]domain.Enrichment, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ID == "" {
			continue
		}
		out[item.ID] = item.Enrichment
	}
	return out, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "Categorize AI news items. For each, return meaning, impact, affected."
	}
	return prompt
}
