// Package local implements the describer collaborator on a self-hosted LLM.
//
// Any OpenAI-compatible chat endpoint (Ollama, vLLM, llama.cpp server) works,
// as does Ollama's native /api/generate.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anigen/anigen/internal/config"
	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/provider"
)

const systemPrompt = "You write evocative descriptions of music for an anime soundtrack studio. Reply with plain prose only."

// Describer uses a self-hosted model for atmosphere descriptions.
type Describer struct {
	llmEndpoint string
	llmModel    string
	client      *http.Client
}

// New creates a new local describer from config.
func New(cfg config.LocalConfig) *Describer {
	model := cfg.LLMModel
	if model == "" {
		model = "llama3"
	}
	return &Describer{
		llmEndpoint: cfg.LLMEndpoint,
		llmModel:    model,
		client:      &http.Client{},
	}
}

// Name returns the backend identifier.
func (d *Describer) Name() string { return "local" }

// Describe sends the atmosphere prompt to the local LLM endpoint.
func (d *Describer) Describe(ctx context.Context, params domain.Params) (string, error) {
	prompt := provider.AtmospherePrompt(params)

	reqBody := map[string]any{
		"model": d.llmModel,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.9,
		"stream":      false,
	}

	// Ollama's native endpoint takes a flat prompt.
	if strings.HasSuffix(d.llmEndpoint, "/api/generate") {
		reqBody = map[string]any{
			"model":  d.llmModel,
			"system": systemPrompt,
			"prompt": prompt,
			"stream": false,
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.llmEndpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", provider.Remote("local llm", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", provider.Remote("local llm", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", provider.Remotef("local llm", "status %d: %s", resp.StatusCode, respBody)
	}

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", provider.Remote("local llm", fmt.Errorf("reading response: %w", err))
	}

	text := strings.TrimSpace(extractContent(respData))
	slog.Debug("local describe complete", "model", d.llmModel, "text_length", len(text))
	return text, nil
}

// Close is a no-op for the local describer.
func (d *Describer) Close() error { return nil }

func extractContent(data []byte) string {
	// OpenAI-compatible: {"choices": [{"message": {"content": "..."}}]}
	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &chatResp); err == nil && len(chatResp.Choices) > 0 {
		return chatResp.Choices[0].Message.Content
	}

	// Ollama: {"response": "..."}
	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(data, &ollamaResp); err == nil {
		return ollamaResp.Response
	}

	return string(data)
}
