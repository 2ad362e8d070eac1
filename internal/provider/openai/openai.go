// Package openai implements the describer and speech collaborators on
// OpenAI's APIs.
//
// Descriptions come from the Chat Completions API; audio comes from the
// Speech API with response_format=pcm, which returns raw 24 kHz 16-bit mono
// PCM.
package openai

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
	"github.com/anigen/anigen/internal/pcm"
	"github.com/anigen/anigen/internal/provider"
)

// SpeechSampleRate is the fixed rate of response_format=pcm.
const SpeechSampleRate = 24000

// Client uses OpenAI APIs for descriptions and speech.
type Client struct {
	apiKey          string
	baseURL         string
	completionModel string
	speechModel     string
	voice           string
	client          *http.Client
}

// New creates a new OpenAI client from config.
func New(cfg config.OpenAIConfig) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return &Client{
		apiKey:          cfg.APIKey,
		baseURL:         base,
		completionModel: cfg.CompletionModel,
		speechModel:     cfg.SpeechModel,
		voice:           cfg.Voice,
		client:          &http.Client{},
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "openai" }

// Describe sends the atmosphere prompt to the Chat Completions API.
func (c *Client) Describe(ctx context.Context, params domain.Params) (string, error) {
	reqBody := chatRequest{
		Model: c.completionModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You write evocative descriptions of music for an anime soundtrack studio."},
			{Role: "user", Content: provider.AtmospherePrompt(params)},
		},
		Temperature: 0.9,
	}

	resp, err := c.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", provider.Remote("openai chat", err)
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", provider.Remote("openai chat", fmt.Errorf("decoding chat response: %w", err))
	}
	if len(chatResp.Choices) == 0 {
		return "", nil
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	slog.Debug("openai describe complete", "model", c.completionModel, "text_length", len(text))
	return text, nil
}

// Synthesize sends text to the Speech API. voice is used only when it names
// an OpenAI voice; otherwise the configured voice applies.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (string, bool, error) {
	if voice == "" || voice == provider.DefaultVoice {
		voice = c.voice
	}
	reqBody := speechRequest{
		Model:          c.speechModel,
		Input:          provider.SpeechPrompt(text),
		Voice:          voice,
		ResponseFormat: "pcm",
	}

	resp, err := c.post(ctx, "/audio/speech", reqBody)
	if err != nil {
		return "", false, provider.Remote("openai speech", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, provider.Remote("openai speech", fmt.Errorf("reading audio: %w", err))
	}
	if len(audio) == 0 {
		return "", false, nil
	}

	slog.Debug("openai speech complete", "model", c.speechModel, "voice", voice, "pcm_bytes", len(audio))
	return pcm.EncodeTransport(audio), true, nil
}

// Close is a no-op for the OpenAI client.
func (c *Client) Close() error { return nil }

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
	}
	return resp, nil
}

// --- Internal types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}
