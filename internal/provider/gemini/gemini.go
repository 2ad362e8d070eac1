// Package gemini implements the describer, speech and image collaborators on
// the Gemini API through the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/anigen/anigen/internal/config"
	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/pcm"
	"github.com/anigen/anigen/internal/provider"
)

// Client implements provider.Describer, provider.Speech and provider.Imager.
type Client struct {
	client        *genai.Client
	describeModel string
	speechModel   string
	imageModel    string
	aspectRatio   string
}

// New creates a Gemini client from config. baseURL overrides the API
// endpoint when non-empty.
func New(ctx context.Context, cfg config.GeminiConfig, baseURL string) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Client{
		client:        client,
		describeModel: cfg.DescribeModel,
		speechModel:   cfg.SpeechModel,
		imageModel:    cfg.ImageModel,
		aspectRatio:   cfg.AspectRatio,
	}, nil
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "gemini" }

// Describe asks the text model for a short poetic description.
func (c *Client) Describe(ctx context.Context, params domain.Params) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.describeModel, genai.Text(provider.AtmospherePrompt(params)), nil)
	if err != nil {
		return "", provider.Remote("gemini describe", err)
	}
	text := strings.TrimSpace(resp.Text())
	slog.Debug("gemini describe complete", "model", c.describeModel, "text_length", len(text))
	return text, nil
}

// Synthesize asks the TTS model to read the text with a prebuilt voice.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (string, bool, error) {
	if voice == "" {
		voice = provider.DefaultVoice
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.speechModel, genai.Text(provider.SpeechPrompt(text)), cfg)
	if err != nil {
		return "", false, provider.Remote("gemini speech", err)
	}

	data, mime := firstInlineData(resp)
	if len(data) == 0 {
		slog.Debug("gemini speech returned no audio", "model", c.speechModel)
		return "", false, nil
	}
	slog.Debug("gemini speech complete", "model", c.speechModel, "voice", voice, "mime", mime, "pcm_bytes", len(data))
	return pcm.EncodeTransport(data), true, nil
}

// GenerateImage renders an illustration and returns the first image part.
func (c *Client) GenerateImage(ctx context.Context, prompt domain.ImagePrompt) ([]byte, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: c.aspectRatio},
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.imageModel, genai.Text(provider.IllustrationPrompt(prompt)), cfg)
	if err != nil {
		return nil, provider.Remote("gemini image", err)
	}

	data, mime := firstInlineData(resp)
	if len(data) == 0 {
		return nil, provider.Remotef("gemini image", "no image in response")
	}
	slog.Debug("gemini image complete", "model", c.imageModel, "mime", mime, "bytes", len(data))
	return data, nil
}

// Close is a no-op; the SDK holds no long-lived connections.
func (c *Client) Close() error { return nil }

func firstInlineData(resp *genai.GenerateContentResponse) ([]byte, string) {
	if resp == nil {
		return nil, ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType
			}
		}
	}
	return nil, ""
}
