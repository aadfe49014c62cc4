// Package gemini implements the completion and vision backends on Google's
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/media"
	"github.com/edgard/relaybot/internal/relay"
)

var (
	// ErrBlocked is returned when the prompt was blocked by a safety filter.
	ErrBlocked = errors.New("gemini request blocked")
	// ErrEmptyResponse is returned when no candidate carried text.
	ErrEmptyResponse = errors.New("gemini returned empty content")
)

// decisionSchema constrains completions to the relay decision object.
var decisionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		relay.FieldReplyText:           {Type: genai.TypeString, Description: "Message to post in the chat. Empty when generating an image."},
		relay.FieldMemoryText:          {Type: genai.TypeString, Description: "New fact to remember about the requestor, or empty."},
		relay.FieldShouldGenerateImage: {Type: genai.TypeBoolean, Description: "True only when the requestor asks for an image."},
	},
	Required:         []string{relay.FieldReplyText, relay.FieldMemoryText, relay.FieldShouldGenerateImage},
	PropertyOrdering: []string{relay.FieldReplyText, relay.FieldMemoryText, relay.FieldShouldGenerateImage},
}

var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

// ImageFetcher downloads the image bytes sent inline to the vision model.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Client implements relay.Completer and relay.Describer.
type Client struct {
	genaiClient *genai.Client
	fetcher     ImageFetcher
	log         *slog.Logger
	model       string
	visionModel string
	temperature float32
}

// NewClient creates a Gemini client. timeout bounds every API call.
func NewClient(ctx context.Context, cfg config.GeminiConfig, timeout time.Duration, fetcher ImageFetcher, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if fetcher == nil {
		fetcher = media.NewFetcher(nil, media.DefaultMaxBytes)
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.Model, "vision_model", cfg.VisionModel)
	return &Client{
		genaiClient: gi,
		fetcher:     fetcher,
		log:         logger,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		temperature: cfg.Temperature,
	}, nil
}

func (c *Client) baseConfig(systemInstruction string) *genai.GenerateContentConfig {
	temperature := c.temperature
	return &genai.GenerateContentConfig{
		Temperature:       &temperature,
		SafetySettings:    safetySettings,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
	}
}

// Complete runs one completion constrained to the decision schema.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.log.DebugContext(ctx, "Generating structured completion", "prompt_length", len(systemPrompt))

	cfg := c.baseConfig(systemPrompt)
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = decisionSchema

	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}
	resp, err := c.genaiClient.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}
	return extractText(resp)
}

// Describe downloads the image at imageURL and asks the vision model to describe it.
func (c *Client) Describe(ctx context.Context, imageURL, prompt string) (string, error) {
	data, mimeType, err := c.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	c.log.DebugContext(ctx, "Describing image", "image_size", len(data), "mime_type", mimeType)

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(visionPrompt(prompt)),
	}, genai.RoleUser)}

	resp, err := c.genaiClient.Models.GenerateContent(ctx, c.visionModel, contents, c.baseConfig(VisionInstruction))
	if err != nil {
		return "", fmt.Errorf("gemini image description failed: %w", err)
	}
	return extractText(resp)
}

func visionPrompt(messageText string) string {
	if strings.TrimSpace(messageText) == "" {
		return visionPromptNoText
	}
	return fmt.Sprintf(visionPromptTemplate, messageText)
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := string(resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		return "", fmt.Errorf("%w: %s", ErrBlocked, reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" && resp.Candidates[0].FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("%w, finish reason: %s", ErrEmptyResponse, resp.Candidates[0].FinishReason)
		}
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
