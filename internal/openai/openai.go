// Package openai implements the completion, vision, and image-generation
// backends on the OpenAI API.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/relay"
)

var (
	// ErrNoChoices is returned when a chat completion has no choices.
	ErrNoChoices = errors.New("no choices in response")
	// ErrEmptyResponse is returned when the first choice has no content.
	ErrEmptyResponse = errors.New("empty response content")
)

const decisionSchemaName = "relay_decision"

const visionInstruction = `You describe images posted in a group chat for another assistant that cannot see them.
Describe the main subjects, any visible text (transcribed verbatim), the setting, and anything notable or funny.
Use at most five sentences. Do not speculate about the identity of real people.`

// decisionSchema constrains completions to the relay decision object.
var decisionSchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		relay.FieldReplyText:           {Type: jsonschema.String, Description: "Message to post in the chat. Empty when generating an image."},
		relay.FieldMemoryText:          {Type: jsonschema.String, Description: "New fact to remember about the requestor, or empty."},
		relay.FieldShouldGenerateImage: {Type: jsonschema.Boolean, Description: "True only when the requestor asks for an image."},
	},
	Required:             []string{relay.FieldReplyText, relay.FieldMemoryText, relay.FieldShouldGenerateImage},
	AdditionalProperties: false,
}

// ImageFetcher downloads the image bytes sent inline to the vision model.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Client implements relay.Completer, relay.Describer, and relay.ImageGenerator.
type Client struct {
	openAIClient *openai.Client
	fetcher      ImageFetcher
	log          *slog.Logger
	model        string
	visionModel  string
	imageModel   string
	imageSize    string
	temperature  float32
}

// New creates an OpenAI client. timeout bounds every API call.
func New(cfg config.OpenAIConfig, timeout time.Duration, fetcher ImageFetcher, log *slog.Logger) *Client {
	openAICfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openAICfg.BaseURL = cfg.BaseURL
	}
	openAICfg.HTTPClient = &http.Client{Timeout: timeout}

	logger := log.With("component", "openai_client")
	logger.Info("OpenAI client initialized successfully", "model", cfg.Model, "image_model", cfg.ImageModel)
	return &Client{
		openAIClient: openai.NewClientWithConfig(openAICfg),
		fetcher:      fetcher,
		log:          logger,
		model:        cfg.Model,
		visionModel:  cfg.VisionModel,
		imageModel:   cfg.ImageModel,
		imageSize:    cfg.ImageSize,
		temperature:  cfg.Temperature,
	}
}

// Complete runs one chat completion in strict json_schema mode.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.log.DebugContext(ctx, "Generating structured completion", "prompt_length", len(systemPrompt))

	resp, err := c.openAIClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   decisionSchemaName,
				Schema: decisionSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return firstChoice(resp)
}

// Describe downloads the image at imageURL and asks the vision model to describe it.
// The bytes are sent as a data URL because the source URL may embed credentials.
func (c *Client) Describe(ctx context.Context, imageURL, prompt string) (string, error) {
	data, mimeType, err := c.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)

	text := "The image was posted without any message."
	if strings.TrimSpace(prompt) != "" {
		text = fmt.Sprintf("The image was posted with this message: %q", prompt)
	}

	resp, err := c.openAIClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: visionInstruction},
			{Role: openai.ChatMessageRoleUser, MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: text},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailLow,
				}},
			}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision completion failed: %w", err)
	}
	return firstChoice(resp)
}

// Generate creates one image and returns its URL. An empty URL means the API
// returned no image.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	c.log.InfoContext(ctx, "Generating image", "model", c.imageModel, "size", c.imageSize)

	resp, err := c.openAIClient.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.imageModel,
		N:              1,
		Size:           c.imageSize,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	return resp.Data[0].URL, nil
}

func firstChoice(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
