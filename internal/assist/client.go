package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/carebridge/telemed-platform/pkg/logging"
)

// Mode selects the assistant's system framing.
type Mode string

const (
	ModeMedical  Mode = "medical"
	ModePlatform Mode = "platform"
)

// ErrUnavailable is returned when no candidate model produced a reply.
var ErrUnavailable = errors.New("assist: ai service unavailable")

// ErrEmptyMessage is returned for a blank prompt.
var ErrEmptyMessage = errors.New("assist: message cannot be empty")

const (
	medicalPrompt = "You are a medical information assistant for a telemedicine platform. " +
		"Give general health information only and always advise consulting a doctor for diagnosis or treatment."
	platformPrompt = "You are a support assistant for a telemedicine platform. " +
		"Help users with booking, joining video consultations and using the platform."
)

// Client is a stateless proxy to the Gemini API. A request is tried against
// each configured candidate model in order until one answers, so a single
// overloaded model does not take the assistant down.
type Client struct {
	client *genai.Client
	models []string
	logger *logging.Logger
}

// NewClient creates an assist client.
func NewClient(ctx context.Context, apiKey string, models []string, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("assist: gemini api key is required")
	}
	if len(models) == 0 {
		models = []string{"gemini-2.5-flash"}
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("assist: create gemini client: %w", err)
	}
	return &Client{client: client, models: models, logger: logger}, nil
}

// Reply answers one user message. No conversation state is kept.
func (c *Client) Reply(ctx context.Context, message string, mode Mode) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	system := platformPrompt
	if mode == ModeMedical {
		system = medicalPrompt
	}

	var lastErr error
	for _, modelID := range c.models {
		text, err := c.generate(ctx, modelID, system, message)
		if err != nil {
			lastErr = err
			c.logger.Warn("assist model failed, trying next candidate",
				"model", modelID, "error", err)
			continue
		}
		return text, nil
	}

	c.logger.Error("all assist candidate models failed", "error", lastErr)
	return "", ErrUnavailable
}

func (c *Client) generate(ctx context.Context, modelID, system, message string) (string, error) {
	model := c.client.GenerativeModel(modelID)
	model.SystemInstruction = genai.NewUserContent(genai.Text(system))

	resp, err := model.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("assist: generate with %s: %w", modelID, err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("assist: %s returned no candidates", modelID)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("assist: %s returned empty content", modelID)
	}

	var out strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	reply := strings.TrimSpace(out.String())
	if reply == "" {
		return "", fmt.Errorf("assist: %s returned blank reply", modelID)
	}
	return reply, nil
}

// Close releases resources held by the Gemini client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
