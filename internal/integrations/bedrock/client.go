// Package bedrock is a focused Amazon Bedrock client for Anthropic-style
// message inference.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/allenheltondev/bis-rss-feed/internal/domain"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	maxOutputTokens  = 10000
)

// bedrockAPI is the minimal Bedrock runtime interface required by Client.
// *bedrockruntime.Client from aws-sdk-go-v2 satisfies this interface.
type bedrockAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// invokeRequest is the Anthropic messages request body accepted by Bedrock.
type invokeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []invokeMessage `json:"messages"`
}

type invokeMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// invokeResponse is the minimal response shape returned by InvokeModel.
type invokeResponse struct {
	Content []contentBlock `json:"content"`
}

// Client wraps the Bedrock runtime for chat inference.
type Client struct {
	api bedrockAPI
}

// New creates a Client with the given Bedrock runtime implementation.
func New(api bedrockAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	return &Client{api: api}, nil
}

// Invoke sends the transcript to the model and returns the assistant's text
// reply. The optional system instruction positions the model without being
// part of the transcript.
func (c *Client) Invoke(ctx context.Context, model string, messages []domain.Message, system string) (string, error) {
	if model == "" {
		return "", errors.New("bedrock: model must not be empty")
	}
	if len(messages) == 0 {
		return "", errors.New("bedrock: transcript must not be empty")
	}

	req := invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxOutputTokens,
		System:           system,
		Messages:         make([]invokeMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, invokeMessage{
			Role:    m.Role,
			Content: []contentBlock{{Type: "text", Text: m.Content}},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model: %w", err)
	}

	var payload invokeResponse
	if err := json.Unmarshal(out.Body, &payload); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}
	if len(payload.Content) == 0 {
		return "", errors.New("bedrock: no content in response")
	}
	return payload.Content[0].Text, nil
}
