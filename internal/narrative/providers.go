package narrative

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"

	"github.com/calscan/calscan/internal/inference"
)

const maxOutputTokens = 1024

type openAICompleter struct {
	client      *openai.Client
	modelName   string
	temperature float64
}

func newOpenAI(apiKey, baseURL, model string, temperature float64) *openAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAICompleter{
		client:      openai.NewClientWithConfig(cfg),
		modelName:   model,
		temperature: temperature,
	}
}

func (c *openAICompleter) provider() string { return "openai" }
func (c *openAICompleter) model() string    { return c.modelName }

func (c *openAICompleter) complete(ctx context.Context, systemPrompt, userPrompt string) (string, inference.Usage, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.modelName,
		Temperature: float32(c.temperature),
		MaxTokens:   maxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", inference.Usage{}, fmt.Errorf("openai api error: %w", err)
	}

	usage := inference.Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) == 0 {
		return "", usage, fmt.Errorf("no response from openai")
	}

	return resp.Choices[0].Message.Content, usage, nil
}

type anthropicCompleter struct {
	client      anthropic.Client
	modelName   string
	temperature float64
}

func newAnthropic(apiKey, baseURL, model string, temperature float64) *anthropicCompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &anthropicCompleter{
		client:      anthropic.NewClient(opts...),
		modelName:   model,
		temperature: temperature,
	}
}

func (c *anthropicCompleter) provider() string { return "anthropic" }
func (c *anthropicCompleter) model() string    { return c.modelName }

func (c *anthropicCompleter) complete(ctx context.Context, systemPrompt, userPrompt string) (string, inference.Usage, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.modelName),
		MaxTokens:   maxOutputTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", inference.Usage{}, fmt.Errorf("anthropic api error: %w", err)
	}

	usage := inference.Usage{
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}
	if len(message.Content) == 0 {
		return "", usage, fmt.Errorf("no response from anthropic")
	}

	return message.Content[0].Text, usage, nil
}
