// Package openai provides a classifier backed by OpenAI chat completions.
package openai

import (
	"context"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"

	"voice-ledger-service/internal/observability/logging"
	"voice-ledger-service/internal/schema"
	"voice-ledger-service/internal/service/classify"
	"voice-ledger-service/internal/service/taxonomy"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// Classifier implements classify.Classifier using the OpenAI API.
type Classifier struct {
	client      oai.Client
	model       string
	temperature float64
	contract    schema.Contract
	log         zerolog.Logger
}

// New constructs a classifier for one contract version. baseURL may be empty.
func New(apiKey, baseURL, model string, temperature float64, c schema.Contract) (*Classifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai classifier: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Classifier{
		client:      oai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		contract:    c,
		log:         logging.WithProvider("classifier", "openai"),
	}, nil
}

// Name implements classify.Classifier.
func (c *Classifier) Name() string { return "openai" }

// Classify implements classify.Classifier.
func (c *Classifier) Classify(ctx context.Context, transcript string, tax *taxonomy.Taxonomy) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(classify.BuildPrompt(transcript, tax, c.contract)),
		},
		Temperature: param.NewOpt(c.temperature),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai classifier: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai classifier: empty choices in response")
	}

	raw := classify.Clean(resp.Choices[0].Message.Content)
	c.log.Debug().
		Str("model", c.model).
		Int64("totalTokens", resp.Usage.TotalTokens).
		Msg("Classification received")
	return raw, nil
}

var _ classify.Classifier = (*Classifier)(nil)
