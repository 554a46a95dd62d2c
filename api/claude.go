package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"asutenki/internal/logger"
)

const (
	defaultNarratorModel   = "claude-3-5-haiku-latest"
	defaultNarratorTokens  = 300
	defaultNarratorTimeout = 30 * time.Second

	narratorSystemPrompt = "あなたは天気予報アプリのアシスタントです。与えられた天気データだけを使い、" +
		"今日と明日の天気を親しみやすい日本語で3文以内にまとめてください。数値は変えないでください。"
)

// NarratorConfig contains configuration for the Claude narration client
type NarratorConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	BaseURL     string // Optional override, used by tests
}

// Narrator turns a finished weather report into a short conversational summary
type Narrator struct {
	client anthropic.Client
	config NarratorConfig
}

// NewNarrator creates a Claude-backed narrator
func NewNarrator(config NarratorConfig) (*Narrator, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("Claude API key is required")
	}

	if config.Model == "" {
		config.Model = defaultNarratorModel
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaultNarratorTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultNarratorTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &Narrator{
		client: anthropic.NewClient(opts...),
		config: config,
	}, nil
}

// Model returns the model used for narration
func (n *Narrator) Model() string {
	return n.config.Model
}

// Narrate asks Claude to summarize the given report text. The report is
// passed verbatim as the user message.
func (n *Narrator) Narrate(ctx context.Context, report string) (string, error) {
	if strings.TrimSpace(report) == "" {
		return "", fmt.Errorf("nothing to narrate")
	}

	complete := logger.LogOperationStart("narrate", map[string]any{
		"model":      n.config.Model,
		"max_tokens": n.config.MaxTokens,
	})

	reqCtx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	resp, err := n.client.Messages.New(reqCtx, anthropic.MessageNewParams{
		Model:       anthropic.Model(n.config.Model),
		MaxTokens:   int64(n.config.MaxTokens),
		Temperature: anthropic.Float(n.config.Temperature),
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: narratorSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(report)),
		},
	})
	if err != nil {
		complete(err)
		return "", fmt.Errorf("Claude API request failed: %w", err)
	}

	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, strings.TrimSpace(block.Text))
		}
	}
	if len(parts) == 0 {
		err := fmt.Errorf("no text content in Claude API response")
		complete(err)
		return "", err
	}

	complete(nil)
	return strings.Join(parts, "\n"), nil
}
