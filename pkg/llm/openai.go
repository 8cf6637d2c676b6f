package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const serviceName = "llm"

// ErrEmptyResponse is returned when the engine replies without any choice.
var ErrEmptyResponse = errors.New("reasoning engine returned no choices")

// headerTransport adds custom headers to requests and respects context cancellation
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}

	if req.Context().Err() != nil {
		return nil, req.Context().Err()
	}

	return t.base.RoundTrip(req)
}

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	log    logrus.FieldLogger
	config *Config
	client *openai.LLM
}

func NewOpenAI(log logrus.FieldLogger, config *Config) (*OpenAI, error) {
	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"HTTP-Referer": config.Referer,
				"X-Title":      config.Title,
			},
			base: http.DefaultTransport,
		},
	}

	client, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reasoning engine client: %w", err)
	}

	return &OpenAI{
		log:    log.WithField("component", "llm"),
		config: config,
		client: client,
	}, nil
}

func (o *OpenAI) Model() string {
	return o.config.Model
}

func (o *OpenAI) Complete(ctx context.Context, messages []Message, tools []ToolDef, opts ...Option) (*Completion, error) {
	options := Options{Temperature: o.config.Temperature, MaxTokens: o.config.MaxTokens}
	for _, opt := range opts {
		opt(&options)
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(options.Temperature),
		llms.WithMaxTokens(options.MaxTokens),
		// OpenRouter-style endpoints only honour max_tokens.
		openai.WithLegacyMaxTokensField(),
	}

	if len(tools) > 0 {
		callOpts = append(callOpts, llms.WithTools(toTools(tools)))
	}

	start := time.Now()
	rsp, err := o.client.GenerateContent(ctx, toMessageContent(messages), callOpts...)

	common.ObserveUpstream(serviceName, "generate_content", time.Since(start).Seconds(), err)

	if err != nil {
		return nil, fmt.Errorf("reasoning engine request failed: %w", err)
	}

	if len(rsp.Choices) == 0 || rsp.Choices[0] == nil {
		return nil, ErrEmptyResponse
	}

	choice := rsp.Choices[0]
	completion := &Completion{Content: choice.Content}

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}

		completion.ToolCalls = append(completion.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}

	o.log.WithFields(logrus.Fields{
		"messages":   len(messages),
		"tool_calls": len(completion.ToolCalls),
	}).Debug("Reasoning engine replied")

	return completion, nil
}

func toTools(defs []ToolDef) []llms.Tool {
	tools := make([]llms.Tool, 0, len(defs))

	for _, def := range defs {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	return tools
}

func toMessageContent(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		case RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, llms.TextParts(llms.ChatMessageTypeAI, m.Content))

				continue
			}

			parts := make([]llms.ContentPart, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				parts = append(parts, llms.ToolCall{
					ID:   tc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}

			out = append(out, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts})
		case RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: m.ToolCallID,
					Name:       m.Name,
					Content:    m.Content,
				}},
			})
		}
	}

	return out
}
