// Package llm defines the reasoning-engine contract used by the agent and an
// OpenAI-compatible implementation of it.
package llm

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one transcript entry. Assistant messages may carry tool calls;
// tool messages answer exactly one call.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

type ToolCall struct {
	ID   string
	Name string
	// Arguments is the raw JSON object the engine produced.
	Arguments string
}

// ToolDef advertises a callable tool. Parameters is a JSON schema object.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Completion is the engine's reply. No tool calls means the content is final.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

type Options struct {
	Temperature float64
	MaxTokens   int
}

type Option func(*Options)

func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

// Engine produces the next assistant message for a transcript.
type Engine interface {
	Complete(ctx context.Context, messages []Message, tools []ToolDef, opts ...Option) (*Completion, error)
	Model() string
}
