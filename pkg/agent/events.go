package agent

import (
	"strings"
	"unicode/utf8"
)

type EventType string

const (
	EventToolCall    EventType = "tool_call"
	EventToolResult  EventType = "tool_result"
	EventFinalAnswer EventType = "final_answer"

	maxSummaryLength = 120
)

// Event is a progress notification. Events are informational only and carry
// nothing the final result does not.
type Event struct {
	Type      EventType `json:"type"`
	Turn      int       `json:"turn"`
	ToolNames []string  `json:"toolNames,omitempty"`
	ToolName  string    `json:"toolName,omitempty"`
	Summary   string    `json:"summary,omitempty"`
}

// Observer receives progress events in order. Implementations must return
// promptly.
type Observer interface {
	Observe(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// ChannelObserver forwards events without blocking. Events that do not fit
// in the channel's buffer are dropped.
type ChannelObserver chan<- Event

func (c ChannelObserver) Observe(e Event) {
	select {
	case c <- e:
	default:
	}
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

// summarize returns the first non-blank line of an observation, capped at
// maxSummaryLength runes.
func summarize(observation string) string {
	for _, line := range strings.Split(observation, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if utf8.RuneCountInString(line) > maxSummaryLength {
			return string([]rune(line)[:maxSummaryLength])
		}

		return line
	}

	return ""
}
