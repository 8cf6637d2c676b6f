package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/4rdii/transaction-debugger-agent/pkg/llm"
	"github.com/google/uuid"
)

const (
	logRuleWidth  = 80
	shortHashSize = 10
)

type runLog struct {
	TxHash     string
	RunID      uuid.UUID
	Model      string
	At         time.Time
	Transcript []llm.Message
}

// FileName is `{timestamp}_{hash prefix}.txt` with a filesystem-safe
// timestamp.
func (l *runLog) FileName() string {
	at := l.At.UTC()
	ts := fmt.Sprintf("%s-%03dZ", at.Format("2006-01-02T15-04-05"), at.Nanosecond()/int(time.Millisecond))

	short := l.TxHash
	if len(short) > shortHashSize {
		short = short[:shortHashSize]
	}

	return ts + "_" + short + ".txt"
}

// Write stores the run log under dir and returns the file path.
func (l *runLog) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run log directory: %w", err)
	}

	path := filepath.Join(dir, l.FileName())

	if err := os.WriteFile(path, []byte(l.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write run log: %w", err)
	}

	return path, nil
}

func (l *runLog) String() string {
	turns := 0

	for _, m := range l.Transcript {
		if m.Role == llm.RoleAssistant {
			turns++
		}
	}

	rule := strings.Repeat("═", logRuleWidth)

	lines := []string{
		rule,
		"TX:        " + l.TxHash,
		"RUN:       " + l.RunID.String(),
		"TIMESTAMP: " + l.At.UTC().Format(time.RFC3339Nano),
		"MODEL:     " + l.Model,
		fmt.Sprintf("TURNS:     %d", turns),
		rule,
		"",
	}

	return strings.Join(append(lines, transcriptLines(l.Transcript)...), "\n")
}

func transcriptLines(transcript []llm.Message) []string {
	var (
		lines []string
		turn  int
		names = map[string]string{}
	)

	for i := 0; i < len(transcript); i++ {
		msg := transcript[i]

		switch msg.Role {
		case llm.RoleSystem:
			lines = append(lines, section("SYSTEM PROMPT"), msg.Content, "")
		case llm.RoleUser:
			lines = append(lines, section("TURN 0: USER"), msg.Content, "")
		case llm.RoleAssistant:
			turn++

			if len(msg.ToolCalls) == 0 {
				lines = append(lines, section(fmt.Sprintf("TURN %d: ASSISTANT (FINAL)", turn)), msg.Content, "")

				continue
			}

			lines = append(lines, section(fmt.Sprintf("TURN %d: ASSISTANT", turn)))

			plural := "s"
			if len(msg.ToolCalls) == 1 {
				plural = ""
			}

			lines = append(lines, fmt.Sprintf("[calls %d tool%s]", len(msg.ToolCalls), plural))

			for _, tc := range msg.ToolCalls {
				names[tc.ID] = tc.Name
				lines = append(lines, fmt.Sprintf("  → %s%s", tc.Name, formatArguments(tc.Arguments)))
			}

			if msg.Content != "" {
				lines = append(lines, "", msg.Content)
			}

			lines = append(lines, "")

			var results []string

			for i+1 < len(transcript) && transcript[i+1].Role == llm.RoleTool {
				i++
				result := transcript[i]

				name, ok := names[result.ToolCallID]
				if !ok {
					name = "unknown"
				}

				results = append(results, "["+name+"]")

				for _, line := range strings.Split(result.Content, "\n") {
					results = append(results, "  "+line)
				}

				results = append(results, "")
			}

			if len(results) > 0 {
				lines = append(lines, section(fmt.Sprintf("TURN %d: TOOL RESULTS", turn)))
				lines = append(lines, results...)
			}
		}
	}

	return lines
}

func section(title string) string {
	head := "─── " + title + " "

	return head + strings.Repeat("─", max(0, logRuleWidth-utf8.RuneCountInString(head)))
}

// formatArguments renders tool arguments as (k=v, ...) with keys sorted.
func formatArguments(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "()"
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return "(" + raw + ")"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))

	for _, k := range keys {
		v, err := json.Marshal(args[k])
		if err != nil {
			v = []byte(fmt.Sprint(args[k]))
		}

		parts = append(parts, k+"="+string(v))
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// WriteTranscript stores a transcript produced outside a Run, such as a Q&A
// exchange, in the run-log format.
func WriteTranscript(dir, txHash, model string, at time.Time, transcript []llm.Message) (string, error) {
	entry := &runLog{
		TxHash:     txHash,
		RunID:      uuid.New(),
		Model:      model,
		At:         at,
		Transcript: transcript,
	}

	return entry.Write(dir)
}
