package debugger

import (
	"context"
	"fmt"
	"strings"

	"github.com/4rdii/transaction-debugger-agent/pkg/agent"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/4rdii/transaction-debugger-agent/pkg/llm"
)

const (
	qaTemperature = 0.2
	qaMaxTokens   = 500

	// FallbackAnswer is returned when the engine replies with no text.
	FallbackAnswer = "Unable to answer question."

	qaSystemPrompt = "You are a DeFi transaction analyst. Answer questions about the transaction using only the provided context. Be concise and precise."
)

// Ask answers a question grounded only in a previous analysis.
func (s *Service) Ask(ctx context.Context, question string, result *analysis.Result) (string, error) {
	if err := ValidateQuestion(question); err != nil {
		return "", err
	}

	if result == nil {
		return "", invalid("analysis context is required")
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: qaSystemPrompt},
		{Role: llm.RoleUser, Content: qaContext(result) + "\n\nQuestion: " + question},
	}

	completion, err := s.engine.Complete(ctx, messages, nil,
		llm.WithTemperature(qaTemperature),
		llm.WithMaxTokens(qaMaxTokens),
	)
	if err != nil {
		return "", &UpstreamError{Service: ServiceLLM, Err: err}
	}

	answer := completion.Content
	if answer == "" {
		answer = FallbackAnswer
	}

	messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: answer})

	if _, err := agent.WriteTranscript(s.logDir, result.TxHash, s.engine.Model(), s.now(), messages); err != nil {
		common.RunLogWriteErrors.Inc()
		s.log.WithError(err).WithField("tx_hash", result.TxHash).Warn("Failed to write Q&A log")
	}

	return answer, nil
}

func qaContext(r *analysis.Result) string {
	status := "failed"
	if r.Success {
		status = "success"
	}

	actions := make([]string, 0, len(r.SemanticActions))
	for _, a := range r.SemanticActions {
		actions = append(actions, a.Description)
	}

	flows := make([]string, 0, len(r.TokenFlows))
	for _, f := range r.TokenFlows {
		flows = append(flows, fmt.Sprintf("%s %s from %s to %s", f.FormattedAmount, f.TokenSymbol, f.From, f.To))
	}

	risks := make([]string, 0, len(r.RiskFlags))
	for _, f := range r.RiskFlags {
		risks = append(risks, f.Description)
	}

	riskText := strings.Join(risks, "; ")
	if riskText == "" {
		riskText = "none"
	}

	var b strings.Builder

	b.WriteString("Transaction context:\n")
	fmt.Fprintf(&b, "- Hash: %s\n", r.TxHash)
	fmt.Fprintf(&b, "- Status: %s\n", status)
	fmt.Fprintf(&b, "- Actions: %s\n", strings.Join(actions, "; "))
	fmt.Fprintf(&b, "- Token flows: %s\n", strings.Join(flows, "; "))
	fmt.Fprintf(&b, "- Risks: %s\n", riskText)
	fmt.Fprintf(&b, "- Gas used: %d\n", r.GasUsed)
	fmt.Fprintf(&b, "- Block: %d\n", r.BlockNumber)

	if r.FailureReason != nil {
		fmt.Fprintf(&b, "- Failure reason: %s\n", r.FailureReason.Reason)
	}

	b.WriteString("\nPrevious explanation:\n")
	b.WriteString(r.LLMExplanation)

	return b.String()
}
