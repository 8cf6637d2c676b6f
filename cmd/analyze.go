package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/4rdii/transaction-debugger-agent/pkg/agent"
	"github.com/4rdii/transaction-debugger-agent/pkg/server"
	"github.com/spf13/cobra"
)

var (
	analyzeNetwork  string
	analyzeProgress bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <tx-hash>",
	Short: "Analyzes one transaction and prints the result as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		service, _, err := server.NewDebugger(cmd.Context(), log, config)
		if err != nil {
			return fmt.Errorf("failed to create debugger: %w", err)
		}

		var observer agent.Observer

		if analyzeProgress {
			events := make(chan agent.Event, 32)
			printed := make(chan struct{})

			go func() {
				defer close(printed)

				for e := range events {
					fmt.Fprintln(cmd.ErrOrStderr(), describeEvent(e))
				}
			}()

			defer func() {
				close(events)
				<-printed
			}()

			observer = agent.ChannelObserver(events)
		}

		result, err := service.Explain(cmd.Context(), args[0], analyzeNetwork, observer)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		return nil
	},
}

func describeEvent(e agent.Event) string {
	switch e.Type {
	case agent.EventToolCall:
		return fmt.Sprintf("[turn %d] calling %s", e.Turn, strings.Join(e.ToolNames, ", "))
	case agent.EventToolResult:
		return fmt.Sprintf("[turn %d] %s: %s", e.Turn, e.ToolName, e.Summary)
	default:
		return fmt.Sprintf("[turn %d] final answer", e.Turn)
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeNetwork, "network", "1", "network (chain) id")
	analyzeCmd.Flags().BoolVar(&analyzeProgress, "progress", false, "print reasoning progress to stderr")
	rootCmd.AddCommand(analyzeCmd)
}
