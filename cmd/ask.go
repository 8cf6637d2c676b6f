package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/server"
	"github.com/spf13/cobra"
)

var askContextFile string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answers a question about a previously analyzed transaction.",
	Long:  `Answers a question using an analysis result written by "analyze" as context.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := readResult(askContextFile)
		if err != nil {
			return err
		}

		config, err := loadConfig()
		if err != nil {
			return err
		}

		service, _, err := server.NewDebugger(cmd.Context(), log, config)
		if err != nil {
			return fmt.Errorf("failed to create debugger: %w", err)
		}

		answer, err := service.Ask(cmd.Context(), args[0], result)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), answer)

		return nil
	},
}

// readResult accepts a bare result or the {"result": ...} API envelope.
func readResult(file string) (*analysis.Result, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}

	var envelope struct {
		Result *analysis.Result `json:"result"`
	}

	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Result != nil {
		return envelope.Result, nil
	}

	var result analysis.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode context file: %w", err)
	}

	return &result, nil
}

func init() {
	askCmd.Flags().StringVar(&askContextFile, "context", "", "analysis result JSON file")
	_ = askCmd.MarkFlagRequired("context")
	rootCmd.AddCommand(askCmd)
}
