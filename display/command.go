// Package display decides between human and machine-readable CLI output.
// Commands default to JSON when an LLM tool is driving folio, since models
// parse structured output far more reliably than tables.
package display

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgewood/folio/ai/llm"
)

// ShouldOutputJSON reports whether a command should emit JSON, from the
// --json flag (per-command or global) or LLM caller detection.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return llm.IsLLMEnvironment()
	}

	// An explicitly set flag wins in both directions.
	if cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}

	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}

	return llm.IsLLMEnvironment()
}

// OutputJSON marshals v with MarshalJSON and prints it.
func OutputJSON(v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
