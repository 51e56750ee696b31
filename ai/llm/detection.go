// Package llm detects whether folio itself is being driven by an LLM
// coding tool. CLI commands use this to default to machine-readable JSON
// output when a model, rather than a human, is reading the terminal.
package llm

import "os"

// Info describes the detected LLM caller environment.
type Info struct {
	IsLLM    bool
	Tool     string
	ModelID  string
	Provider string
}

// IsLLMEnvironment reports whether folio appears to be invoked by an LLM
// tool. FOLIO_CALLER=llm forces detection for callers the heuristics miss.
func IsLLMEnvironment() bool {
	if os.Getenv("FOLIO_CALLER") == "llm" {
		return true
	}
	return detectKnownTools().IsLLM
}

// GetInfo returns details about the LLM caller environment.
func GetInfo() Info {
	if os.Getenv("FOLIO_CALLER") == "llm" {
		return Info{
			IsLLM:    true,
			Tool:     "generic-llm",
			ModelID:  os.Getenv("FOLIO_LLM_MODEL"),
			Provider: os.Getenv("FOLIO_LLM_PROVIDER"),
		}
	}
	return detectKnownTools()
}

// detectKnownTools checks environment variables set by known LLM tools.
func detectKnownTools() Info {
	if os.Getenv("CLAUDECODE") != "" || os.Getenv("CLAUDE_CODE_ENTRYPOINT") != "" {
		return Info{
			IsLLM:    true,
			Tool:     "claude-code",
			ModelID:  os.Getenv("CLAUDE_MODEL"),
			Provider: "anthropic",
		}
	}
	if os.Getenv("CURSOR") != "" {
		return Info{
			IsLLM:    true,
			Tool:     "cursor",
			ModelID:  os.Getenv("CURSOR_MODEL"),
			Provider: "cursor-ai",
		}
	}
	if os.Getenv("GITHUB_COPILOT") != "" {
		return Info{
			IsLLM:    true,
			Tool:     "github-copilot",
			Provider: "github",
		}
	}
	return Info{}
}
