package report

import (
	"encoding/json"
	"strings"

	"github.com/ledgewood/folio/spec"
)

// coerce interprets a raw model response according to the variable's
// declared type. The fallback flag reports that a string_list response
// could not be parsed and the trimmed raw text was wrapped instead; that
// failure is absorbed here so one malformed field cannot abort a report.
func coerce(t spec.VariableType, raw string) (value any, fallback bool) {
	trimmed := strings.TrimSpace(raw)

	switch t {
	case spec.TypeStringList:
		return coerceStringList(trimmed)
	default:
		// text and markdown are used verbatim.
		return trimmed, false
	}
}

// coerceStringList parses the response as a JSON array, stripping an
// optional surrounding code fence first. Models often wrap JSON in
// ```json fences even when asked not to.
func coerceStringList(trimmed string) (any, bool) {
	candidate := stripCodeFence(trimmed)

	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return []any{trimmed}, true
	}

	list, ok := parsed.([]any)
	if !ok {
		return []any{trimmed}, true
	}
	return list, false
}

// stripCodeFence removes surrounding triple-backtick markers, optionally
// tagged "json". Content without a fence passes through unchanged.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	body := strings.TrimPrefix(s, "```")
	body = strings.TrimPrefix(body, "json")
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}
