// Package render wraps text/template with the filter set report templates
// rely on. Filters take the value as their final argument so they compose in
// pipelines: {{ .stats.total | number_format }}.
package render

import (
	"bytes"
	"math"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/ledgewood/folio/errors"
)

// Engine renders prompt and report templates against a context map.
type Engine struct {
	funcs template.FuncMap
}

// NewEngine creates an Engine with the standard report filters installed.
func NewEngine() *Engine {
	return &Engine{funcs: reportFuncMap()}
}

// RenderString renders template text against ctx. Missing leaf keys render
// as empty strings; referencing a field through an absent intermediate value
// is a render error.
func (e *Engine) RenderString(text string, ctx map[string]any) (string, error) {
	tmpl, err := template.New("render").Funcs(e.funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", errors.Wrap(err, "parse template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", errors.Wrap(err, "execute template")
	}

	// missingkey=zero leaves "<no value>" where a key was absent; report
	// templates treat absent values as empty.
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

// KV is one entry of a map ordered by value, as produced by top_n.
type KV struct {
	Key   string
	Value any
}

// reportFuncMap builds the filter set available to report templates. These
// supplement the built-in Go template functions (eq, and, printf, etc.).
func reportFuncMap() template.FuncMap {
	return template.FuncMap{
		// number_format renders a number with thousands separators.
		"number_format": numberFormat,
		// round renders a number with a fixed number of decimals.
		"round": roundFixed,
		// keys lists a map's keys, sorted.
		"keys": sortedKeys,
		// top_n picks the n largest entries of a numeric map, descending.
		"top_n": topN,
		// slice takes elements [start,end) of a list.
		"slice": sliceList,
		// String helpers for prompt templates.
		"lower":   strings.ToLower,
		"upper":   strings.ToUpper,
		"trim":    strings.TrimSpace,
		"join":    strings.Join,
		"replace": strings.ReplaceAll,
	}
}

func numberFormat(v any) (string, error) {
	f, ok := toFloat(v)
	if !ok {
		return "", errors.Newf("number_format: %v (%T) is not numeric", v, v)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	grouped := groupThousands(intPart)
	if neg {
		grouped = "-" + grouped
	}
	if hasFrac {
		return grouped + "." + fracPart, nil
	}
	return grouped, nil
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func roundFixed(decimals int, v any) (string, error) {
	f, ok := toFloat(v)
	if !ok {
		return "", errors.Newf("round: %v (%T) is not numeric", v, v)
	}
	if decimals < 0 {
		decimals = 0
	}
	shift := math.Pow(10, float64(decimals))
	return strconv.FormatFloat(math.Round(f*shift)/shift, 'f', decimals, 64), nil
}

func sortedKeys(v any) ([]string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Newf("keys: %T is not a map", v)
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func topN(n int, v any) ([]KV, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Newf("top_n: %T is not a map", v)
	}

	entries := make([]KV, 0, len(m))
	for k, val := range m {
		entries = append(entries, KV{Key: k, Value: val})
	}
	sort.Slice(entries, func(i, j int) bool {
		fi, iOK := toFloat(entries[i].Value)
		fj, jOK := toFloat(entries[j].Value)
		if iOK != jOK {
			return iOK
		}
		if fi != fj {
			return fi > fj
		}
		return entries[i].Key < entries[j].Key
	})

	if n < 0 {
		n = 0
	}
	if n > len(entries) {
		n = len(entries)
	}
	return entries[:n], nil
}

func sliceList(start, end int, v any) (any, error) {
	items, ok := toAnySlice(v)
	if !ok {
		return nil, errors.Newf("slice: %T is not a list", v)
	}
	if start < 0 {
		start = 0
	}
	if end > len(items) {
		end = len(items)
	}
	if start >= end {
		return []any{}, nil
	}
	return items[start:end], nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toAnySlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []map[string]any:
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out, true
	case []string:
		out := make([]any, len(s))
		for i, str := range s {
			out[i] = str
		}
		return out, true
	default:
		return nil, false
	}
}
