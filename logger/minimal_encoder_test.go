package logger

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stripANSI removes ANSI color codes from a string for testing
func stripANSI(str string) string {
	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(str, "")
}

// TestMinimalEncoderNeverDiscardsFields ensures the minimal encoder never
// silently drops log fields, whatever their key or type.
func TestMinimalEncoderNeverDiscardsFields(t *testing.T) {
	encoder := newMinimalEncoder()

	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Now(),
		LoggerName: "report",
		Message:    "Variable generated",
	}

	testFields := []struct {
		field    zapcore.Field
		mustFind string
	}{
		{zap.String(FieldPlugin, "folio-sales"), "plugin=folio-sales"},
		{zap.String(FieldSpec, "quarterly"), "spec=quarterly"},
		{zap.String(FieldVariable, "summary"), "variable=summary"},
		{zap.String(FieldModel, "qwen2.5:7b"), "model=qwen2.5:7b"},
		{zap.Int(FieldTokens, 512), "tokens=512"},
		{zap.Int64(FieldDurationMS, 1420), "duration_ms=1420"},
		{zap.Bool("fallback", true), "fallback=true"},
		{zap.Float64("cost", 0.0021), "cost=0.0021"},
		{zap.Strings("inputs", []string{"bundle.stats", "ctx.summary"}), "inputs"},
		{zap.String("random_field_xyz", "important_data"), "random_field_xyz=important_data"},
		{zap.Error(nil), ""}, // nil error must not crash
	}

	var allFields []zapcore.Field
	for _, tf := range testFields {
		allFields = append(allFields, tf.field)
	}

	buf, err := encoder.EncodeEntry(entry, allFields)
	if err != nil {
		t.Fatalf("Failed to encode entry: %v", err)
	}

	cleanOutput := stripANSI(buf.String())

	for _, tf := range testFields {
		if tf.mustFind != "" && !strings.Contains(cleanOutput, tf.mustFind) {
			t.Errorf("Field was silently discarded from log output: %s\nOutput: %s", tf.mustFind, cleanOutput)
		}
	}
}

func TestMinimalEncoderLevelRendering(t *testing.T) {
	encoder := newMinimalEncoder()

	tests := []struct {
		name       string
		level      zapcore.Level
		wantLevel  string
		wantAbsent string
	}{
		{"info hides level", zapcore.InfoLevel, "", "INFO"},
		{"debug hides level", zapcore.DebugLevel, "", "DEBUG"},
		{"warn shown", zapcore.WarnLevel, "WARN", ""},
		{"error shown", zapcore.ErrorLevel, "ERROR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := zapcore.Entry{
				Level:   tt.level,
				Time:    time.Now(),
				Message: "message",
			}
			buf, err := encoder.EncodeEntry(entry, nil)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			clean := stripANSI(buf.String())
			if tt.wantLevel != "" && !strings.Contains(clean, tt.wantLevel) {
				t.Errorf("expected level tag %q in output: %s", tt.wantLevel, clean)
			}
			if tt.wantAbsent != "" && strings.Contains(clean, tt.wantAbsent) {
				t.Errorf("did not expect %q in output: %s", tt.wantAbsent, clean)
			}
		})
	}
}

func TestAbbreviateName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report", "report"},
		{"plugin.registry", "p.registry"},
		{"ai.openrouter", "a.openrouter"},
		{"plugin.registry.stats", "p.registry.stats"},
	}

	for _, tt := range tests {
		if got := abbreviateName(tt.in); got != tt.want {
			t.Errorf("abbreviateName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMinimalEncoderClone(t *testing.T) {
	encoder := newMinimalEncoder()
	clone := encoder.Clone()

	if clone == nil {
		t.Fatal("Clone returned nil")
	}

	entry := zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    time.Now(),
		Message: "cloned encoder works",
	}
	buf, err := clone.EncodeEntry(entry, []zapcore.Field{zap.String("k", "v")})
	if err != nil {
		t.Fatalf("clone encode: %v", err)
	}
	if !strings.Contains(stripANSI(buf.String()), "k=v") {
		t.Errorf("clone dropped field: %s", buf.String())
	}
}
