package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
//
// These levels control WHAT categories of output are shown, not just log
// severity: at -vv the generate command prints rendered prompts, at -vvv it
// also prints raw model responses.
const (
	VerbosityUser  = 0 // No flags: results and errors only
	VerbosityInfo  = 1 // -v: + per-variable progress, plugin status
	VerbosityDebug = 2 // -vv: + rendered prompts, timing, config details
	VerbosityTrace = 3 // -vvv: + raw model responses, HTTP request detail
)

// VerbosityToLevel maps verbosity flags (-v, -vv, etc.) to zap log levels
//
// Mapping:
//
//	0 (none)  -> WarnLevel  (errors and warnings only)
//	1 (-v)    -> InfoLevel  (+ informational messages)
//	2+ (-vv)  -> DebugLevel (+ debug messages; finer grades tracked separately)
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// ShouldLogPrompts returns true for verbosity >= 2 (-vv).
// Use this before logging rendered prompt text.
func ShouldLogPrompts(verbosity int) bool {
	return verbosity >= VerbosityDebug
}

// ShouldLogResponses returns true for verbosity >= 3 (-vvv).
// Use this before logging raw model responses.
func ShouldLogResponses(verbosity int) bool {
	return verbosity >= VerbosityTrace
}

// LevelName returns a human-readable name for a verbosity level
func LevelName(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "User"
	case VerbosityInfo:
		return "Info (-v)"
	case VerbosityDebug:
		return "Debug (-vv)"
	default:
		return "Trace (-vvv)"
	}
}
