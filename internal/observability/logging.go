// Package observability provides the process-wide zap loggers.
//
// Two loggers are exposed: CLILogger writes human-oriented console
// output for command-line runs, ServerLogger writes structured JSON
// for service deployments. Both default to no-op loggers until Init
// is called, so library consumers importing this package never see
// surprise output.
package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logging profiles.
const (
	// ProfileConsole selects human-readable console encoding.
	ProfileConsole = "console"

	// ProfileStructured selects JSON encoding for log aggregation.
	ProfileStructured = "structured"
)

// Process-wide loggers. Init replaces both; until then they are no-ops.
var (
	// CLILogger is the logger for command-line output.
	CLILogger = zap.NewNop()

	// ServerLogger is the logger for server-mode structured output.
	ServerLogger = zap.NewNop()
)

// Init configures the process loggers with the given level and profile.
//
// Level is a zap level name ("debug", "info", "warn", "error").
// Profile selects the encoding for ServerLogger; CLILogger always uses
// console encoding on stderr so command output on stdout stays clean.
func Init(level, profile string) error {
	zapLevel, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cliCfg := zap.NewDevelopmentConfig()
	cliCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cliCfg.OutputPaths = []string{"stderr"}
	cliCfg.ErrorOutputPaths = []string{"stderr"}

	cli, err := cliCfg.Build()
	if err != nil {
		return fmt.Errorf("build CLI logger: %w", err)
	}

	srvCfg := zap.NewProductionConfig()
	srvCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if strings.EqualFold(profile, ProfileConsole) {
		srvCfg.Encoding = "console"
	}

	srv, err := srvCfg.Build()
	if err != nil {
		return fmt.Errorf("build server logger: %w", err)
	}

	CLILogger = cli
	ServerLogger = srv
	return nil
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	_ = CLILogger.Sync()
	_ = ServerLogger.Sync()
}
