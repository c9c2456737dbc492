package scenario

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/glucommander/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the logger writing to stdout and, when logFile
// is set, to that file as well.
func SetupLogging(logFile string, verbose bool) error {
	var out io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the titration check tool.
func ShowHelp() {
	os.Stdout.WriteString(`Titration Check
===============

Replays hourly glucose readings against a running infusion service and
verifies every recommended rate against the local protocol.

Usage:
  go run ./cmd/titration-check [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -readings string
        Comma separated readings in mg/dL, first one starts the infusion
  -file string
        YAML file with named scenarios (scenarios: [{name, readings}])
  -workers int
        Number of series replayed concurrently (default 4)
  -timeout duration
        HTTP request timeout (default 10s)
  -output string
        Write the JSON report to this file
  -log string
        Also write log output to this file
  -verbose
        Log every verified step
  -help
        Show this help message

Examples:
  # Replay a single series
  go run ./cmd/titration-check -readings 350,300,260,220,190,150

  # Replay every scenario in a file
  go run ./cmd/titration-check -file scenarios.yaml -output report.json
`)
}
