package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/glucommander/internal/scenario"
)

// Default configuration constants.
const (
	defaultWorkers  = 4
	defaultTimeout  = 10 * time.Second
	defaultDeadline = 5 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		readings   = flag.String("readings", "", "Comma separated readings in mg/dL")
		seriesFile = flag.String("file", "", "YAML file with named scenarios")
		workers    = flag.Int("workers", defaultWorkers, "Number of series replayed concurrently")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write the JSON report to this file")
		logFile    = flag.String("log", "", "Also write log output to this file")
		verbose    = flag.Bool("verbose", false, "Log every verified step")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		scenario.ShowHelp()
		return
	}

	if err := scenario.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	var series []scenario.Series
	if *seriesFile != "" {
		loaded, err := scenario.LoadSeries(*seriesFile)
		if err != nil {
			os.Stderr.WriteString("Failed to load scenarios: " + err.Error() + "\n")
			os.Exit(1)
		}
		series = append(series, loaded...)
	}
	if *readings != "" {
		values, err := scenario.ParseReadings(*readings)
		if err != nil {
			os.Stderr.WriteString("Invalid -readings: " + err.Error() + "\n")
			os.Exit(1)
		}
		series = append(series, scenario.Series{Name: "cli", Readings: values})
	}
	if len(series) == 0 {
		scenario.ShowHelp()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultDeadline)
	defer cancel()

	config := &scenario.Config{
		BaseURL:    *baseURL,
		Series:     series,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := scenario.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Titration check failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
