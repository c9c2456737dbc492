package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/glucommander/internal/domain/model"
	"github.com/okian/glucommander/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

// Step modes.
const (
	ModeStart  = "start"
	ModeAdjust = "adjust"
)

// Run replays every configured series and verifies the answers. The report
// is returned even when verification fails so callers can print it.
func Run(ctx context.Context, config *Config) (*Report, error) {
	if len(config.Series) == 0 {
		return nil, ErrNoSeries
	}
	log := logger.Named("titration-check")

	report := &Report{
		RunID:     uuid.NewString(),
		Series:    make([]SeriesResult, len(config.Series)),
		StartTime: time.Now(),
	}
	log.Info(ctx, "starting titration check",
		logger.String("runID", report.RunID),
		logger.String("baseURL", config.BaseURL),
		logger.Int("series", len(config.Series)),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	client := NewClient(config.BaseURL, config.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, err
	}

	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	ran := make([]bool, len(config.Series))
	jobs := make(chan int, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				report.Series[i] = replay(ctx, log, client, report.RunID, config.Series[i], config.Verbose)
				ran[i] = true
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := range config.Series {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	for i, res := range report.Series {
		if !ran[i] {
			// Never dispatched because the context ended.
			report.Series[i] = SeriesResult{Name: config.Series[i].Name, Err: context.Cause(ctx).Error()}
			res = report.Series[i]
		}
		report.Steps += len(res.Steps)
		report.Mismatches += res.Mismatches
		if res.Err != "" {
			report.Failed++
		}
	}
	report.Duration = time.Since(report.StartTime)

	if config.OutputFile != "" {
		if err := saveReport(config.OutputFile, report); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}

	log.Info(ctx, "titration check finished",
		logger.String("runID", report.RunID),
		logger.Int("steps", report.Steps),
		logger.Int("mismatches", report.Mismatches),
		logger.Int("failed", report.Failed),
		logger.Duration("duration", report.Duration))

	switch {
	case report.Mismatches > 0:
		return report, fmt.Errorf("%w: %d of %d steps", ErrMismatch, report.Mismatches, report.Steps)
	case report.Failed > 0:
		return report, fmt.Errorf("%w: %d series failed", ErrRejected, report.Failed)
	}
	return report, nil
}

// replay walks one series: the first reading starts the infusion and every
// later reading adjusts it with the rate the service returned last.
func replay(ctx context.Context, log logger.Logger, client *Client, runID string, s Series, verbose bool) SeriesResult {
	res := SeriesResult{Name: s.Name}
	if len(s.Readings) == 0 {
		res.Err = ErrEmptySeries.Error()
		return res
	}

	var rate float64
	for i, bg := range s.Readings {
		step := Step{
			Index:     i,
			Glucose:   bg,
			RequestID: runID[:8] + "-" + s.Name + "-" + strconv.Itoa(i),
		}
		if i == 0 {
			step.Mode = ModeStart
			rec, err := client.Start(ctx, step.RequestID, model.StartRequest{Glucose: model.Float(bg)})
			if err != nil {
				res.Err = err.Error()
				return res
			}
			step.Bolus = rec.BolusUnits
			step.Actual = rec.Rate
			verifyStart(&step)
		} else {
			step.Mode = ModeAdjust
			step.Previous = s.Readings[i-1]
			step.LastRate = rate
			rec, err := client.Adjust(ctx, step.RequestID, model.AdjustRequest{
				CurrentGlucose:  model.Float(bg),
				PreviousGlucose: model.Float(step.Previous),
				LastRate:        model.Float(rate),
			})
			if err != nil {
				res.Err = err.Error()
				return res
			}
			step.Actual = rec.Rate
			step.Stopped = rec.Stopped
			verifyAdjust(&step)
		}
		rate = step.Actual

		if !step.Match {
			res.Mismatches++
			log.Warn(ctx, "rate mismatch",
				logger.String("series", s.Name),
				logger.Int("step", i),
				logger.Float64("glucose", bg),
				logger.Float64("expected", step.Expected),
				logger.Float64("actual", step.Actual))
		} else if verbose {
			log.Info(ctx, "step verified",
				logger.String("series", s.Name),
				logger.Int("step", i),
				logger.String("mode", step.Mode),
				logger.Float64("glucose", bg),
				logger.Float64("rate", step.Actual))
		}
		res.Steps = append(res.Steps, step)
	}
	return res
}

// saveReport writes the report as indented JSON.
func saveReport(filename string, report *Report) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, data, reportPermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
