// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/glucommander/internal/domain/guidance"
	"github.com/okian/glucommander/internal/domain/model"
	"github.com/okian/glucommander/internal/domain/protocol"
	"github.com/okian/glucommander/internal/domain/types"
	"github.com/okian/glucommander/pkg/logger"
	"github.com/okian/glucommander/pkg/metrics"
)

// Default boundary ceilings.
const (
	defaultMaxGlucose = 1500
	defaultMaxRate    = 50
)

// Service computes dosing recommendations. It keeps no patient state; the
// only mutable state is lifecycle and process-wide counters.
type Service struct {
	mu sync.RWMutex

	advisor *guidance.Advisor

	// Configuration
	limits      model.Limits
	secondCheck bool

	// State
	started bool

	// Counters
	starts      atomic.Int64
	adjusts     atomic.Int64
	stops       atomic.Int64
	escalations atomic.Int64
	rejected    atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLimits sets the ceilings applied when validating requests.
func WithLimits(limits model.Limits) Option {
	return func(s *Service) {
		s.limits = limits
	}
}

// WithSecondCheck toggles the second clinician note in guidance.
func WithSecondCheck(required bool) Option {
	return func(s *Service) {
		s.secondCheck = required
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		limits:      model.Limits{MaxGlucose: defaultMaxGlucose, MaxRate: defaultMaxRate},
		secondCheck: true,
		logger:      nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start prepares the service to accept calculations.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.advisor = guidance.NewAdvisor(guidance.WithSecondCheck(s.secondCheck))
	s.started = true
	s.logger.Info(ctx, "infusion service started",
		logger.Float64("maxGlucose", s.limits.MaxGlucose),
		logger.Float64("maxRate", s.limits.MaxRate),
		logger.Bool("secondCheck", s.secondCheck),
	)
	return nil
}

// Stop marks the service as stopped. Calculations fail with ErrNotStarted afterwards.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "infusion service stopped")
}

func (s *Service) ready() (*guidance.Advisor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.advisor, nil
}

// Initial computes the bolus and starting rate for a new infusion.
func (s *Service) Initial(ctx context.Context, req model.StartRequest) (types.StartRecommendation, error) {
	advisor, err := s.ready()
	if err != nil {
		return types.StartRecommendation{}, err
	}
	if err := req.Validate(s.limits); err != nil {
		s.reject(ctx, metrics.ModeStart, err)
		return types.StartRecommendation{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	bg := *req.Glucose
	bolus, rate := protocol.InitialDose(bg)
	advice := advisor.Start(bolus, rate)

	s.starts.Add(1)
	metrics.RecordCalculation(metrics.ModeStart, metrics.OutcomeOK, bg, rate)
	metrics.RecordBolus(bolus)
	s.logger.Debug(ctx, "initial dose computed",
		logger.Float64("glucose", bg),
		logger.Float64("bolus", bolus),
		logger.Float64("rate", rate),
	)

	return types.StartRecommendation{
		Glucose:    bg,
		BolusUnits: bolus,
		Rate:       rate,
		Guidance:   toGuidance(advice),
	}, nil
}

// Adjust computes the titrated rate for a running infusion.
func (s *Service) Adjust(ctx context.Context, req model.AdjustRequest) (types.AdjustRecommendation, error) {
	advisor, err := s.ready()
	if err != nil {
		return types.AdjustRecommendation{}, err
	}
	if err := req.Validate(s.limits); err != nil {
		s.reject(ctx, metrics.ModeAdjust, err)
		return types.AdjustRecommendation{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	adj := protocol.Assess(*req.CurrentGlucose, *req.PreviousGlucose, *req.LastRate)
	advice := advisor.Adjust(adj)

	s.adjusts.Add(1)
	outcome := metrics.OutcomeOK
	if adj.Stopped {
		outcome = metrics.OutcomeStopped
		s.stops.Add(1)
		s.logger.Warn(ctx, "infusion stopped for hypoglycemia",
			logger.Float64("glucose", adj.Current),
			logger.Float64("dextroseML", advice.DextroseML),
		)
	}
	if adj.Escalated {
		s.escalations.Add(1)
		metrics.RecordPersistenceEscalation()
	}
	metrics.RecordCalculation(metrics.ModeAdjust, outcome, adj.Current, adj.Rate)
	s.logger.Debug(ctx, "titration computed",
		logger.Float64("current", adj.Current),
		logger.Float64("previous", adj.Previous),
		logger.Float64("lastRate", adj.LastRate),
		logger.String("band", adj.Band.String()),
		logger.String("trend", adj.Trend.String()),
		logger.Float64("multiplier", adj.Multiplier),
		logger.Float64("rate", adj.Rate),
	)

	return types.AdjustRecommendation{
		CurrentGlucose:  adj.Current,
		PreviousGlucose: adj.Previous,
		LastRate:        adj.LastRate,
		Rate:            adj.Rate,
		Stopped:         adj.Stopped,
		Band:            adj.Band.String(),
		Trend:           adj.Trend.String(),
		Change:          adj.Change,
		Multiplier:      adj.Multiplier,
		Persistent:      adj.Persistent,
		Escalated:       adj.Escalated,
		Guidance:        toGuidance(advice),
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"started":               s.started,
		"startCalculations":     s.starts.Load(),
		"adjustCalculations":    s.adjusts.Load(),
		"hypoglycemiaStops":     s.stops.Load(),
		"persistenceEscalation": s.escalations.Load(),
		"rejectedRequests":      s.rejected.Load(),
		"maxGlucose":            s.limits.MaxGlucose,
		"maxRate":               s.limits.MaxRate,
	}
}

func (s *Service) reject(ctx context.Context, mode string, err error) {
	s.rejected.Add(1)
	metrics.RecordValidationError(mode, reasonOf(err))
	s.logger.Debug(ctx, "request rejected", logger.String("mode", mode), logger.Error(err))
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, model.ErrMissingValue):
		return "missing_value"
	case errors.Is(err, model.ErrNegativeValue):
		return "negative_value"
	case errors.Is(err, model.ErrNotFinite):
		return "not_finite"
	case errors.Is(err, model.ErrOutOfRange):
		return "out_of_range"
	default:
		return "other"
	}
}

func toGuidance(a guidance.Advice) types.Guidance {
	return types.Guidance{
		Severity:       string(a.Severity),
		Summary:        a.Summary,
		Notes:          a.Notes,
		RecheckMinutes: int(a.Recheck.Minutes()),
		DextroseML:     a.DextroseML,
		Disclaimer:     guidance.Disclaimer,
	}
}
