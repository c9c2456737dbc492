// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"math"
)

// Validation error kinds. Callers match them with errors.Is.
var (
	ErrMissingValue  = errors.New("missing value")
	ErrNegativeValue = errors.New("negative value")
	ErrNotFinite     = errors.New("value is not a finite number")
	ErrOutOfRange    = errors.New("value out of range")
)

// Limits bounds the readings and rates accepted at the service boundary.
// A zero ceiling disables the upper bound.
type Limits struct {
	MaxGlucose float64
	MaxRate    float64
}

// StartRequest asks for the initial bolus and rate.
// Fields are pointers so a missing value is distinguishable from zero.
type StartRequest struct {
	Glucose *float64 `json:"glucose"`
}

// Validate checks the request against lim.
func (r StartRequest) Validate(lim Limits) error {
	return checkValue("glucose", r.Glucose, lim.MaxGlucose)
}

// AdjustRequest asks for a titrated rate.
type AdjustRequest struct {
	CurrentGlucose  *float64 `json:"current_glucose"`
	PreviousGlucose *float64 `json:"previous_glucose"`
	LastRate        *float64 `json:"last_rate"`
}

// Validate checks the request against lim and reports the first bad field.
func (r AdjustRequest) Validate(lim Limits) error {
	if err := checkValue("current_glucose", r.CurrentGlucose, lim.MaxGlucose); err != nil {
		return err
	}
	if err := checkValue("previous_glucose", r.PreviousGlucose, lim.MaxGlucose); err != nil {
		return err
	}
	return checkValue("last_rate", r.LastRate, lim.MaxRate)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

func checkValue(field string, v *float64, ceiling float64) error {
	switch {
	case v == nil:
		return fmt.Errorf("%s: %w", field, ErrMissingValue)
	case math.IsNaN(*v) || math.IsInf(*v, 0):
		return fmt.Errorf("%s: %w", field, ErrNotFinite)
	case *v < 0:
		return fmt.Errorf("%s must not be negative: %w", field, ErrNegativeValue)
	case ceiling > 0 && *v > ceiling:
		return fmt.Errorf("%s must not exceed %g: %w", field, ceiling, ErrOutOfRange)
	}
	return nil
}
