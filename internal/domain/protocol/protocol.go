// Package protocol implements the Glucommander (Yale) IV insulin infusion rules:
// the initial bolus and rate for a starting glucose, and the hourly titration of
// a running infusion. Every function here is pure and safe for concurrent use.
package protocol

import (
	"math"
	"strconv"
)

// Glucose is a blood-glucose reading in mg/dL.
type Glucose = float64

// Rate is a continuous infusion rate in units/hour. Zero means the infusion is stopped.
type Rate = float64

// Dose is a one-time bolus in units.
type Dose = float64

// Initial dosing constants.
const (
	// HighStartThreshold is the starting glucose at and above which the steeper divisor applies.
	HighStartThreshold Glucose = 300
	highStartDivisor           = 70
	standardStartDivisor       = 100
)

// Titration constants.
const (
	// HypoglycemiaThreshold stops the infusion for any reading below it.
	HypoglycemiaThreshold Glucose = 70

	// PersistenceThreshold is the glucose at and above which a stalled fall escalates dosing.
	PersistenceThreshold Glucose = 180

	// glucoseOffset is subtracted from the current reading before applying the multiplier.
	glucoseOffset = 60

	fastFallMgDL        = 40 // hourly fall at or above which the gentlest multiplier applies
	persistenceFallMgDL = 10 // hourly fall at or below which high glucose counts as persistent

	multiplierFastFall    = 0.014
	multiplierStandard    = 0.02
	multiplierAggressive  = 0.03
	persistenceIncrement  = 0.01
	minPersistenceDivisor = 1
)

// InitialDose returns the bolus and starting infusion rate for a glucose reading
// taken when the infusion is started. Both values are equal and rounded to 0.1.
func InitialDose(bg Glucose) (Dose, Rate) {
	divisor := float64(standardStartDivisor)
	if bg >= HighStartThreshold {
		divisor = highStartDivisor
	}
	bolus := Round(bg / divisor)
	return bolus, bolus
}

// Titrate returns the new infusion rate given the current reading, the reading
// taken one hour earlier and the rate currently running.
func Titrate(curr, prev Glucose, last Rate) Rate {
	return Assess(curr, prev, last).Rate
}

// Adjustment records how a titration decision was reached.
type Adjustment struct {
	Current  Glucose
	Previous Glucose
	LastRate Rate

	Band  Band
	Trend Trend

	// Change is the hourly change, current minus previous. Negative means falling.
	Change float64

	// BaseMultiplier is the band default; Multiplier is the value finally applied.
	BaseMultiplier float64
	Multiplier     float64

	// Persistent is set when high glucose is not falling despite the running rate.
	// Escalated is set when that rule raised the multiplier.
	Persistent bool
	Escalated  bool

	// Stopped is set when the reading is below HypoglycemiaThreshold.
	Stopped bool

	Rate Rate
}

// Assess runs the titration rules and returns the full decision.
func Assess(curr, prev Glucose, last Rate) Adjustment {
	adj := Adjustment{
		Current:  curr,
		Previous: prev,
		LastRate: last,
		Band:     Classify(curr),
		Change:   curr - prev,
	}

	if curr < HypoglycemiaThreshold {
		adj.Stopped = true
		adj.Rate = 0
		return adj
	}

	fall := prev - curr
	adj.BaseMultiplier = adj.Band.baseMultiplier()
	adj.Trend = trendOf(fall)

	switch adj.Trend {
	case TrendFallingFast:
		adj.Multiplier = multiplierFastFall
	case TrendFlatOrRising:
		adj.Multiplier = multiplierAggressive
	default:
		adj.Multiplier = adj.BaseMultiplier
	}

	if curr >= PersistenceThreshold && fall <= persistenceFallMgDL {
		adj.Persistent = true
		adaptive := last/math.Max(curr-glucoseOffset, minPersistenceDivisor) + persistenceIncrement
		if adaptive > adj.Multiplier {
			adj.Multiplier = adaptive
			adj.Escalated = true
		}
	}

	adj.Rate = Round(math.Max((curr-glucoseOffset)*adj.Multiplier, 0))
	return adj
}

// Round rounds v to one decimal place, matching 0.1 U pump increments.
// Halfway cases are decided on the exact binary value and go to the even digit,
// so Round(1.25) == 1.2 and Round(1.35) == 1.4.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func trendOf(fall float64) Trend {
	switch {
	case fall >= fastFallMgDL:
		return TrendFallingFast
	case fall <= 0:
		return TrendFlatOrRising
	default:
		return TrendFalling
	}
}
