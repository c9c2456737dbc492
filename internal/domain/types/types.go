// Package types contains common types used across the application
package types

// Guidance is the advice rendered next to a recommendation.
type Guidance struct {
	Severity       string   `json:"severity"`
	Summary        string   `json:"summary"`
	Notes          []string `json:"notes,omitempty"`
	RecheckMinutes int      `json:"recheck_minutes"`
	DextroseML     float64  `json:"dextrose_ml,omitempty"`
	Disclaimer     string   `json:"disclaimer"`
}

// StartRecommendation is the initial bolus and rate for a starting reading.
type StartRecommendation struct {
	Glucose    float64  `json:"glucose"`
	BolusUnits float64  `json:"bolus_units"`
	Rate       float64  `json:"rate_units_per_hour"`
	Guidance   Guidance `json:"guidance"`
}

// AdjustRecommendation is a titrated rate with the decision that produced it.
type AdjustRecommendation struct {
	CurrentGlucose  float64  `json:"current_glucose"`
	PreviousGlucose float64  `json:"previous_glucose"`
	LastRate        float64  `json:"last_rate"`
	Rate            float64  `json:"rate_units_per_hour"`
	Stopped         bool     `json:"stopped"`
	Band            string   `json:"band"`
	Trend           string   `json:"trend"`
	Change          float64  `json:"change"`
	Multiplier      float64  `json:"multiplier"`
	Persistent      bool     `json:"persistent"`
	Escalated       bool     `json:"escalated"`
	Guidance        Guidance `json:"guidance"`
}
