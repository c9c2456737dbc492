// Package guidance turns protocol results into the bedside instructions shown
// next to a recommendation: what to give, when to recheck, and safety notes.
package guidance

import (
	"fmt"
	"time"

	"github.com/okian/glucommander/internal/domain/protocol"
	"github.com/shopspring/decimal"
)

// Recheck intervals.
const (
	RoutineRecheck      = 60 * time.Minute
	LowGlucoseRecheck   = 30 * time.Minute
	HypoglycemiaRecheck = 15 * time.Minute
)

const (
	// dextroseTarget and dextroseMLPerMgDL size the 50% dextrose push for hypoglycemia.
	dextroseTarget    = 100
	dextroseMLPerMgDL = 0.3

	// cautionCeiling is the upper bound of the low band that carries a dextrose caution.
	cautionCeiling protocol.Glucose = 110
)

// Disclaimer accompanies every recommendation.
const Disclaimer = "For educational purposes only. Not a substitute for clinical judgment; " +
	"verify against your institution's policy before prescribing."

// SecondCheckNote is added when a second clinician must confirm rate changes.
const SecondCheckNote = "Always confirm rate changes with a second clinician if required by policy."

// Severity classifies how urgently the advice must be acted on.
type Severity string

// Severities.
const (
	SeverityInfo     Severity = "info"
	SeverityCaution  Severity = "caution"
	SeverityCritical Severity = "critical"
)

// Advice is the guidance attached to one recommendation.
type Advice struct {
	Severity Severity
	Summary  string
	Notes    []string
	Recheck  time.Duration

	// DextroseML is the volume of IV 50% dextrose to give; zero when none is needed.
	DextroseML float64
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithSecondCheck toggles the second clinician confirmation note.
func WithSecondCheck(required bool) Option {
	return func(a *Advisor) {
		a.secondCheck = required
	}
}

// Advisor builds Advice for start and adjust recommendations.
type Advisor struct {
	secondCheck bool
}

// NewAdvisor creates an Advisor. The second check note is on by default.
func NewAdvisor(opts ...Option) *Advisor {
	a := &Advisor{secondCheck: true}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start returns the advice for starting an infusion.
func (a *Advisor) Start(bolus protocol.Dose, rate protocol.Rate) Advice {
	return Advice{
		Severity: SeverityInfo,
		Summary: fmt.Sprintf("Give %s U IV bolus, then start continuous infusion at %s U/h.",
			tenths(bolus), tenths(rate)),
		Notes:   a.withFooter("Re-check BG hourly and switch to adjust mode for titration."),
		Recheck: RoutineRecheck,
	}
}

// Adjust returns the advice for a titration decision.
func (a *Advisor) Adjust(adj protocol.Adjustment) Advice {
	if adj.Stopped {
		ml := DextroseML(adj.Current)
		return Advice{
			Severity: SeverityCritical,
			Summary:  "Hypoglycaemia! Stop insulin, give IV dextrose per protocol.",
			Notes: a.withFooter(
				fmt.Sprintf("Give %s mL of IV 50%% dextrose.", tenths(ml)),
				fmt.Sprintf("Recheck BG in %d minutes.", int(HypoglycemiaRecheck.Minutes())),
			),
			Recheck:    HypoglycemiaRecheck,
			DextroseML: ml,
		}
	}

	notes := []string{
		fmt.Sprintf("(ΔBG = %s mg/dL in the past hour; multiplier %s applied.)",
			signed(adj.Change), decimal.NewFromFloat(adj.Multiplier).Round(4).String()),
	}
	if adj.Escalated {
		notes = append(notes, "Glucose is not falling despite insulin; rate escalated for persistent hyperglycaemia.")
	}

	advice := Advice{
		Severity: SeverityInfo,
		Summary:  fmt.Sprintf("Set pump to %s U/h.", tenths(adj.Rate)),
		Recheck:  RoutineRecheck,
	}
	if adj.Current < cautionCeiling {
		advice.Severity = SeverityCaution
		advice.Recheck = LowGlucoseRecheck
		notes = append(notes,
			"Consider 5 mL IV 50% dextrose if elderly or high risk.",
			fmt.Sprintf("Recheck BG in %d minutes.", int(LowGlucoseRecheck.Minutes())),
		)
	}
	advice.Notes = a.withFooter(notes...)
	return advice
}

// DextroseML returns the 50% dextrose volume for a hypoglycemic reading,
// rounded to 0.1 mL. Readings at or above the target need none.
func DextroseML(bg protocol.Glucose) float64 {
	if bg >= dextroseTarget {
		return 0
	}
	return protocol.Round((dextroseTarget - bg) * dextroseMLPerMgDL)
}

func (a *Advisor) withFooter(notes ...string) []string {
	if a.secondCheck {
		notes = append(notes, SecondCheckNote)
	}
	return notes
}

// tenths renders a value already rounded to 0.1 with exactly one decimal.
func tenths(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

func signed(v float64) string {
	d := decimal.NewFromFloat(v).Round(0)
	if d.IsPositive() {
		return "+" + d.String()
	}
	return d.String()
}
