package protocol

// Band is the glucose range a current reading falls into.
type Band int

// Glucose bands, lowest first.
const (
	BandHypoglycemia Band = iota // below 70
	BandLow                      // 70 to below 110
	BandNearTarget               // 110 to below 140
	BandElevated                 // 140 to below 180
	BandHigh                     // 180 to below 250
	BandVeryHigh                 // 250 and above
)

// Band lower bounds in mg/dL.
const (
	lowFloor        Glucose = HypoglycemiaThreshold
	nearTargetFloor Glucose = 110
	elevatedFloor   Glucose = 140
	highFloor       Glucose = 180
	veryHighFloor   Glucose = 250
)

// Classify returns the band for a glucose reading.
func Classify(bg Glucose) Band {
	switch {
	case bg < lowFloor:
		return BandHypoglycemia
	case bg < nearTargetFloor:
		return BandLow
	case bg < elevatedFloor:
		return BandNearTarget
	case bg < highFloor:
		return BandElevated
	case bg < veryHighFloor:
		return BandHigh
	default:
		return BandVeryHigh
	}
}

// baseMultiplier is the multiplier used while glucose falls gently (under 40 mg/dL/h).
// Readings below 110 share the aggressive default with the top band.
func (b Band) baseMultiplier() float64 {
	switch b {
	case BandNearTarget, BandElevated, BandHigh:
		return multiplierStandard
	case BandHypoglycemia:
		return 0
	default:
		return multiplierAggressive
	}
}

func (b Band) String() string {
	switch b {
	case BandHypoglycemia:
		return "hypoglycemia"
	case BandLow:
		return "low"
	case BandNearTarget:
		return "near_target"
	case BandElevated:
		return "elevated"
	case BandHigh:
		return "high"
	case BandVeryHigh:
		return "very_high"
	default:
		return "unknown"
	}
}

// Trend describes the hourly glucose movement.
type Trend int

// Trends, ordered from the gentlest to the most aggressive multiplier.
const (
	TrendNone         Trend = iota // not evaluated (infusion stopped)
	TrendFallingFast               // fell 40 mg/dL or more
	TrendFalling                   // fell, but by less than 40 mg/dL
	TrendFlatOrRising              // unchanged or rising
)

func (t Trend) String() string {
	switch t {
	case TrendFallingFast:
		return "falling_fast"
	case TrendFalling:
		return "falling"
	case TrendFlatOrRising:
		return "flat_or_rising"
	default:
		return "none"
	}
}
