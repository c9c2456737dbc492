package scenario

import (
	"math"

	"github.com/okian/glucommander/internal/domain/protocol"
)

// tolerance absorbs JSON float formatting. Rates carry one decimal.
const tolerance = 1e-9

func sameRate(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

// verifyStart fills the local expectation for a starting reading.
func verifyStart(s *Step) {
	bolus, rate := protocol.InitialDose(s.Glucose)
	s.Expected = rate
	s.Match = sameRate(rate, s.Actual) && sameRate(bolus, s.Bolus)
}

// verifyAdjust fills the local expectation for an hourly reading.
func verifyAdjust(s *Step) {
	s.Expected = protocol.Titrate(s.Glucose, s.Previous, s.LastRate)
	s.Match = sameRate(s.Expected, s.Actual) && s.Stopped == (s.Glucose < protocol.HypoglycemiaThreshold)
}
