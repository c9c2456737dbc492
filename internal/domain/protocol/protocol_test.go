package protocol_test

import (
	"testing"

	"github.com/okian/glucommander/internal/domain/protocol"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInitialDose(t *testing.T) {
	Convey("Given a starting glucose reading", t, func() {
		Convey("When glucose is at or above 300 mg/dL", func() {
			Convey("Then bolus and rate are glucose/70", func() {
				bolus, rate := protocol.InitialDose(350)
				So(bolus, ShouldEqual, 5.0)
				So(rate, ShouldEqual, 5.0)

				bolus, rate = protocol.InitialDose(300)
				So(bolus, ShouldEqual, 4.3) // 4.2857...
				So(rate, ShouldEqual, 4.3)

				bolus, rate = protocol.InitialDose(420)
				So(bolus, ShouldEqual, 6.0)
				So(rate, ShouldEqual, 6.0)
			})
		})

		Convey("When glucose is below 300 mg/dL", func() {
			Convey("Then bolus and rate are glucose/100", func() {
				bolus, rate := protocol.InitialDose(250)
				So(bolus, ShouldEqual, 2.5)
				So(rate, ShouldEqual, 2.5)

				bolus, rate = protocol.InitialDose(299)
				So(bolus, ShouldEqual, 3.0)
				So(rate, ShouldEqual, 3.0)

				bolus, rate = protocol.InitialDose(0)
				So(bolus, ShouldEqual, 0)
				So(rate, ShouldEqual, 0)
			})
		})

		Convey("When the quotient sits on a tenth boundary", func() {
			Convey("Then halves are decided on the binary value", func() {
				bolus, _ := protocol.InitialDose(125) // exactly 1.25
				So(bolus, ShouldEqual, 1.2)

				bolus, _ = protocol.InitialDose(135) // 1.3500000000000000888
				So(bolus, ShouldEqual, 1.4)
			})
		})

		Convey("When sweeping the valid range", func() {
			Convey("Then both outputs always match the divisor rule", func() {
				for bg := 0.0; bg <= 600; bg += 0.5 {
					divisor := 100.0
					if bg >= 300 {
						divisor = 70
					}
					bolus, rate := protocol.InitialDose(bg)
					So(bolus, ShouldEqual, protocol.Round(bg/divisor))
					So(rate, ShouldEqual, bolus)
					So(bolus, ShouldBeGreaterThanOrEqualTo, 0)
				}
			})
		})
	})
}

func TestTitrate(t *testing.T) {
	Convey("Given a running infusion", t, func() {
		Convey("When current glucose is below 70 mg/dL", func() {
			Convey("Then the infusion stops regardless of history", func() {
				So(protocol.Titrate(65, 180, 4.0), ShouldEqual, 0)
				So(protocol.Titrate(69.9, 69.9, 20), ShouldEqual, 0)
				So(protocol.Titrate(0, 400, 12.5), ShouldEqual, 0)
				for prev := 0.0; prev <= 500; prev += 25 {
					for last := 0.0; last <= 20; last += 2.5 {
						So(protocol.Titrate(50, prev, last), ShouldEqual, 0)
					}
				}
			})
		})

		Convey("When glucose falls gently through the high band", func() {
			Convey("Then the band multiplier applies to glucose above 60", func() {
				// (200-60)*0.02
				So(protocol.Titrate(200, 220, 3.0), ShouldEqual, 2.8)
			})
		})

		Convey("When glucose falls 40 mg/dL or more", func() {
			Convey("Then the gentlest multiplier applies", func() {
				So(protocol.Titrate(150, 200, 2.0), ShouldEqual, 1.3) // 90*0.014
				So(protocol.Titrate(260, 320, 1.0), ShouldEqual, 2.8) // 200*0.014
				So(protocol.Titrate(140, 180, 9.0), ShouldEqual, 1.1) // 80*0.014, fall exactly 40
			})
		})

		Convey("When glucose is flat or rising", func() {
			Convey("Then the aggressive multiplier applies", func() {
				So(protocol.Titrate(160, 160, 1.0), ShouldEqual, 3.0) // 100*0.03
				So(protocol.Titrate(120, 100, 1.0), ShouldEqual, 1.8) // 60*0.03
				So(protocol.Titrate(300, 280, 0.5), ShouldEqual, 7.2) // 240*0.03
			})
		})

		Convey("When glucose falls gently below 180 mg/dL", func() {
			Convey("Then the standard multiplier applies", func() {
				So(protocol.Titrate(120, 130, 1.0), ShouldEqual, 1.2) // 60*0.02
				So(protocol.Titrate(170, 200, 1.0), ShouldEqual, 2.2) // 110*0.02, fall 30
				So(protocol.Titrate(141, 180, 1.0), ShouldEqual, 1.6) // 81*0.02, fall 39
			})
		})

		Convey("When glucose is between 70 and 110 mg/dL and falling gently", func() {
			Convey("Then the default multiplier of 0.03 applies", func() {
				So(protocol.Titrate(100, 110, 1.0), ShouldEqual, 1.2) // 40*0.03
				So(protocol.Titrate(70, 100, 5.0), ShouldEqual, 0.3)  // 10*0.03
			})
		})

		Convey("When glucose is 250 mg/dL or more and falling gently", func() {
			Convey("Then the top band multiplier applies", func() {
				So(protocol.Titrate(250, 270, 2.0), ShouldEqual, 5.7) // 190*0.03
			})
		})

		Convey("When high glucose persists despite the running rate", func() {
			Convey("Then the rate escalates to last rate plus 0.01 per mg/dL above 60", func() {
				So(protocol.Titrate(190, 195, 4.0), ShouldEqual, 5.3)  // 4 + 130*0.01
				So(protocol.Titrate(200, 200, 3.0), ShouldEqual, 4.4)  // 3 + 140*0.01
				So(protocol.Titrate(180, 190, 6.0), ShouldEqual, 7.2)  // fall exactly 10
				So(protocol.Titrate(400, 380, 12.0), ShouldEqual, 15.4) // 12 + 340*0.01
			})

			Convey("And the escalation never lowers the band rate", func() {
				So(protocol.Titrate(180, 185, 0), ShouldEqual, 2.4)   // 120*0.02
				So(protocol.Titrate(300, 280, 0.5), ShouldEqual, 7.2) // 240*0.03
			})

			Convey("And a fall of more than 10 mg/dL does not escalate", func() {
				So(protocol.Titrate(180, 191, 6.0), ShouldEqual, 2.4) // 120*0.02
			})
		})
	})
}

func TestAssess(t *testing.T) {
	Convey("Given the titration decision details", t, func() {
		Convey("When the infusion stops for hypoglycemia", func() {
			adj := protocol.Assess(65, 180, 4.0)

			Convey("Then the stop is recorded without a multiplier", func() {
				So(adj.Stopped, ShouldBeTrue)
				So(adj.Band, ShouldEqual, protocol.BandHypoglycemia)
				So(adj.Trend, ShouldEqual, protocol.TrendNone)
				So(adj.Multiplier, ShouldEqual, 0)
				So(adj.Change, ShouldEqual, -115)
				So(adj.Rate, ShouldEqual, 0)
			})
		})

		Convey("When high glucose persists", func() {
			adj := protocol.Assess(190, 195, 4.0)

			Convey("Then persistence and escalation are flagged", func() {
				So(adj.Stopped, ShouldBeFalse)
				So(adj.Band, ShouldEqual, protocol.BandHigh)
				So(adj.Trend, ShouldEqual, protocol.TrendFalling)
				So(adj.BaseMultiplier, ShouldEqual, 0.02)
				So(adj.Multiplier, ShouldAlmostEqual, 4.0/130+0.01, 1e-12)
				So(adj.Persistent, ShouldBeTrue)
				So(adj.Escalated, ShouldBeTrue)
				So(adj.Change, ShouldEqual, -5)
				So(adj.Rate, ShouldEqual, 5.3)
			})
		})

		Convey("When persistence applies but the band rate is already higher", func() {
			adj := protocol.Assess(300, 280, 0.5)

			Convey("Then the rule is flagged without escalating", func() {
				So(adj.Persistent, ShouldBeTrue)
				So(adj.Escalated, ShouldBeFalse)
				So(adj.Multiplier, ShouldEqual, 0.03)
				So(adj.Trend, ShouldEqual, protocol.TrendFlatOrRising)
			})
		})

		Convey("When comparing with Titrate", func() {
			Convey("Then both return the same rate", func() {
				for curr := 40.0; curr <= 450; curr += 7 {
					for prev := 40.0; prev <= 450; prev += 31 {
						So(protocol.Assess(curr, prev, 3.0).Rate, ShouldEqual, protocol.Titrate(curr, prev, 3.0))
					}
				}
			})
		})
	})
}

func TestTitrateProperties(t *testing.T) {
	Convey("Given the titration rules", t, func() {
		Convey("When current glucose increases within a band", func() {
			Convey("Then the rate never decreases", func() {
				bands := [][2]float64{{70, 110}, {110, 140}, {140, 180}, {180, 250}, {250, 500}}
				for _, band := range bands {
					for _, prev := range []float64{90, 150, 200, 230, 300} {
						for _, last := range []float64{0, 1.5, 4, 10} {
							previous := protocol.Titrate(band[0], prev, last)
							for curr := band[0] + 1; curr < band[1]; curr++ {
								got := protocol.Titrate(curr, prev, last)
								So(got, ShouldBeGreaterThanOrEqualTo, previous)
								previous = got
							}
						}
					}
				}
			})
		})

		Convey("When inputs are non-negative", func() {
			Convey("Then the rate is non-negative with at most one decimal", func() {
				for curr := 0.0; curr <= 600; curr += 13 {
					for prev := 0.0; prev <= 600; prev += 41 {
						for _, last := range []float64{0, 0.1, 2.4, 7, 25} {
							got := protocol.Titrate(curr, prev, last)
							So(got, ShouldBeGreaterThanOrEqualTo, 0)
							So(protocol.Round(got), ShouldEqual, got)
						}
					}
				}
			})
		})
	})
}

func TestRound(t *testing.T) {
	Convey("Given one-decimal rounding", t, func() {
		Convey("When rounding typical values", func() {
			Convey("Then results land on tenths", func() {
				So(protocol.Round(2.8000000000000003), ShouldEqual, 2.8)
				So(protocol.Round(4.2857142857142856), ShouldEqual, 4.3)
				So(protocol.Round(0.04), ShouldEqual, 0)
				So(protocol.Round(0.05), ShouldEqual, 0.1) // 0.05000000000000000277
				So(protocol.Round(0.25), ShouldEqual, 0.2)
				So(protocol.Round(0.75), ShouldEqual, 0.8)
			})
		})

		Convey("When rounding twice", func() {
			Convey("Then the second pass changes nothing", func() {
				for v := 0.0; v < 50; v += 0.037 {
					once := protocol.Round(v)
					So(protocol.Round(once), ShouldEqual, once)
				}
			})
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given band classification", t, func() {
		Convey("When readings sit on band edges", func() {
			Convey("Then lower bounds are inclusive", func() {
				So(protocol.Classify(69.9), ShouldEqual, protocol.BandHypoglycemia)
				So(protocol.Classify(70), ShouldEqual, protocol.BandLow)
				So(protocol.Classify(110), ShouldEqual, protocol.BandNearTarget)
				So(protocol.Classify(140), ShouldEqual, protocol.BandElevated)
				So(protocol.Classify(180), ShouldEqual, protocol.BandHigh)
				So(protocol.Classify(250), ShouldEqual, protocol.BandVeryHigh)
			})
		})

		Convey("When naming bands and trends", func() {
			Convey("Then names are stable identifiers", func() {
				So(protocol.BandNearTarget.String(), ShouldEqual, "near_target")
				So(protocol.BandVeryHigh.String(), ShouldEqual, "very_high")
				So(protocol.Band(99).String(), ShouldEqual, "unknown")
				So(protocol.TrendFallingFast.String(), ShouldEqual, "falling_fast")
				So(protocol.TrendNone.String(), ShouldEqual, "none")
			})
		})
	})
}
