package scenario_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/glucommander/internal/adapters/http/api"
	service "github.com/okian/glucommander/internal/app"
	"github.com/okian/glucommander/internal/domain/types"
	"github.com/okian/glucommander/internal/scenario"
	"github.com/okian/glucommander/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newInfusionServer() *httptest.Server {
	svc := service.New()
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

// newSkewedServer answers every adjust call with a fixed rate.
func newSkewedServer(rate float64) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/v1/infusion/start", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.StartRecommendation{Glucose: 350, BolusUnits: 5, Rate: 5})
	})
	mux.HandleFunc("/v1/infusion/adjust", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.AdjustRecommendation{Rate: rate})
	})
	return httptest.NewServer(mux)
}

func TestRun(t *testing.T) {
	Convey("Given a running infusion service", t, func() {
		srv := newInfusionServer()
		defer srv.Close()

		cfg := &scenario.Config{
			BaseURL: srv.URL,
			Workers: 2,
			Timeout: 5 * time.Second,
			Series: []scenario.Series{
				{Name: "gentle-fall", Readings: []float64{350, 300, 260, 220, 190, 150}},
				{Name: "persistent", Readings: []float64{250, 245, 242, 240}},
				{Name: "hypo", Readings: []float64{180, 120, 65, 90}},
			},
		}

		Convey("When replaying the series", func() {
			report, err := scenario.Run(context.Background(), cfg)

			Convey("Then every step matches the local protocol", func() {
				So(err, ShouldBeNil)
				So(report.RunID, ShouldNotBeEmpty)
				So(report.Steps, ShouldEqual, 14)
				So(report.Mismatches, ShouldEqual, 0)
				So(report.Failed, ShouldEqual, 0)
			})

			Convey("And the first step starts the infusion", func() {
				first := report.Series[0].Steps[0]
				So(first.Mode, ShouldEqual, scenario.ModeStart)
				So(first.Bolus, ShouldEqual, 5.0)
				So(first.Actual, ShouldEqual, 5.0)
			})

			Convey("And each adjust feeds back the previous rate", func() {
				steps := report.Series[0].Steps
				for i := 1; i < len(steps); i++ {
					So(steps[i].LastRate, ShouldEqual, steps[i-1].Actual)
					So(steps[i].Previous, ShouldEqual, cfg.Series[0].Readings[i-1])
				}
			})

			Convey("And the hypoglycemic reading stops the infusion", func() {
				hypo := report.Series[2].Steps[2]
				So(hypo.Stopped, ShouldBeTrue)
				So(hypo.Actual, ShouldEqual, 0)
				So(report.Series[2].Steps[3].LastRate, ShouldEqual, 0)
			})
		})

		Convey("When writing a report file", func() {
			out := filepath.Join(t.TempDir(), "reports", "run.json")
			cfg.OutputFile = out
			_, err := scenario.Run(context.Background(), cfg)

			Convey("Then the JSON report is saved", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(out)
				So(readErr, ShouldBeNil)
				var saved scenario.Report
				So(json.Unmarshal(data, &saved), ShouldBeNil)
				So(saved.Steps, ShouldEqual, 14)
			})
		})
	})

	Convey("Given a service whose rates disagree with the protocol", t, func() {
		srv := newSkewedServer(9.9)
		defer srv.Close()

		cfg := &scenario.Config{
			BaseURL: srv.URL,
			Timeout: 5 * time.Second,
			Series:  []scenario.Series{{Name: "skewed", Readings: []float64{350, 300, 260}}},
		}

		Convey("Then the mismatch is reported", func() {
			report, err := scenario.Run(context.Background(), cfg)
			So(errors.Is(err, scenario.ErrMismatch), ShouldBeTrue)
			So(report, ShouldNotBeNil)
			So(report.Mismatches, ShouldEqual, 2)
			So(report.Series[0].Steps[0].Match, ShouldBeTrue)
		})
	})

	Convey("Given a service that rejects input", t, func() {
		srv := newInfusionServer()
		defer srv.Close()

		cfg := &scenario.Config{
			BaseURL: srv.URL,
			Timeout: 5 * time.Second,
			Series:  []scenario.Series{{Name: "negative", Readings: []float64{200, -5}}},
		}

		Convey("Then the series fails with the API error", func() {
			report, err := scenario.Run(context.Background(), cfg)
			So(errors.Is(err, scenario.ErrRejected), ShouldBeTrue)
			So(report.Failed, ShouldEqual, 1)
			So(report.Series[0].Err, ShouldContainSubstring, "bad_request")
		})
	})

	Convey("Given no series", t, func() {
		Convey("Then Run refuses to start", func() {
			_, err := scenario.Run(context.Background(), &scenario.Config{BaseURL: "http://127.0.0.1:1"})
			So(errors.Is(err, scenario.ErrNoSeries), ShouldBeTrue)
		})
	})

	Convey("Given an unreachable service", t, func() {
		cfg := &scenario.Config{
			BaseURL: "http://127.0.0.1:1",
			Timeout: time.Second,
			Series:  []scenario.Series{{Name: "x", Readings: []float64{200}}},
		}

		Convey("Then the health check fails", func() {
			_, err := scenario.Run(context.Background(), cfg)
			So(errors.Is(err, scenario.ErrUnhealthy), ShouldBeTrue)
		})
	})
}

func TestLoadSeries(t *testing.T) {
	Convey("Given a YAML scenario file", t, func() {
		path := filepath.Join(t.TempDir(), "scenarios.yaml")
		content := `scenarios:
  - name: gentle-fall
    readings: [350, 300, 260.5]
  - readings: [120, 110]
`
		So(os.WriteFile(path, []byte(content), 0o600), ShouldBeNil)

		Convey("When loading it", func() {
			series, err := scenario.LoadSeries(path)

			Convey("Then every scenario is decoded", func() {
				So(err, ShouldBeNil)
				So(series, ShouldHaveLength, 2)
				So(series[0].Name, ShouldEqual, "gentle-fall")
				So(series[0].Readings, ShouldResemble, []float64{350, 300, 260.5})
			})

			Convey("And unnamed scenarios get a positional name", func() {
				So(series[1].Name, ShouldEqual, "scenario-2")
			})
		})
	})

	Convey("Given a scenario without readings", t, func() {
		path := filepath.Join(t.TempDir(), "empty.yaml")
		So(os.WriteFile(path, []byte("scenarios:\n  - name: empty\n"), 0o600), ShouldBeNil)

		Convey("Then loading fails", func() {
			_, err := scenario.LoadSeries(path)
			So(errors.Is(err, scenario.ErrEmptySeries), ShouldBeTrue)
		})
	})

	Convey("Given a missing file", t, func() {
		Convey("Then loading fails", func() {
			_, err := scenario.LoadSeries(filepath.Join(t.TempDir(), "nope.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestParseReadings(t *testing.T) {
	Convey("Given a comma separated list", t, func() {
		Convey("Then readings are parsed in order", func() {
			readings, err := scenario.ParseReadings(" 350, 300,260.5 ,")
			So(err, ShouldBeNil)
			So(readings, ShouldResemble, []float64{350, 300, 260.5})
		})

		Convey("And bad values are rejected", func() {
			_, err := scenario.ParseReadings("350,abc")
			So(err, ShouldNotBeNil)
		})

		Convey("And an empty list is rejected", func() {
			_, err := scenario.ParseReadings(" , ")
			So(errors.Is(err, scenario.ErrEmptySeries), ShouldBeTrue)
		})
	})
}
