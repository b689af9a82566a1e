package loadtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/fwi/internal/adapters/http/api"
	service "github.com/okian/fwi/internal/app"
	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

var april1 = time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

func TestGenerate(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		ctx := context.Background()
		cfg := &Config{Stations: 3, Days: 5, Start: april1, Seed: 42}
		stats := &Stats{}

		a := generate(ctx, cfg, stats)
		b := generate(ctx, cfg, &Stats{})

		Convey("Then every station gets consecutive valid days", func() {
			So(stats.Generated, ShouldEqual, 15)
			So(a, ShouldHaveLength, 3)
			for _, days := range a {
				So(days, ShouldHaveLength, 5)
				So(days[0].Date, ShouldEqual, "2024-04-01")
				So(days[4].Date, ShouldEqual, "2024-04-05")
				for _, d := range days {
					So(d.RH, ShouldBeBetweenOrEqual, 0, 100)
					So(d.Wind, ShouldBeGreaterThanOrEqualTo, 0)
					So(d.Rain, ShouldBeGreaterThanOrEqualTo, 0)
				}
			}
		})

		Convey("Then the weather repeats for a seed while station ids do not", func() {
			So(a[1][2].Temp, ShouldEqual, b[1][2].Temp)
			So(a[1][2].Rain, ShouldEqual, b[1][2].Rain)
			So(a[0][0].StationID, ShouldNotEqual, b[0][0].StationID)
		})
	})
}

func TestCompare(t *testing.T) {
	Convey("Given an expected end state", t, func() {
		last := Observation{StationID: "s", Date: "2024-04-03"}
		want := fwi.Codes{FFMC: 80, DMC: 10, DC: 30}
		got := StationView{StationID: "s", LastDate: "2024-04-03", Codes: want, Observations: 3}

		So(compare(got, want, last, 3), ShouldBeNil)

		got.Codes.DC += 0.01
		So(compare(got, want, last, 3), ShouldNotBeNil)

		got.Codes = want
		got.LastDate = "2024-04-02"
		So(compare(got, want, last, 3), ShouldNotBeNil)

		got.LastDate = last.Date
		So(compare(got, want, last, 4), ShouldNotBeNil)
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service behind an HTTP server", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithWorkerCount(3),
			service.WithStartCodes(fwi.Codes{FFMC: 60, DMC: 2, DC: 5}),
		)
		So(svc.Start(ctx), ShouldBeNil)
		mux := http.NewServeMux()
		api.NewServer(svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)

		Reset(func() {
			srv.Close()
			stop, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			_ = svc.Stop(stop)
		})

		Convey("When a load run submits several stations", func() {
			stats, err := Run(ctx, &Config{
				BaseURL:   srv.URL,
				Stations:  4,
				Days:      12,
				Start:     april1,
				Workers:   2,
				Timeout:   5 * time.Second,
				DrainWait: 10 * time.Second,
				Seed:      7,
			})

			Convey("Then every station matches the local replay", func() {
				So(err, ShouldBeNil)
				So(stats.Accepted, ShouldEqual, 48)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Verified, ShouldEqual, 4)
			})
		})
	})

	Convey("Given a service that is not accepting observations", t, func() {
		ctx := context.Background()
		mux := http.NewServeMux()
		api.NewServer(service.New()).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		_, err := Run(ctx, &Config{BaseURL: srv.URL, Stations: 1, Days: 1, Start: april1, Workers: 1, Timeout: time.Second})
		So(err, ShouldNotBeNil)
	})
}
