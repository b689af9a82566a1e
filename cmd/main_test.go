package main

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	service "github.com/okian/fwi/internal/app"
	"github.com/okian/fwi/internal/config"
	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given a configuration loaded from the environment", t, func() {
		for k, v := range map[string]string{
			"FWI_ENV_FILE":        "",
			"FWI_WORKER_COUNT":    "2",
			"FWI_START_FFMC":      "80",
			"FWI_RAIN_CORRECTION": "van_wagner",
			"FWI_DC_FLOOR":        "true",
		} {
			_ = os.Setenv(k, v)
		}
		defer func() {
			for _, k := range []string{"FWI_ENV_FILE", "FWI_WORKER_COUNT", "FWI_START_FFMC", "FWI_RAIN_CORRECTION", "FWI_DC_FLOOR"} {
				_ = os.Unsetenv(k)
			}
		}()

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the service is built from it", func() {
			svc := service.New(serviceOptions(cfg)...)
			stats := svc.GetStats()
			convey.So(stats["workerCount"], convey.ShouldEqual, 2)
			convey.So(stats["rainCorrection"], convey.ShouldEqual, "van_wagner")
			convey.So(stats["droughtCodeFloor"], convey.ShouldBeTrue)
		})

		convey.Convey("Then new stations start from the configured codes", func() {
			convey.So(cfg.StartCodes().FFMC, convey.ShouldEqual, 80)
			convey.So(cfg.StartCodes().DMC, convey.ShouldEqual, fwi.DefaultStartCodes.DMC)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a default configuration on a free port", t, func() {
		cfg := config.New(context.Background())
		cfg.Addr = freeAddr(t)
		cfg.WorkerCount = 2

		convey.Convey("When the context is canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()

			time.Sleep(100 * time.Millisecond)
			cancel()

			convey.Convey("Then the server shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(10 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When the address is taken", func() {
			l, err := net.Listen("tcp", cfg.Addr)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = l.Close() }()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			convey.Convey("Then run reports the listen failure", func() {
				convey.So(run(ctx, cfg), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the MQTT broker is unreachable", func() {
			cfg.MQTTEnabled = true
			cfg.MQTTBroker = "tcp://" + freeAddr(t)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			convey.Convey("Then run fails before serving", func() {
				convey.So(run(ctx, cfg), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metrics updaters", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			svc := service.New()
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then they return once the context is done", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, service.New())
			}, convey.ShouldNotPanic)
		})
	})
}
