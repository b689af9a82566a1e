package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/fwi/internal/adapters/http/api"
	"github.com/okian/fwi/internal/adapters/http/swagger"
	"github.com/okian/fwi/internal/adapters/mqtt"
	service "github.com/okian/fwi/internal/app"
	"github.com/okian/fwi/internal/config"
	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/pkg/logger"
	"github.com/okian/fwi/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Default Go collectors live on the default registry; ours is custom.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// defaults -> .env -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(logger.WithLevel(cfg.LogLevel), logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "fire weather service failed", logger.Error(err))
		os.Exit(1) //nolint:gocritic // exitAfterDefer: nothing left to flush
	}
}

// run serves until ctx is done, then shuts everything down in order: intake
// first, then the HTTP server, then the queue drain, then the broker link.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()
	opts := serviceOptions(cfg)

	var client *mqtt.Client
	if cfg.MQTTEnabled {
		c, err := mqtt.NewClient(ctx, mqtt.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			return err
		}
		client = c
		defer client.Close(context.WithoutCancel(ctx))
		if cfg.MQTTIndicesTopic != "" {
			opts = append(opts, service.WithPublisher(mqtt.NewPublisher(client.Native(), cfg.MQTTIndicesTopic,
				mqtt.WithPublishTimeout(cfg.MQTTPublishTimeout),
			)))
		}
	}

	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	var sub *mqtt.Subscriber
	if client != nil && cfg.MQTTObservationTopic != "" {
		sub = mqtt.NewSubscriber(client.Native(), cfg.MQTTObservationTopic, svc)
		if err := sub.Subscribe(ctx); err != nil {
			_ = svc.Stop(context.WithoutCancel(ctx))
			return err
		}
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("HTTP server failed: %w", err)
	}
	log.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if sub != nil {
		if err := sub.Unsubscribe(shutdownCtx); err != nil {
			log.Warn(ctx, "mqtt unsubscribe failed", logger.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service drain failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return runErr
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config) []service.Option {
	calcOpts := []fwi.Option{fwi.WithRainCorrection(cfg.RainCorrectionMode())}
	if cfg.DCFloor {
		calcOpts = append(calcOpts, fwi.WithDroughtCodeFloor())
	}
	return []service.Option{
		service.WithLogger(logger.Get().Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithShardCount(cfg.ShardCount),
		service.WithAllowGaps(cfg.AllowGaps),
		service.WithStartCodes(cfg.StartCodes()),
		service.WithCalculatorOptions(calcOpts...),
	}
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater mirrors service stats into gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if stations, ok := stats["stations"].(int); ok {
		metrics.UpdateStationsTracked(stations)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
