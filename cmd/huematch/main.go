// Command huematch runs the colour measurement engine.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/huematch/internal/adapters/http/api"
	"github.com/okian/huematch/internal/adapters/http/swagger"
	"github.com/okian/huematch/internal/adapters/mq/worker"
	"github.com/okian/huematch/internal/adapters/mqtt"
	"github.com/okian/huematch/internal/adapters/sensor"
	"github.com/okian/huematch/internal/adapters/storage"
	app "github.com/okian/huematch/internal/app"
	"github.com/okian/huematch/internal/config"
	"github.com/okian/huematch/pkg/logger"
	"github.com/okian/huematch/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 15 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "huematch exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn(ctx, "close failed", logger.Error(err))
			}
		}
	}()

	opts, cs, err := collaborators(ctx, cfg)
	closers = append(closers, cs...)
	if err != nil {
		return err
	}

	eng := app.New(cfg, append(opts, app.WithLogger(log.Named("engine")))...)
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop(context.WithoutCancel(ctx))

	go sampleRuntime(ctx)

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           newMux(eng, cfg.HistorySize),
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		go func() {
			log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "HTTP server failed", logger.Error(err))
			}
		}()
	}

	measure(ctx, eng, cfg.CycleInterval())

	log.Info(ctx, "shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "server shutdown failed", logger.Error(err))
		}
	}
	return nil
}

// collaborators opens the hardware and outer adapters named by cfg. Closers
// are returned even on error so partial setups are released.
func collaborators(ctx context.Context, cfg *config.Config) ([]app.Option, []io.Closer, error) {
	var (
		opts    []app.Option
		closers []io.Closer
	)

	if cfg.SensorDevice == "" {
		sim := sensor.NewSimulator()
		opts = append(opts, app.WithSensor(sim), app.WithIllumination(sim))
		logger.Get().Warn(ctx, "no sensor_device configured; using the simulator")
	} else {
		dev, err := sensor.Open(cfg.SensorDevice, cfg.SensorBaud, cfg.SensorTimeout())
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, dev)
		opts = append(opts, app.WithSensor(dev), app.WithIllumination(dev))
	}

	if cfg.StoragePath != "" {
		st, err := storage.Open(ctx, cfg.StoragePath, storage.WithHistorySize(cfg.HistorySize))
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, st)
		opts = append(opts, app.WithPersistence(st), app.WithHistory(st))
	}

	if cfg.MQTTBroker != "" {
		pub, err := mqtt.Dial(ctx, cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, pub)
		opts = append(opts, app.WithPublishers(worker.Publisher(pub)))
	}
	return opts, closers, nil
}

// measure runs a cycle per tick until ctx ends.
func measure(ctx context.Context, eng *app.Engine, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	log := logger.Get().Named("cycle")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := eng.RunCycle(ctx); err != nil && ctx.Err() == nil {
				log.Warn(ctx, "cycle failed", logger.Error(err))
			}
		}
	}
}

func newMux(eng *app.Engine, maxCaptures int) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(eng, maxCaptures).Register(mux)
	swagger.Register(mux)
	return mux
}

func sampleRuntime(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SampleRuntime()
		}
	}
}
