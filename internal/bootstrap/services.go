package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/d0ggzi/celery-clinic/config"
	"github.com/d0ggzi/celery-clinic/internal/adapters/natsbus"
	"github.com/d0ggzi/celery-clinic/internal/adapters/taskrunner"
	"github.com/d0ggzi/celery-clinic/internal/core"
	"github.com/d0ggzi/celery-clinic/internal/data"
	"github.com/d0ggzi/celery-clinic/internal/domain/booking"
	"github.com/d0ggzi/celery-clinic/internal/domain/model"
	httpx "github.com/d0ggzi/celery-clinic/internal/http"
	"github.com/d0ggzi/celery-clinic/internal/observability/metrics"
	"github.com/d0ggzi/celery-clinic/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Tasks         *service.TaskService
	Appointments  *service.AppointmentService
	Booker        *booking.Booker
	Queue         core.TaskQueue
	Readiness     []httpx.ReadinessCheck
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink    metrics.Sink
	MetricsHandler http.Handler // nil when metrics are disabled
	MetricsConfig  config.ObservabilityMetricsConfig
	Events         *natsbus.Publisher // nil when event publishing is disabled
}

// Close releases connections owned by the container.
func (c *ServiceContainer) Close() error {
	if c == nil || c.Observability.Events == nil {
		return nil
	}
	return c.Observability.Events.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB // required only for the postgres record backend
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// buildObservability configures the Prometheus registry and the optional NATS publisher.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	out := ObservabilityContainer{
		MetricsSink:   metrics.NoopSink{},
		MetricsConfig: cfg.Metrics,
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		out.MetricsSink = metrics.NewPrometheusSink(reg, logger)
		out.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	if cfg.Events.IsEnabled() {
		pub, err := natsbus.Connect(cfg.Events.NATSURL, cfg.Events.Subject, logger)
		if err != nil {
			logger.Error("event publishing disabled", "error", err)
		} else {
			out.Events = pub
		}
	}
	return out
}

// buildRecordStore selects the record backend and the readiness checks it needs.
//
//nolint:ireturn // the backend is chosen at runtime.
func buildRecordStore(deps *ServiceDeps) (core.RecordStore, []httpx.ReadinessCheck, error) {
	checks := []httpx.ReadinessCheck{{
		Name: "redis",
		Ping: func(ctx context.Context) error { return deps.RedisClient.Ping(ctx).Err() },
	}}

	if deps.Config.RecordStore.UsesPostgres() {
		if deps.DB == nil {
			return nil, nil, errors.New("postgres record backend requires a database connection")
		}
		store := data.NewPostgresRecordStore(deps.DB)
		checks = append(checks, httpx.ReadinessCheck{Name: "postgres", Ping: store.Ping})
		return store, checks, nil
	}

	store := data.NewRedisRecordStore(deps.RedisClient, data.RedisRecordStoreOptions{
		KeyPattern: deps.Config.RecordStore.KeyPattern,
		ScanCount:  deps.Config.RecordStore.ScanCount,
		Logger:     deps.Logger,
	})
	return store, checks, nil
}

// NewServices builds the service graph from infrastructure clients.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps with config are required")
	}
	if deps.RedisClient == nil {
		return nil, errors.New("redis client is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	cfg := deps.Config

	records, checks, err := buildRecordStore(deps)
	if err != nil {
		return nil, err
	}

	queue := data.NewRedisTaskQueue(deps.RedisClient, cfg.Queue.Name)
	states := data.NewRedisTaskStateStore(deps.RedisClient, cfg.Queue.ResultTTL, &data.RealTimeProvider{})

	tasks, err := service.NewTaskService(service.TaskServiceOptions{
		Queue:  queue,
		States: states,
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("task service: %w", err)
	}

	appts, err := service.NewAppointmentService(service.AppointmentServiceOptions{
		Tasks:   tasks,
		Records: records,
		Logger:  deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("appointment service: %w", err)
	}

	obs := buildObservability(deps.Logger, cfg.Observability)

	bookerOpts := booking.Options{
		Store:      records,
		Clock:      &data.RealTimeProvider{},
		PhaseDelay: cfg.Worker.PhaseDelay,
		Logger:     deps.Logger,
	}
	if obs.Events != nil {
		bookerOpts.Events = obs.Events
	}
	booker, err := booking.NewBooker(bookerOpts)
	if err != nil {
		return nil, fmt.Errorf("booker: %w", err)
	}

	return &ServiceContainer{
		Tasks:         tasks,
		Appointments:  appts,
		Booker:        booker,
		Queue:         queue,
		Readiness:     checks,
		Observability: obs,
	}, nil
}

// NewTaskRunner builds the worker pool with the booking handler registered.
func NewTaskRunner(cfg *config.AppConfig, svcs *ServiceContainer, logger *slog.Logger) (*taskrunner.Runner, error) {
	runner, err := taskrunner.NewRunner(taskrunner.RunnerOptions{
		Queue:          svcs.Queue,
		Tasks:          svcs.Tasks,
		Logger:         logger,
		Concurrency:    cfg.Worker.Concurrency,
		ReserveTimeout: cfg.Queue.ReserveTimeout,
		Metrics:        svcs.Observability.MetricsSink,
	})
	if err != nil {
		return nil, err
	}
	runner.Register(model.TaskNameCreateRecord, taskrunner.BookingHandler(svcs.Booker))
	return runner, nil
}

// ServiceOrchestrationConfig contains dependencies for running services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

const httpShutdownGrace = 5 * time.Second

// workerDrainTimeout bounds how long shutdown waits for in-flight tasks. A task holds two
// phase delays, so the wait must outlast them.
func workerDrainTimeout(phaseDelay time.Duration) time.Duration {
	return 2*phaseDelay + 15*time.Second
}

// backgroundService describes a long-running service.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name    string
	done    <-chan struct{}
	timeout time.Duration
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func launchBackground(ctx context.Context, logger *slog.Logger, errCh chan<- error, svc backgroundService) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := svc.start(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		select {
		case errCh <- fmt.Errorf("%s failed: %w", svc.name, err):
		default:
			logger.WarnContext(ctx, "dropping background service error", "service", svc.name, "error", err)
		}
	}()
	logger.InfoContext(ctx, "background service started", "service", svc.name, "mode", svc.mode)
	return done
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("service orchestration config is incomplete")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, errorChannelCapacity(enabled)+1)

	var server *http.Server
	if enabled[config.ServiceModeHTTP] {
		server = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
			ErrCh:    errCh,
		})
	}

	var backgrounds []backgroundServiceHandle
	if enabled[config.ServiceModeWorker] {
		runner, rerr := NewTaskRunner(cfg.Config, cfg.Services, logger)
		if rerr != nil {
			return fmt.Errorf("task runner: %w", rerr)
		}
		done := launchBackground(serviceCtx, logger, errCh, backgroundService{
			mode:  config.ServiceModeWorker,
			name:  "task worker",
			start: runner.Run,
		})
		backgrounds = append(backgrounds, backgroundServiceHandle{
			name:    "task worker",
			done:    done,
			timeout: workerDrainTimeout(cfg.Config.Worker.PhaseDelay),
		})
	}

	return waitForShutdown(shutdownConfig{
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  server,
		httpTimeout: cfg.Config.HTTP.ShutdownTimeout,
		logger:      logger,
		backgrounds: backgrounds,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	httpTimeout time.Duration
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop stops accepting work, then waits for in-flight work to finish.
func gracefulStop(cfg shutdownConfig) error {
	// Stop reservations first so no new task starts while HTTP drains.
	cfg.cancel()

	var stopErr error
	if cfg.httpServer != nil {
		timeout := cfg.httpTimeout
		if timeout <= 0 {
			timeout = httpShutdownGrace
		}
		stopErr = ShutdownHTTPServer(ShutdownConfig{
			Server:  cfg.httpServer,
			Timeout: timeout,
			Logger:  cfg.logger,
		})
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc, cfg.logger)
	}
	return stopErr
}

// waitForService waits for a service to finish with timeout.
func waitForService(svc backgroundServiceHandle, logger *slog.Logger) {
	if svc.done == nil {
		return
	}
	select {
	case <-svc.done:
		logger.Info(svc.name + " stopped")
	case <-time.After(svc.timeout):
		logger.Warn("timeout waiting for " + svc.name + " to stop")
	}
}
