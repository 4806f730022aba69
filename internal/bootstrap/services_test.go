package bootstrap

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d0ggzi/celery-clinic/config"
	"github.com/d0ggzi/celery-clinic/internal/observability/metrics"
)

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{
			name: "no services enabled",
			want: 0,
		},
		{
			name:  "http only",
			modes: []config.ServiceMode{config.ServiceModeHTTP},
			want:  1,
		},
		{
			name:  "http and worker",
			modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeWorker},
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelCapacity(enabled); got != tt.want {
				t.Fatalf("errorChannelCapacity(%v) = %d, want %d", tt.modes, got, tt.want)
			}
		})
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.AppConfig {
	cfg := &config.AppConfig{Services: "http,worker"}
	cfg.Sanitize()
	return cfg
}

func testRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	// Construction never dials; nothing in these tests issues a command.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewServices_RedisBackend(t *testing.T) {
	cfg := testConfig()

	svcs, err := NewServices(&ServiceDeps{Config: cfg, RedisClient: testRedis(t), Logger: discardLogger()})
	require.NoError(t, err)

	assert.NotNil(t, svcs.Tasks)
	assert.NotNil(t, svcs.Appointments)
	assert.NotNil(t, svcs.Booker)
	assert.NotNil(t, svcs.Queue)
	require.Len(t, svcs.Readiness, 1)
	assert.Equal(t, "redis", svcs.Readiness[0].Name)
	assert.IsType(t, metrics.NoopSink{}, svcs.Observability.MetricsSink)
	assert.Nil(t, svcs.Observability.MetricsHandler)
	assert.Nil(t, svcs.Observability.Events)
	assert.NoError(t, svcs.Close())
}

func TestNewServices_PostgresBackendRequiresDB(t *testing.T) {
	cfg := testConfig()
	cfg.RecordStore.Backend = config.RecordBackendPostgres

	_, err := NewServices(&ServiceDeps{Config: cfg, RedisClient: testRedis(t), Logger: discardLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection")
}

func TestNewServices_PostgresBackend(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	cfg.RecordStore.Backend = config.RecordBackendPostgres

	svcs, err := NewServices(&ServiceDeps{Config: cfg, DB: db, RedisClient: testRedis(t), Logger: discardLogger()})
	require.NoError(t, err)
	require.Len(t, svcs.Readiness, 2)
	assert.Equal(t, "postgres", svcs.Readiness[1].Name)
}

func TestNewServices_RequiresRedis(t *testing.T) {
	_, err := NewServices(&ServiceDeps{Config: testConfig()})
	require.Error(t, err)

	_, err = NewServices(nil)
	require.Error(t, err)
}

func TestNewServices_MetricsEnabledServesExposition(t *testing.T) {
	cfg := testConfig()
	cfg.Observability.Metrics.Enabled = true

	svcs, err := NewServices(&ServiceDeps{Config: cfg, RedisClient: testRedis(t), Logger: discardLogger()})
	require.NoError(t, err)
	require.NotNil(t, svcs.Observability.MetricsHandler)
	assert.IsType(t, &metrics.PrometheusSink{}, svcs.Observability.MetricsSink)

	handler := BuildHTTPHandler(cfg, svcs, discardLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clinic_http_requests_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewServices_UnreachableNATSKeepsRunning(t *testing.T) {
	cfg := testConfig()
	cfg.Observability.Events.NATSURL = "nats://127.0.0.1:1"

	svcs, err := NewServices(&ServiceDeps{Config: cfg, RedisClient: testRedis(t), Logger: discardLogger()})
	require.NoError(t, err)
	assert.Nil(t, svcs.Observability.Events)
}

func TestNewTaskRunner(t *testing.T) {
	cfg := testConfig()
	svcs, err := NewServices(&ServiceDeps{Config: cfg, RedisClient: testRedis(t), Logger: discardLogger()})
	require.NoError(t, err)

	runner, err := NewTaskRunner(cfg, svcs, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, runner)
}

func TestWorkerDrainTimeout_OutlastsTwoPhases(t *testing.T) {
	assert.Greater(t, workerDrainTimeout(10*time.Second), 20*time.Second)
	assert.Greater(t, workerDrainTimeout(0), time.Duration(0))
}

func TestWaitForService(t *testing.T) {
	done := make(chan struct{})
	close(done)
	start := time.Now()
	waitForService(backgroundServiceHandle{name: "worker", done: done, timeout: time.Minute}, discardLogger())
	assert.Less(t, time.Since(start), time.Second)

	start = time.Now()
	waitForService(backgroundServiceHandle{name: "stuck", done: make(chan struct{}), timeout: 20 * time.Millisecond}, discardLogger())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestShutdownHTTPServer_NilServer(t *testing.T) {
	assert.NoError(t, ShutdownHTTPServer(ShutdownConfig{}))
}

func TestRunServicesWithShutdown_IncompleteConfig(t *testing.T) {
	assert.Error(t, RunServicesWithShutdown(nil))
	assert.Error(t, RunServicesWithShutdown(&ServiceOrchestrationConfig{Config: testConfig()}))
}
