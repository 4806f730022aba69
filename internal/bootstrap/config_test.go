package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d0ggzi/celery-clinic/config"
)

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SERVICES", "worker")
	t.Setenv("REDIS_DB", "redis.internal")
	t.Setenv("WORKER_PHASE_DELAY", "3s")
	t.Setenv("LOG_LEVEL", " DEBUG ")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "worker", cfg.Services)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 3*time.Second, cfg.Worker.PhaseDelay)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateServiceConfig(t *testing.T) {
	assert.NoError(t, ValidateServiceConfig(&config.AppConfig{Services: "http"}))
	assert.Error(t, ValidateServiceConfig(&config.AppConfig{Services: "scheduler"}))
	assert.Error(t, ValidateServiceConfig(&config.AppConfig{}))
	assert.Error(t, ValidateServiceConfig(nil))
}

func TestGetEnabledServices_Sorted(t *testing.T) {
	assert.Equal(t, []string{"http", "worker"}, GetEnabledServices(&config.AppConfig{Services: "worker, http"}))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Empty(t, GetEnabledServices(nil))
}

func TestPostgresDSN_EscapesCredentials(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{
		Host:     "db",
		Port:     5432,
		User:     "clinic",
		Password: "p@ss/word",
		Name:     "clinic",
		SSLMode:  "disable",
	})
	assert.Equal(t, "postgres://clinic:p%40ss%2Fword@db:5432/clinic?sslmode=disable", dsn)
}

func TestDirectOptions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RedisConfig
		wantAddr string
		wantDB   int
		wantPass string
	}{
		{
			name:     "host and port",
			cfg:      config.RedisConfig{Host: "redis", Port: 6380, Database: 2},
			wantAddr: "redis:6380",
			wantDB:   2,
		},
		{
			name:     "bare address uri",
			cfg:      config.RedisConfig{URI: "cache:6379", Password: "secret"},
			wantAddr: "cache:6379",
			wantPass: "secret",
		},
		{
			name:     "redis url",
			cfg:      config.RedisConfig{URI: "redis://:fromurl@cache:6390/3"},
			wantAddr: "cache:6390",
			wantDB:   3,
			wantPass: "fromurl",
		},
		{
			name:     "redis url falls back to configured password",
			cfg:      config.RedisConfig{URI: "redis://cache:6390/0", Password: "secret"},
			wantAddr: "cache:6390",
			wantPass: "secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := directOptions(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, opts.Addr)
			assert.Equal(t, tt.wantDB, opts.DB)
			assert.Equal(t, tt.wantPass, opts.Password)
		})
	}
}

func TestNewSentinelClient_RequiresNodes(t *testing.T) {
	_, _, err := newSentinelClient(config.RedisConfig{SentinelMasterName: "mymaster", SentinelNodes: []string{" ", ""}})
	require.Error(t, err)
}
