package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	cfg := DefaultSchedulerConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, time.Minute, cfg.Interval)
	assert.Equal(t, 5*time.Minute, cfg.AttendanceWindow)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, "Asia/Jakarta", cfg.DisplayTimezone)
	assert.Empty(t, cfg.RedisURL)
}

func TestFromViper(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]interface{}
		wantErr bool
		check   func(t *testing.T, cfg AppConfig)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg AppConfig) {
				assert.Equal(t, "3000", cfg.Port)
				assert.Equal(t, "require", cfg.DB.SSLMode)
				assert.Equal(t, 50*time.Second, cfg.Scheduler.TickTimeout)
			},
		},
		{
			name: "overrides",
			set: map[string]interface{}{
				"SCHEDULER_INTERVAL": "30s",
				"DISPLAY_TIMEZONE":   "UTC",
				"REDIS_URL":          "redis://localhost:6379/0",
				"DB_SSLMODE":         "disable",
			},
			check: func(t *testing.T, cfg AppConfig) {
				assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval)
				assert.Equal(t, "UTC", cfg.Scheduler.DisplayTimezone)
				assert.Equal(t, "redis://localhost:6379/0", cfg.Scheduler.RedisURL)
				assert.Contains(t, cfg.DB.DSN(), "sslmode=disable")
				assert.Contains(t, cfg.DB.DSN(), "statement_timeout=3000")
			},
		},
		{name: "zero interval", set: map[string]interface{}{"SCHEDULER_INTERVAL": "0s"}, wantErr: true},
		{name: "unknown timezone", set: map[string]interface{}{"DISPLAY_TIMEZONE": "Mars/Olympus"}, wantErr: true},
		{name: "bad sslmode", set: map[string]interface{}{"DB_SSLMODE": "sometimes"}, wantErr: true},
		{name: "non numeric port", set: map[string]interface{}{"PORT": "http"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(false)
			for k, val := range tt.set {
				v.Set(k, val)
			}
			cfg, err := fromViper(v)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "45m")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.Scheduler.SessionIdleTimeout)
	assert.False(t, cfg.Scheduler.Enabled)
}
