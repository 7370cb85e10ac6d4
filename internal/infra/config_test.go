package infra

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, 10000, cfg.Engine.AuditCapacity)
	assert.Equal(t, 8000, cfg.Engine.AuditRetain)
	assert.Equal(t, time.Hour, cfg.Engine.RecentWindow)
	assert.Equal(t, uint32(5), cfg.Engine.CBMaxFailures)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.AuditFlushInterval)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_AUDIT_CAPACITY", "500")
	t.Setenv("ENGINE_AUDIT_RETAIN", "400")
	t.Setenv("ENGINE_RECENT_WINDOW", "15m")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Engine.AuditCapacity)
	assert.Equal(t, 400, cfg.Engine.AuditRetain)
	assert.Equal(t, 15*time.Minute, cfg.Engine.RecentWindow)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestDecode_RejectsInvalidAuditBounds(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("engine.audit_capacity", 100)
	v.Set("engine.audit_retain", 200)

	_, err := decode(v)
	assert.ErrorContains(t, err, "audit_retain")
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Engine: EngineConfig{AuditCapacity: 10, AuditRetain: 10, RecentWindow: time.Minute}}
	assert.NoError(t, valid.Validate())

	c := valid
	c.Engine.AuditCapacity = 0
	assert.Error(t, c.Validate())

	c = valid
	c.Engine.AuditRetain = 0
	assert.Error(t, c.Validate())

	c = valid
	c.Engine.RecentWindow = 0
	assert.Error(t, c.Validate())
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(LoggerConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(LoggerConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, err = NewLogger(LoggerConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
