package engine

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/spaceai-safety-engine/internal/infra"
	"go.uber.org/zap/zaptest"
)

// Интеграционный тест: нужен живой Redis в SAFETY_TEST_REDIS_ADDR.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("SAFETY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SAFETY_TEST_REDIS_ADDR is not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rdb.Ping(ctx).Err())
	require.NoError(t, rdb.Del(ctx, infra.RedisKeyEmergencyStop).Err())
	t.Cleanup(func() {
		rdb.Del(context.Background(), infra.RedisKeyEmergencyStop)
		rdb.Close()
	})
	return rdb
}

func TestStopSync_PropagatesBetweenEngines(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ss := NewStopSync(rdb, zaptest.NewLogger(t))

	sig, err := ss.Load(ctx)
	require.NoError(t, err)
	assert.False(t, sig.Active)

	local, _ := newTestEngine(t, WithBroadcaster(ss), WithInstanceID("node-local"))
	remote, _ := newTestEngine(t)
	go ss.StartListener(ctx, remote.ApplyRemoteStop)

	// Ждем подписку: первое переподключение применяет состояние ключа.
	time.Sleep(200 * time.Millisecond)

	local.EmergencyStop("op-1")
	assert.Eventually(t, remote.EmergencyStopActive, 2*time.Second, 10*time.Millisecond)

	sig, err = ss.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, StopSignal{Origin: "node-local", Seq: 1, Active: true, OperatorID: "op-1"}, sig)

	require.NoError(t, local.DeactivateEmergencyStop("op-1"))
	assert.Eventually(t, func() bool { return !remote.EmergencyStopActive() }, 2*time.Second, 10*time.Millisecond)
}

func TestStopSync_OwnSignalsDoNotRevertLocalState(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ss := NewStopSync(rdb, zaptest.NewLogger(t))
	e, _ := newTestEngine(t, WithBroadcaster(ss))
	go ss.StartListener(ctx, e.ApplyRemoteStop)
	time.Sleep(200 * time.Millisecond)

	e.EmergencyStop("op1")
	require.NoError(t, e.DeactivateEmergencyStop("op2"))
	e.EmergencyStop("op3")
	e.Close()

	sig, err := ss.Load(ctx)
	require.NoError(t, err)
	assert.True(t, sig.Active)
	assert.Equal(t, "op3", sig.OperatorID)

	assert.Never(t, func() bool { return !e.EmergencyStopActive() }, 300*time.Millisecond, 10*time.Millisecond)
}

func TestStopSync_LoadLegacyValue(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	ss := NewStopSync(rdb, zaptest.NewLogger(t))

	require.NoError(t, rdb.Set(ctx, infra.RedisKeyEmergencyStop, "1", 0).Err())
	sig, err := ss.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, StopSignal{Active: true, OperatorID: "redis-sync"}, sig)

	require.NoError(t, rdb.Set(ctx, infra.RedisKeyEmergencyStop, "garbage", 0).Err())
	_, err = ss.Load(ctx)
	assert.Error(t, err)
}
