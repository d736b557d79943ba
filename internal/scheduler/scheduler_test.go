package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/autoanalysis/internal/config"
)

// --- Cadence Tests ---

func TestNextWait_Interval(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	wait, err := NextWait(&config.Config{ScanIntervalSeconds: 30}, now)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, wait)

	wait, err = NextWait(&config.Config{}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, wait)

	wait, err = NextWait(nil, now)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, wait)
}

func TestNextWait_CronOverridesInterval(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 7, 30, 0, time.UTC)
	cfg := &config.Config{ScanIntervalSeconds: 5, ScanCron: "*/15 * * * *"}

	wait, err := NextWait(cfg, now)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Minute+30*time.Second, wait)
}

func TestNextWait_InvalidCronFallsBack(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	cfg := &config.Config{ScanIntervalSeconds: 60, ScanCron: "not a cron"}

	wait, err := NextWait(cfg, now)
	assert.Error(t, err)
	assert.Equal(t, time.Minute, wait)
}

func TestCadence_Descriptor(t *testing.T) {
	c, err := CadenceFor(&config.Config{ScanCron: "@every 10m"})
	require.NoError(t, err)
	assert.NotNil(t, c.Cron)
	assert.Equal(t, "@every 10m", c.Expr)
}

func TestValidateCronExpr(t *testing.T) {
	assert.NoError(t, ValidateCronExpr("0 2 * * *"))
	assert.NoError(t, ValidateCronExpr("CRON_TZ=America/Vancouver 0 2 * * *"))
	assert.Error(t, ValidateCronExpr("0 2 * *"))
	assert.Error(t, ValidateCronExpr("* * * * * *"))
}

// --- Sleep Tests ---

func TestSleep_Timer(t *testing.T) {
	assert.Equal(t, WakeTimer, Sleep(context.Background(), time.Millisecond, nil))
}

func TestSleep_Drain(t *testing.T) {
	drain := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(drain)
	}()

	start := time.Now()
	assert.Equal(t, WakeDrain, Sleep(context.Background(), time.Hour, drain))
	assert.Less(t, time.Since(start), time.Minute)
}

func TestSleep_DrainBeforeZeroWait(t *testing.T) {
	drain := make(chan struct{})
	close(drain)
	assert.Equal(t, WakeDrain, Sleep(context.Background(), 0, drain))
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, WakeCancelled, Sleep(ctx, time.Hour, nil))
	assert.Equal(t, "cancelled", WakeCancelled.String())
}
