package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelay_ExponentialWithCap(t *testing.T) {
	p := Default()

	assert.Equal(t, 1*time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
	assert.Equal(t, 16*time.Second, p.Delay(4))
	assert.Equal(t, 30*time.Second, p.Delay(5)) // capped
	assert.Equal(t, 30*time.Second, p.Delay(20))
}

func TestWait_CanceledContext(t *testing.T) {
	p := Policy{Initial: time.Hour, Max: time.Hour, Factor: 2}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Wait(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWait_ElapsedDelay(t *testing.T) {
	p := Policy{Initial: 5 * time.Millisecond, Max: 10 * time.Millisecond, Factor: 2}

	start := time.Now()
	err := p.Wait(context.Background(), 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}
