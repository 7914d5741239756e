package blocklist

import (
	"testing"
	"time"

	"social-im/internal/social/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLevelConfig(reduceIntervalMillis int) config.AutoBlockConfig {
	return config.AutoBlockConfig{
		Enabled:           true,
		BlockTriggerTimes: 5,
		BlockLevels: []config.BlockLevel{
			{BlockDurationSeconds: 60, GoNextLevelTriggerTimes: 3, ReduceOneTriggerTimeIntervalMillis: reduceIntervalMillis},
			{BlockDurationSeconds: 300, GoNextLevelTriggerTimes: 3, ReduceOneTriggerTimeIntervalMillis: reduceIntervalMillis},
		},
	}
}

type blockCall struct {
	id       int64
	duration time.Duration
}

func TestTryBlockEscalation(t *testing.T) {
	var calls []blockCall
	m := NewAutoBlockManager[int64](twoLevelConfig(0), func(id int64, d time.Duration) {
		calls = append(calls, blockCall{id, d})
	})

	for i := 0; i < 4; i++ {
		m.TryBlock(7)
	}
	assert.Empty(t, calls)
	assert.False(t, m.IsBlocked(7))

	// fifth signal crosses blockTriggerTimes
	m.TryBlock(7)
	require.Len(t, calls, 1)
	assert.Equal(t, blockCall{7, 60 * time.Second}, calls[0])
	assert.True(t, m.IsBlocked(7))

	// two more re-block at the same level, the third escalates
	m.TryBlock(7)
	m.TryBlock(7)
	require.Len(t, calls, 3)
	assert.Equal(t, 60*time.Second, calls[1].duration)
	assert.Equal(t, 60*time.Second, calls[2].duration)
	m.TryBlock(7)
	require.Len(t, calls, 4)
	assert.Equal(t, 300*time.Second, calls[3].duration)

	// no escalation beyond the last level
	for i := 0; i < 10; i++ {
		m.TryBlock(7)
	}
	for _, call := range calls[4:] {
		assert.Equal(t, 300*time.Second, call.duration)
	}
}

func TestTryBlockDecay(t *testing.T) {
	m := NewAutoBlockManager[int64](twoLevelConfig(1000), nil)
	var now int64
	m.now = func() int64 { return now }

	// three signals in quick succession
	for i := 0; i < 3; i++ {
		m.TryBlock(1)
	}
	assert.Equal(t, 3, m.statuses[1].triggerTimes)

	// two intervals pass: the counter decays by two before the new signal
	now += 2 * int64(time.Second)
	m.TryBlock(1)
	assert.Equal(t, 2, m.statuses[1].triggerTimes)

	// the decay measures against the previous signal, not the current one,
	// so a second signal at the same instant decays nothing
	m.TryBlock(1)
	assert.Equal(t, 3, m.statuses[1].triggerTimes)
}

func TestTryBlockDisabled(t *testing.T) {
	cfg := twoLevelConfig(0)
	cfg.Enabled = false
	blocked := false
	m := NewAutoBlockManager[int64](cfg, func(int64, time.Duration) { blocked = true })
	for i := 0; i < 20; i++ {
		m.TryBlock(1)
	}
	assert.False(t, blocked)
	assert.False(t, m.IsBlocked(1))
}

func TestUnblock(t *testing.T) {
	m := NewAutoBlockManager[int64](twoLevelConfig(0), nil)
	for i := 0; i < 5; i++ {
		m.TryBlock(9)
	}
	require.True(t, m.IsBlocked(9))
	m.Unblock(9)
	assert.False(t, m.IsBlocked(9))

	// tracking restarts from scratch
	m.TryBlock(9)
	assert.False(t, m.IsBlocked(9))
}

func TestEvictExpired(t *testing.T) {
	m := NewAutoBlockManager[int64](twoLevelConfig(1000), nil)
	var now int64
	m.now = func() int64 { return now }

	m.TryBlock(1)
	m.TryBlock(2)
	m.TryBlock(2)
	m.TryBlock(2)

	// one interval decays one trigger: 1 is fully decayed, 2 is not
	now += int64(time.Second)
	m.EvictExpired()
	assert.NotContains(t, m.statuses, int64(1))
	assert.Contains(t, m.statuses, int64(2))

	now += 2 * int64(time.Second)
	m.EvictExpired()
	assert.NotContains(t, m.statuses, int64(2))
}

func TestEvictExpiredWithoutDecayKeepsEntries(t *testing.T) {
	m := NewAutoBlockManager[int64](twoLevelConfig(0), nil)
	m.TryBlock(1)
	m.EvictExpired()
	assert.Contains(t, m.statuses, int64(1))
}
