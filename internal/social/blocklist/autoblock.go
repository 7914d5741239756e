package blocklist

import (
	"sync"
	"time"

	"social-im/internal/social/config"
)

const levelUnset = -1

type blockStatus struct {
	level           int
	triggerTimes    int
	lastTriggerNano int64
}

// AutoBlockManager tracks abusive clients and escalates penalties through an
// ordered list of block levels. It is purely in-memory: the only side effect
// is the onClientBlocked callback, which fires every time a tracked client is
// blocked or re-blocked with the current level's duration.
//
// All time arithmetic uses a monotonic nanosecond clock. Updates to any one
// key are atomic; the sweep iterates weakly consistent.
type AutoBlockManager[T comparable] struct {
	cfg             config.AutoBlockConfig
	onClientBlocked func(id T, blockDuration time.Duration)
	now             func() int64

	mu       sync.Mutex
	statuses map[T]*blockStatus
}

func NewAutoBlockManager[T comparable](cfg config.AutoBlockConfig, onClientBlocked func(id T, blockDuration time.Duration)) *AutoBlockManager[T] {
	return &AutoBlockManager[T]{
		cfg:             cfg,
		onClientBlocked: onClientBlocked,
		now:             monotonicNanos,
		statuses:        make(map[T]*blockStatus),
	}
}

func monotonicNanos() int64 {
	// time.Since reads the monotonic clock carried by the Time value
	return int64(time.Since(processStart))
}

var processStart = time.Now()

// TryBlock records one abuse signal for id and blocks or escalates when the
// configured thresholds are crossed.
func (m *AutoBlockManager[T]) TryBlock(id T) {
	if !m.cfg.Enabled || len(m.cfg.BlockLevels) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	status, ok := m.statuses[id]
	if !ok {
		status = &blockStatus{level: levelUnset, lastTriggerNano: now}
		m.statuses[id] = status
	}
	// capture the previous trigger time before overwriting it: the decay
	// below must measure against the last signal, not against now
	previous := status.lastTriggerNano
	level := m.levelConfig(status.level)
	if reduce := int64(level.ReduceOneTriggerTimeIntervalMillis) * int64(time.Millisecond); reduce > 0 {
		decayed := status.triggerTimes - int((now-previous)/reduce)
		if decayed < 0 {
			decayed = 0
		}
		status.triggerTimes = decayed
	}
	status.lastTriggerNano = now

	status.triggerTimes++
	if status.level != levelUnset {
		if status.triggerTimes >= level.GoNextLevelTriggerTimes && status.level < len(m.cfg.BlockLevels)-1 {
			status.level++
			status.triggerTimes = 0
		}
		m.block(id, status)
		return
	}
	if status.triggerTimes >= m.cfg.BlockTriggerTimes {
		status.level = 0
		status.triggerTimes = 0
		m.block(id, status)
	}
}

func (m *AutoBlockManager[T]) block(id T, status *blockStatus) {
	if m.onClientBlocked == nil {
		return
	}
	duration := time.Duration(m.cfg.BlockLevels[status.level].BlockDurationSeconds) * time.Second
	m.onClientBlocked(id, duration)
}

// levelConfig returns the level the counters currently run under; before the
// first block that is level 0.
func (m *AutoBlockManager[T]) levelConfig(level int) config.BlockLevel {
	if level == levelUnset {
		return m.cfg.BlockLevels[0]
	}
	return m.cfg.BlockLevels[level]
}

// Unblock drops all tracking state for id.
func (m *AutoBlockManager[T]) Unblock(id T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, id)
}

// IsBlocked reports whether id currently sits at a block level. It reflects
// the manager's escalation state, not the external effect store.
func (m *AutoBlockManager[T]) IsBlocked(id T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.statuses[id]
	return ok && status.level != levelUnset
}

// EvictExpired sweeps out entries whose trigger counter has fully decayed.
func (m *AutoBlockManager[T]) EvictExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, status := range m.statuses {
		level := m.levelConfig(status.level)
		reduce := int64(level.ReduceOneTriggerTimeIntervalMillis) * int64(time.Millisecond)
		if reduce <= 0 {
			continue
		}
		if status.triggerTimes-int((now-status.lastTriggerNano)/reduce) <= 0 {
			delete(m.statuses, id)
		}
	}
}
