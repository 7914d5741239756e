package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRescheduleReplacesEntry(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	require.NoError(t, s.Reschedule("cleanup", "0 * * * * *", func() {}))
	first := s.entries["cleanup"]

	require.NoError(t, s.Reschedule("cleanup", "30 * * * * *", func() {}))
	second := s.entries["cleanup"]

	assert.NotEqual(t, first, second)
	assert.Len(t, s.entries, 1)
	assert.Len(t, s.cron.Entries(), 1)
}

func TestRescheduleInvalidSpecKeepsPrevious(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	require.NoError(t, s.Reschedule("cleanup", "0 * * * * *", func() {}))
	previous := s.entries["cleanup"]

	err := s.Reschedule("cleanup", "not a cron spec", func() {})
	assert.Error(t, err)
	assert.Equal(t, previous, s.entries["cleanup"])
	assert.Len(t, s.cron.Entries(), 1)
}
