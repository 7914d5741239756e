package scheduler

import (
	"sync"

	"social-im/internal/pkg/log"

	"github.com/robfig/cron/v3"
)

// Scheduler is a thin wrapper over robfig/cron keyed by task name so that a
// task can be re-registered when its cron expression is reloaded.
type Scheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewScheduler() *Scheduler {
	c := cron.New(cron.WithSeconds())
	c.Start()
	return &Scheduler{
		cron:    c,
		entries: make(map[string]cron.EntryID),
	}
}

// Reschedule registers fn under name, replacing any previous schedule with
// the same name. The previous schedule stays in place if spec does not parse.
func (s *Scheduler) Reschedule(name string, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		log.Errorf("schedule task %q with spec %q: %v", name, spec, err)
		return err
	}
	if old, ok := s.entries[name]; ok {
		s.cron.Remove(old)
	}
	s.entries[name] = id
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
