package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/ragdesk/internal/logger"
)

// DefaultSchedulerTick is how often the scheduler checks for due tasks.
const DefaultSchedulerTick = time.Minute

// TaskFunc runs one scheduled task and returns the number of items handled.
type TaskFunc func(ctx context.Context) (int, error)

// ScheduledTask is a named task run at a fixed interval.
type ScheduledTask struct {
	Name     string
	Interval time.Duration
	Run      TaskFunc
}

// TaskResult records one run of a task.
type TaskResult struct {
	Task           string
	StartedAt      time.Time
	EndedAt        time.Time
	ItemsProcessed int
	Err            error
}

type taskState struct {
	task    ScheduledTask
	nextRun time.Time
	running bool
	last    *TaskResult
}

// Scheduler runs background tasks, such as periodic folder rescans.
// A task never overlaps with itself.
type Scheduler struct {
	tick time.Duration
	now  func() time.Time

	mu      sync.Mutex
	tasks   []*taskState
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. A zero tick uses DefaultSchedulerTick.
func NewScheduler(tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = DefaultSchedulerTick
	}
	return &Scheduler{tick: tick, now: time.Now}
}

// Add registers a task. Its first run is one interval from now, or
// immediately when runNow is set.
func (s *Scheduler) Add(task ScheduledTask, runNow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.now().Add(task.Interval)
	if runNow {
		next = s.now()
	}
	s.tasks = append(s.tasks, &taskState{task: task, nextRun: next})
}

// Start runs the scheduler loop. It blocks until Stop is called or ctx is
// cancelled, then waits for running tasks.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	defer s.wg.Wait()

	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// Stop ends the loop and waits for running tasks to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

// LastResult returns the most recent result of the named task.
func (s *Scheduler) LastResult(name string) (TaskResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.tasks {
		if st.task.Name == name && st.last != nil {
			return *st.last, true
		}
	}
	return TaskResult{}, false
}

func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, st := range s.tasks {
		if st.running || st.nextRun.After(now) {
			continue
		}
		// A task without an interval runs once.
		if st.task.Interval <= 0 && st.last != nil {
			continue
		}
		st.running = true
		s.runTask(ctx, st)
	}
}

// runTask executes a task in the background. Callers hold s.mu.
func (s *Scheduler) runTask(ctx context.Context, st *taskState) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := &TaskResult{Task: st.task.Name, StartedAt: s.now()}
		result.ItemsProcessed, result.Err = st.task.Run(ctx)
		result.EndedAt = s.now()

		if result.Err != nil {
			logger.Warn("Scheduled task %s failed: %v", st.task.Name, result.Err)
		} else {
			logger.Debug("Scheduled task %s processed %d items", st.task.Name, result.ItemsProcessed)
		}

		s.mu.Lock()
		st.last = result
		st.running = false
		st.nextRun = result.EndedAt.Add(st.task.Interval)
		s.mu.Unlock()
	}()
}
