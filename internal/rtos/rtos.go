// Package rtos runs the node's independent tasks.
//
// Each task is created with a name, a nominal stack size and a priority,
// then [Scheduler.Start] launches them all and blocks until every task has
// returned. Tasks share nothing: a task that fails or panics is reported
// without cancelling its siblings. Preemption and time slicing are left to
// the Go runtime; stack size and priority are validated and logged so task
// tables read the same as on the firmware they mirror.
package rtos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MaxPriorities is the number of priority levels. Valid priorities are
// 0 through MaxPriorities-1, higher is more urgent.
const MaxPriorities = 5

var (
	// ErrInvalidTask is returned by [Scheduler.Create] for a malformed task.
	ErrInvalidTask = errors.New("rtos: invalid task")

	// ErrStarted is returned when the scheduler has already been started.
	ErrStarted = errors.New("rtos: scheduler already started")

	// ErrNoTasks is returned by [Scheduler.Start] when nothing was created.
	ErrNoTasks = errors.New("rtos: no tasks created")
)

// Task describes one unit of work.
type Task struct {
	Name string

	// StackWords is the stack budget in machine words the task was sized
	// for. Go grows stacks on demand, so it is informational.
	StackWords int

	Priority int
}

// TaskFunc is the body of a task. It should return when ctx is done.
type TaskFunc func(ctx context.Context) error

type entry struct {
	task Task
	fn   TaskFunc
}

// Scheduler owns a fixed set of tasks.
//
// Create and Start are safe for concurrent use.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []entry
	started bool
}

// NewScheduler returns an empty scheduler. A nil logger uses slog.Default().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger}
}

// Create registers a task to be launched by [Scheduler.Start].
func (s *Scheduler) Create(t Task, fn TaskFunc) error {
	switch {
	case t.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidTask)
	case t.StackWords <= 0:
		return fmt.Errorf("%w: %s: stack size must be positive", ErrInvalidTask, t.Name)
	case t.Priority < 0 || t.Priority >= MaxPriorities:
		return fmt.Errorf("%w: %s: priority %d outside [0, %d)", ErrInvalidTask, t.Name, t.Priority, MaxPriorities)
	case fn == nil:
		return fmt.Errorf("%w: %s: function is required", ErrInvalidTask, t.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	for _, e := range s.tasks {
		if e.task.Name == t.Name {
			return fmt.Errorf("%w: duplicate task name %q", ErrInvalidTask, t.Name)
		}
	}
	s.tasks = append(s.tasks, entry{task: t, fn: fn})
	return nil
}

// Start launches every task and blocks until all of them return. It reports
// the first task failure. A task returning ctx's error after cancellation is
// a normal exit.
//
// Start may be called once.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrStarted
	}
	s.started = true
	tasks := s.tasks
	s.mu.Unlock()

	if len(tasks) == 0 {
		return ErrNoTasks
	}

	// no WithContext: a failing task must not stop the others
	var g errgroup.Group
	for _, e := range tasks {
		s.logger.Debug("task created",
			"task", e.task.Name,
			"stack_words", e.task.StackWords,
			"priority", e.task.Priority,
		)
		g.Go(func() error {
			return s.run(ctx, e)
		})
	}
	return g.Wait()
}

func (s *Scheduler) run(ctx context.Context, e entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			panicID := uuid.New().String()
			s.logger.Error("panic recovered in task",
				"task", e.task.Name,
				"panic_id", panicID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("task %s panicked (panic_id=%s): %v", e.task.Name, panicID, r)
		}
	}()

	err = e.fn(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		err = nil
	}
	if err != nil {
		s.logger.Error("task failed", "task", e.task.Name, "error", err)
		return fmt.Errorf("task %s: %w", e.task.Name, err)
	}
	s.logger.Debug("task exited", "task", e.task.Name)
	return nil
}

// Delay suspends the calling task for d, or until ctx is done, in which
// case it returns ctx's error. A non-positive d just yields the processor.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		runtime.Gosched()
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
