// Package executor runs cooperative tasks under explicit fuel budgets and
// a pluggable scheduling policy (spec.md §4.9 "Fuel-Async Executor and
// Scheduler"). Grounded on
// original_source/wrt-component/src/async_/fuel_async_bridge.rs's
// spawn_task/poll_tasks/get_task_status/shutdown contract and on the
// teacher's packages/com.r3e.services.automation/scheduler.go Start/Stop
// lifecycle (mutex-guarded running flag, context.CancelFunc, WaitGroup
// drain on Stop) for the ambient concurrency shape.
package executor

import (
	"context"
	"sync"

	"github.com/wrt-go/wrt/internal/fuel/preempt"
	"github.com/wrt-go/wrt/internal/fuel/scheduler"
	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/infra/metrics"
)

// Status is a task's observable lifecycle state (spec.md §4.2's Task
// states, as seen from outside the executor).
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusWaiting
	StatusPreempted
	StatusCompleted
	StatusFailed
	StatusCancelled
	StatusFuelExhausted
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusWaiting:
		return "waiting"
	case StatusPreempted:
		return "preempted"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	case StatusFuelExhausted:
		return "fuel_exhausted"
	default:
		return "unknown"
	}
}

func (s Status) terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusFuelExhausted:
		return true
	default:
		return false
	}
}

// StepResult reports what happened during one quantum of execution of a
// task's Step function.
type StepResult struct {
	// Done reports that the task has finished (successfully or not) and
	// should not be polled again.
	Done bool
	// Failed reports that Done execution ended in failure rather than
	// success; only meaningful when Done is true.
	Failed bool
	// Waiting reports that the task suspended itself (atomic wait,
	// voluntary yield, channel receive): it becomes StatusWaiting and
	// leaves the ready set until Resume re-admits it.
	Waiting bool
	// FuelConsumed is how much of the offered quantum the step actually
	// spent.
	FuelConsumed int64
}

// Step drives a task forward by up to fuelQuantum fuel units and reports
// what happened. A task is anything that can be polled this way — most
// commonly a bound interpreter.Run call over one task's instruction
// stream, but the executor itself has no dependency on the interpreter
// package.
type Step func(ctx context.Context, fuelQuantum int64) (StepResult, error)

type task struct {
	id            uint64
	component     uint32
	priority      scheduler.Priority
	fuelBudget    int64
	fuelRemaining int64
	status        Status
	step          Step
	cancelled     bool
}

// TerminateFunc is invoked once when a task reaches a terminal state, so
// callers can run cleanup (internal/fuel/cleanup) or resource teardown
// (internal/resource) keyed by task ID and final status. fuelConsumed is
// fuelBudget minus whatever remained unspent at termination.
type TerminateFunc func(taskID uint64, component uint32, final Status, fuelBudget, fuelConsumed int64)

// Executor owns the ready set and drives tasks forward one quantum at a
// time (spec.md §5 "Single-threaded cooperative per executor").
type Executor struct {
	mu                   sync.Mutex
	sched                *scheduler.Scheduler
	tasks                map[uint64]*task
	nextID               uint64
	quantum              int64
	maxTasksPerComponent int
	onTerminate          TerminateFunc
	preempt              *preempt.Manager

	logger  *logging.Logger
	metrics *metrics.Metrics
}

// New constructs an Executor. quantum is the fuel each task is offered
// per poll pass; maxTasksPerComponent bounds concurrent tasks per
// component (spec.md §4.9's "per-component ceiling").
func New(policy scheduler.Policy, quantum int64, maxTasksPerComponent int, logger *logging.Logger, m *metrics.Metrics) *Executor {
	return &Executor{
		sched:                scheduler.New(policy),
		tasks:                make(map[uint64]*task),
		quantum:              quantum,
		maxTasksPerComponent: maxTasksPerComponent,
		logger:               logger,
		metrics:              m,
	}
}

// OnTerminate registers the callback invoked once per task when it
// reaches a terminal status.
func (e *Executor) OnTerminate(fn TerminateFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTerminate = fn
}

// SetPreempt wires a preemption Manager into the executor: Spawn registers
// each task with it, and PollTasks consults it before offering a ready
// task its next quantum — a task that should yield (quantum expired, or a
// higher-priority task is ready) is checkpointed and marked Preempted
// without running this pass (it re-enters Ready on the next pass), rather
// than running unconditionally as it does when
// no Manager is set. Nil (the default) leaves preemption unused, as it
// always has been for callers that construct an Executor directly.
func (e *Executor) SetPreempt(p *preempt.Manager) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.preempt = p
}

// Spawn registers a new task and admits it to the ready set.
func (e *Executor) Spawn(component uint32, fuelBudget int64, priority scheduler.Priority, step Step) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := 0
	for _, t := range e.tasks {
		if t.component == component && !t.status.terminal() {
			active++
		}
	}
	if active >= e.maxTasksPerComponent {
		return 0, errors.ResourceLimitExceeded("component_tasks", int64(active+1), int64(e.maxTasksPerComponent))
	}

	e.nextID++
	id := e.nextID
	e.tasks[id] = &task{
		id:            id,
		component:     component,
		priority:      priority,
		fuelBudget:    fuelBudget,
		fuelRemaining: fuelBudget,
		status:        StatusReady,
		step:          step,
	}
	e.sched.Add(scheduler.Entry{TaskID: id, Priority: priority})
	if e.preempt != nil {
		e.preempt.RegisterTask(id, e.quantum, true)
	}
	return id, nil
}

// higherPriorityReady reports whether some other active, non-waiting task
// outranks t. Caller must hold e.mu.
func (e *Executor) higherPriorityReady(t *task) bool {
	for id, other := range e.tasks {
		if id == t.id || other.status.terminal() || other.status == StatusWaiting {
			continue
		}
		if other.priority > t.priority {
			return true
		}
	}
	return false
}

// Cancel marks a task Cancelled; the transition is observed at the task's
// next poll, never mid-step (spec.md §5 "Cancellation semantics").
func (e *Executor) Cancel(taskID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tasks[taskID]
	if !ok {
		return errors.ResourceNotFound(uint32(taskID))
	}
	t.cancelled = true
	return nil
}

// TaskStatus reports a task's current status.
func (e *Executor) TaskStatus(taskID uint64) (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tasks[taskID]
	if !ok {
		return 0, false
	}
	return t.status, true
}

// PollTasks runs one scheduling pass: orders the ready set per policy,
// drives each ready task forward by one fuel quantum, and updates status.
// It returns how many tasks were actually polled.
func (e *Executor) PollTasks(ctx context.Context) (int, error) {
	e.mu.Lock()
	order := e.sched.Order()
	e.mu.Unlock()

	polled := 0
	for _, entry := range order {
		e.mu.Lock()
		t, ok := e.tasks[entry.TaskID]
		if !ok || t.status.terminal() {
			e.mu.Unlock()
			continue
		}
		if t.cancelled {
			e.finish(t, StatusCancelled)
			e.mu.Unlock()
			continue
		}
		if t.status == StatusPreempted {
			t.status = StatusReady
		}

		var (
			preemptMgr          = e.preempt
			higherPriorityReady bool
			residualFuel        int64
		)
		if preemptMgr != nil {
			higherPriorityReady = e.higherPriorityReady(t)
			residualFuel = t.fuelRemaining
		}
		e.mu.Unlock()

		if preemptMgr != nil {
			if should, reason := preemptMgr.ShouldPreempt(entry.TaskID, higherPriorityReady); should {
				preemptMgr.Checkpoint(ctx, entry.TaskID, preempt.Checkpoint{FuelRemaining: residualFuel}, reason)
				e.mu.Lock()
				t.status = StatusPreempted
				e.mu.Unlock()
				continue
			}
		}

		e.mu.Lock()
		t.status = StatusRunning
		step := t.step
		quantum := e.quantum
		if t.fuelRemaining < quantum {
			quantum = t.fuelRemaining
		}
		e.mu.Unlock()

		polled++
		result, err := step(ctx, quantum)

		e.mu.Lock()
		t.fuelRemaining -= result.FuelConsumed
		if preemptMgr != nil {
			preemptMgr.AccountFuel(t.id, result.FuelConsumed)
		}
		if e.metrics != nil {
			e.metrics.RecordFuelConsumed("task", result.FuelConsumed)
		}

		switch {
		case err != nil:
			e.finish(t, StatusFailed)
		case t.fuelRemaining <= 0 && !result.Done:
			e.finish(t, StatusFuelExhausted)
		case result.Done && result.Failed:
			e.finish(t, StatusFailed)
		case result.Done:
			e.finish(t, StatusCompleted)
		case result.Waiting:
			t.status = StatusWaiting
			e.sched.Remove(t.id)
		default:
			t.status = StatusReady
		}
		e.mu.Unlock()
	}
	return polled, nil
}

// Resume re-admits a Waiting task to the ready set (a woken atomic wait,
// a satisfied channel receive). Callers outside the executor observe the
// suspension and decide when the condition clears.
func (e *Executor) Resume(taskID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tasks[taskID]
	if !ok {
		return errors.ResourceNotFound(uint32(taskID))
	}
	if t.status != StatusWaiting {
		return nil
	}
	t.status = StatusReady
	e.sched.Add(scheduler.Entry{TaskID: t.id, Priority: t.priority})
	return nil
}

// finish transitions t to a terminal status, removes it from the ready
// set, and invokes the termination hook exactly once. Caller must hold
// e.mu.
func (e *Executor) finish(t *task, status Status) {
	if t.status.terminal() {
		return
	}
	from := t.status
	t.status = status
	e.sched.Remove(t.id)
	if e.preempt != nil {
		e.preempt.Unregister(t.id)
	}
	if e.metrics != nil {
		e.metrics.RecordTaskTransition(from.String(), status.String())
		if status == StatusFuelExhausted {
			e.metrics.FuelExhaustedTotal.WithLabelValues("task").Inc()
		}
	}
	if e.logger != nil {
		e.logger.LogTaskTransition(context.Background(), t.id, from.String(), status.String())
	}
	if e.onTerminate != nil {
		consumed := t.fuelBudget - t.fuelRemaining
		e.onTerminate(t.id, t.component, status, t.fuelBudget, consumed)
	}
}

// Shutdown cancels every non-terminal task and drains them, per spec.md
// §4.9's "shutdown() — marks all tasks cancelled and drains cleanup."
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	for _, t := range e.tasks {
		if !t.status.terminal() {
			t.cancelled = true
		}
	}
	e.mu.Unlock()

	const maxDrainPasses = 1000
	for i := 0; i < maxDrainPasses; i++ {
		e.mu.Lock()
		remaining := 0
		for _, t := range e.tasks {
			if !t.status.terminal() {
				remaining++
			}
		}
		e.mu.Unlock()
		if remaining == 0 {
			return nil
		}
		if _, err := e.PollTasks(ctx); err != nil {
			return err
		}
	}
	return errors.Timeout("executor shutdown drain exceeded max passes")
}
