// Package cleanup implements spec.md §4.10's fuel-budgeted cleanup /
// cancellation registry: a priority-ordered set of callbacks a task's
// context accumulates, run in priority order (descending) when the task
// terminates, each gated on residual fuel. Grounded on
// original_source/wrt-component/src/async_/fuel_resource_cleanup.rs's
// CleanupCallback/TaskCleanupContext/register_callback/execute_cleanup
// and GlobalCleanupManager, reshaped from a Vec sorted in place into a
// Go slice re-sorted with sort.SliceStable on registration — the original
// resorts its whole Vec on every register_callback call too, so this is
// a direct idiom carry rather than a simplification.
package cleanup

import (
	"context"
	"sort"
	"sync"

	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/resource"
)

// Action names what kind of cleanup a Callback performs, kept only for
// logging/inspection — Run is what actually executes.
type Action int

const (
	ActionDropResource Action = iota
	ActionCloseStream
	ActionReleaseHandle
	ActionCustom
)

func (a Action) String() string {
	switch a {
	case ActionDropResource:
		return "drop_resource"
	case ActionCloseStream:
		return "close_stream"
	case ActionReleaseHandle:
		return "release_handle"
	case ActionCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Callback is one registered cleanup action (spec.md §4.10's
// "register_callback(action, priority, fuel_cost, is_critical)").
type Callback struct {
	Action     Action
	Priority   uint32
	FuelCost   int64
	IsCritical bool
	Run        func() error
}

// Context accumulates one task's cleanup callbacks.
type Context struct {
	mu        sync.Mutex
	taskID    resource.TaskID
	callbacks []Callback
	executed  bool
}

const maxCallbacksPerTask = 256

// NewContext constructs an empty cleanup Context for a task.
func NewContext(taskID resource.TaskID) *Context {
	return &Context{taskID: taskID}
}

// RegisterCallback adds a callback, keeping the list sorted by priority
// descending (highest priority runs first).
func (c *Context) RegisterCallback(cb Callback) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.executed {
		return errors.ValidationError("cleanup callback registered after context already executed")
	}
	if len(c.callbacks) >= maxCallbacksPerTask {
		return errors.CapacityExceeded("cleanup callbacks", maxCallbacksPerTask)
	}
	c.callbacks = append(c.callbacks, cb)
	sort.SliceStable(c.callbacks, func(i, j int) bool {
		return c.callbacks[i].Priority > c.callbacks[j].Priority
	})
	return nil
}

// RegisterResource registers a drop-resource cleanup callback, per
// spec.md §4.8's task-termination resource sweep.
func (c *Context) RegisterResource(mgr *resource.Manager, handle resource.Handle, priority uint32, fuelCost int64, isCritical bool) error {
	return c.RegisterCallback(Callback{
		Action:     ActionDropResource,
		Priority:   priority,
		FuelCost:   fuelCost,
		IsCritical: isCritical,
		Run:        func() error { return mgr.Drop(handle) },
	})
}

// Execute runs every registered callback in priority order, each gated
// on fuelAvailable covering its declared cost. A callback whose cost
// exceeds remaining fuel is skipped: silently if non-critical, reported
// if IsCritical. Execute is idempotent — a second call is a no-op,
// guaranteeing at-most-once execution per callback.
func (c *Context) Execute(fuelAvailable int64) (errs []error, fuelConsumed int64) {
	c.mu.Lock()
	if c.executed {
		c.mu.Unlock()
		return nil, 0
	}
	c.executed = true
	callbacks := c.callbacks
	c.callbacks = nil
	c.mu.Unlock()

	for _, cb := range callbacks {
		if cb.FuelCost > fuelAvailable {
			if cb.IsCritical {
				errs = append(errs, errors.ResourceLimitExceeded("cleanup_fuel", cb.FuelCost, fuelAvailable))
			}
			continue
		}
		fuelAvailable -= cb.FuelCost
		fuelConsumed += cb.FuelCost
		if cb.Run == nil {
			continue
		}
		if err := cb.Run(); err != nil {
			if cb.IsCritical {
				errs = append(errs, err)
			}
			// non-critical failures are swallowed and not logged: a bare
			// Context has no logger, and Registry.Terminate logs only the
			// critical errors Execute returns.
		}
	}
	return errs, fuelConsumed
}

// Registry owns one Context per live task, guaranteeing each task's
// cleanup runs exactly once even if Terminate is called more than once
// (e.g. both a cancellation path and a fuel-exhaustion path reach it).
type Registry struct {
	mu       sync.Mutex
	contexts map[resource.TaskID]*Context
	logger   *logging.Logger
}

// NewRegistry constructs an empty cleanup Registry.
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{contexts: make(map[resource.TaskID]*Context), logger: logger}
}

// Context returns taskID's Context, creating one if this is the first
// callback registered for it.
func (r *Registry) Context(taskID resource.TaskID) *Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.contexts[taskID]
	if !ok {
		ctx = NewContext(taskID)
		r.contexts[taskID] = ctx
	}
	return ctx
}

// Terminate runs taskID's registered cleanup callbacks (if any) and
// forgets the Context, so a later register attempt for the same task ID
// starts a fresh registry entry rather than reusing a spent one.
func (r *Registry) Terminate(taskID resource.TaskID, fuelAvailable int64) ([]error, int64) {
	r.mu.Lock()
	ctx, ok := r.contexts[taskID]
	delete(r.contexts, taskID)
	r.mu.Unlock()
	if !ok {
		return nil, 0
	}
	errs, consumed := ctx.Execute(fuelAvailable)
	if r.logger != nil {
		for _, err := range errs {
			r.logger.WithContext(context.Background()).WithField("task_id", uint64(taskID)).WithError(err).
				Error("critical cleanup callback failed")
		}
	}
	return errs, consumed
}
