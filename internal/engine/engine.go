// Package engine wires the fuel executor, scheduler, preemption manager,
// cleanup registry, telemetry hub, and sampling sweeper into one object an
// embedder (the observability daemon in cmd/wrtd, or a test) constructs
// once per process. It is the seam internal/fuel/executor's own doc
// comments anticipate but deliberately don't implement themselves, to keep
// that package importable without internal/interpreter or
// internal/fuel/cleanup in its dependency graph.
package engine

import (
	"context"

	"github.com/wrt-go/wrt/internal/capability"
	"github.com/wrt-go/wrt/internal/decoder"
	"github.com/wrt-go/wrt/internal/fuel/cleanup"
	"github.com/wrt-go/wrt/internal/fuel/executor"
	"github.com/wrt-go/wrt/internal/fuel/preempt"
	"github.com/wrt-go/wrt/internal/fuel/scheduler"
	"github.com/wrt-go/wrt/internal/infra/config"
	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/infra/metrics"
	"github.com/wrt-go/wrt/internal/infra/sweep"
	"github.com/wrt-go/wrt/internal/modcache"
	"github.com/wrt-go/wrt/internal/resource"
	"github.com/wrt-go/wrt/internal/telemetry"
)

// defaultQuantum/defaultMaxTasksPerComponent/defaultResourceCapacity are
// fixed values used by every Engine: RuntimeConfig (budgets.yaml) has no
// field that overrides them.
const (
	defaultQuantum              = 10_000
	defaultMaxTasksPerComponent = 64
	defaultResourceCapacity     = 4096
)

// Engine bundles one process's worth of runtime state: the capability
// context providers are granted from, the fuel executor driving tasks, and
// the cleanup/telemetry machinery wired to its termination hook.
type Engine struct {
	Capability *capability.Context
	Executor   *executor.Executor
	Preempt    *preempt.Manager
	Cleanup    *cleanup.Registry
	Resources  *resource.Manager
	Telemetry  *telemetry.Hub
	Sweeper    *sweep.Sweeper

	// ModCache is nil unless the embedder wires a Postgres connection pool
	// to it after New returns (see cmd/wrtd's WRT_MODCACHE_DSN handling).
	// Decoding works with or without it; LoadModule just skips the cache
	// lookup/store when it's nil.
	ModCache *modcache.Cache

	logger  *logging.Logger
	metrics *metrics.Metrics
}

// New constructs an Engine from a RuntimeConfig (see
// config.LoadRuntimeConfigOrDefault), wiring the executor's OnTerminate
// hook to both the cleanup registry and the telemetry hub so a task's
// resource teardown and its observability event are never the caller's
// responsibility to remember separately. If cfg.SamplingSweepSchedule is
// set, the sampling sweeper is started immediately; registering concrete
// Checkers against it (e.g. live internal/bounded collections) is left to
// the embedder, since Engine itself doesn't own any.
func New(cfg *config.RuntimeConfig, logger *logging.Logger, m *metrics.Metrics) (*Engine, error) {
	capCtx, err := capability.Init(cfg, logger, m)
	if err != nil {
		return nil, err
	}

	policy := scheduler.PolicyCooperative
	if cfg != nil && cfg.SchedulerPolicy != "" {
		if p, ok := scheduler.ParsePolicy(cfg.SchedulerPolicy); ok {
			policy = p
		}
	}

	e := &Engine{
		Capability: capCtx,
		Executor:   executor.New(policy, defaultQuantum, defaultMaxTasksPerComponent, logger, m),
		Preempt:    preempt.New(true, logger, m),
		Cleanup:    cleanup.NewRegistry(logger),
		Resources:  resource.New(defaultResourceCapacity),
		Telemetry:  telemetry.NewHub(logger),
		Sweeper:    sweep.New(logger, m),
		logger:     logger,
		metrics:    m,
	}

	e.Executor.SetPreempt(e.Preempt)
	e.Executor.OnTerminate(e.onTaskTerminate)

	if cfg != nil && cfg.SamplingSweepSchedule != "" {
		if err := e.Sweeper.Start(cfg.SamplingSweepSchedule); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// LoadModule decodes bytecode into its section payload stream, going
// through ModCache when one has been wired (see ModCache's doc comment)
// and falling back to a direct internal/decoder.ParseModule call otherwise.
func (e *Engine) LoadModule(ctx context.Context, bytecode []byte, cfg decoder.Config) ([]decoder.Payload, error) {
	if e.ModCache != nil {
		return e.ModCache.Load(ctx, bytecode, cfg)
	}
	return decoder.ParseModule(bytecode, cfg)
}

// onTaskTerminate is the executor's single termination hook: it runs the
// task's registered cleanup callbacks against its residual fuel, then
// publishes a telemetry event recording the transition. Both always run,
// in that order, exactly once per task — the executor itself guarantees
// the "exactly once" part (see executor.Executor.finish).
func (e *Engine) onTaskTerminate(taskID uint64, component uint32, final executor.Status, fuelBudget, fuelConsumed int64) {
	e.Cleanup.Terminate(resource.TaskID(taskID), fuelBudget-fuelConsumed)
	e.Preempt.Unregister(taskID)
	e.Telemetry.Publish(telemetry.TaskTransition(taskID, component, "running", final.String()))
	if final == executor.StatusFuelExhausted {
		e.Telemetry.Publish(telemetry.FuelExhaustion(taskID, component, fuelConsumed, fuelBudget))
	}
}
