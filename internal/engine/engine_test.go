package engine

import (
	"context"
	"testing"

	"github.com/wrt-go/wrt/internal/decoder"
	"github.com/wrt-go/wrt/internal/fuel/cleanup"
	"github.com/wrt-go/wrt/internal/fuel/executor"
	"github.com/wrt-go/wrt/internal/fuel/scheduler"
	"github.com/wrt-go/wrt/internal/infra/config"
	"github.com/wrt-go/wrt/internal/resource"
)

func TestNewWiresSchedulerPolicyFromConfig(t *testing.T) {
	cfg := config.DefaultRuntimeConfig()
	cfg.SchedulerPolicy = "priority_based"

	e, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(e.Sweeper.Stop)

	noop := func(ctx context.Context, quantum int64) (executor.StepResult, error) {
		return executor.StepResult{Done: true}, nil
	}
	id, err := e.Executor.Spawn(1, 100, scheduler.PriorityNormal, noop)
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if _, err := e.Executor.PollTasks(context.Background()); err != nil {
		t.Fatalf("PollTasks() error = %v", err)
	}
	status, ok := e.Executor.TaskStatus(id)
	if !ok || status != executor.StatusCompleted {
		t.Fatalf("TaskStatus() = (%v, %v), want (StatusCompleted, true)", status, ok)
	}
}

func TestTaskTerminationRunsCleanupExactlyOnce(t *testing.T) {
	e, err := New(config.DefaultRuntimeConfig(), nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(e.Sweeper.Stop)

	step := func(ctx context.Context, quantum int64) (executor.StepResult, error) {
		return executor.StepResult{Done: true}, nil
	}

	id, err := e.Executor.Spawn(1, 100, scheduler.PriorityNormal, step)
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	// Register the cleanup callback under the executor-assigned task ID,
	// after Spawn but before the first poll drives the task to completion
	// and fires OnTerminate.
	calls := 0
	cleanupCtx := e.Cleanup.Context(resource.TaskID(id))
	if err := cleanupCtx.RegisterCallback(cleanup.Callback{
		Priority: 1,
		Run:      func() error { calls++; return nil },
	}); err != nil {
		t.Fatalf("RegisterCallback() error = %v", err)
	}

	if _, err := e.Executor.PollTasks(context.Background()); err != nil {
		t.Fatalf("PollTasks() error = %v", err)
	}

	status, ok := e.Executor.TaskStatus(id)
	if !ok || status != executor.StatusCompleted {
		t.Fatalf("TaskStatus() = (%v, %v), want (StatusCompleted, true)", status, ok)
	}
	if calls != 1 {
		t.Fatalf("cleanup callback ran %d times, want 1", calls)
	}
}

func TestLoadModuleFallsBackToDirectDecodeWithoutModCache(t *testing.T) {
	e, err := New(config.DefaultRuntimeConfig(), nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(e.Sweeper.Stop)

	if e.ModCache != nil {
		t.Fatal("ModCache should be nil unless an embedder wires one in")
	}

	binary := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	payloads, err := e.LoadModule(context.Background(), binary, decoder.Config{})
	if err != nil {
		t.Fatalf("LoadModule() error = %v", err)
	}
	if len(payloads) == 0 || payloads[0].Kind != decoder.PayloadVersion {
		t.Fatalf("LoadModule() = %+v, want a leading PayloadVersion entry", payloads)
	}
}
