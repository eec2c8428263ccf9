package engine

import (
	"context"

	"github.com/wrt-go/wrt/internal/fuel/executor"
	"github.com/wrt-go/wrt/internal/interpreter"
	"github.com/wrt-go/wrt/internal/provider"
)

// NewInterpreterStep adapts an already-constructed Interpreter call into an
// executor.Step. It is the concrete realization of the seam
// internal/fuel/executor's own doc comments describe: "construct a Step
// closure around Interpreter.Run".
//
// Interpreter.Run executes instrs to completion, trap, or fuel exhaustion
// in one synchronous call — it has no mid-body resumption point a second
// call could continue from (see DESIGN.md's "quantum-granular resumption"
// Open Question). So this Step is necessarily one-shot: its first
// invocation runs the whole function body against fuelQuantum as the
// budget, and whatever Run returns is the step's entire outcome. A task
// built from this Step either finishes (or traps, or exhausts its fuel) on
// the executor's very first PollTasks pass; it never reports Waiting.
func NewInterpreterStep(
	in *interpreter.Interpreter,
	p *provider.Provider,
	taskID uint64,
	instrs []interpreter.Instruction,
	locals []uint64,
	globals []uint64,
) executor.Step {
	ran := false
	return func(ctx context.Context, fuelQuantum int64) (executor.StepResult, error) {
		if ran {
			// Defensive: the executor should never poll a one-shot step
			// twice, since the first call always reports Done.
			return executor.StepResult{Done: true}, nil
		}
		ran = true

		result, err := in.Run(ctx, p, taskID, instrs, locals, globals, fuelQuantum)
		if err != nil {
			return executor.StepResult{Done: true, Failed: true, FuelConsumed: result.FuelConsumed}, err
		}
		return executor.StepResult{Done: true, FuelConsumed: result.FuelConsumed}, nil
	}
}
