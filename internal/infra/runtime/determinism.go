// Package runtime provides environment/runtime detection helpers shared across the service layer.
package runtime

import (
	"os"
	"strings"
	"sync"
)

// strictDeterminismModeOnce caches the strict determinism mode check at startup.
var (
	strictDeterminismModeOnce  sync.Once
	strictDeterminismModeValue bool
)

// ResetStrictDeterminismModeCache resets the cached strict determinism mode value.
// This should only be used in tests.
func ResetStrictDeterminismModeCache() {
	strictDeterminismModeOnce = sync.Once{}
	strictDeterminismModeValue = false
}

// StrictDeterminismMode returns true when the runtime must treat every
// timing-sensitive boundary (wait/notify timeouts, preemption deadlines,
// adaptive-policy contention windows) as fuel-denominated rather than
// wall-clock, so two runs fed the same fuel schedule produce identical
// interleavings.
//
// We treat ASIL C and ASIL D profiles (WRT_ASIL_PROFILE=C|D) as "strict" by
// default, and an explicit WRT_DETERMINISTIC=1 always forces it regardless
// of profile, so a mis-set WRT_ENV cannot silently weaken a safety-relevant
// determinism boundary.
func StrictDeterminismMode() bool {
	strictDeterminismModeOnce.Do(func() {
		profile := strings.ToUpper(strings.TrimSpace(os.Getenv("WRT_ASIL_PROFILE")))
		forced := strings.TrimSpace(os.Getenv("WRT_DETERMINISTIC"))
		strictDeterminismModeValue = profile == "C" || profile == "D" || forced == "1"
	})
	return strictDeterminismModeValue
}
