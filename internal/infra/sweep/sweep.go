// Package sweep periodically re-verifies the checksum of every registered
// Sampling-level collection (internal/bounded). Sampling
// is defined against Standard and Full verification (checked on every
// access, or never) as "checked on a timer" — this package is that timer.
//
// No repo in the example pack actually drives robfig/cron/v3 from
// production code (services/automation hand-rolls its own cron-expression
// parser instead, despite the dependency sitting in go.mod and its tests
// referencing the library by name) — there is no teacher call site to
// generalize, so Sweeper follows the library's own cron.New/AddFunc/Start/
// Stop conventions directly.
package sweep

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/infra/metrics"
)

// Checker is anything whose live contents can be re-verified against a
// previously recorded checksum — internal/bounded's Vec/Map/Set/Deque/
// String/BitSet all implement this shape already via their VerifyChecksum
// methods.
type Checker interface {
	VerifyChecksum() bool
}

type target struct {
	name    string
	checker Checker
}

// Sweeper runs a cron schedule that re-verifies every registered Checker
// and records failures to metrics/logging. A failed checksum is reported,
// never auto-corrected or treated as fatal — matching internal/bounded's
// own stance that VerifyChecksum is a detector, not a repair mechanism.
type Sweeper struct {
	cron    *cron.Cron
	targets []target
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// New constructs a Sweeper with no targets and no schedule. The schedule
// is given to Start as a standard 5-field cron expression (e.g.
// "*/30 * * * *" for every 30 minutes); budgets.yaml's
// sampling_sweep_schedule feeds it in production.
func New(logger *logging.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		cron:    cron.New(),
		logger:  logger,
		metrics: m,
	}
}

// Register adds a named Checker to the sweep. Each sweep reads the target
// list afresh, so a target added after Start is checked from the next run
// on. Register takes no lock and is not synchronized with a running sweep.
func (s *Sweeper) Register(name string, c Checker) {
	s.targets = append(s.targets, target{name: name, checker: c})
}

// Start schedules the sweep at spec and begins running it. A malformed
// spec is a configuration error the caller must fix, so it's returned
// rather than silently ignored.
func (s *Sweeper) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, s.runOnce)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop cancels the schedule and waits for any in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) runOnce() {
	for _, t := range s.targets {
		if t.checker.VerifyChecksum() {
			continue
		}
		if s.metrics != nil {
			s.metrics.ChecksumFailuresTotal.WithLabelValues(t.name).Inc()
		}
		if s.logger != nil {
			s.logger.WithContext(context.Background()).WithField("collection", t.name).
				Error("checksum verification failed during sampling sweep")
		}
	}
}
