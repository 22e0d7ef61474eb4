// Package scan drives the one trigger kind spec.md's grammar defines
// but never says what produces: SCAN. SPEC_FULL.md §4.16 grounds its
// scheduling on github.com/gorhill/cronexpr, the same cron parser the
// teacher's ecmascript interpreter exposes as its "cronNext" builtin.
// Scheduler owns no rule-matching logic at all — it only synthesizes
// ChangeEvents and hands them to an emitter, exactly like any other
// change producer named in spec.md §6.
package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/graphrules/engine/ast"
	"github.com/graphrules/engine/events"
)

// entry is one entity type's compiled cron schedule.
type entry struct {
	entityType string
	expr       *cronexpr.Expression
}

// Scheduler ticks one goroutine per configured entity type, emitting a
// SCAN ChangeEvent for that type at every scheduled instant.
type Scheduler struct {
	emitter *events.Emitter
	logger  *slog.Logger
	entries []entry
}

// New parses schedules (entity_type -> cron expression, as loaded into
// config.Config.ScanSchedules) and returns a Scheduler ready to Run.
// An invalid cron expression is a load-time error, matching
// SPEC_FULL.md §4.11's "config errors are load-time, never silent".
func New(emitter *events.Emitter, logger *slog.Logger, schedules map[string]string) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{emitter: emitter, logger: logger}
	for entityType, cronExpr := range schedules {
		parsed, err := cronexpr.Parse(cronExpr)
		if err != nil {
			return nil, err
		}
		s.entries = append(s.entries, entry{entityType: entityType, expr: parsed})
	}
	return s, nil
}

// Run blocks until ctx is done, firing one goroutine per schedule
// entry. Each synthesized event carries Kind: TriggerScan and an empty
// EntityID/Property — the registry resolves it via the "SCAN|<entity_type>"
// trigger key exactly as spec.md §3 invariant (c) defines, so no rule
// matching semantics change to accommodate it.
func (s *Scheduler) Run(ctx context.Context) {
	for _, e := range s.entries {
		go s.runOne(ctx, e)
	}
	<-ctx.Done()
}

func (s *Scheduler) runOne(ctx context.Context, e entry) {
	for {
		next := e.expr.Next(time.Now())
		if next.IsZero() {
			s.logger.Warn("scan: schedule has no further occurrences", slog.String("entity_type", e.entityType))
			return
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.logger.Debug("scan: firing", slog.String("entity_type", e.entityType), slog.Time("at", next))
			s.emitter.Emit(ast.ChangeEvent{EntityType: e.entityType, Kind: ast.TriggerScan})
		}
	}
}
