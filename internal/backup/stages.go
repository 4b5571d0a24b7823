package backup

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/observability"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

// stage is one named step of a backup or restore run. Stages run in order;
// Skip, when set and true, leaves the stage out.
type stage[S any] struct {
	Name string
	Skip func(st S) bool
	Run  func(ctx context.Context, st S) error
}

func runStages[S any](ctx context.Context, log *logger.Logger, kind string, stages []stage[S], st S) error {
	for _, s := range stages {
		if s.Skip != nil && s.Skip(st) {
			log.Debug("stage skipped", "kind", kind, "stage", s.Name)
			continue
		}
		start := time.Now()
		sctx, span := observability.StartSpan(ctx, kind+"."+s.Name, attribute.String("stage", s.Name))
		err := s.Run(sctx, st)
		observability.EndSpan(span, err)
		if err != nil {
			log.Warn("stage failed", "kind", kind, "stage", s.Name, "error", err)
			return fmt.Errorf("%s stage %s: %w", kind, s.Name, err)
		}
		log.Debug("stage done", "kind", kind, "stage", s.Name, "elapsed_ms", time.Since(start).Milliseconds())
	}
	return nil
}
