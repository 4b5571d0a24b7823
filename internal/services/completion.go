package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/observability"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type CompletionState string

const (
	StateComplete   CompletionState = "complete"
	StateIncomplete CompletionState = "incomplete"
)

// Display status of an evaluation.
const (
	StatusNotStarted = "notstarted"
	StatusInProgress = "inprogress"
	StatusComplete   = "complete"
)

type CompletionStatus struct {
	State       CompletionState `json:"state"`
	Status      string          `json:"status"`
	Done        int64           `json:"done"`
	Total       int64           `json:"total"`
	RuleEnabled bool            `json:"ruleenabled"`
}

type CompletionService interface {
	// GetState is complete iff every required item of the activity has a
	// completed response under the user's active evaluation. An activity
	// without required items is never complete.
	GetState(ctx context.Context, wtid, userID int64) (CompletionState, error)
	Status(ctx context.Context, wtid, userID int64) (*CompletionStatus, error)
}

type completionService struct {
	log         *logger.Logger
	activities  repos.ActivityRepo
	items       repos.SectionItemRepo
	responses   repos.ResponseRepo
	evaluations repos.EvaluationRepo
}

func NewCompletionService(
	baseLog *logger.Logger,
	activities repos.ActivityRepo,
	items repos.SectionItemRepo,
	responses repos.ResponseRepo,
	evaluations repos.EvaluationRepo,
) CompletionService {
	return &completionService{
		log:         baseLog.With("service", "CompletionService"),
		activities:  activities,
		items:       items,
		responses:   responses,
		evaluations: evaluations,
	}
}

func (s *completionService) counts(dbc dbctx.Context, wtid, userID int64) (done, total int64, err error) {
	total, err = s.items.CountRequiredByActivity(dbc, wtid)
	if err != nil || total == 0 {
		return 0, total, err
	}
	done, err = s.responses.CountCompletedRequired(dbc, wtid, userID)
	return done, total, err
}

func stateOf(done, total int64) CompletionState {
	if total > 0 && done == total {
		return StateComplete
	}
	return StateIncomplete
}

func (s *completionService) GetState(ctx context.Context, wtid, userID int64) (state CompletionState, err error) {
	const op = "completion.GetState"
	ctx, span := observability.StartSpan(ctx, op,
		attribute.Int64("activity_id", wtid),
		attribute.Int64("user_id", userID),
	)
	defer func() { observability.EndSpan(span, err) }()

	done, total, err := s.counts(dbctx.Context{Ctx: ctx}, wtid, userID)
	if err != nil {
		return StateIncomplete, aggregates.MapError(op, err)
	}
	state = stateOf(done, total)
	span.SetAttributes(attribute.Int64("done", done), attribute.Int64("total", total))
	return state, nil
}

func (s *completionService) Status(ctx context.Context, wtid, userID int64) (*CompletionStatus, error) {
	const op = "completion.Status"
	if err := access.RequireViewUser(ctx, op, userID); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	act, err := loadActivity(dbc, s.activities, op, wtid)
	if err != nil {
		return nil, err
	}
	done, total, err := s.counts(dbc, wtid, userID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	out := &CompletionStatus{
		State:       stateOf(done, total),
		Done:        done,
		Total:       total,
		RuleEnabled: act.CompletionOnRequired,
	}
	switch {
	case out.State == StateComplete:
		out.Status = StatusComplete
	default:
		started, err := s.hasResponses(dbc, wtid, userID)
		if err != nil {
			return nil, aggregates.MapError(op, err)
		}
		out.Status = StatusNotStarted
		if started {
			out.Status = StatusInProgress
		}
	}
	return out, nil
}

func (s *completionService) hasResponses(dbc dbctx.Context, wtid, userID int64) (bool, error) {
	e, err := s.evaluations.GetActive(dbc, wtid, userID)
	if err != nil || e == nil {
		return false, err
	}
	rows, err := s.responses.ListForUserVersion(dbc, wtid, userID, e.Version)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
