package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/events"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

const (
	msgEvaluationFinalised       = "Evaluation is finalised"
	msgEvaluationVersionNotFound = "Evaluation version not found"
)

// EvaluationVersion is one evaluation with the responses recorded under it.
type EvaluationVersion struct {
	Evaluation *types.Evaluation `json:"evaluation"`
	State      string            `json:"state"`
	Responses  []*types.Response `json:"responses"`
}

type EvaluationService interface {
	GetActive(ctx context.Context, wtid, userID int64) (*types.Evaluation, error)
	GetOrCreate(ctx context.Context, wtid, userID int64) (*types.Evaluation, error)
	Finalise(ctx context.Context, wtid, userID int64) (*types.Evaluation, error)
	NewRound(ctx context.Context, wtid, userID int64) (*types.Evaluation, error)
	ListVersions(ctx context.Context, wtid, userID int64) ([]*types.Evaluation, error)
	GetVersion(ctx context.Context, wtid, userID int64, version int) (*EvaluationVersion, error)
}

type evaluationService struct {
	log         *logger.Logger
	tx          aggregates.TxRunner
	activities  repos.ActivityRepo
	evaluations repos.EvaluationRepo
	responses   repos.ResponseRepo
	events      events.Publisher
}

func NewEvaluationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	activities repos.ActivityRepo,
	evaluations repos.EvaluationRepo,
	responses repos.ResponseRepo,
	pub events.Publisher,
) EvaluationService {
	return &evaluationService{
		log:         baseLog.With("service", "EvaluationService"),
		tx:          aggregates.NewGormTxRunner(db),
		activities:  activities,
		evaluations: evaluations,
		responses:   responses,
		events:      pub,
	}
}

// ensureActive returns the active evaluation of the user, inserting the
// first version when there is none yet. created reports the insert.
func ensureActive(dbc dbctx.Context, repo repos.EvaluationRepo, wtid, userID, by int64) (*types.Evaluation, bool, error) {
	cur, err := repo.GetActive(dbc, wtid, userID)
	if err != nil || cur != nil {
		return cur, false, err
	}
	max, err := repo.MaxVersion(dbc, wtid, userID)
	if err != nil {
		return nil, false, err
	}
	row := &types.Evaluation{
		WTID:         wtid,
		UserID:       userID,
		Version:      max + 1,
		Active:       true,
		UserModified: by,
	}
	if _, err := repo.Create(dbc, []*types.Evaluation{row}); err != nil {
		return nil, false, err
	}
	return row, true, nil
}

func evaluationEvent(name string, a *types.Activity, e *types.Evaluation, by int64) events.Event {
	return events.Event{
		Name:          name,
		CourseID:      a.Course,
		ActivityID:    a.ID,
		ObjectID:      e.ID,
		UserID:        by,
		RelatedUserID: e.UserID,
		Other:         map[string]interface{}{"version": e.Version},
	}
}

func (s *evaluationService) GetActive(ctx context.Context, wtid, userID int64) (*types.Evaluation, error) {
	const op = "evaluation.GetActive"
	if err := access.RequireViewUser(ctx, op, userID); err != nil {
		return nil, err
	}
	e, err := s.evaluations.GetActive(dbctx.Context{Ctx: ctx}, wtid, userID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if e == nil {
		return nil, domainagg.NotFound(op, "evaluation")
	}
	return e, nil
}

func (s *evaluationService) GetOrCreate(ctx context.Context, wtid, userID int64) (*types.Evaluation, error) {
	const op = "evaluation.GetOrCreate"
	if err := access.RequireViewUser(ctx, op, userID); err != nil {
		return nil, err
	}
	by := access.CurrentUserID(ctx)
	var (
		act     *types.Activity
		out     *types.Evaluation
		created bool
	)
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		var err error
		if act, err = loadActivity(dbc, s.activities, op, wtid); err != nil {
			return err
		}
		out, created, err = ensureActive(dbc, s.evaluations, wtid, userID, by)
		return aggregates.MapError(op, err)
	})
	if err != nil {
		return nil, err
	}
	if created {
		events.Emit(ctx, s.events, s.log, evaluationEvent(events.EvaluationCreated, act, out, by))
	}
	return out, nil
}

func (s *evaluationService) Finalise(ctx context.Context, wtid, userID int64) (*types.Evaluation, error) {
	const op = "evaluation.Finalise"
	if err := access.Require(ctx, op, access.CapFinaliseEvaluation); err != nil {
		return nil, err
	}
	by := access.CurrentUserID(ctx)
	var (
		act *types.Activity
		out *types.Evaluation
	)
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		var err error
		if act, err = loadActivity(dbc, s.activities, op, wtid); err != nil {
			return err
		}
		cur, err := s.evaluations.GetActive(dbc, wtid, userID)
		if err != nil {
			return aggregates.MapError(op, err)
		}
		if cur == nil {
			return domainagg.NotFound(op, "evaluation")
		}
		ok, err := s.evaluations.MarkFinalised(dbc, cur.ID, by, time.Now().UTC())
		if err != nil {
			return aggregates.MapError(op, err)
		}
		if !ok {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op, msgEvaluationFinalised, nil)
		}
		out, err = s.evaluations.GetByID(dbc, cur.ID)
		return aggregates.MapError(op, err)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Evaluation finalised", "activity_id", wtid, "user_id", userID, "version", out.Version)
	events.Emit(ctx, s.events, s.log, evaluationEvent(events.EvaluationFinalised, act, out, by))
	return out, nil
}

// NewRound supersedes the finalised active evaluation with version+1.
func (s *evaluationService) NewRound(ctx context.Context, wtid, userID int64) (*types.Evaluation, error) {
	const op = "evaluation.NewRound"
	if err := access.Require(ctx, op, access.CapNewEvaluation); err != nil {
		return nil, err
	}
	by := access.CurrentUserID(ctx)
	var (
		act *types.Activity
		out *types.Evaluation
	)
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		var err error
		if act, err = loadActivity(dbc, s.activities, op, wtid); err != nil {
			return err
		}
		cur, err := s.evaluations.GetActive(dbc, wtid, userID)
		if err != nil {
			return aggregates.MapError(op, err)
		}
		if cur == nil {
			return domainagg.NotFound(op, "evaluation")
		}
		if !cur.Finalised {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op, "Finalise the current evaluation before recording a new one", nil)
		}
		if err := s.evaluations.Deactivate(dbc, cur.ID, by); err != nil {
			return aggregates.MapError(op, err)
		}
		out = &types.Evaluation{
			WTID:         wtid,
			UserID:       userID,
			Version:      cur.Version + 1,
			Active:       true,
			UserModified: by,
		}
		_, err = s.evaluations.Create(dbc, []*types.Evaluation{out})
		return aggregates.MapError(op, err)
	})
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.events, s.log, evaluationEvent(events.EvaluationCreated, act, out, by))
	return out, nil
}

func (s *evaluationService) ListVersions(ctx context.Context, wtid, userID int64) ([]*types.Evaluation, error) {
	const op = "evaluation.ListVersions"
	if err := access.Require(ctx, op, access.CapViewOldEvaluations); err != nil {
		return nil, err
	}
	rows, err := s.evaluations.ListByUser(dbctx.Context{Ctx: ctx}, wtid, userID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return rows, nil
}

func (s *evaluationService) GetVersion(ctx context.Context, wtid, userID int64, version int) (*EvaluationVersion, error) {
	const op = "evaluation.GetVersion"
	if err := access.Require(ctx, op, access.CapViewOldEvaluations); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	e, err := s.evaluations.GetByVersion(dbc, wtid, userID, version)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if e == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, msgEvaluationVersionNotFound, nil)
	}
	rows, err := s.responses.ListForUserVersion(dbc, wtid, userID, version)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return &EvaluationVersion{Evaluation: e, State: string(e.State()), Responses: rows}, nil
}
