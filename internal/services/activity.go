package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type ActivityInput struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Intro                string `json:"intro"`
	IntroFormat          int    `json:"introformat" validate:"gte=0"`
	ShowLastModified     bool   `json:"showlastmodified"`
	CompletionOnRequired bool   `json:"completiononrequired"`
	Visible              *bool  `json:"visible"`
}

type ActivityPatch struct {
	Name                 *string `json:"name" validate:"omitempty,max=255"`
	Intro                *string `json:"intro"`
	IntroFormat          *int    `json:"introformat" validate:"omitempty,gte=0"`
	ShowLastModified     *bool   `json:"showlastmodified"`
	CompletionOnRequired *bool   `json:"completiononrequired"`
	Visible              *bool   `json:"visible"`
}

var activityMessages = fieldMessages{
	"name.required": "Name is required",
	"name.max":      "Name must be at most 255 characters",
}

type ActivityService interface {
	Create(ctx context.Context, courseID int64, in ActivityInput) (*types.Activity, error)
	Get(ctx context.Context, id int64) (*types.Activity, error)
	ListByCourse(ctx context.Context, courseID int64) ([]*types.Activity, error)
	Update(ctx context.Context, id int64, patch ActivityPatch) (*types.Activity, error)
	Delete(ctx context.Context, id int64) error
}

type activityService struct {
	db          *gorm.DB
	log         *logger.Logger
	tx          aggregates.TxRunner
	activities  repos.ActivityRepo
	evaluations repos.EvaluationRepo
	files       filestore.Store
	cascade     cascade
}

func NewActivityService(
	db *gorm.DB,
	baseLog *logger.Logger,
	activities repos.ActivityRepo,
	sections repos.SectionRepo,
	items repos.SectionItemRepo,
	itemConfigs repos.ItemConfigRepo,
	responses repos.ResponseRepo,
	evaluations repos.EvaluationRepo,
	files filestore.Store,
) ActivityService {
	return &activityService{
		db:          db,
		log:         baseLog.With("service", "ActivityService"),
		tx:          aggregates.NewGormTxRunner(db),
		activities:  activities,
		evaluations: evaluations,
		files:       files,
		cascade: cascade{
			sections:    sections,
			items:       items,
			itemConfigs: itemConfigs,
			responses:   responses,
			files:       files,
		},
	}
}

// loadActivity returns a not_found error instead of nil.
func loadActivity(dbc dbctx.Context, repo repos.ActivityRepo, op string, id int64) (*types.Activity, error) {
	a, err := repo.GetByID(dbc, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if a == nil {
		return nil, domainagg.NotFound(op, "activity")
	}
	return a, nil
}

func (s *activityService) Create(ctx context.Context, courseID int64, in ActivityInput) (*types.Activity, error) {
	const op = "activity.Create"
	if err := access.Require(ctx, op, access.CapAddInstance); err != nil {
		return nil, err
	}
	trimPtr(&in.Name)
	if err := validateInput(op, in, activityMessages); err != nil {
		return nil, err
	}
	if courseID <= 0 {
		return nil, domainagg.Validation(op, map[string]string{"course": "Course is required"})
	}
	visible := true
	if in.Visible != nil {
		visible = *in.Visible
	}
	row := &types.Activity{
		Course:               courseID,
		Name:                 in.Name,
		Intro:                in.Intro,
		IntroFormat:          in.IntroFormat,
		ShowLastModified:     in.ShowLastModified,
		CompletionOnRequired: in.CompletionOnRequired,
		Visible:              visible,
	}
	if _, err := s.activities.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
		s.log.Error("Create: insert activity failed", "course_id", courseID, "error", err)
		return nil, aggregates.MapError(op, err)
	}
	return row, nil
}

func (s *activityService) Get(ctx context.Context, id int64) (*types.Activity, error) {
	const op = "activity.Get"
	if err := access.Require(ctx, op, access.CapView); err != nil {
		return nil, err
	}
	return loadActivity(dbctx.Context{Ctx: ctx}, s.activities, op, id)
}

func (s *activityService) ListByCourse(ctx context.Context, courseID int64) ([]*types.Activity, error) {
	const op = "activity.ListByCourse"
	if err := access.Require(ctx, op, access.CapView); err != nil {
		return nil, err
	}
	rows, err := s.activities.ListByCourse(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return rows, nil
}

func (s *activityService) Update(ctx context.Context, id int64, patch ActivityPatch) (*types.Activity, error) {
	const op = "activity.Update"
	if err := access.Require(ctx, op, access.CapManage); err != nil {
		return nil, err
	}
	trimPtr(patch.Name)
	if patch.Name != nil && *patch.Name == "" {
		return nil, domainagg.Validation(op, map[string]string{"name": activityMessages["name.required"]})
	}
	if err := validateInput(op, patch, activityMessages); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := loadActivity(dbc, s.activities, op, id); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Intro != nil {
		updates["intro"] = *patch.Intro
	}
	if patch.IntroFormat != nil {
		updates["introformat"] = *patch.IntroFormat
	}
	if patch.ShowLastModified != nil {
		updates["showlastmodified"] = *patch.ShowLastModified
	}
	if patch.CompletionOnRequired != nil {
		updates["completiononrequired"] = *patch.CompletionOnRequired
	}
	if patch.Visible != nil {
		updates["visible"] = *patch.Visible
	}
	if err := s.activities.UpdateFields(dbc, id, updates); err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return loadActivity(dbc, s.activities, op, id)
}

// Delete removes the activity with its sections, items, configs, responses,
// evaluations and every file of its context.
func (s *activityService) Delete(ctx context.Context, id int64) error {
	const op = "activity.Delete"
	if err := access.Require(ctx, op, access.CapManage); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if _, err := loadActivity(dbc, s.activities, op, id); err != nil {
			return err
		}
		roots, err := s.cascade.sections.ListByActivity(dbc, id)
		if err != nil {
			return aggregates.MapError(op, err)
		}
		ids := make([]int64, 0, len(roots))
		for _, sec := range roots {
			ids = append(ids, sec.ID)
		}
		if err := s.cascade.deleteSections(dbc, id, ids); err != nil {
			return aggregates.MapError(op, err)
		}
		if err := s.evaluations.DeleteByActivity(dbc, id); err != nil {
			return aggregates.MapError(op, err)
		}
		if s.files != nil {
			rest, err := s.files.ListByContext(dbc, id, training.Component)
			if err != nil {
				return aggregates.MapError(op, err)
			}
			if err := s.files.Delete(dbc, rest); err != nil {
				return aggregates.MapError(op, err)
			}
		}
		if err := s.activities.DeleteByID(dbc, id); err != nil {
			return aggregates.MapError(op, err)
		}
		s.log.Info("Activity deleted", "activity_id", id, "sections", len(ids))
		return nil
	})
}
