package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/events"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type ViewPermissions struct {
	CanEvaluate    bool `json:"canevaluate"`
	CanFinalise    bool `json:"canfinalise"`
	CanNewRound    bool `json:"cannewround"`
	CanViewHistory bool `json:"canviewhistory"`
	CanManage      bool `json:"canmanage"`
}

// ViewPage is everything the activity page renders for one learner.
type ViewPage struct {
	Activity    *types.Activity               `json:"activity"`
	UserID      int64                         `json:"userid"`
	Evaluation  *types.Evaluation             `json:"evaluation"`
	State       string                        `json:"state"`
	Sections    []*SectionNode                `json:"sections"`
	Responses   map[int64]*types.Response     `json:"responses"`
	Files       map[int64][]*types.StoredFile `json:"files"`
	Completion  *CompletionStatus             `json:"completion"`
	Permissions ViewPermissions               `json:"permissions"`
}

type IndexEntry struct {
	Activity *types.Activity `json:"activity"`
	Dimmed   bool            `json:"dimmed"`
}

type IndexPage struct {
	CourseID   int64         `json:"courseid"`
	Activities []*IndexEntry `json:"activities"`
}

type ViewService interface {
	// View renders cmid for userID, or for the caller when userID is zero.
	View(ctx context.Context, cmid, userID int64) (*ViewPage, error)
	Index(ctx context.Context, courseID int64) (*IndexPage, error)
}

type viewService struct {
	log         *logger.Logger
	tx          aggregates.TxRunner
	activities  repos.ActivityRepo
	sections    repos.SectionRepo
	items       repos.SectionItemRepo
	itemConfigs repos.ItemConfigRepo
	responses   repos.ResponseRepo
	evaluations repos.EvaluationRepo
	files       filestore.Store
	completion  CompletionService
	events      events.Publisher
}

func NewViewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	set *repos.Set,
	files filestore.Store,
	completion CompletionService,
	pub events.Publisher,
) ViewService {
	return &viewService{
		log:         baseLog.With("service", "ViewService"),
		tx:          aggregates.NewGormTxRunner(db),
		activities:  set.Activities,
		sections:    set.Sections,
		items:       set.Items,
		itemConfigs: set.ItemConfigs,
		responses:   set.Responses,
		evaluations: set.Evaluations,
		files:       files,
		completion:  completion,
		events:      pub,
	}
}

func (s *viewService) View(ctx context.Context, cmid, userID int64) (*ViewPage, error) {
	const op = "view.View"
	me := access.CurrentUserID(ctx)
	if userID == 0 {
		userID = me
	}
	if err := access.RequireViewUser(ctx, op, userID); err != nil {
		return nil, err
	}
	var (
		page    *ViewPage
		created bool
	)
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		act, err := loadActivity(dbc, s.activities, op, cmid)
		if err != nil {
			return err
		}
		eval, made, err := ensureActive(dbc, s.evaluations, act.ID, userID, me)
		if err != nil {
			return aggregates.MapError(op, err)
		}
		created = made
		tree, err := loadTree(dbc, op, act.ID, s.sections, s.items, s.itemConfigs)
		if err != nil {
			return err
		}
		rows, err := s.responses.ListForUserVersion(dbc, act.ID, userID, eval.Version)
		if err != nil {
			return aggregates.MapError(op, err)
		}
		page = &ViewPage{
			Activity:   act,
			UserID:     userID,
			Evaluation: eval,
			State:      string(eval.State()),
			Sections:   tree,
			Responses:  make(map[int64]*types.Response, len(rows)),
			Files:      map[int64][]*types.StoredFile{},
		}
		for _, r := range rows {
			page.Responses[r.ItemID] = r
		}
		uploads, err := s.items.ListByActivityAndType(dbc, act.ID, training.ItemTypeFileUpload)
		if err != nil {
			return aggregates.MapError(op, err)
		}
		for _, it := range uploads {
			key := filestore.AreaKey{ItemID: it.ID, Version: eval.Version, UserID: userID}
			files, err := s.files.ListArea(dbc, key.Filter(act.ID))
			if err != nil {
				return aggregates.MapError(op, err)
			}
			page.Files[it.ID] = files
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if page.Completion, err = s.completion.Status(ctx, page.Activity.ID, userID); err != nil {
		return nil, err
	}
	canEvaluate := access.RequireEvaluate(ctx, op, userID) == nil
	page.Permissions = ViewPermissions{
		CanEvaluate:    canEvaluate && !page.Evaluation.Finalised,
		CanFinalise:    access.Require(ctx, op, access.CapFinaliseEvaluation) == nil && !page.Evaluation.Finalised,
		CanNewRound:    access.Require(ctx, op, access.CapNewEvaluation) == nil && page.Evaluation.Finalised,
		CanViewHistory: access.Require(ctx, op, access.CapViewOldEvaluations) == nil,
		CanManage:      access.Require(ctx, op, access.CapManage) == nil,
	}

	if created {
		events.Emit(ctx, s.events, s.log, evaluationEvent(events.EvaluationCreated, page.Activity, page.Evaluation, me))
	}
	events.Emit(ctx, s.events, s.log, events.Event{
		Name:          events.CourseModuleViewed,
		CourseID:      page.Activity.Course,
		ActivityID:    page.Activity.ID,
		ObjectID:      cmid,
		UserID:        me,
		RelatedUserID: userID,
	})
	return page, nil
}

// Index lists the course's activities. Hidden ones are shown dimmed to
// managers and left out for everyone else.
func (s *viewService) Index(ctx context.Context, courseID int64) (*IndexPage, error) {
	const op = "view.Index"
	if err := access.Require(ctx, op, access.CapView); err != nil {
		return nil, err
	}
	rows, err := s.activities.ListByCourse(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	manager := access.Require(ctx, op, access.CapManage) == nil
	page := &IndexPage{CourseID: courseID, Activities: []*IndexEntry{}}
	for _, a := range rows {
		if !a.Visible && !manager {
			continue
		}
		page.Activities = append(page.Activities, &IndexEntry{Activity: a, Dimmed: !a.Visible})
	}
	events.Emit(ctx, s.events, s.log, events.Event{
		Name:     events.CourseModuleInstanceListViewed,
		CourseID: courseID,
		UserID:   access.CurrentUserID(ctx),
	})
	return page, nil
}
