package services

import (
	"context"
	"io"
	"path"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/events"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

// Upload is one file submitted for a fileupload item.
type Upload struct {
	Name     string
	MimeType string
	Data     []byte
}

type FileUploadResult struct {
	Response *types.Response     `json:"response"`
	Files    []*types.StoredFile `json:"files"`
}

type ResponseService interface {
	Save(ctx context.Context, itemID, userID int64, value string) (*types.Response, error)
	UploadFiles(ctx context.Context, itemID, userID int64, uploads []Upload) (*FileUploadResult, error)
	ListFiles(ctx context.Context, itemID, userID int64) ([]*types.StoredFile, error)
	DeleteFile(ctx context.Context, itemID, userID, fileID int64) (*FileUploadResult, error)
	OpenFile(ctx context.Context, itemID, userID, fileID int64) (*types.StoredFile, io.ReadCloser, error)
}

type responseService struct {
	log         *logger.Logger
	tx          aggregates.TxRunner
	activities  repos.ActivityRepo
	sections    repos.SectionRepo
	items       repos.SectionItemRepo
	itemConfigs repos.ItemConfigRepo
	responses   repos.ResponseRepo
	evaluations repos.EvaluationRepo
	files       filestore.Store
	events      events.Publisher
}

func NewResponseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	activities repos.ActivityRepo,
	sections repos.SectionRepo,
	items repos.SectionItemRepo,
	itemConfigs repos.ItemConfigRepo,
	responses repos.ResponseRepo,
	evaluations repos.EvaluationRepo,
	files filestore.Store,
	pub events.Publisher,
) ResponseService {
	return &responseService{
		log:         baseLog.With("service", "ResponseService"),
		tx:          aggregates.NewGormTxRunner(db),
		activities:  activities,
		sections:    sections,
		items:       items,
		itemConfigs: itemConfigs,
		responses:   responses,
		evaluations: evaluations,
		files:       files,
		events:      pub,
	}
}

// target is an item resolved up to its activity plus the writable
// evaluation of the learner.
type target struct {
	item     *types.SectionItem
	activity *types.Activity
	configs  map[string]string
	eval     *types.Evaluation
	created  bool
}

func (s *responseService) resolve(dbc dbctx.Context, op string, itemID, userID int64, writable bool) (*target, error) {
	it, err := loadItem(dbc, s.items, op, itemID)
	if err != nil {
		return nil, err
	}
	sec, err := loadSection(dbc, s.sections, op, it.SectionID)
	if err != nil {
		return nil, err
	}
	act, err := loadActivity(dbc, s.activities, op, sec.WTID)
	if err != nil {
		return nil, err
	}
	cfgs, err := s.itemConfigs.ListByItem(dbc, it.ID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	t := &target{item: it, activity: act, configs: configMap(cfgs)}
	if !writable {
		t.eval, err = s.evaluations.GetActive(dbc, act.ID, userID)
		return t, aggregates.MapError(op, err)
	}
	t.eval, t.created, err = ensureActive(dbc, s.evaluations, act.ID, userID, access.CurrentUserID(dbc.Ctx))
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if t.eval.Finalised {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, msgEvaluationFinalised, nil)
	}
	return t, nil
}

func (s *responseService) emit(ctx context.Context, t *target, resp *types.Response) {
	by := access.CurrentUserID(ctx)
	if t.created {
		events.Emit(ctx, s.events, s.log, evaluationEvent(events.EvaluationCreated, t.activity, t.eval, by))
	}
	events.Emit(ctx, s.events, s.log, events.Event{
		Name:          events.ResponseSaved,
		CourseID:      t.activity.Course,
		ActivityID:    t.activity.ID,
		ObjectID:      resp.ID,
		UserID:        by,
		RelatedUserID: resp.UserID,
		Other: map[string]interface{}{
			"itemid":    resp.ItemID,
			"version":   resp.Version,
			"completed": resp.Completed,
		},
	})
}

// Save writes the learner's response to a non-file item under the active
// evaluation, creating version 1 first when needed.
func (s *responseService) Save(ctx context.Context, itemID, userID int64, value string) (*types.Response, error) {
	const op = "response.Save"
	if err := access.RequireEvaluate(ctx, op, userID); err != nil {
		return nil, err
	}
	var (
		t   *target
		out *types.Response
	)
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		var err error
		if t, err = s.resolve(dbc, op, itemID, userID, true); err != nil {
			return err
		}
		text, completed, msg := normaliseResponse(t.item.Type, t.configs, value)
		if msg != "" {
			return domainagg.Validation(op, map[string]string{"response": msg})
		}
		out, err = s.responses.Upsert(dbc, &types.Response{
			ItemID:       itemID,
			UserID:       userID,
			Response:     text,
			Completed:    completed,
			Version:      t.eval.Version,
			UserModified: access.CurrentUserID(ctx),
		})
		return aggregates.MapError(op, err)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, t, out)
	return out, nil
}

func (s *responseService) areaKey(t *target, userID int64) filestore.AreaKey {
	return filestore.AreaKey{ItemID: t.item.ID, Version: t.eval.Version, UserID: userID}
}

// syncFileResponse records the file count of the area as the response.
func (s *responseService) syncFileResponse(dbc dbctx.Context, t *target, userID int64) (*FileUploadResult, error) {
	files, err := s.files.ListArea(dbc, s.areaKey(t, userID).Filter(t.activity.ID))
	if err != nil {
		return nil, err
	}
	resp, err := s.responses.Upsert(dbc, &types.Response{
		ItemID:       t.item.ID,
		UserID:       userID,
		Response:     strconv.Itoa(len(files)),
		Completed:    len(files) > 0,
		Version:      t.eval.Version,
		UserModified: access.CurrentUserID(dbc.Ctx),
	})
	if err != nil {
		return nil, err
	}
	return &FileUploadResult{Response: resp, Files: files}, nil
}

func (s *responseService) UploadFiles(ctx context.Context, itemID, userID int64, uploads []Upload) (*FileUploadResult, error) {
	const op = "response.UploadFiles"
	if err := access.RequireEvaluate(ctx, op, userID); err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, domainagg.Validation(op, map[string]string{"files": "Choose at least one file"})
	}
	var (
		t   *target
		out *FileUploadResult
	)
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		var err error
		if t, err = s.resolve(dbc, op, itemID, userID, true); err != nil {
			return err
		}
		if t.item.Type != training.ItemTypeFileUpload {
			return domainagg.Validation(op, map[string]string{"files": "This item does not accept files"})
		}
		key := s.areaKey(t, userID)
		existing, err := s.files.ListArea(dbc, key.Filter(t.activity.ID))
		if err != nil {
			return aggregates.MapError(op, err)
		}
		if max := configInt(t.configs, cfgMaxFiles); max > 0 && len(existing)+len(uploads) > max {
			return domainagg.Validation(op, map[string]string{"files": "You can upload at most " + strconv.Itoa(max) + " files"})
		}
		taken := map[string]bool{}
		for _, f := range existing {
			taken[f.FileName] = true
		}
		for _, u := range uploads {
			name := path.Base(strings.ReplaceAll(strings.TrimSpace(u.Name), "\\", "/"))
			if !fileTypeAccepted(t.configs, name) {
				return domainagg.Validation(op, map[string]string{"files": name + " is not an accepted file type"})
			}
			if taken[name] {
				return domainagg.Validation(op, map[string]string{"files": "A file named " + name + " already exists"})
			}
			taken[name] = true
			uid := userID
			if _, err := s.files.Create(dbc, filestore.FileRecord{
				ContextID: t.activity.ID,
				Component: training.Component,
				FileArea:  key.Area(),
				ItemID:    userID,
				FileName:  name,
				MimeType:  u.MimeType,
				UserID:    &uid,
			}, u.Data); err != nil {
				return aggregates.MapError(op, err)
			}
		}
		out, err = s.syncFileResponse(dbc, t, userID)
		return aggregates.MapError(op, err)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Files uploaded", "item_id", itemID, "user_id", userID, "count", len(uploads))
	s.emit(ctx, t, out.Response)
	return out, nil
}

// ListFiles returns the files of the active evaluation. Empty when the user
// has no evaluation yet.
func (s *responseService) ListFiles(ctx context.Context, itemID, userID int64) ([]*types.StoredFile, error) {
	const op = "response.ListFiles"
	if err := access.RequireViewUser(ctx, op, userID); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	t, err := s.resolve(dbc, op, itemID, userID, false)
	if err != nil {
		return nil, err
	}
	if t.eval == nil {
		return []*types.StoredFile{}, nil
	}
	files, err := s.files.ListArea(dbc, s.areaKey(t, userID).Filter(t.activity.ID))
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return files, nil
}

// fileOf loads fileID and checks it sits in the area of (item, user).
func (s *responseService) fileOf(dbc dbctx.Context, op string, t *target, userID, fileID int64) (*types.StoredFile, error) {
	f, err := s.files.Get(dbc, fileID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if f == nil || t.eval == nil {
		return nil, domainagg.NotFound(op, "file")
	}
	want := s.areaKey(t, userID).Filter(t.activity.ID)
	if f.ContextID != want.ContextID || f.Component != want.Component || f.FileArea != want.FileArea || f.ItemID != *want.ItemID {
		return nil, domainagg.NotFound(op, "file")
	}
	return f, nil
}

func (s *responseService) DeleteFile(ctx context.Context, itemID, userID, fileID int64) (*FileUploadResult, error) {
	const op = "response.DeleteFile"
	if err := access.RequireEvaluate(ctx, op, userID); err != nil {
		return nil, err
	}
	var (
		t   *target
		out *FileUploadResult
	)
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		var err error
		if t, err = s.resolve(dbc, op, itemID, userID, true); err != nil {
			return err
		}
		f, err := s.fileOf(dbc, op, t, userID, fileID)
		if err != nil {
			return err
		}
		if err := s.files.Delete(dbc, []*types.StoredFile{f}); err != nil {
			return aggregates.MapError(op, err)
		}
		out, err = s.syncFileResponse(dbc, t, userID)
		return aggregates.MapError(op, err)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, t, out.Response)
	return out, nil
}

func (s *responseService) OpenFile(ctx context.Context, itemID, userID, fileID int64) (*types.StoredFile, io.ReadCloser, error) {
	const op = "response.OpenFile"
	if err := access.RequireViewUser(ctx, op, userID); err != nil {
		return nil, nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	t, err := s.resolve(dbc, op, itemID, userID, false)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.fileOf(dbc, op, t, userID, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, f)
	if err != nil {
		return nil, nil, domainagg.Wrap(domainagg.CodeNotFound, op, err)
	}
	return f, rc, nil
}
