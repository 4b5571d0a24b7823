package backup

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
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

// Summary counts what a backup wrote or a restore inserted.
type Summary struct {
	Sections         int `json:"sections"`
	Items            int `json:"items"`
	Configs          int `json:"configs"`
	Responses        int `json:"responses"`
	Evaluations      int `json:"evaluations"`
	Files            int `json:"files"`
	Users            int `json:"users"`
	SkippedRows      int `json:"skipped_rows,omitempty"`
	SkippedFileItems int `json:"skipped_file_items,omitempty"`
}

type Result struct {
	Archive *Archive
	Summary Summary
}

type RestoreOptions struct {
	// UserInfo restores responses, evaluations and uploaded files. It has no
	// effect when the archive was written without them.
	UserInfo bool
}

type RestoreResult struct {
	RestoreID string          `json:"restoreid"`
	Activity  *types.Activity `json:"activity"`
	Summary   Summary         `json:"summary"`
}

type Service interface {
	Backup(ctx context.Context, activityID int64, settings Settings) (*Result, error)
	Restore(ctx context.Context, courseID int64, archive *Archive, opts RestoreOptions) (*RestoreResult, error)
}

type service struct {
	log    *logger.Logger
	tx     aggregates.TxRunner
	repos  *repos.Set
	files  filestore.Store
	events events.Publisher
	users  UserResolver
}

func NewService(db *gorm.DB, baseLog *logger.Logger, set *repos.Set, files filestore.Store, pub events.Publisher, users UserResolver) Service {
	if users == nil {
		users = IdentityResolver{}
	}
	return &service{
		log:    baseLog.With("service", "BackupService"),
		tx:     aggregates.NewGormTxRunner(db),
		repos:  set,
		files:  files,
		events: pub,
		users:  users,
	}
}

type backupState struct {
	dbc      dbctx.Context
	settings Settings

	activity    *types.Activity
	sections    []*types.Section
	items       map[int64][]*types.SectionItem
	configs     map[int64][]*types.ItemConfig
	responses   map[int64][]*types.Response
	evaluations []*types.Evaluation

	users   map[int64]bool
	files   []*types.StoredFile
	fileIDs map[int64]bool

	archive *Archive
	summary Summary
}

func (st *backupState) annotateUser(id int64) {
	if id > 0 {
		st.users[id] = true
	}
}

func (st *backupState) annotateFiles(rows []*types.StoredFile) {
	for _, f := range rows {
		if f == nil || st.fileIDs[f.ID] {
			continue
		}
		st.fileIDs[f.ID] = true
		st.files = append(st.files, f)
	}
}

func withoutUserInfo(st *backupState) bool { return !st.settings.UserInfo }

func (s *service) backupStages() []stage[*backupState] {
	return []stage[*backupState]{
		{Name: "load_structure", Run: s.loadStructure},
		{Name: "load_userinfo", Skip: withoutUserInfo, Run: s.loadUserInfo},
		{Name: "annotate_users", Run: s.annotateUsers},
		{Name: "annotate_intro_files", Run: s.annotateIntroFiles},
		{Name: "annotate_fileupload_files", Skip: withoutUserInfo, Run: s.annotateFileUploadFiles},
		{Name: "build_archive", Run: s.buildArchive},
	}
}

func (s *service) Backup(ctx context.Context, activityID int64, settings Settings) (*Result, error) {
	const op = "backup.Backup"
	if err := access.Require(ctx, op, access.CapBackup); err != nil {
		return nil, err
	}
	st := &backupState{
		settings:  settings,
		items:     map[int64][]*types.SectionItem{},
		configs:   map[int64][]*types.ItemConfig{},
		responses: map[int64][]*types.Response{},
		users:     map[int64]bool{},
		fileIDs:   map[int64]bool{},
	}
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		a, err := s.repos.Activities.GetByID(dbc, activityID)
		if err != nil {
			return err
		}
		if a == nil {
			return domainagg.NotFound(op, "activity")
		}
		st.dbc = dbc
		st.activity = a
		return runStages(ctx, s.log, "backup", s.backupStages(), st)
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}

	s.log.Info("backup written",
		"activity_id", activityID,
		"backup_id", st.archive.Manifest.BackupID,
		"userinfo", settings.UserInfo,
		"sections", st.summary.Sections,
		"items", st.summary.Items,
		"files", st.summary.Files,
	)
	events.Emit(ctx, s.events, s.log, events.Event{
		Name:       events.BackupCompleted,
		CourseID:   st.activity.Course,
		ActivityID: st.activity.ID,
		ObjectID:   st.activity.ID,
		UserID:     access.CurrentUserID(ctx),
		Other: map[string]interface{}{
			"backupid": st.archive.Manifest.BackupID,
			"userinfo": settings.UserInfo,
		},
	})
	return &Result{Archive: st.archive, Summary: st.summary}, nil
}

func (s *service) loadStructure(_ context.Context, st *backupState) error {
	sections, err := s.repos.Sections.ListByActivity(st.dbc, st.activity.ID)
	if err != nil {
		return err
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Position < sections[j].Position })
	st.sections = sections

	ids := make([]int64, 0, len(sections))
	for _, sec := range sections {
		ids = append(ids, sec.ID)
	}
	items, err := s.repos.Items.ListBySectionIDs(st.dbc, ids)
	if err != nil {
		return err
	}
	itemIDs := make([]int64, 0, len(items))
	for _, it := range items {
		st.items[it.SectionID] = append(st.items[it.SectionID], it)
		itemIDs = append(itemIDs, it.ID)
	}
	configs, err := s.repos.ItemConfigs.ListByItemIDs(st.dbc, itemIDs)
	if err != nil {
		return err
	}
	for _, c := range configs {
		st.configs[c.ItemID] = append(st.configs[c.ItemID], c)
	}
	return nil
}

func (s *service) loadUserInfo(_ context.Context, st *backupState) error {
	var itemIDs []int64
	for _, sec := range st.sections {
		for _, it := range st.items[sec.ID] {
			itemIDs = append(itemIDs, it.ID)
		}
	}
	responses, err := s.repos.Responses.ListByItemIDs(st.dbc, itemIDs)
	if err != nil {
		return err
	}
	for _, r := range responses {
		st.responses[r.ItemID] = append(st.responses[r.ItemID], r)
	}
	st.evaluations, err = s.repos.Evaluations.ListByActivity(st.dbc, st.activity.ID)
	return err
}

func (s *service) annotateUsers(_ context.Context, st *backupState) error {
	for _, sec := range st.sections {
		st.annotateUser(sec.UserModified)
		for _, it := range st.items[sec.ID] {
			st.annotateUser(it.UserModified)
			for _, r := range st.responses[it.ID] {
				st.annotateUser(r.UserID)
				st.annotateUser(r.UserModified)
			}
		}
	}
	for _, e := range st.evaluations {
		st.annotateUser(e.UserID)
		st.annotateUser(e.UserModified)
		if e.FinalisedBy != nil {
			st.annotateUser(*e.FinalisedBy)
		}
	}
	return nil
}

func (s *service) annotateIntroFiles(_ context.Context, st *backupState) error {
	rows, err := s.files.ListArea(st.dbc, filestore.IntroFilter(st.activity.ID))
	if err != nil {
		return err
	}
	st.annotateFiles(rows)
	return nil
}

// annotateFileUploadFiles adds, per fileupload item and response, the
// area of that item and version sub-keyed by the responding user.
func (s *service) annotateFileUploadFiles(_ context.Context, st *backupState) error {
	for _, sec := range st.sections {
		for _, it := range st.items[sec.ID] {
			if it.Type != training.ItemTypeFileUpload {
				continue
			}
			for _, r := range st.responses[it.ID] {
				key := filestore.AreaKey{ItemID: it.ID, Version: r.Version, UserID: r.UserID}
				rows, err := s.files.ListArea(st.dbc, key.Filter(st.activity.ID))
				if err != nil {
					return err
				}
				st.annotateFiles(rows)
			}
		}
	}
	return nil
}

func (s *service) buildArchive(ctx context.Context, st *backupState) error {
	a := st.activity
	elem := ActivityElem{
		ID:                   a.ID,
		Name:                 a.Name,
		Intro:                a.Intro,
		IntroFormat:          a.IntroFormat,
		ShowLastModified:     a.ShowLastModified,
		CompletionOnRequired: a.CompletionOnRequired,
		TimeModified:         unix(a.TimeModified),
	}
	for _, sec := range st.sections {
		se := sectionElem(sec)
		for _, it := range st.items[sec.ID] {
			ie := itemElem(it)
			for _, c := range st.configs[it.ID] {
				ie.Configs = append(ie.Configs, ConfigElem{ID: c.ID, Name: c.Name, Value: c.Value})
				st.summary.Configs++
			}
			for _, r := range st.responses[it.ID] {
				ie.Responses = append(ie.Responses, responseElem(r))
				st.summary.Responses++
			}
			se.Items = append(se.Items, ie)
			st.summary.Items++
		}
		elem.Sections = append(elem.Sections, se)
		st.summary.Sections++
	}
	for _, e := range st.evaluations {
		elem.Evaluations = append(elem.Evaluations, evaluationElem(e))
		st.summary.Evaluations++
	}

	out := &Archive{
		Manifest: Manifest{
			BackupID:      uuid.New().String(),
			FormatVersion: FormatVersion,
			Module:        training.ModuleName,
			Created:       time.Now().UTC().Unix(),
			Settings:      st.settings,
			ActivityID:    a.ID,
			CourseID:      a.Course,
			ContextID:     a.ID,
		},
		Activity: ActivityDoc{
			ID:         a.ID,
			ModuleName: training.ModuleName,
			ContextID:  a.ID,
			Activity:   elem,
		},
		Blobs: map[string][]byte{},
	}

	userIDs := make([]int64, 0, len(st.users))
	for id := range st.users {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })
	for _, id := range userIDs {
		out.InfoRef.Users = append(out.InfoRef.Users, UserRef{ID: id})
	}
	st.summary.Users = len(userIDs)

	for _, f := range st.files {
		if _, ok := out.Blobs[f.ContentHash]; !ok {
			data, err := s.files.ReadAll(ctx, f)
			if err != nil {
				return err
			}
			out.Blobs[f.ContentHash] = data
		}
		out.Files.Files = append(out.Files.Files, fileElem(f))
		st.summary.Files++
	}
	st.archive = out
	return nil
}
