package backup

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/aggregates"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/events"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
)

// Item names of the restore id-mapping table.
const (
	mapUser       = "user"
	mapActivity   = "trainingevaluation"
	mapSection    = "trainingevaluation_section"
	mapItem       = "trainingevaluation_section_item"
	mapResponse   = "trainingevaluation_response"
	mapEvaluation = "trainingevaluation_evaluation"
	mapFile       = "file"
)

type restoreState struct {
	dbc       dbctx.Context
	restoreID string
	courseID  int64
	by        int64
	userInfo  bool
	archive   *Archive

	activity *types.Activity
	users    map[int64]int64
	unknown  map[int64]bool

	// fileItems holds the old ids of every fileupload item in the archive,
	// restored or not. fileVersions lists, per old item id, the versions of
	// the responses restored for it.
	fileItems    []int64
	fileVersions map[int64][]int

	summary Summary
}

func (st *restoreState) addFileVersion(oldItemID int64, version int) {
	for _, v := range st.fileVersions[oldItemID] {
		if v == version {
			return
		}
	}
	st.fileVersions[oldItemID] = append(st.fileVersions[oldItemID], version)
}

func withoutRestoreUserInfo(st *restoreState) bool { return !st.userInfo }

func (s *service) restoreStages() []stage[*restoreState] {
	return []stage[*restoreState]{
		{Name: "precheck", Run: s.precheck},
		{Name: "restore_users", Run: s.restoreUsers},
		{Name: "restore_activity", Run: s.restoreActivity},
		{Name: "restore_sections", Run: s.restoreSections},
		{Name: "restore_items", Run: s.restoreItems},
		{Name: "restore_responses", Skip: withoutRestoreUserInfo, Run: s.restoreResponses},
		{Name: "restore_evaluations", Skip: withoutRestoreUserInfo, Run: s.restoreEvaluations},
		{Name: "remap_parent_sections", Run: s.remapParentSections},
		{Name: "restore_intro_files", Run: s.restoreIntroFiles},
		{Name: "restore_fileupload_files", Skip: withoutRestoreUserInfo, Run: s.restoreFileUploadFiles},
		{Name: "cleanup", Run: s.cleanupMappings},
	}
}

func (s *service) Restore(ctx context.Context, courseID int64, archive *Archive, opts RestoreOptions) (*RestoreResult, error) {
	const op = "backup.Restore"
	if err := access.Require(ctx, op, access.CapRestore); err != nil {
		return nil, err
	}
	if courseID <= 0 {
		return nil, domainagg.Validation(op, map[string]string{"course": "Course is required"})
	}
	if archive == nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "Backup archive is required", ErrInvalidArchive)
	}
	st := &restoreState{
		restoreID:    uuid.New().String(),
		courseID:     courseID,
		by:           access.CurrentUserID(ctx),
		userInfo:     opts.UserInfo && archive.Manifest.Settings.UserInfo,
		archive:      archive,
		users:        map[int64]int64{},
		unknown:      map[int64]bool{},
		fileVersions: map[int64][]int{},
	}
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		st.dbc = dbc
		return runStages(ctx, s.log, "restore", s.restoreStages(), st)
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}

	s.log.Info("restore finished",
		"restore_id", st.restoreID,
		"backup_id", archive.Manifest.BackupID,
		"course_id", courseID,
		"activity_id", st.activity.ID,
		"userinfo", st.userInfo,
		"skipped_rows", st.summary.SkippedRows,
		"skipped_file_items", st.summary.SkippedFileItems,
	)
	events.Emit(ctx, s.events, s.log, events.Event{
		Name:       events.RestoreCompleted,
		CourseID:   courseID,
		ActivityID: st.activity.ID,
		ObjectID:   st.activity.ID,
		UserID:     st.by,
		Other: map[string]interface{}{
			"restoreid": st.restoreID,
			"backupid":  archive.Manifest.BackupID,
			"userinfo":  st.userInfo,
		},
	})
	return &RestoreResult{RestoreID: st.restoreID, Activity: st.activity, Summary: st.summary}, nil
}

func (s *service) precheck(_ context.Context, st *restoreState) error {
	const op = "backup.Restore"
	m := st.archive.Manifest
	if m.FormatVersion <= 0 || m.FormatVersion > FormatVersion {
		return domainagg.NewError(domainagg.CodeValidation, op,
			fmt.Sprintf("Unsupported backup format version %d", m.FormatVersion), ErrInvalidArchive)
	}
	if m.Module != training.ModuleName || st.archive.Activity.ModuleName != training.ModuleName {
		return domainagg.NewError(domainagg.CodeValidation, op,
			fmt.Sprintf("Backup is not a %s activity", training.ModuleName), ErrInvalidArchive)
	}
	return nil
}

func (s *service) setMapping(st *restoreState, itemName string, oldID, newID int64, parent *int64) error {
	return s.repos.IDMappings.Set(st.dbc, &types.RestoreIDMapping{
		RestoreID: st.restoreID,
		ItemName:  itemName,
		OldID:     oldID,
		NewID:     newID,
		ParentID:  parent,
	})
}

func (s *service) newID(st *restoreState, itemName string, oldID int64) (int64, bool, error) {
	return s.repos.IDMappings.GetNewID(st.dbc, st.restoreID, itemName, oldID)
}

// mapUser resolves an archived user id, caching misses.
func (s *service) mapUser(ctx context.Context, st *restoreState, oldID int64) (int64, bool, error) {
	if oldID <= 0 || st.unknown[oldID] {
		return 0, false, nil
	}
	if id, ok := st.users[oldID]; ok {
		return id, true, nil
	}
	id, ok, err := s.users.ResolveUser(ctx, oldID)
	if err != nil {
		return 0, false, fmt.Errorf("resolve user %d: %w", oldID, err)
	}
	if !ok {
		st.unknown[oldID] = true
		s.log.Warn("restore user unresolved", "restore_id", st.restoreID, "old_userid", oldID)
		return 0, false, nil
	}
	st.users[oldID] = id
	if err := s.setMapping(st, mapUser, oldID, id, nil); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// authorOf falls back to the restoring user for audit columns.
func (s *service) authorOf(ctx context.Context, st *restoreState, oldID int64) (int64, error) {
	id, ok, err := s.mapUser(ctx, st, oldID)
	if err != nil || ok {
		return id, err
	}
	return st.by, nil
}

func (s *service) restoreUsers(ctx context.Context, st *restoreState) error {
	for _, u := range st.archive.InfoRef.Users {
		if _, _, err := s.mapUser(ctx, st, u.ID); err != nil {
			return err
		}
	}
	st.summary.Users = len(st.users)
	return nil
}

func (s *service) restoreActivity(_ context.Context, st *restoreState) error {
	el := st.archive.Activity.Activity
	a, err := s.repos.Activities.Create(st.dbc, &types.Activity{
		Course:               st.courseID,
		Name:                 el.Name,
		Intro:                el.Intro,
		IntroFormat:          el.IntroFormat,
		ShowLastModified:     el.ShowLastModified,
		CompletionOnRequired: el.CompletionOnRequired,
		Visible:              true,
	})
	if err != nil {
		return err
	}
	st.activity = a
	return s.setMapping(st, mapActivity, st.archive.Activity.ID, a.ID, nil)
}

// restoreSections inserts sections with their archived parent ids. The
// parents are rewritten by remapParentSections once every section exists.
func (s *service) restoreSections(ctx context.Context, st *restoreState) error {
	for _, el := range st.archive.Activity.Activity.Sections {
		by, err := s.authorOf(ctx, st, el.UserModified)
		if err != nil {
			return err
		}
		row := &types.Section{
			WTID:          st.activity.ID,
			Name:          el.Name,
			ParentSection: el.ParentSection,
			Position:      el.Position,
			UserModified:  by,
			TimeCreated:   fromUnix(el.TimeCreated),
			TimeModified:  fromUnix(el.TimeModified),
		}
		if _, err := s.repos.Sections.Create(st.dbc, []*types.Section{row}); err != nil {
			return err
		}
		if err := s.setMapping(st, mapSection, el.ID, row.ID, el.ParentSection); err != nil {
			return err
		}
		st.summary.Sections++
	}
	return nil
}

func (s *service) restoreItems(ctx context.Context, st *restoreState) error {
	for _, sec := range st.archive.Activity.Activity.Sections {
		sectionID, ok, err := s.newID(st, mapSection, sec.ID)
		if err != nil {
			return err
		}
		for _, el := range sec.Items {
			if el.Type == string(training.ItemTypeFileUpload) {
				st.fileItems = append(st.fileItems, el.ID)
			}
			if !ok || !validItemType(el.Type) || strings.TrimSpace(el.Name) == "" {
				s.log.Warn("restore item skipped",
					"restore_id", st.restoreID,
					"old_itemid", el.ID,
					"type", el.Type,
				)
				st.summary.SkippedRows++
				continue
			}
			by, err := s.authorOf(ctx, st, el.UserModified)
			if err != nil {
				return err
			}
			row := &types.SectionItem{
				SectionID:    sectionID,
				Name:         el.Name,
				Description:  el.Description,
				Type:         training.ItemType(el.Type),
				Position:     el.Position,
				IsRequired:   el.IsRequired,
				UserModified: by,
				TimeCreated:  fromUnix(el.TimeCreated),
				TimeModified: fromUnix(el.TimeModified),
			}
			if _, err := s.repos.Items.Create(st.dbc, []*types.SectionItem{row}); err != nil {
				return err
			}
			oldSection := sec.ID
			if err := s.setMapping(st, mapItem, el.ID, row.ID, &oldSection); err != nil {
				return err
			}
			st.summary.Items++

			if len(el.Configs) == 0 {
				continue
			}
			configs := make([]*types.ItemConfig, 0, len(el.Configs))
			for _, c := range el.Configs {
				configs = append(configs, &types.ItemConfig{ItemID: row.ID, Name: c.Name, Value: c.Value})
			}
			if _, err := s.repos.ItemConfigs.Create(st.dbc, configs); err != nil {
				return err
			}
			st.summary.Configs += len(configs)
		}
	}
	return nil
}

func (s *service) restoreResponses(ctx context.Context, st *restoreState) error {
	for _, sec := range st.archive.Activity.Activity.Sections {
		for _, it := range sec.Items {
			itemID, ok, err := s.newID(st, mapItem, it.ID)
			if err != nil {
				return err
			}
			if !ok {
				st.summary.SkippedRows += len(it.Responses)
				continue
			}
			for _, el := range it.Responses {
				userID, found, err := s.mapUser(ctx, st, el.UserID)
				if err != nil {
					return err
				}
				if !found {
					s.log.Warn("restore response skipped", "restore_id", st.restoreID, "old_id", el.ID, "old_userid", el.UserID)
					st.summary.SkippedRows++
					continue
				}
				by, err := s.authorOf(ctx, st, el.UserModified)
				if err != nil {
					return err
				}
				row := &types.Response{
					ItemID:       itemID,
					UserID:       userID,
					Response:     el.Response,
					Completed:    el.Completed,
					Version:      el.Version,
					UserModified: by,
					TimeCreated:  fromUnix(el.TimeCreated),
					TimeModified: fromUnix(el.TimeModified),
				}
				if _, err := s.repos.Responses.Create(st.dbc, []*types.Response{row}); err != nil {
					return err
				}
				if err := s.setMapping(st, mapResponse, el.ID, row.ID, nil); err != nil {
					return err
				}
				if it.Type == string(training.ItemTypeFileUpload) {
					st.addFileVersion(it.ID, el.Version)
				}
				st.summary.Responses++
			}
		}
	}
	return nil
}

func (s *service) restoreEvaluations(ctx context.Context, st *restoreState) error {
	for _, el := range st.archive.Activity.Activity.Evaluations {
		userID, ok, err := s.mapUser(ctx, st, el.UserID)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Warn("restore evaluation skipped", "restore_id", st.restoreID, "old_id", el.ID, "old_userid", el.UserID)
			st.summary.SkippedRows++
			continue
		}
		by, err := s.authorOf(ctx, st, el.UserModified)
		if err != nil {
			return err
		}
		row := &types.Evaluation{
			WTID:         st.activity.ID,
			UserID:       userID,
			Finalised:    el.Finalised,
			Version:      el.Version,
			Active:       el.Active,
			UserModified: by,
			TimeCreated:  fromUnix(el.TimeCreated),
			TimeModified: fromUnix(el.TimeModified),
		}
		if el.FinalisedBy != nil {
			if fb, found, err := s.mapUser(ctx, st, *el.FinalisedBy); err != nil {
				return err
			} else if found {
				row.FinalisedBy = &fb
			}
		}
		if el.TimeFinalised != nil {
			t := fromUnix(*el.TimeFinalised)
			row.TimeFinalised = &t
		}
		if _, err := s.repos.Evaluations.Create(st.dbc, []*types.Evaluation{row}); err != nil {
			return err
		}
		if err := s.setMapping(st, mapEvaluation, el.ID, row.ID, nil); err != nil {
			return err
		}
		st.summary.Evaluations++
	}
	return nil
}

// remapParentSections rewrites the archived parent ids stored by
// restoreSections to the ids of the restored parents.
func (s *service) remapParentSections(_ context.Context, st *restoreState) error {
	rows, err := s.repos.IDMappings.List(st.dbc, st.restoreID, mapSection)
	if err != nil {
		return err
	}
	for _, m := range rows {
		if m.ParentID == nil {
			continue
		}
		parent, ok, err := s.newID(st, mapSection, *m.ParentID)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Warn("restore section parent unresolved",
				"restore_id", st.restoreID,
				"sectionid", m.NewID,
				"old_parent", *m.ParentID,
			)
			if err := s.repos.Sections.SetParent(st.dbc, m.NewID, nil); err != nil {
				return err
			}
			continue
		}
		if err := s.repos.Sections.SetParent(st.dbc, m.NewID, &parent); err != nil {
			return err
		}
	}
	return nil
}

func blobOf(a *Archive, el FileElem) ([]byte, error) {
	data, ok := a.Blobs[el.ContentHash]
	if !ok {
		return nil, fmt.Errorf("%w: blob %s for %s missing", ErrInvalidArchive, el.ContentHash, el.FileName)
	}
	return data, nil
}

func (s *service) restoreIntroFiles(ctx context.Context, st *restoreState) error {
	for _, el := range st.archive.Files.Files {
		if el.Component != training.Component || el.FileArea != filestore.IntroArea {
			continue
		}
		data, err := blobOf(st.archive, el)
		if err != nil {
			return err
		}
		author, err := s.fileAuthor(ctx, st, el.UserID)
		if err != nil {
			return err
		}
		row, err := s.files.Create(st.dbc, filestore.FileRecord{
			ContextID: st.activity.ID,
			Component: training.Component,
			FileArea:  filestore.IntroArea,
			ItemID:    0,
			FilePath:  el.FilePath,
			FileName:  el.FileName,
			MimeType:  el.MimeType,
			UserID:    author,
		}, data)
		if err != nil {
			return err
		}
		if err := s.setMapping(st, mapFile, el.ID, row.ID, nil); err != nil {
			return err
		}
		st.summary.Files++
	}
	return nil
}

func (s *service) fileAuthor(ctx context.Context, st *restoreState, old *int64) (*int64, error) {
	if old == nil {
		return nil, nil
	}
	id, err := s.authorOf(ctx, st, *old)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *service) cleanupMappings(_ context.Context, st *restoreState) error {
	return s.repos.IDMappings.DeleteByRestoreID(st.dbc, st.restoreID)
}
