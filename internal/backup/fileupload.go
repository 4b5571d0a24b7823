package backup

import (
	"context"
	"sort"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
)

// pendingMove is a file restored under its archived area that has to move
// to the area of the renumbered item.
type pendingMove struct {
	file    *types.StoredFile
	newItem int64
	version int
}

// restoreFileUploadFiles brings back uploaded files. Each area embeds the
// item id, so files are first restored under the archived key and, when
// the item was renumbered, copied into the new area. Old-keyed copies are
// removed before any copy is made so a new key can never meet a stale one.
func (s *service) restoreFileUploadFiles(ctx context.Context, st *restoreState) error {
	byArea := map[string][]FileElem{}
	for _, el := range st.archive.Files.Files {
		if el.Component == training.Component {
			byArea[el.FileArea] = append(byArea[el.FileArea], el)
		}
	}

	var moves []pendingMove
	for _, oldItem := range st.fileItems {
		newItem, ok, err := s.newID(st, mapItem, oldItem)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Warn("fileupload item not restored, files skipped",
				"restore_id", st.restoreID,
				"old_itemid", oldItem,
			)
			st.summary.SkippedFileItems++
			continue
		}
		versions := append([]int(nil), st.fileVersions[oldItem]...)
		sort.Ints(versions)
		for _, v := range versions {
			restored, err := s.restoreArea(ctx, st, filestore.FileUploadArea(oldItem, v), byArea)
			if err != nil {
				return err
			}
			if newItem == oldItem {
				st.summary.Files += len(restored)
				continue
			}
			for _, f := range restored {
				moves = append(moves, pendingMove{file: f, newItem: newItem, version: v})
			}
		}
	}
	if len(moves) == 0 {
		return nil
	}

	stale := make([]*types.StoredFile, 0, len(moves))
	for _, m := range moves {
		stale = append(stale, m.file)
	}
	if err := s.files.Delete(st.dbc, stale); err != nil {
		return err
	}
	for _, m := range moves {
		if _, err := s.files.CopyToArea(st.dbc, m.file, filestore.FileRecord{
			ContextID: st.activity.ID,
			FileArea:  filestore.FileUploadArea(m.newItem, m.version),
			ItemID:    m.file.ItemID,
		}); err != nil {
			return err
		}
		st.summary.Files++
	}
	s.log.Debug("fileupload files relocated", "restore_id", st.restoreID, "files", len(moves))
	return nil
}

// restoreArea restores the archived files of one area into the new
// activity. The stored-file item id is the learner and is mapped like any
// other user reference.
func (s *service) restoreArea(ctx context.Context, st *restoreState, area string, byArea map[string][]FileElem) ([]*types.StoredFile, error) {
	var out []*types.StoredFile
	for _, el := range byArea[area] {
		learner, ok, err := s.mapUser(ctx, st, el.ItemID)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.log.Warn("restore file skipped", "restore_id", st.restoreID, "filearea", area, "old_userid", el.ItemID)
			st.summary.SkippedRows++
			continue
		}
		data, err := blobOf(st.archive, el)
		if err != nil {
			return nil, err
		}
		author, err := s.fileAuthor(ctx, st, el.UserID)
		if err != nil {
			return nil, err
		}
		row, err := s.files.Create(st.dbc, filestore.FileRecord{
			ContextID: st.activity.ID,
			Component: training.Component,
			FileArea:  area,
			ItemID:    learner,
			FilePath:  el.FilePath,
			FileName:  el.FileName,
			MimeType:  el.MimeType,
			UserID:    author,
		}, data)
		if err != nil {
			return nil, err
		}
		if err := s.setMapping(st, mapFile, el.ID, row.ID, nil); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
