package services

import (
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
)

// cascade deletes children before parents: files, responses, configs, items,
// then sections. Callers run it inside a transaction.
type cascade struct {
	sections    repos.SectionRepo
	items       repos.SectionItemRepo
	itemConfigs repos.ItemConfigRepo
	responses   repos.ResponseRepo
	files       filestore.Store
}

func (c cascade) deleteItems(dbc dbctx.Context, wtid int64, items []*types.SectionItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(items))
	uploads := map[int64]bool{}
	for _, it := range items {
		ids = append(ids, it.ID)
		if it.Type == training.ItemTypeFileUpload {
			uploads[it.ID] = true
		}
	}
	if len(uploads) > 0 && c.files != nil {
		all, err := c.files.ListByContext(dbc, wtid, training.Component)
		if err != nil {
			return err
		}
		doomed := []*types.StoredFile{}
		for _, f := range all {
			if itemID, _, ok := filestore.ParseFileUploadArea(f.FileArea); ok && uploads[itemID] {
				doomed = append(doomed, f)
			}
		}
		if err := c.files.Delete(dbc, doomed); err != nil {
			return err
		}
	}
	if err := c.responses.DeleteByItemIDs(dbc, ids); err != nil {
		return err
	}
	if err := c.itemConfigs.DeleteByItemIDs(dbc, ids); err != nil {
		return err
	}
	return c.items.DeleteByIDs(dbc, ids)
}

// deleteSections removes the given sections with their whole subtrees.
func (c cascade) deleteSections(dbc dbctx.Context, wtid int64, rootIDs []int64) error {
	all, err := c.sections.ListByActivity(dbc, wtid)
	if err != nil {
		return err
	}
	seen := map[int64]bool{}
	ids := []int64{}
	for _, root := range rootIDs {
		for _, id := range subtreeIDs(all, root) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	items, err := c.items.ListBySectionIDs(dbc, ids)
	if err != nil {
		return err
	}
	if err := c.deleteItems(dbc, wtid, items); err != nil {
		return err
	}
	return c.sections.DeleteByIDs(dbc, ids)
}
