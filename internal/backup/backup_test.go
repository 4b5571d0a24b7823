package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos/testutil"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/events"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
)

type fixture struct {
	db     *gorm.DB
	set    *repos.Set
	files  filestore.Store
	events *events.Recorder
	svc    Service
}

func newFixture(t *testing.T, users UserResolver) *fixture {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	set := repos.NewSet(db, log)
	pool, err := filestore.NewDiskPool(t.TempDir(), log)
	require.NoError(t, err)
	store := filestore.NewStore(set.Files, pool, log)
	rec := &events.Recorder{}
	return &fixture{
		db:     db,
		set:    set,
		files:  store,
		events: rec,
		svc:    NewService(db, log, set, store, rec, users),
	}
}

func managerCtx() context.Context {
	return access.WithRoles(context.Background(), access.DefaultRoleTable(), 2, "manager")
}

func bg() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }

func (f *fixture) putFile(t *testing.T, activityID int64, area string, itemID int64, name, content string) *types.StoredFile {
	t.Helper()
	row, err := f.files.Create(bg(), filestore.FileRecord{
		ContextID: activityID,
		Component: training.Component,
		FileArea:  area,
		ItemID:    itemID,
		FileName:  name,
		UserID:    testutil.PtrInt64(itemID),
	}, []byte(content))
	require.NoError(t, err)
	return row
}

func (f *fixture) roundTrip(t *testing.T, activityID, courseID int64, userInfo bool) *RestoreResult {
	t.Helper()
	res, err := f.svc.Backup(managerCtx(), activityID, Settings{UserInfo: userInfo})
	require.NoError(t, err)
	out, err := f.svc.Restore(managerCtx(), courseID, res.Archive, RestoreOptions{UserInfo: userInfo})
	require.NoError(t, err)
	return out
}

func sectionsByName(t *testing.T, f *fixture, activityID int64) map[string]*types.Section {
	t.Helper()
	rows, err := f.set.Sections.ListByActivity(bg(), activityID)
	require.NoError(t, err)
	out := map[string]*types.Section{}
	for _, s := range rows {
		out[s.Name] = s
	}
	return out
}

func TestBackup_Basic(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := testutil.SeedActivity(t, ctx, f.db, 3, "Forklift induction")
	sec := testutil.SeedSection(t, ctx, f.db, a.ID, "Safety", nil, 0)
	testutil.SeedItem(t, ctx, f.db, sec.ID, "Licence number", training.ItemTypeTextInput, 0, true)

	res, err := f.svc.Backup(managerCtx(), a.ID, Settings{})
	require.NoError(t, err)

	m := res.Archive.Manifest
	assert.NotEmpty(t, m.BackupID)
	assert.Equal(t, FormatVersion, m.FormatVersion)
	assert.Equal(t, training.ModuleName, m.Module)
	assert.Equal(t, a.ID, m.ActivityID)
	assert.Equal(t, int64(3), m.CourseID)
	assert.False(t, m.Settings.UserInfo)

	el := res.Archive.Activity.Activity
	assert.Equal(t, "Forklift induction", el.Name)
	require.Len(t, el.Sections, 1)
	require.Len(t, el.Sections[0].Items, 1)
	assert.Equal(t, Summary{Sections: 1, Items: 1, Users: 1}, res.Summary)
	assert.Contains(t, f.events.Names(), events.BackupCompleted)

	out, err := f.svc.Restore(managerCtx(), 9, res.Archive, RestoreOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, out.Activity.ID)
	assert.Equal(t, int64(9), out.Activity.Course)
	assert.Equal(t, "Forklift induction", out.Activity.Name)
	assert.Equal(t, "Intro for Forklift induction", out.Activity.Intro)
	assert.Contains(t, f.events.Names(), events.RestoreCompleted)

	left, err := f.set.IDMappings.List(bg(), out.RestoreID, mapSection)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestRestore_SectionParentRemapped(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := testutil.SeedActivity(t, ctx, f.db, 3, "Hierarchy")
	secA := testutil.SeedSection(t, ctx, f.db, a.ID, "A", nil, 0)
	testutil.SeedSection(t, ctx, f.db, a.ID, "B", &secA.ID, 1)

	out := f.roundTrip(t, a.ID, 3, false)
	got := sectionsByName(t, f, out.Activity.ID)
	require.Len(t, got, 2)
	assert.NotEqual(t, secA.ID, got["A"].ID)
	assert.Nil(t, got["A"].ParentSection)
	require.NotNil(t, got["B"].ParentSection)
	assert.Equal(t, got["A"].ID, *got["B"].ParentSection)
}

func TestRestore_ComplexHierarchy(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := testutil.SeedActivity(t, ctx, f.db, 3, "Deep")
	root1 := testutil.SeedSection(t, ctx, f.db, a.ID, "Root 1", nil, 0)
	root2 := testutil.SeedSection(t, ctx, f.db, a.ID, "Root 2", nil, 1)
	child := testutil.SeedSection(t, ctx, f.db, a.ID, "Child", &root1.ID, 0)
	testutil.SeedSection(t, ctx, f.db, a.ID, "Grandchild", &child.ID, 0)
	testutil.SeedSection(t, ctx, f.db, a.ID, "Other child", &root2.ID, 0)

	out := f.roundTrip(t, a.ID, 3, false)
	got := sectionsByName(t, f, out.Activity.ID)
	require.Len(t, got, 5)
	parentName := func(name string) string {
		p := got[name].ParentSection
		if p == nil {
			return ""
		}
		for n, s := range got {
			if s.ID == *p {
				return n
			}
		}
		t.Fatalf("%s points at a section outside the restored activity", name)
		return ""
	}
	assert.Equal(t, "", parentName("Root 1"))
	assert.Equal(t, "", parentName("Root 2"))
	assert.Equal(t, "Root 1", parentName("Child"))
	assert.Equal(t, "Child", parentName("Grandchild"))
	assert.Equal(t, "Root 2", parentName("Other child"))
}

func TestRestore_ItemsOrderTypesAndConfigs(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := testutil.SeedActivity(t, ctx, f.db, 3, "Items")
	sec := testutil.SeedSection(t, ctx, f.db, a.ID, "Checks", nil, 0)
	testutil.SeedItem(t, ctx, f.db, sec.ID, "Date", training.ItemTypeDatePicker, 2, false)
	menu := testutil.SeedItem(t, ctx, f.db, sec.ID, "Shift", training.ItemTypeSelectMenu, 1, true)
	text := testutil.SeedItem(t, ctx, f.db, sec.ID, "Name", training.ItemTypeTextInput, 0, true)
	testutil.SeedConfig(t, ctx, f.db, menu.ID, "options", "early,late,night")
	testutil.SeedConfig(t, ctx, f.db, text.ID, "maxlength", "40")

	res, err := f.svc.Backup(managerCtx(), a.ID, Settings{})
	require.NoError(t, err)
	items := res.Archive.Activity.Activity.Sections[0].Items
	require.Len(t, items, 3)
	assert.Equal(t, []string{"Name", "Shift", "Date"}, []string{items[0].Name, items[1].Name, items[2].Name})

	out, err := f.svc.Restore(managerCtx(), 3, res.Archive, RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Summary.Items)
	assert.Equal(t, 2, out.Summary.Configs)

	got := sectionsByName(t, f, out.Activity.ID)
	restored, err := f.set.Items.ListBySection(bg(), got["Checks"].ID)
	require.NoError(t, err)
	require.Len(t, restored, 3)
	for i, want := range []struct {
		name string
		typ  training.ItemType
		req  bool
	}{
		{"Name", training.ItemTypeTextInput, true},
		{"Shift", training.ItemTypeSelectMenu, true},
		{"Date", training.ItemTypeDatePicker, false},
	} {
		assert.Equal(t, want.name, restored[i].Name)
		assert.Equal(t, want.typ, restored[i].Type)
		assert.Equal(t, want.req, restored[i].IsRequired)
		assert.NotEqual(t, menu.ID, restored[i].ID)
	}

	cfg, err := f.set.ItemConfigs.ListByItem(bg(), restored[1].ID)
	require.NoError(t, err)
	require.Len(t, cfg, 1)
	assert.Equal(t, "options", cfg[0].Name)
	assert.Equal(t, "early,late,night", cfg[0].Value)
}

func seedEvaluated(t *testing.T, f *fixture) (*types.Activity, *types.SectionItem) {
	t.Helper()
	ctx := context.Background()
	a := testutil.SeedActivity(t, ctx, f.db, 3, "Evaluated")
	sec := testutil.SeedSection(t, ctx, f.db, a.ID, "Main", nil, 0)
	it := testutil.SeedItem(t, ctx, f.db, sec.ID, "Observed", training.ItemTypeTextInput, 0, true)
	testutil.SeedEvaluation(t, ctx, f.db, a.ID, 11, 1, false)
	cur := testutil.SeedEvaluation(t, ctx, f.db, a.ID, 11, 2, true)
	require.NoError(t, f.db.Model(cur).Updates(map[string]interface{}{"finalised": true, "finalisedby": 21}).Error)
	testutil.SeedEvaluation(t, ctx, f.db, a.ID, 12, 1, true)
	testutil.SeedResponse(t, ctx, f.db, it.ID, 11, 1, "first try", true)
	testutil.SeedResponse(t, ctx, f.db, it.ID, 11, 2, "second try", true)
	testutil.SeedResponse(t, ctx, f.db, it.ID, 12, 1, "draft", false)
	return a, it
}

func TestRestore_WithUserInfo(t *testing.T) {
	f := newFixture(t, nil)
	a, _ := seedEvaluated(t, f)

	out := f.roundTrip(t, a.ID, 4, true)
	assert.Equal(t, 3, out.Summary.Responses)
	assert.Equal(t, 3, out.Summary.Evaluations)

	evals, err := f.set.Evaluations.ListByUser(bg(), out.Activity.ID, 11)
	require.NoError(t, err)
	require.Len(t, evals, 2)
	active, err := f.set.Evaluations.GetActive(bg(), out.Activity.ID, 11)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, 2, active.Version)
	assert.True(t, active.Finalised)
	require.NotNil(t, active.FinalisedBy)
	assert.Equal(t, int64(21), *active.FinalisedBy)

	rows, err := f.set.Responses.ListForUserVersion(bg(), out.Activity.ID, 11, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "second try", rows[0].Response)
}

func TestRestore_WithoutUserInfo(t *testing.T) {
	f := newFixture(t, nil)
	a, _ := seedEvaluated(t, f)

	res, err := f.svc.Backup(managerCtx(), a.ID, Settings{UserInfo: false})
	require.NoError(t, err)
	assert.Empty(t, res.Archive.Activity.Activity.Evaluations)
	assert.Empty(t, res.Archive.Activity.Activity.Sections[0].Items[0].Responses)

	// asking for user data from an archive without it restores none
	out, err := f.svc.Restore(managerCtx(), 4, res.Archive, RestoreOptions{UserInfo: true})
	require.NoError(t, err)
	assert.Zero(t, out.Summary.Responses)
	assert.Zero(t, out.Summary.Evaluations)

	evals, err := f.set.Evaluations.ListByActivity(bg(), out.Activity.ID)
	require.NoError(t, err)
	assert.Empty(t, evals)

	// an archive with user data restored without it
	res, err = f.svc.Backup(managerCtx(), a.ID, Settings{UserInfo: true})
	require.NoError(t, err)
	out, err = f.svc.Restore(managerCtx(), 4, res.Archive, RestoreOptions{UserInfo: false})
	require.NoError(t, err)
	assert.Zero(t, out.Summary.Responses)
	assert.Zero(t, out.Summary.Evaluations)
}

func TestRestore_FileUploadItemRenumbered(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := testutil.SeedActivity(t, ctx, f.db, 3, "Uploads")
	sec := testutil.SeedSection(t, ctx, f.db, a.ID, "Evidence", nil, 0)
	upload := &types.SectionItem{ID: 5, SectionID: sec.ID, Name: "Certificate", Type: training.ItemTypeFileUpload, UserModified: 2}
	require.NoError(t, f.db.Create(upload).Error)

	// pushes the next item id to 9
	other := testutil.SeedActivity(t, ctx, f.db, 3, "Other")
	otherSec := testutil.SeedSection(t, ctx, f.db, other.ID, "Filler", nil, 0)
	require.NoError(t, f.db.Create(&types.SectionItem{ID: 8, SectionID: otherSec.ID, Name: "Filler", Type: training.ItemTypeTextInput, UserModified: 2}).Error)

	testutil.SeedEvaluation(t, ctx, f.db, a.ID, 42, 1, true)
	testutil.SeedResponse(t, ctx, f.db, 5, 42, 1, "1", true)
	f.putFile(t, a.ID, "type_fileupload_5_1", 42, "forklift.pdf", "certificate bytes")

	out := f.roundTrip(t, a.ID, 3, true)
	assert.Equal(t, 1, out.Summary.Files)

	got := sectionsByName(t, f, out.Activity.ID)
	items, err := f.set.Items.ListBySection(bg(), got["Evidence"].ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(9), items[0].ID)

	moved, err := f.files.ListArea(bg(), filestore.AreaKey{ItemID: 9, Version: 1, UserID: 42}.Filter(out.Activity.ID))
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, "type_fileupload_9_1", moved[0].FileArea)
	assert.Equal(t, int64(42), moved[0].ItemID)
	assert.Equal(t, "forklift.pdf", moved[0].FileName)
	data, err := f.files.ReadAll(ctx, moved[0])
	require.NoError(t, err)
	assert.Equal(t, "certificate bytes", string(data))

	stale, err := f.files.ListArea(bg(), filestore.AreaKey{ItemID: 5, Version: 1, UserID: 42}.AllUsers(out.Activity.ID))
	require.NoError(t, err)
	assert.Empty(t, stale)

	orig, err := f.files.ListArea(bg(), filestore.AreaKey{ItemID: 5, Version: 1, UserID: 42}.Filter(a.ID))
	require.NoError(t, err)
	assert.Len(t, orig, 1, "source activity keeps its files")
}

func TestRestore_MultipleFileUploadItems(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := testutil.SeedActivity(t, ctx, f.db, 3, "Uploads")
	sec := testutil.SeedSection(t, ctx, f.db, a.ID, "Evidence", nil, 0)
	first := testutil.SeedItem(t, ctx, f.db, sec.ID, "First", training.ItemTypeFileUpload, 0, true)
	second := testutil.SeedItem(t, ctx, f.db, sec.ID, "Second", training.ItemTypeFileUpload, 1, false)

	testutil.SeedEvaluation(t, ctx, f.db, a.ID, 11, 1, false)
	testutil.SeedEvaluation(t, ctx, f.db, a.ID, 11, 2, true)
	testutil.SeedEvaluation(t, ctx, f.db, a.ID, 12, 1, true)
	testutil.SeedResponse(t, ctx, f.db, first.ID, 11, 1, "1", true)
	testutil.SeedResponse(t, ctx, f.db, first.ID, 11, 2, "2", true)
	testutil.SeedResponse(t, ctx, f.db, second.ID, 12, 1, "1", true)
	f.putFile(t, a.ID, filestore.FileUploadArea(first.ID, 1), 11, "v1.txt", "first v1")
	f.putFile(t, a.ID, filestore.FileUploadArea(first.ID, 2), 11, "v2a.txt", "first v2 a")
	f.putFile(t, a.ID, filestore.FileUploadArea(first.ID, 2), 11, "v2b.txt", "first v2 b")
	f.putFile(t, a.ID, filestore.FileUploadArea(second.ID, 1), 12, "other.txt", "second v1")

	out := f.roundTrip(t, a.ID, 3, true)
	assert.Equal(t, 4, out.Summary.Files)

	got := sectionsByName(t, f, out.Activity.ID)
	items, err := f.set.Items.ListBySection(bg(), got["Evidence"].ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	count := func(itemID int64, version int, userID int64) int {
		rows, err := f.files.ListArea(bg(), filestore.AreaKey{ItemID: itemID, Version: version, UserID: userID}.Filter(out.Activity.ID))
		require.NoError(t, err)
		return len(rows)
	}
	assert.Equal(t, 1, count(items[0].ID, 1, 11))
	assert.Equal(t, 2, count(items[0].ID, 2, 11))
	assert.Equal(t, 1, count(items[1].ID, 1, 12))
	assert.Equal(t, 0, count(items[1].ID, 1, 11))
}

func TestRestore_TwiceGivesDisjointInstances(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := testutil.SeedActivity(t, ctx, f.db, 3, "Twice")
	root := testutil.SeedSection(t, ctx, f.db, a.ID, "Root", nil, 0)
	child := testutil.SeedSection(t, ctx, f.db, a.ID, "Child", &root.ID, 0)
	testutil.SeedItem(t, ctx, f.db, child.ID, "Question", training.ItemTypeTextInput, 0, true)

	res, err := f.svc.Backup(managerCtx(), a.ID, Settings{})
	require.NoError(t, err)
	one, err := f.svc.Restore(managerCtx(), 5, res.Archive, RestoreOptions{})
	require.NoError(t, err)
	two, err := f.svc.Restore(managerCtx(), 5, res.Archive, RestoreOptions{})
	require.NoError(t, err)
	require.NotEqual(t, one.Activity.ID, two.Activity.ID)
	require.NotEqual(t, one.RestoreID, two.RestoreID)

	s1 := sectionsByName(t, f, one.Activity.ID)
	s2 := sectionsByName(t, f, two.Activity.ID)
	require.Len(t, s1, 2)
	require.Len(t, s2, 2)
	for name := range s1 {
		assert.NotEqual(t, s1[name].ID, s2[name].ID)
	}
	assert.Equal(t, s1["Root"].ID, *s1["Child"].ParentSection)
	assert.Equal(t, s2["Root"].ID, *s2["Child"].ParentSection)

	i1, err := f.set.Items.ListByActivity(bg(), one.Activity.ID)
	require.NoError(t, err)
	i2, err := f.set.Items.ListByActivity(bg(), two.Activity.ID)
	require.NoError(t, err)
	require.Len(t, i1, 1)
	require.Len(t, i2, 1)
	assert.NotEqual(t, i1[0].ID, i2[0].ID)
	assert.Equal(t, i1[0].Name, i2[0].Name)
}

func TestArchive_RoundTripThroughZip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := testutil.SeedActivity(t, ctx, f.db, 3, "Zipped")
	sec := testutil.SeedSection(t, ctx, f.db, a.ID, "Only", nil, 0)
	it := testutil.SeedItem(t, ctx, f.db, sec.ID, "Upload", training.ItemTypeFileUpload, 0, true)
	testutil.SeedEvaluation(t, ctx, f.db, a.ID, 11, 1, true)
	testutil.SeedResponse(t, ctx, f.db, it.ID, 11, 1, "1", true)
	f.putFile(t, a.ID, filestore.FileUploadArea(it.ID, 1), 11, "scan.txt", "scanned")
	f.putFile(t, a.ID, filestore.IntroArea, 0, "banner.txt", "banner")

	res, err := f.svc.Backup(managerCtx(), a.ID, Settings{UserInfo: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.Files)
	raw, err := res.Archive.Bytes()
	require.NoError(t, err)

	parsed, err := ReadArchive(raw)
	require.NoError(t, err)
	assert.Equal(t, res.Archive.Manifest.BackupID, parsed.Manifest.BackupID)
	assert.Equal(t, res.Archive.Activity.Activity.Name, parsed.Activity.Activity.Name)
	assert.Len(t, parsed.Files.Files, 2)
	assert.Len(t, parsed.Blobs, 2)
	assert.Equal(t, []UserRef{{ID: 2}, {ID: 11}}, parsed.InfoRef.Users)

	out, err := f.svc.Restore(managerCtx(), 3, parsed, RestoreOptions{UserInfo: true})
	require.NoError(t, err)
	intro, err := f.files.ListArea(bg(), filestore.IntroFilter(out.Activity.ID))
	require.NoError(t, err)
	require.Len(t, intro, 1)
	data, err := f.files.ReadAll(ctx, intro[0])
	require.NoError(t, err)
	assert.Equal(t, "banner", string(data))
}

func TestReadArchive_Rejects(t *testing.T) {
	_, err := ReadArchive([]byte("not a zip"))
	require.ErrorIs(t, err, ErrInvalidArchive)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("no manifest here"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = ReadArchive(buf.Bytes())
	require.ErrorIs(t, err, ErrInvalidArchive)
}

func TestRestore_Precheck(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := testutil.SeedActivity(t, ctx, f.db, 3, "Checked")
	res, err := f.svc.Backup(managerCtx(), a.ID, Settings{})
	require.NoError(t, err)

	res.Archive.Manifest.Module = "quiz"
	_, err = f.svc.Restore(managerCtx(), 3, res.Archive, RestoreOptions{})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
	assert.ErrorIs(t, err, ErrInvalidArchive)

	res.Archive.Manifest.Module = training.ModuleName
	res.Archive.Manifest.FormatVersion = FormatVersion + 1
	_, err = f.svc.Restore(managerCtx(), 3, res.Archive, RestoreOptions{})
	assert.ErrorIs(t, err, ErrInvalidArchive)

	activities, err := f.set.Activities.ListByCourse(bg(), 3)
	require.NoError(t, err)
	assert.Len(t, activities, 1, "failed restores leave nothing behind")
}

func TestRestore_UnmappedFileUploadItemSkipped(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := testutil.SeedActivity(t, ctx, f.db, 3, "Broken")
	sec := testutil.SeedSection(t, ctx, f.db, a.ID, "Evidence", nil, 0)
	it := testutil.SeedItem(t, ctx, f.db, sec.ID, "Upload", training.ItemTypeFileUpload, 0, true)
	testutil.SeedEvaluation(t, ctx, f.db, a.ID, 11, 1, true)
	testutil.SeedResponse(t, ctx, f.db, it.ID, 11, 1, "1", true)
	f.putFile(t, a.ID, filestore.FileUploadArea(it.ID, 1), 11, "scan.txt", "scanned")

	res, err := f.svc.Backup(managerCtx(), a.ID, Settings{UserInfo: true})
	require.NoError(t, err)
	res.Archive.Activity.Activity.Sections[0].Items[0].Name = ""

	out, err := f.svc.Restore(managerCtx(), 3, res.Archive, RestoreOptions{UserInfo: true})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Summary.SkippedFileItems)
	assert.Zero(t, out.Summary.Items)
	assert.Zero(t, out.Summary.Files)

	rows, err := f.files.ListByContext(bg(), out.Activity.ID, training.Component)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRestore_UnresolvedUsers(t *testing.T) {
	f := newFixture(t, MapResolver{2: 2, 11: 111})
	a, _ := seedEvaluated(t, f)

	out := f.roundTrip(t, a.ID, 4, true)
	assert.Equal(t, 2, out.Summary.Responses)
	assert.Equal(t, 2, out.Summary.Evaluations)
	assert.Equal(t, 2, out.Summary.SkippedRows)

	active, err := f.set.Evaluations.GetActive(bg(), out.Activity.ID, 111)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.Finalised)
	assert.Nil(t, active.FinalisedBy, "finaliser 21 is unknown here")

	none, err := f.set.Evaluations.ListByUser(bg(), out.Activity.ID, 12)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBackupRestore_RequireCapabilities(t *testing.T) {
	f := newFixture(t, nil)
	a := testutil.SeedActivity(t, context.Background(), f.db, 3, "Locked")
	student := access.WithRoles(context.Background(), access.DefaultRoleTable(), 11, "student")

	_, err := f.svc.Backup(student, a.ID, Settings{})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeForbidden))

	_, err = f.svc.Restore(student, 3, &Archive{}, RestoreOptions{})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeForbidden))

	_, err = f.svc.Backup(managerCtx(), 9999, Settings{})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}
