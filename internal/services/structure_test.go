package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos/testutil"
	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
)

func TestActivityLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := asTeacher()

	_, err := h.svc.Activities.Create(ctx, 5, ActivityInput{Name: "   "})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
	assert.Equal(t, "Name is required", domainagg.FieldsOf(err)["name"])

	_, err = h.svc.Activities.Create(asLearner(learnerID), 5, ActivityInput{Name: "Nope"})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeForbidden))

	a, err := h.svc.Activities.Create(ctx, 5, ActivityInput{Name: " Warehouse induction ", CompletionOnRequired: true})
	require.NoError(t, err)
	assert.Equal(t, "Warehouse induction", a.Name)
	assert.True(t, a.Visible)

	hidden := false
	a, err = h.svc.Activities.Update(ctx, a.ID, ActivityPatch{Visible: &hidden})
	require.NoError(t, err)
	assert.False(t, a.Visible)
	assert.True(t, a.CompletionOnRequired)

	empty := ""
	_, err = h.svc.Activities.Update(ctx, a.ID, ActivityPatch{Name: &empty})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	list, err := h.svc.Activities.ListByCourse(ctx, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = h.svc.Activities.Get(ctx, 9999)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestActivityDeleteCascades(t *testing.T) {
	h := newHarness(t)
	ctx := asManager()
	a, err := h.svc.Activities.Create(ctx, 5, ActivityInput{Name: "Induction"})
	require.NoError(t, err)
	sec, err := h.svc.Sections.Create(ctx, a.ID, SectionInput{Name: "Day one"})
	require.NoError(t, err)
	it, err := h.svc.Items.Create(ctx, sec.ID, ItemInput{Name: "Evidence", Type: training.ItemTypeFileUpload})
	require.NoError(t, err)
	_, err = h.svc.Responses.UploadFiles(ctx, it.ID, adminID, []Upload{{Name: "cert.pdf", Data: []byte("pdf")}})
	require.NoError(t, err)

	require.NoError(t, h.svc.Activities.Delete(ctx, a.ID))

	dbc := dbctx.Context{Ctx: context.Background()}
	files, err := h.files.ListByContext(dbc, a.ID, training.Component)
	require.NoError(t, err)
	assert.Empty(t, files)
	evals, err := h.repos.Evaluations.ListByActivity(dbc, a.ID)
	require.NoError(t, err)
	assert.Empty(t, evals)
	got, err := h.repos.Items.GetByID(dbc, it.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSectionCreateAndTree(t *testing.T) {
	h := newHarness(t)
	ctx := asTeacher()
	a := testutil.SeedActivity(t, context.Background(), h.db, 5, "Induction")

	_, err := h.svc.Sections.Create(ctx, a.ID, SectionInput{Name: ""})
	require.Error(t, err)
	assert.Equal(t, "Section name is required", domainagg.FieldsOf(err)["name"])

	root, err := h.svc.Sections.Create(ctx, a.ID, SectionInput{Name: "Safety"})
	require.NoError(t, err)
	assert.Equal(t, 0, root.Position)
	second, err := h.svc.Sections.Create(ctx, a.ID, SectionInput{Name: "Driving"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Position)
	child, err := h.svc.Sections.Create(ctx, a.ID, SectionInput{Name: "PPE", ParentSection: &root.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, child.Position)

	other := testutil.SeedActivity(t, context.Background(), h.db, 5, "Other")
	_, err = h.svc.Sections.Create(ctx, other.ID, SectionInput{Name: "Stray", ParentSection: &root.ID})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	_, err = h.svc.Items.Create(ctx, child.ID, ItemInput{Name: "Boots", Type: training.ItemTypeTextInput})
	require.NoError(t, err)

	tree, err := h.svc.Sections.Tree(asLearner(learnerID), a.ID)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Safety", tree[0].Name)
	assert.Equal(t, "Driving", tree[1].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "PPE", tree[0].Children[0].Name)
	require.Len(t, tree[0].Children[0].Items, 1)
	assert.Equal(t, "Boots", tree[0].Children[0].Items[0].Name)
}

func TestSectionMoveRejectsCycles(t *testing.T) {
	h := newHarness(t)
	ctx := asTeacher()
	a := testutil.SeedActivity(t, context.Background(), h.db, 5, "Induction")
	top, err := h.svc.Sections.Create(ctx, a.ID, SectionInput{Name: "Top"})
	require.NoError(t, err)
	mid, err := h.svc.Sections.Create(ctx, a.ID, SectionInput{Name: "Mid", ParentSection: &top.ID})
	require.NoError(t, err)
	leaf, err := h.svc.Sections.Create(ctx, a.ID, SectionInput{Name: "Leaf", ParentSection: &mid.ID})
	require.NoError(t, err)

	_, err = h.svc.Sections.Update(ctx, top.ID, SectionPatch{MoveParent: true, ParentSection: &leaf.ID})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
	_, err = h.svc.Sections.Update(ctx, top.ID, SectionPatch{MoveParent: true, ParentSection: &top.ID})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	moved, err := h.svc.Sections.Update(ctx, leaf.ID, SectionPatch{MoveParent: true})
	require.NoError(t, err)
	assert.Nil(t, moved.ParentSection)
	assert.Equal(t, 1, moved.Position)

	name := "Renamed"
	renamed, err := h.svc.Sections.Update(ctx, mid.ID, SectionPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Name)
	require.NotNil(t, renamed.ParentSection)
	assert.Equal(t, top.ID, *renamed.ParentSection)
}

func TestSectionDeleteCascadesToSubtree(t *testing.T) {
	h := newHarness(t)
	ctx := asManager()
	a := testutil.SeedActivity(t, context.Background(), h.db, 5, "Induction")
	top, err := h.svc.Sections.Create(ctx, a.ID, SectionInput{Name: "Top"})
	require.NoError(t, err)
	sub, err := h.svc.Sections.Create(ctx, a.ID, SectionInput{Name: "Sub", ParentSection: &top.ID})
	require.NoError(t, err)
	keep, err := h.svc.Sections.Create(ctx, a.ID, SectionInput{Name: "Keep"})
	require.NoError(t, err)
	it, err := h.svc.Items.Create(ctx, sub.ID, ItemInput{
		Name:    "Notes",
		Type:    training.ItemTypeTextInput,
		Configs: map[string]string{"maxlength": "100"},
	})
	require.NoError(t, err)
	_, err = h.svc.Responses.Save(ctx, it.ID, learnerID, "fine")
	require.NoError(t, err)

	require.NoError(t, h.svc.Sections.Delete(ctx, top.ID))

	dbc := dbctx.Context{Ctx: context.Background()}
	left, err := h.repos.Sections.ListByActivity(dbc, a.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, keep.ID, left[0].ID)
	cfgs, err := h.repos.ItemConfigs.ListByItem(dbc, it.ID)
	require.NoError(t, err)
	assert.Empty(t, cfgs)
	resp, err := h.repos.Responses.ListByItem(dbc, it.ID)
	require.NoError(t, err)
	assert.Empty(t, resp)

	assert.True(t, domainagg.IsCode(h.svc.Sections.Delete(ctx, top.ID), domainagg.CodeNotFound))
}

func TestItemCreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := asTeacher()
	a := testutil.SeedActivity(t, context.Background(), h.db, 5, "Induction")
	sec := testutil.SeedSection(t, context.Background(), h.db, a.ID, "Safety", nil, 0)

	_, err := h.svc.Items.Create(ctx, sec.ID, ItemInput{Type: training.ItemTypeTextInput})
	assert.Equal(t, "Item name is required", domainagg.FieldsOf(err)["name"])

	_, err = h.svc.Items.Create(ctx, sec.ID, ItemInput{Name: "X", Type: "richtext"})
	assert.Equal(t, "Unknown item type", domainagg.FieldsOf(err)["type"])

	_, err = h.svc.Items.Create(ctx, sec.ID, ItemInput{Name: "X", Type: training.ItemTypeSelectMenu})
	assert.Contains(t, domainagg.FieldsOf(err), "options")

	_, err = h.svc.Items.Create(ctx, sec.ID, ItemInput{
		Name:    "X",
		Type:    training.ItemTypeTextInput,
		Configs: map[string]string{"maxlength": "-3"},
	})
	assert.Contains(t, domainagg.FieldsOf(err), "maxlength")

	_, err = h.svc.Items.Create(ctx, sec.ID, ItemInput{
		Name:    "X",
		Type:    training.ItemTypeDatePicker,
		Configs: map[string]string{"maxfiles": "2"},
	})
	assert.Contains(t, domainagg.FieldsOf(err), "maxfiles")

	_, err = h.svc.Items.Create(ctx, 9999, ItemInput{Name: "X", Type: training.ItemTypeTextInput})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestItemUpdateMoveAndConfigs(t *testing.T) {
	h := newHarness(t)
	ctx := asTeacher()
	a := testutil.SeedActivity(t, context.Background(), h.db, 5, "Induction")
	s1 := testutil.SeedSection(t, context.Background(), h.db, a.ID, "One", nil, 0)
	s2 := testutil.SeedSection(t, context.Background(), h.db, a.ID, "Two", nil, 1)
	foreign := testutil.SeedSection(t, context.Background(), h.db,
		testutil.SeedActivity(t, context.Background(), h.db, 5, "Other").ID, "Far", nil, 0)

	first, err := h.svc.Items.Create(ctx, s1.ID, ItemInput{Name: "First", Type: training.ItemTypeTextInput})
	require.NoError(t, err)
	second, err := h.svc.Items.Create(ctx, s1.ID, ItemInput{Name: "Second", Type: training.ItemTypeTextInput})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)

	_, err = h.svc.Items.Update(ctx, second.ID, ItemPatch{SectionID: &foreign.ID})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	req := true
	moved, err := h.svc.Items.Update(ctx, second.ID, ItemPatch{SectionID: &s2.ID, IsRequired: &req})
	require.NoError(t, err)
	assert.Equal(t, s2.ID, moved.SectionID)
	assert.Equal(t, 0, moved.Position)
	assert.True(t, moved.IsRequired)

	view, err := h.svc.Items.ReplaceConfigs(ctx, first.ID, map[string]string{"placeholder": "Type here", "rows": "4"})
	require.NoError(t, err)
	assert.Equal(t, "4", view.Configs["rows"])

	got, err := h.svc.Items.Get(asLearner(learnerID), first.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"placeholder": "Type here", "rows": "4"}, got.Configs)

	view, err = h.svc.Items.ReplaceConfigs(ctx, first.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, view.Configs)
}

func TestSelectOptions(t *testing.T) {
	assert.Equal(t, []string{"Yes", "No"}, selectOptions(map[string]string{"options": " Yes , No ,"}))
	assert.Equal(t, []string{"a", "b", "c"}, selectOptions(map[string]string{"option10": "c", "option2": "b", "option1": "a"}))
	assert.Empty(t, selectOptions(map[string]string{}))
}

func TestNormaliseResponse(t *testing.T) {
	v, done, msg := normaliseResponse(training.ItemTypeTextInput, map[string]string{"maxlength": "5"}, "  hi ")
	assert.Equal(t, "hi", v)
	assert.True(t, done)
	assert.Empty(t, msg)

	_, _, msg = normaliseResponse(training.ItemTypeTextInput, map[string]string{"maxlength": "5"}, "too long")
	assert.NotEmpty(t, msg)

	_, done, msg = normaliseResponse(training.ItemTypeTextInput, nil, "   ")
	assert.False(t, done)
	assert.Empty(t, msg)

	opts := map[string]string{"options": "Pass,Fail"}
	v, done, _ = normaliseResponse(training.ItemTypeSelectMenu, opts, "Fail")
	assert.Equal(t, "Fail", v)
	assert.True(t, done)
	_, _, msg = normaliseResponse(training.ItemTypeSelectMenu, opts, "Maybe")
	assert.NotEmpty(t, msg)

	v, done, _ = normaliseResponse(training.ItemTypeDatePicker, nil, "2024-03-01")
	assert.Equal(t, "1709251200", v)
	assert.True(t, done)
	v, _, _ = normaliseResponse(training.ItemTypeDatePicker, nil, "1709251200")
	assert.Equal(t, "1709251200", v)
	_, _, msg = normaliseResponse(training.ItemTypeDatePicker, nil, "01/03/2024")
	assert.NotEmpty(t, msg)

	_, _, msg = normaliseResponse(training.ItemTypeFileUpload, nil, "x")
	assert.NotEmpty(t, msg)
}

func TestFileTypeAccepted(t *testing.T) {
	cfg := map[string]string{"acceptedfiletypes": ".pdf, DOCX"}
	assert.True(t, fileTypeAccepted(cfg, "cert.PDF"))
	assert.True(t, fileTypeAccepted(cfg, "notes.docx"))
	assert.False(t, fileTypeAccepted(cfg, "photo.jpg"))
	assert.True(t, fileTypeAccepted(map[string]string{}, "anything.bin"))
}
