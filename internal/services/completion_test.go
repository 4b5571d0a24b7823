package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos/testutil"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
)

type completionFixture struct {
	h        *harness
	activity *types.Activity
	section  *types.Section
}

func newCompletionFixture(t *testing.T) *completionFixture {
	h := newHarness(t)
	ctx := context.Background()
	a := testutil.SeedActivity(t, ctx, h.db, 1, "Forklift induction")
	require.NoError(t, h.db.Model(a).Update("completiononrequired", true).Error)
	s := testutil.SeedSection(t, ctx, h.db, a.ID, "Safety", nil, 0)
	return &completionFixture{h: h, activity: a, section: s}
}

func (f *completionFixture) item(t *testing.T, name string, position int, required bool) *types.SectionItem {
	return testutil.SeedItem(t, context.Background(), f.h.db, f.section.ID, name, training.ItemTypeTextInput, position, required)
}

func (f *completionFixture) state(t *testing.T, userID int64) CompletionState {
	st, err := f.h.svc.Completion.GetState(context.Background(), f.activity.ID, userID)
	require.NoError(t, err)
	return st
}

func TestCompletionNoRequiredItems(t *testing.T) {
	f := newCompletionFixture(t)
	opt := f.item(t, "Optional", 0, false)
	testutil.SeedEvaluation(t, context.Background(), f.h.db, f.activity.ID, learnerID, 1, true)
	testutil.SeedResponse(t, context.Background(), f.h.db, opt.ID, learnerID, 1, "done", true)

	assert.Equal(t, StateIncomplete, f.state(t, learnerID))
}

func TestCompletionRequiredNotCompleted(t *testing.T) {
	f := newCompletionFixture(t)
	a := f.item(t, "Required 1", 0, true)
	f.item(t, "Required 2", 1, true)
	testutil.SeedEvaluation(t, context.Background(), f.h.db, f.activity.ID, learnerID, 1, true)
	testutil.SeedResponse(t, context.Background(), f.h.db, a.ID, learnerID, 1, "", false)

	assert.Equal(t, StateIncomplete, f.state(t, learnerID))
}

func TestCompletionAllRequiredCompleted(t *testing.T) {
	f := newCompletionFixture(t)
	ctx := asLearner(learnerID)
	a := f.item(t, "Required 1", 0, true)
	b := f.item(t, "Required 2", 1, true)

	_, err := f.h.svc.Responses.Save(ctx, a.ID, learnerID, "Checked mirrors")
	require.NoError(t, err)
	assert.Equal(t, StateIncomplete, f.state(t, learnerID))

	_, err = f.h.svc.Responses.Save(ctx, b.ID, learnerID, "Checked forks")
	require.NoError(t, err)
	assert.Equal(t, StateComplete, f.state(t, learnerID))
}

func TestCompletionPartial(t *testing.T) {
	f := newCompletionFixture(t)
	ctx := context.Background()
	a := f.item(t, "Required 1", 0, true)
	b := f.item(t, "Required 2", 1, true)
	f.item(t, "Required 3", 2, true)
	testutil.SeedEvaluation(t, ctx, f.h.db, f.activity.ID, learnerID, 1, true)
	testutil.SeedResponse(t, ctx, f.h.db, a.ID, learnerID, 1, "x", true)
	testutil.SeedResponse(t, ctx, f.h.db, b.ID, learnerID, 1, "y", true)

	assert.Equal(t, StateIncomplete, f.state(t, learnerID))
}

func TestCompletionIgnoresOptionalItems(t *testing.T) {
	f := newCompletionFixture(t)
	ctx := context.Background()
	req := f.item(t, "Required", 0, true)
	f.item(t, "Optional", 1, false)
	testutil.SeedEvaluation(t, ctx, f.h.db, f.activity.ID, learnerID, 1, true)
	testutil.SeedResponse(t, ctx, f.h.db, req.ID, learnerID, 1, "x", true)

	assert.Equal(t, StateComplete, f.state(t, learnerID))
}

func TestCompletionWithoutResponses(t *testing.T) {
	f := newCompletionFixture(t)
	f.item(t, "Required 1", 0, true)
	f.item(t, "Required 2", 1, true)
	testutil.SeedEvaluation(t, context.Background(), f.h.db, f.activity.ID, learnerID, 1, true)

	assert.Equal(t, StateIncomplete, f.state(t, learnerID))
}

func TestCompletionMultipleSections(t *testing.T) {
	f := newCompletionFixture(t)
	ctx := context.Background()
	second := testutil.SeedSection(t, ctx, f.h.db, f.activity.ID, "Driving", nil, 1)
	child := testutil.SeedSection(t, ctx, f.h.db, f.activity.ID, "Reversing", &second.ID, 0)
	a := f.item(t, "Required 1", 0, true)
	b := testutil.SeedItem(t, ctx, f.h.db, second.ID, "Required 2", training.ItemTypeTextInput, 0, true)
	c := testutil.SeedItem(t, ctx, f.h.db, child.ID, "Required 3", training.ItemTypeTextInput, 0, true)

	testutil.SeedEvaluation(t, ctx, f.h.db, f.activity.ID, learnerID, 1, true)
	testutil.SeedResponse(t, ctx, f.h.db, a.ID, learnerID, 1, "x", true)
	testutil.SeedResponse(t, ctx, f.h.db, b.ID, learnerID, 1, "y", true)
	assert.Equal(t, StateIncomplete, f.state(t, learnerID))

	testutil.SeedResponse(t, ctx, f.h.db, c.ID, learnerID, 1, "z", true)
	assert.Equal(t, StateComplete, f.state(t, learnerID))
}

func TestCompletionUsersAreIndependent(t *testing.T) {
	f := newCompletionFixture(t)
	ctx := context.Background()
	req := f.item(t, "Required", 0, true)
	testutil.SeedEvaluation(t, ctx, f.h.db, f.activity.ID, learnerID, 1, true)
	testutil.SeedEvaluation(t, ctx, f.h.db, f.activity.ID, otherID, 1, true)
	testutil.SeedResponse(t, ctx, f.h.db, req.ID, learnerID, 1, "x", true)

	assert.Equal(t, StateComplete, f.state(t, learnerID))
	assert.Equal(t, StateIncomplete, f.state(t, otherID))
}

func TestCompletionIgnoresSupersededVersion(t *testing.T) {
	f := newCompletionFixture(t)
	ctx := context.Background()
	req := f.item(t, "Required", 0, true)
	testutil.SeedEvaluation(t, ctx, f.h.db, f.activity.ID, learnerID, 1, false)
	testutil.SeedEvaluation(t, ctx, f.h.db, f.activity.ID, learnerID, 2, true)
	testutil.SeedResponse(t, ctx, f.h.db, req.ID, learnerID, 1, "old", true)

	assert.Equal(t, StateIncomplete, f.state(t, learnerID))

	testutil.SeedResponse(t, ctx, f.h.db, req.ID, learnerID, 2, "new", true)
	assert.Equal(t, StateComplete, f.state(t, learnerID))
}

func TestCompletionDeletedRequiredItemLowersTotal(t *testing.T) {
	f := newCompletionFixture(t)
	ctx := context.Background()
	a := f.item(t, "Required 1", 0, true)
	b := f.item(t, "Required 2", 1, true)
	testutil.SeedEvaluation(t, ctx, f.h.db, f.activity.ID, learnerID, 1, true)
	testutil.SeedResponse(t, ctx, f.h.db, a.ID, learnerID, 1, "x", true)
	assert.Equal(t, StateIncomplete, f.state(t, learnerID))

	require.NoError(t, f.h.svc.Items.Delete(asManager(), b.ID))
	assert.Equal(t, StateComplete, f.state(t, learnerID))
}

func TestCompletionStatus(t *testing.T) {
	f := newCompletionFixture(t)
	ctx := asLearner(learnerID)
	a := f.item(t, "Required 1", 0, true)
	b := f.item(t, "Required 2", 1, true)

	st, err := f.h.svc.Completion.Status(ctx, f.activity.ID, learnerID)
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, st.Status)
	assert.Equal(t, int64(2), st.Total)
	assert.True(t, st.RuleEnabled)

	_, err = f.h.svc.Responses.Save(ctx, a.ID, learnerID, "x")
	require.NoError(t, err)
	st, err = f.h.svc.Completion.Status(ctx, f.activity.ID, learnerID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, st.Status)
	assert.Equal(t, int64(1), st.Done)

	_, err = f.h.svc.Responses.Save(ctx, b.ID, learnerID, "y")
	require.NoError(t, err)
	st, err = f.h.svc.Completion.Status(ctx, f.activity.ID, learnerID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, st.Status)
	assert.Equal(t, StateComplete, st.State)

	_, err = f.h.svc.Completion.Status(asLearner(otherID), f.activity.ID, learnerID)
	require.Error(t, err)
}
