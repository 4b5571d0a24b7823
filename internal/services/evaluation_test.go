package services

import (
	"context"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos/testutil"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/events"
)

func seedStructure(t *testing.T, h *harness) (*types.Activity, *ItemView, *ItemView) {
	t.Helper()
	ctx := asTeacher()
	a, err := h.svc.Activities.Create(ctx, 5, ActivityInput{Name: "Induction"})
	require.NoError(t, err)
	sec, err := h.svc.Sections.Create(ctx, a.ID, SectionInput{Name: "Safety"})
	require.NoError(t, err)
	text, err := h.svc.Items.Create(ctx, sec.ID, ItemInput{Name: "Notes", Type: training.ItemTypeTextInput, IsRequired: true})
	require.NoError(t, err)
	upload, err := h.svc.Items.Create(ctx, sec.ID, ItemInput{
		Name:       "Certificate",
		Type:       training.ItemTypeFileUpload,
		IsRequired: true,
		Configs:    map[string]string{"acceptedfiletypes": ".pdf,.txt", "maxfiles": "2"},
	})
	require.NoError(t, err)
	return a, text, upload
}

func TestEvaluationLifecycle(t *testing.T) {
	h := newHarness(t)
	a, text, _ := seedStructure(t, h)
	learner := asLearner(learnerID)
	teacher := asTeacher()

	_, err := h.svc.Evaluations.GetActive(learner, a.ID, learnerID)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))

	e1, err := h.svc.Evaluations.GetOrCreate(learner, a.ID, learnerID)
	require.NoError(t, err)
	assert.Equal(t, 1, e1.Version)
	assert.Equal(t, training.EvaluationDraft, e1.State())

	again, err := h.svc.Evaluations.GetOrCreate(learner, a.ID, learnerID)
	require.NoError(t, err)
	assert.Equal(t, e1.ID, again.ID)

	_, err = h.svc.Evaluations.NewRound(teacher, a.ID, learnerID)
	assert.True(t, domainagg.IsCode(err, domainagg.CodePreconditionFailed))

	_, err = h.svc.Evaluations.Finalise(learner, a.ID, learnerID)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeForbidden))

	_, err = h.svc.Responses.Save(learner, text.ID, learnerID, "first round")
	require.NoError(t, err)

	fin, err := h.svc.Evaluations.Finalise(teacher, a.ID, learnerID)
	require.NoError(t, err)
	assert.True(t, fin.Finalised)
	require.NotNil(t, fin.FinalisedBy)
	assert.Equal(t, teacherID, *fin.FinalisedBy)
	require.NotNil(t, fin.TimeFinalised)

	_, err = h.svc.Evaluations.Finalise(teacher, a.ID, learnerID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), msgEvaluationFinalised)

	_, err = h.svc.Responses.Save(learner, text.ID, learnerID, "too late")
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodePreconditionFailed))

	e2, err := h.svc.Evaluations.NewRound(teacher, a.ID, learnerID)
	require.NoError(t, err)
	assert.Equal(t, 2, e2.Version)
	assert.True(t, e2.Active)

	_, err = h.svc.Responses.Save(learner, text.ID, learnerID, "second round")
	require.NoError(t, err)

	versions, err := h.svc.Evaluations.ListVersions(teacher, a.ID, learnerID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, training.EvaluationSuperseded, versions[0].State())
	assert.Equal(t, training.EvaluationDraft, versions[1].State())

	old, err := h.svc.Evaluations.GetVersion(teacher, a.ID, learnerID, 1)
	require.NoError(t, err)
	assert.Equal(t, string(training.EvaluationSuperseded), old.State)
	require.Len(t, old.Responses, 1)
	assert.Equal(t, "first round", old.Responses[0].Response)

	_, err = h.svc.Evaluations.GetVersion(teacher, a.ID, learnerID, 7)
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
	assert.Contains(t, err.Error(), msgEvaluationVersionNotFound)

	_, err = h.svc.Evaluations.ListVersions(learner, a.ID, learnerID)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeForbidden))

	assert.Contains(t, h.events.Names(), events.EvaluationCreated)
	assert.Contains(t, h.events.Names(), events.EvaluationFinalised)
}

func TestResponseSaveRules(t *testing.T) {
	h := newHarness(t)
	a, text, upload := seedStructure(t, h)

	_, err := h.svc.Responses.Save(asLearner(otherID), text.ID, learnerID, "not mine")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeForbidden))

	_, err = h.svc.Responses.Save(asLearner(learnerID), upload.ID, learnerID, "3")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	r, err := h.svc.Responses.Save(asTeacher(), text.ID, learnerID, " observed ")
	require.NoError(t, err)
	assert.Equal(t, "observed", r.Response)
	assert.True(t, r.Completed)
	assert.Equal(t, 1, r.Version)
	assert.Equal(t, teacherID, r.UserModified)

	r2, err := h.svc.Responses.Save(asTeacher(), text.ID, learnerID, "")
	require.NoError(t, err)
	assert.Equal(t, r.ID, r2.ID)
	assert.False(t, r2.Completed)

	var saved []events.Event
	for _, ev := range h.events.Events() {
		if ev.Name == events.ResponseSaved {
			saved = append(saved, ev)
		}
	}
	require.Len(t, saved, 2)
	assert.Equal(t, a.ID, saved[0].ActivityID)
	assert.Equal(t, learnerID, saved[0].RelatedUserID)
	assert.Equal(t, teacherID, saved[0].UserID)
}

func TestFileUploadResponses(t *testing.T) {
	h := newHarness(t)
	a, _, upload := seedStructure(t, h)
	ctx := asLearner(learnerID)

	_, err := h.svc.Responses.UploadFiles(ctx, upload.ID, learnerID, []Upload{{Name: "photo.jpg", Data: []byte("jpg")}})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	res, err := h.svc.Responses.UploadFiles(ctx, upload.ID, learnerID, []Upload{
		{Name: "cert.pdf", Data: []byte("certificate")},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", res.Response.Response)
	assert.True(t, res.Response.Completed)
	require.Len(t, res.Files, 1)
	f := res.Files[0]
	assert.Equal(t, a.ID, f.ContextID)
	assert.Equal(t, "type_fileupload_"+strconv.FormatInt(upload.ID, 10)+"_1", f.FileArea)
	assert.Equal(t, learnerID, f.ItemID)

	_, err = h.svc.Responses.UploadFiles(ctx, upload.ID, learnerID, []Upload{{Name: "cert.pdf", Data: []byte("again")}})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	_, err = h.svc.Responses.UploadFiles(ctx, upload.ID, learnerID, []Upload{
		{Name: "a.txt", Data: []byte("a")},
		{Name: "b.txt", Data: []byte("b")},
	})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "maxfiles is 2")

	_, rc, err := h.svc.Responses.OpenFile(asTeacher(), upload.ID, learnerID, f.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "certificate", string(body))

	_, _, err = h.svc.Responses.OpenFile(asLearner(otherID), upload.ID, learnerID, f.ID)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeForbidden))
	_, _, err = h.svc.Responses.OpenFile(asLearner(otherID), upload.ID, otherID, f.ID)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))

	res, err = h.svc.Responses.DeleteFile(ctx, upload.ID, learnerID, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "0", res.Response.Response)
	assert.False(t, res.Response.Completed)

	files, err := h.svc.Responses.ListFiles(ctx, upload.ID, learnerID)
	require.NoError(t, err)
	assert.Empty(t, files)

	files, err = h.svc.Responses.ListFiles(asLearner(otherID), upload.ID, otherID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestViewCreatesFirstEvaluation(t *testing.T) {
	h := newHarness(t)
	a, text, _ := seedStructure(t, h)

	page, err := h.svc.View.View(asLearner(learnerID), a.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, learnerID, page.UserID)
	assert.Equal(t, 1, page.Evaluation.Version)
	assert.Equal(t, "draft", page.State)
	require.Len(t, page.Sections, 1)
	assert.Len(t, page.Sections[0].Items, 2)
	assert.Equal(t, StatusNotStarted, page.Completion.Status)
	assert.True(t, page.Permissions.CanEvaluate)
	assert.False(t, page.Permissions.CanFinalise)
	assert.False(t, page.Permissions.CanManage)

	names := h.events.Names()
	assert.Equal(t, []string{events.EvaluationCreated, events.CourseModuleViewed}, names)
	viewed := h.events.Events()[1]
	assert.Equal(t, a.ID, viewed.ObjectID)
	assert.Equal(t, a.Course, viewed.CourseID)

	_, err = h.svc.Responses.Save(asLearner(learnerID), text.ID, learnerID, "hello")
	require.NoError(t, err)

	page, err = h.svc.View.View(asTeacher(), a.ID, learnerID)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Evaluation.Version)
	require.Contains(t, page.Responses, text.ID)
	assert.Equal(t, "hello", page.Responses[text.ID].Response)
	assert.True(t, page.Permissions.CanFinalise)

	_, err = h.svc.View.View(asLearner(otherID), a.ID, learnerID)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeForbidden))

	_, err = h.svc.View.View(asLearner(learnerID), 9999, 0)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestIndexDimsHiddenActivities(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedActivity(t, ctx, h.db, 8, "Shown")
	hidden := testutil.SeedActivity(t, ctx, h.db, 8, "Hidden")
	require.NoError(t, h.db.Model(hidden).Update("visible", false).Error)
	testutil.SeedActivity(t, ctx, h.db, 9, "Elsewhere")

	page, err := h.svc.View.Index(asLearner(learnerID), 8)
	require.NoError(t, err)
	require.Len(t, page.Activities, 1)
	assert.Equal(t, "Shown", page.Activities[0].Activity.Name)

	page, err = h.svc.View.Index(asManager(), 8)
	require.NoError(t, err)
	require.Len(t, page.Activities, 2)
	dimmed := map[string]bool{}
	for _, e := range page.Activities {
		dimmed[e.Activity.Name] = e.Dimmed
	}
	assert.Equal(t, map[string]bool{"Shown": false, "Hidden": true}, dimmed)

	last := h.events.Events()[len(h.events.Events())-1]
	assert.Equal(t, events.CourseModuleInstanceListViewed, last.Name)
	assert.Equal(t, int64(8), last.CourseID)
}
