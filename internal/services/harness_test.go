package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos/testutil"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/events"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
)

const (
	learnerID = int64(11)
	otherID   = int64(12)
	teacherID = int64(21)
	adminID   = int64(2)
)

type harness struct {
	db     *gorm.DB
	repos  *repos.Set
	files  filestore.Store
	events *events.Recorder
	svc    *Services
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	set := repos.NewSet(db, log)
	pool, err := filestore.NewDiskPool(t.TempDir(), log)
	require.NoError(t, err)
	store := filestore.NewStore(set.Files, pool, log)
	rec := &events.Recorder{}
	return &harness{
		db:     db,
		repos:  set,
		files:  store,
		events: rec,
		svc:    New(db, log, set, store, rec),
	}
}

func as(userID int64, roles ...string) context.Context {
	return access.WithRoles(context.Background(), access.DefaultRoleTable(), userID, roles...)
}

func asManager() context.Context { return as(adminID, "manager") }

func asTeacher() context.Context { return as(teacherID, "editingteacher") }

func asLearner(id int64) context.Context { return as(id, "student") }
