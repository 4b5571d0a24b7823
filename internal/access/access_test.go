package access

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
)

func TestDefaultRoleTable(t *testing.T) {
	tbl := DefaultRoleTable()
	assert.Equal(t, []string{"editingteacher", "manager", "student", "teacher"}, tbl.RoleNames())

	student := tbl.Resolve([]string{"student"})
	assert.True(t, student[CapView])
	assert.True(t, student[CapEvaluateSelf])
	assert.False(t, student[CapEvaluate])

	union := tbl.Resolve([]string{"Student", "teacher", "ghost"})
	assert.True(t, union[CapEvaluate])
	assert.True(t, union[CapEvaluateSelf])
	assert.False(t, union[CapManage])
}

func TestParseRoleTableRejectsUnknownCapability(t *testing.T) {
	_, err := ParseRoleTable([]byte("roles:\n  x:\n    - mod/trainingevaluation:fly\n"))
	require.Error(t, err)

	_, err = ParseRoleTable([]byte("version: 1\n"))
	require.Error(t, err)
}

func TestLoadRoleTableFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  auditor:\n    - mod/trainingevaluation:view\n    - mod/trainingevaluation:viewoldevaluations\n"), 0o600))
	t.Setenv("ROLE_DEFINITIONS_PATH", path)

	tbl, err := LoadRoleTable(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"auditor"}, tbl.RoleNames())
	assert.True(t, tbl.Resolve([]string{"auditor"})[CapViewOldEvaluations])
}

func TestRequireEvaluate(t *testing.T) {
	tbl := DefaultRoleTable()

	student := WithRoles(context.Background(), tbl, 5, "student")
	require.NoError(t, RequireEvaluate(student, "op", 5))
	err := RequireEvaluate(student, "op", 6)
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeForbidden))

	teacher := WithRoles(context.Background(), tbl, 2, "teacher")
	require.NoError(t, RequireEvaluate(teacher, "op", 5))
	require.NoError(t, RequireViewUser(teacher, "op", 5))
	require.NoError(t, RequireViewUser(student, "op", 5))
	require.Error(t, RequireViewUser(student, "op", 6))

	anon := context.Background()
	require.Error(t, Require(anon, "op", CapView))
	assert.Equal(t, int64(0), CurrentUserID(anon))
	assert.Equal(t, int64(2), CurrentUserID(teacher))
}
