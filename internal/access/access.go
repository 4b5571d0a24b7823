// Package access maps roles to activity capabilities and checks them
// against the request identity.
package access

import (
	"context"
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/ctxutil"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

const (
	CapView               = "mod/trainingevaluation:view"
	CapEvaluate           = "mod/trainingevaluation:evaluate"
	CapEvaluateSelf       = "mod/trainingevaluation:evaluateself"
	CapFinaliseEvaluation = "mod/trainingevaluation:finaliseevaluation"
	CapNewEvaluation      = "mod/trainingevaluation:newevaluation"
	CapViewOldEvaluations = "mod/trainingevaluation:viewoldevaluations"
	CapManage             = "mod/trainingevaluation:manage"
	CapAddInstance        = "mod/trainingevaluation:addinstance"
	CapBackup             = "mod/trainingevaluation:backup"
	CapRestore            = "mod/trainingevaluation:restore"
)

// Capabilities lists every known capability.
var Capabilities = []string{
	CapView, CapEvaluate, CapEvaluateSelf, CapFinaliseEvaluation, CapNewEvaluation,
	CapViewOldEvaluations, CapManage, CapAddInstance, CapBackup, CapRestore,
}

const roleDefinitionsEnv = "ROLE_DEFINITIONS_PATH"

//go:embed roles.yaml
var defaultRolesFS embed.FS

type yamlRoleTable struct {
	Version int                 `yaml:"version"`
	Roles   map[string][]string `yaml:"roles"`
}

// RoleTable resolves role names to capability sets.
type RoleTable struct {
	roles map[string]map[string]bool
}

// LoadRoleTable reads ROLE_DEFINITIONS_PATH when set, else the embedded
// default archetypes.
func LoadRoleTable(log *logger.Logger) (*RoleTable, error) {
	path := strings.TrimSpace(os.Getenv(roleDefinitionsEnv))
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else {
		data, err = defaultRolesFS.ReadFile("roles.yaml")
		if err != nil {
			return nil, err
		}
	}
	tbl, err := ParseRoleTable(data)
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Info("Role table loaded", "source", sourceName(path), "roles", tbl.RoleNames())
	}
	return tbl, nil
}

func sourceName(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// DefaultRoleTable returns the embedded archetypes and panics if they are
// malformed.
func DefaultRoleTable() *RoleTable {
	data, err := defaultRolesFS.ReadFile("roles.yaml")
	if err != nil {
		panic(err)
	}
	tbl, err := ParseRoleTable(data)
	if err != nil {
		panic(err)
	}
	return tbl
}

func ParseRoleTable(data []byte) (*RoleTable, error) {
	var tbl yamlRoleTable
	if err := yaml.Unmarshal(data, &tbl); err != nil {
		return nil, fmt.Errorf("parse role table: %w", err)
	}
	if len(tbl.Roles) == 0 {
		return nil, fmt.Errorf("role table defines no roles")
	}
	known := make(map[string]bool, len(Capabilities))
	for _, c := range Capabilities {
		known[c] = true
	}
	out := &RoleTable{roles: make(map[string]map[string]bool, len(tbl.Roles))}
	for role, caps := range tbl.Roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			return nil, fmt.Errorf("role table: empty role name")
		}
		set := make(map[string]bool, len(caps))
		for _, c := range caps {
			c = strings.TrimSpace(c)
			if !known[c] {
				return nil, fmt.Errorf("role %q: unknown capability %q", role, c)
			}
			set[c] = true
		}
		out.roles[role] = set
	}
	return out, nil
}

func (t *RoleTable) RoleNames() []string {
	out := make([]string, 0, len(t.roles))
	for r := range t.roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Resolve unions the capabilities of the given roles. Unknown roles grant
// nothing.
func (t *RoleTable) Resolve(roles []string) map[string]bool {
	out := map[string]bool{}
	if t == nil {
		return out
	}
	for _, r := range roles {
		for c := range t.roles[strings.ToLower(strings.TrimSpace(r))] {
			out[c] = true
		}
	}
	return out
}

// Require fails with a forbidden error unless the request carries cap.
func Require(ctx context.Context, op, capability string) error {
	if ctxutil.GetRequestData(ctx).Has(capability) {
		return nil
	}
	return domainagg.Forbidden(op, capability)
}

// RequireEvaluate checks the capability to write responses for target:
// evaluateself for oneself, evaluate for anyone else.
func RequireEvaluate(ctx context.Context, op string, targetUserID int64) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd != nil && rd.UserID == targetUserID {
		if rd.Has(CapEvaluateSelf) || rd.Has(CapEvaluate) {
			return nil
		}
		return domainagg.Forbidden(op, CapEvaluateSelf)
	}
	return Require(ctx, op, CapEvaluate)
}

// RequireViewUser allows reading one's own evaluation with view, and
// another user's with evaluate.
func RequireViewUser(ctx context.Context, op string, targetUserID int64) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd != nil && rd.UserID == targetUserID {
		return Require(ctx, op, CapView)
	}
	return Require(ctx, op, CapEvaluate)
}

// CurrentUserID is zero when the context carries no identity.
func CurrentUserID(ctx context.Context) int64 {
	if rd := ctxutil.GetRequestData(ctx); rd != nil {
		return rd.UserID
	}
	return 0
}

// WithRoles attaches an identity resolved through the table. Used by CLIs
// and tests that bypass HTTP auth.
func WithRoles(ctx context.Context, t *RoleTable, userID int64, roles ...string) context.Context {
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		UserID:       userID,
		Roles:        roles,
		Capabilities: t.Resolve(roles),
	})
}

// WithCapabilities attaches an identity holding exactly caps. Background
// runs use it to act for the user who queued them.
func WithCapabilities(ctx context.Context, userID int64, caps ...string) context.Context {
	set := make(map[string]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: userID, Capabilities: set})
}
