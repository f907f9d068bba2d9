package services

import (
	_ "embed"
	"fmt"
	"net/http"

	"debt_flow_app_go/models"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed access_model.conf
var accessModelText string

const (
	ActionView = "view"
	ActionAct  = "act"

	subjectUser = "role:user"
)

// Access answers route questions for a role from the seeded casbin policy
type Access struct {
	enforcer *casbin.SyncedEnforcer
	log      *zap.Logger
}

// NewAccess builds the enforcer on top of the casbin_rule table and seeds
// the route policy.
func NewAccess(db *gorm.DB) (*Access, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}
	m, err := model.NewModelFromString(accessModelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse access model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	if err := seedAccessPolicies(enforcer); err != nil {
		return nil, fmt.Errorf("failed to seed policy: %w", err)
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return &Access{enforcer: enforcer, log: zap.L().Named("access")}, nil
}

// RoleSubject is the casbin subject for a role
func RoleSubject(role models.Role) string {
	return "role:" + string(role)
}

// ActionForMethod maps safe methods to view and the rest to act
func ActionForMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ActionView
	}
	return ActionAct
}

// Allowed reports whether role may use the route pattern with method
func (a *Access) Allowed(role models.Role, route, method string) bool {
	ok, err := a.enforcer.Enforce(RoleSubject(role), route, ActionForMethod(method))
	if err != nil {
		a.log.Error("policy evaluation failed", zap.String("route", route), zap.Error(err))
		return false
	}
	return ok
}

// HasRole reports whether role is one of allowed
func HasRole(role models.Role, allowed ...models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// LandingPath is where a role goes after login or when opening "/"
func LandingPath(role models.Role) string {
	if role == models.RoleAgency {
		return "/my-cases"
	}
	return "/"
}

func seedAccessPolicies(enforcer *casbin.SyncedEnforcer) error {
	fedex := RoleSubject(models.RoleFedex)
	agency := RoleSubject(models.RoleAgency)

	groupings := [][]string{
		{fedex, subjectUser},
		{agency, subjectUser},
	}
	for _, g := range groupings {
		if _, err := enforcer.AddGroupingPolicy(g); err != nil {
			return err
		}
	}

	policies := [][]string{
		// Admin only
		{fedex, "/", ActionView},
		{fedex, "/dashboard/*", ActionView},
		{fedex, "/ws/dashboard", ActionView},
		{fedex, "/case-allocation", ActionView},
		{fedex, "/case-allocation/*", "*"},
		{fedex, "/agencies", ActionView},
		{fedex, "/agency/:id", ActionView},
		{fedex, "/audit-logs", ActionView},
		{fedex, "/case/:id/assign", ActionAct},
		{fedex, "/recovery-stats/report", ActionView},

		// Agency only
		{agency, "/my-cases", ActionView},
		{agency, "/pending-actions", ActionView},

		// Shared
		{subjectUser, "/customers", ActionView},
		{subjectUser, "/customer/:id", ActionView},
		{subjectUser, "/case/:id", ActionView},
		{subjectUser, "/case/:id/timeline", "*"},
		{subjectUser, "/case/:id/timeline/*", "*"},
		{subjectUser, "/case/:id/email", ActionAct},
		{subjectUser, "/case/:id/call", ActionAct},
		{subjectUser, "/recovery-stats", ActionView},
		{subjectUser, "/api/me", ActionView},
		{subjectUser, "/toast", ActionView},
		{subjectUser, "/toast/dismiss", ActionAct},
		{subjectUser, "/upload-progress", "*"},
		{subjectUser, "/upload-progress/*", "*"},
	}
	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p); err != nil {
			return err
		}
	}
	return nil
}
