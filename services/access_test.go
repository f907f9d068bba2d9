package services

import (
	"net/http"
	"testing"

	"debt_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessRouteTable(t *testing.T) {
	access, err := NewAccess(setupTestDB(t))
	require.NoError(t, err)

	tests := []struct {
		role    models.Role
		path    string
		method  string
		allowed bool
	}{
		{models.RoleFedex, "/agencies", http.MethodGet, true},
		{models.RoleAgency, "/agencies", http.MethodGet, false},
		{models.RoleFedex, "/", http.MethodGet, true},
		{models.RoleAgency, "/", http.MethodGet, false},
		{models.RoleFedex, "/agency/a1", http.MethodGet, true},
		{models.RoleAgency, "/agency/a1", http.MethodGet, false},
		{models.RoleFedex, "/case-allocation/auto-assign", http.MethodPost, true},
		{models.RoleAgency, "/case-allocation/auto-assign", http.MethodPost, false},
		{models.RoleFedex, "/audit-logs", http.MethodGet, true},
		{models.RoleAgency, "/audit-logs", http.MethodGet, false},

		{models.RoleAgency, "/my-cases", http.MethodGet, true},
		{models.RoleFedex, "/my-cases", http.MethodGet, false},
		{models.RoleAgency, "/pending-actions", http.MethodGet, true},
		{models.RoleFedex, "/pending-actions", http.MethodGet, false},

		{models.RoleAgency, "/case/CS-1", http.MethodGet, true},
		{models.RoleFedex, "/case/CS-1", http.MethodGet, true},
		{models.RoleAgency, "/case/CS-1/timeline", http.MethodPost, true},
		{models.RoleAgency, "/case/CS-1/call", http.MethodPost, true},
		{models.RoleAgency, "/case/CS-1/assign", http.MethodPost, false},
		{models.RoleFedex, "/case/CS-1/assign", http.MethodPost, true},
		{models.RoleAgency, "/customers", http.MethodGet, true},
		{models.RoleAgency, "/customer/c9", http.MethodGet, true},
		{models.RoleAgency, "/customers", http.MethodPost, false},
		{models.RoleAgency, "/recovery-stats", http.MethodGet, true},
		{models.RoleAgency, "/recovery-stats/report", http.MethodGet, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+" "+tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.allowed, access.Allowed(tt.role, tt.path, tt.method))
		})
	}
}

func TestAccessSeedIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewAccess(db)
	require.NoError(t, err)

	var first int64
	require.NoError(t, db.Table("casbin_rule").Count(&first).Error)

	access, err := NewAccess(db)
	require.NoError(t, err)

	var second int64
	require.NoError(t, db.Table("casbin_rule").Count(&second).Error)
	assert.Equal(t, first, second)
	assert.True(t, access.Allowed(models.RoleFedex, "/agencies", http.MethodGet))
}

func TestHasRoleAndLanding(t *testing.T) {
	assert.True(t, HasRole(models.RoleFedex, models.RoleFedex, models.RoleAgency))
	assert.False(t, HasRole(models.RoleAgency, models.RoleFedex))
	assert.False(t, HasRole(models.RoleAgency))

	assert.Equal(t, "/", LandingPath(models.RoleFedex))
	assert.Equal(t, "/my-cases", LandingPath(models.RoleAgency))
}
