package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"debt_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testActor = Actor{UserID: "u1", UserName: "Admin User", UserRole: "fedex", IPAddress: "127.0.0.1"}

func TestAuditRecord(t *testing.T) {
	db := setupTestDB(t)
	audit := NewAuditLogger(db)
	ctx := context.Background()

	err := audit.Record(ctx, testActor, AuditEntry{
		Action:       models.AuditActionAssign,
		ResourceType: "Case",
		ResourceID:   "CS-1",
		Description:  "Assigned to Alpha Recovery",
	})
	require.NoError(t, err)

	history, err := audit.ResourceHistory(ctx, "Case", "CS-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "u1", *history[0].UserID)
	assert.Equal(t, models.AuditActionAssign, history[0].Action)
	assert.NotEmpty(t, history[0].ID)

	anonymous := Actor{UserName: "system", UserRole: "system"}
	require.NoError(t, audit.Record(ctx, anonymous, AuditEntry{Action: models.AuditActionAutoAssign, ResourceType: "Case", ResourceID: "CS-2"}))
	history, err = audit.ResourceHistory(ctx, "Case", "CS-2")
	require.NoError(t, err)
	assert.Nil(t, history[0].UserID)
}

func TestAuditLogAsync(t *testing.T) {
	db := setupTestDB(t)
	audit := NewAuditLogger(db)

	audit.Log(testActor, AuditEntry{Action: models.AuditActionLogin, ResourceType: "Session", ResourceID: "s1"})

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&models.AuditLog{}).Where("resource_id = ?", "s1").Count(&count)
		return count == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestAuditList(t *testing.T) {
	db := setupTestDB(t)
	audit := NewAuditLogger(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 30; i++ {
		action := models.AuditActionAssign
		if i%3 == 0 {
			action = models.AuditActionTimelineEvent
		}
		entry := models.AuditLog{
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
			UserName:     "Admin User",
			UserRole:     "fedex",
			ResourceType: "Case",
			ResourceID:   fmt.Sprintf("CS-%02d", i),
			Action:       action,
		}
		require.NoError(t, db.Create(&entry).Error)
	}

	page, err := audit.List(ctx, AuditLogFilters{}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(30), page.Total)
	assert.Len(t, page.Logs, 25)
	assert.Equal(t, 2, page.Pages())
	assert.Equal(t, "CS-29", page.Logs[0].ResourceID, "newest first")

	page, err = audit.List(ctx, AuditLogFilters{}, 2, 25)
	require.NoError(t, err)
	assert.Len(t, page.Logs, 5)

	page, err = audit.List(ctx, AuditLogFilters{Action: string(models.AuditActionTimelineEvent)}, 1, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(10), page.Total)

	page, err = audit.List(ctx, AuditLogFilters{SearchQuery: "CS-1"}, 1, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(10), page.Total, "CS-10 through CS-19")

	page, err = audit.List(ctx, AuditLogFilters{DateFrom: base.Add(25 * time.Minute)}, 1, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
}
