package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction represents the type of operation performed
type AuditAction string

const (
	AuditActionLogin         AuditAction = "LOGIN"
	AuditActionLogout        AuditAction = "LOGOUT"
	AuditActionAssign        AuditAction = "ASSIGN"
	AuditActionAutoAssign    AuditAction = "AUTO_ASSIGN"
	AuditActionTimelineEvent AuditAction = "TIMELINE_EVENT"
	AuditActionEmail         AuditAction = "EMAIL"
	AuditActionCall          AuditAction = "CALL"
	AuditActionUpload        AuditAction = "UPLOAD"
	AuditActionExport        AuditAction = "EXPORT"
	AuditActionDenied        AuditAction = "ACCESS_DENIED"
)

// AllAuditActions lists every action for the audit filter
var AllAuditActions = []AuditAction{
	AuditActionLogin,
	AuditActionLogout,
	AuditActionAssign,
	AuditActionAutoAssign,
	AuditActionTimelineEvent,
	AuditActionEmail,
	AuditActionCall,
	AuditActionUpload,
	AuditActionExport,
	AuditActionDenied,
}

// AuditLog represents an immutable record of a user operation
type AuditLog struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_audit_created_at" json:"created_at"`

	// Actor identification, denormalized
	UserID   *string `gorm:"type:varchar(50);index:idx_audit_user" json:"user_id,omitempty"`
	UserName string  `gorm:"not null" json:"user_name"`
	UserRole string  `gorm:"not null" json:"user_role"`

	// Target resource
	ResourceType string `gorm:"not null;index:idx_audit_resource" json:"resource_type"` // e.g. "Case", "Session"
	ResourceID   string `gorm:"type:varchar(50);index:idx_audit_resource" json:"resource_id"`

	Action      AuditAction `gorm:"not null;index:idx_audit_action" json:"action"`
	Description string      `gorm:"type:text" json:"description,omitempty"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `gorm:"type:varchar(64)" json:"request_id,omitempty"`
}

// BeforeCreate generates UUID
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate prevents modification of audit logs
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// BeforeDelete prevents deletion of audit logs
func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// TableName specifies the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}
