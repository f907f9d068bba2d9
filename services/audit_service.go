package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"debt_flow_app_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actor identifies who performed an operation and from where
type Actor struct {
	UserID    string
	UserName  string
	UserRole  string
	IPAddress string
	UserAgent string
	RequestID string
}

// ActorFromSession builds the actor from a session snapshot
func ActorFromSession(s *models.Session, ip, userAgent string) Actor {
	return Actor{
		UserID:    s.UserID,
		UserName:  s.UserName,
		UserRole:  string(s.UserRole),
		IPAddress: ip,
		UserAgent: userAgent,
	}
}

// AuditEntry is one operation to record
type AuditEntry struct {
	Action       models.AuditAction
	ResourceType string
	ResourceID   string
	Description  string
}

// AuditLogger writes the local audit trail
type AuditLogger struct {
	db      *gorm.DB
	log     *zap.Logger
	pending sync.WaitGroup
}

func NewAuditLogger(db *gorm.DB) *AuditLogger {
	return &AuditLogger{db: db, log: zap.L().Named("audit")}
}

// Record stores an entry synchronously
func (a *AuditLogger) Record(ctx context.Context, actor Actor, entry AuditEntry) error {
	auditLog := models.AuditLog{
		UserID:       ptrIfNotEmpty(actor.UserID),
		UserName:     actor.UserName,
		UserRole:     actor.UserRole,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Action:       entry.Action,
		Description:  entry.Description,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
		RequestID:    actor.RequestID,
	}
	if err := a.db.WithContext(ctx).Create(&auditLog).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// Log records an entry in the background so requests never wait on it
func (a *AuditLogger) Log(actor Actor, entry AuditEntry) {
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Record(ctx, actor, entry); err != nil {
			a.log.Error("audit write failed",
				zap.String("action", string(entry.Action)),
				zap.String("resource_id", entry.ResourceID),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every background write has finished
func (a *AuditLogger) Wait() {
	a.pending.Wait()
}

func ptrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	UserID       string
	ResourceType string
	Action       string
	DateFrom     time.Time
	DateTo       time.Time
	SearchQuery  string
}

// AuditPage is one page of audit logs
type AuditPage struct {
	Logs     []models.AuditLog
	Total    int64
	Page     int
	PageSize int
}

// Pages returns the page count
func (p *AuditPage) Pages() int {
	if p.PageSize <= 0 {
		return 1
	}
	pages := int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
	if pages < 1 {
		return 1
	}
	return pages
}

// List returns audit logs newest first
func (a *AuditLogger) List(ctx context.Context, filters AuditLogFilters, page, pageSize int) (*AuditPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 25
	}

	query := a.db.WithContext(ctx).Model(&models.AuditLog{})
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}
	if filters.SearchQuery != "" {
		pattern := "%" + filters.SearchQuery + "%"
		query = query.Where("resource_id LIKE ? OR description LIKE ? OR user_name LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var logs []models.AuditLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return &AuditPage{Logs: logs, Total: total, Page: page, PageSize: pageSize}, nil
}

// ResourceHistory returns the audit trail of one resource
func (a *AuditLogger) ResourceHistory(ctx context.Context, resourceType, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := a.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}
