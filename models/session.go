package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is a browser login held by this server. The backend bearer token
// is stored encrypted and never leaves the server.
type Session struct {
	ID        string    `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Token          string    `gorm:"uniqueIndex;not null;type:varchar(128)" json:"-"`
	BackendToken   string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt      time.Time `gorm:"not null;index" json:"expires_at"`
	IPAddress      string    `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent      string    `gorm:"type:text" json:"user_agent"`
	LastValidateAt time.Time `json:"last_validate_at"`

	// Snapshot of the backend user at login
	UserID    string  `gorm:"type:varchar(50);not null;index" json:"user_id"`
	UserName  string  `gorm:"not null" json:"user_name"`
	UserEmail string  `gorm:"not null" json:"user_email"`
	UserRole  Role    `gorm:"type:varchar(20);not null" json:"user_role"`
	AgencyID  *string `gorm:"type:varchar(50)" json:"agency_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Session model
func (Session) TableName() string {
	return "sessions"
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// User rebuilds the backend user from the snapshot
func (s *Session) User() *User {
	return &User{
		ID:       s.UserID,
		Name:     s.UserName,
		Email:    s.UserEmail,
		Role:     s.UserRole,
		AgencyID: s.AgencyID,
	}
}
