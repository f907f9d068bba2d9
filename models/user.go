package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Role is the portal role of an authenticated user
type Role string

const (
	// RoleFedex is the internal administrator role
	RoleFedex Role = "fedex"
	// RoleAgency is an employee of a collection agency
	RoleAgency Role = "agency"
)

// AllRoles lists every role
var AllRoles = []Role{RoleFedex, RoleAgency}

// legacyRoles maps older backend spellings onto the current roles
var legacyRoles = map[string]Role{
	"dca":   RoleAgency,
	"admin": RoleFedex,
}

// ErrUnknownRole is returned when decoding a role outside the closed set
var ErrUnknownRole = errors.New("unknown role")

// ParseRole normalizes a backend role string
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleFedex, RoleAgency:
		return Role(raw), nil
	}
	if role, ok := legacyRoles[raw]; ok {
		return role, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	role, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Label returns the display name of the role
func (r Role) Label() string {
	switch r {
	case RoleFedex:
		return "FedEx Admin"
	case RoleAgency:
		return "Agency"
	}
	return string(r)
}

// User is the authenticated principal as returned by the backend
type User struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Role     Role    `json:"role"`
	AgencyID *string `json:"agencyId,omitempty"`
}

// HasAgency reports whether the user is tied to an agency
func (u *User) HasAgency() bool {
	return u.AgencyID != nil && *u.AgencyID != ""
}

// LoginRequest is the payload of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the reply of POST /auth/login
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// MeResponse is the reply of GET /auth/me
type MeResponse struct {
	User User `json:"user"`
}
