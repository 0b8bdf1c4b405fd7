package models

import (
	"slices"
	"strings"
	"time"
)

// Role decides what an account may do. Every role may sign in, list and
// create projects; only editor roles may change existing ones.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleIntern   Role = "intern"
	RoleEmployee Role = "employee"
)

// Roles lists every role a user may hold, editors first.
var Roles = []Role{RoleAdmin, RoleManager, RoleIntern, RoleEmployee}

var editorRoles = []Role{RoleAdmin, RoleManager}

// CanEdit reports whether the role may modify existing projects.
func (r Role) CanEdit() bool { return slices.Contains(editorRoles, r) }

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool { return slices.Contains(Roles, r) }

// ParseRole normalizes case and whitespace. ok is false for unknown roles.
func ParseRole(s string) (role Role, ok bool) {
	role = Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", false
	}
	return role, true
}

// User is an account. Username and email are each unique.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser returns an unsaved user stamped with the current time.
func NewUser(username, email string, role Role) *User {
	now := time.Now()
	return &User{Username: username, Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
}

// CanEdit reports whether u may modify existing projects.
func (u *User) CanEdit() bool { return u.Role.CanEdit() }
