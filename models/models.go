// models.go
// Defines the records the maintenance backend reads and writes, and the
// request payloads the HTTP layer accepts.

package models

import (
	"strings"
	"time"
)

// Collection names in the record store.
const (
	CollectionServiceOrders   = "serviceOrders"
	CollectionPreventiveTasks = "preventiveTasks"
	CollectionEquipments      = "equipments"
	CollectionSectors         = "sectors"
	CollectionMaintainers     = "maintainers"
	CollectionUsers           = "users"
	CollectionPasswords       = "passwords"
	CollectionAuditLogs       = "auditLogs"
	CollectionSettings        = "settings"
)

// DateLayout is the format of user-entered calendar dates.
const DateLayout = "2006-01-02"

// ServiceOrder is one maintenance work request (O.S.).
type ServiceOrder struct {
	ID                 string      `json:"id"`
	OrderNumber        string      `json:"orderNumber"`
	Status             OrderStatus `json:"status"`
	StatusText         string      `json:"statusText"` // as stored
	Priority           Priority    `json:"priority"`
	ServiceType        string      `json:"serviceType"`
	Equipment          string      `json:"equipment"`
	EquipmentID        string      `json:"equipmentId"`
	Location           string      `json:"location"`
	Sector             string      `json:"sector"`
	Technician         string      `json:"technician"`
	Requester          string      `json:"requester"`
	ServiceDate        string      `json:"serviceDate"`
	ProblemDescription string      `json:"problemDescription"`
	Observations       string      `json:"observations"`
	TaskID             string      `json:"taskId,omitempty"`
	CreatedBy          string      `json:"createdBy,omitempty"`
	CreatedAt          *time.Time  `json:"createdAt,omitempty"`
	UpdatedAt          *time.Time  `json:"updatedAt,omitempty"`
}

// PreventiveTask is a recurring maintenance schedule entry.
type PreventiveTask struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Equipment         string     `json:"equipment"`
	Frequency         Frequency  `json:"frequency"`
	NextDate          string     `json:"nextDate"`
	Description       string     `json:"description"`
	Status            TaskStatus `json:"status"`
	LastCompletedDate string     `json:"lastCompletedDate,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	CreatedAt         *time.Time `json:"createdAt,omitempty"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

// ParseNextDate returns the task's due date. ok is false when the date is
// missing or malformed.
func (t PreventiveTask) ParseNextDate() (time.Time, bool) {
	return ParseDate(t.NextDate)
}

// Equipment is an asset that orders and tasks refer to.
type Equipment struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Model           string          `json:"model"`
	Serial          string          `json:"serial"`
	Status          EquipmentStatus `json:"status"`
	Location        string          `json:"location"`
	Sector          string          `json:"sector"`
	LastMaintenance string          `json:"lastMaintenance"`
	NextMaintenance string          `json:"nextMaintenance"`
	Notes           string          `json:"notes"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time      `json:"updatedAt,omitempty"`
}

// Sector is a plant area used as a reference list.
type Sector struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Maintainer is a technician name offered in order forms.
type Maintainer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// UserRole defines the access level of a user.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleManager    UserRole = "MANAGER"
	RoleTechnician UserRole = "TECHNICIAN"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTechnician:
		return true
	}
	return false
}

// User is an authenticated account.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	Role        UserRole   `json:"role"`
	UserProfile
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// UserProfile holds the personal details a user edits on their profile.
type UserProfile struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Position   string `json:"position"`
	EmployeeID string `json:"employeeId"`
}

// FullName joins first and last name.
func (p UserProfile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// AuditLog records who changed what.
type AuditLog struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Action    string     `json:"action"`
	Details   string     `json:"details"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Audit actions.
const (
	AuditOrderCreated    = "ORDER_CREATED"
	AuditOrderStatus     = "ORDER_STATUS"
	AuditOrderUpdated    = "ORDER_UPDATED"
	AuditTaskCompleted   = "TASK_COMPLETED"
	AuditDashboardExport = "DASHBOARD_EXPORT"
	AuditPasswordChanged = "PASSWORD_CHANGED"
	AuditEquipmentDelete = "EQUIPMENT_DELETED"
	AuditRoleChanged     = "ROLE_CHANGED"
	AuditProfileUpdated  = "PROFILE_UPDATED"
)
