package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"plantmaint/apperr"
	"plantmaint/db"
	"plantmaint/models"
)

// UserService is the administrator's view of accounts.
type UserService struct {
	repo *db.Repository
}

func NewUserService(repo *db.Repository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.repo.ListUsers(ctx)
}

// SetRole changes another user's role. Administrators cannot change their
// own role.
func (s *UserService) SetRole(ctx context.Context, adminID string, req models.RoleRequest) (*models.User, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if req.UserID == adminID {
		return nil, apperr.Validation("userId", "you cannot change your own role")
	}

	user, err := s.repo.GetUser(ctx, req.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("user", req.UserID)
	}
	if err != nil {
		return nil, apperr.Store("get user", err)
	}

	if err := s.repo.UpdateUser(ctx, req.UserID, map[string]interface{}{"role": string(req.Role)}); err != nil {
		return nil, apperr.Store("update user", err)
	}
	s.repo.LogAudit(ctx, adminID, models.AuditRoleChanged, fmt.Sprintf("%s: %s -> %s", user.Email, user.Role, req.Role))

	user.Role = req.Role
	return user, nil
}

// UpdateProfile replaces userID's profile details. The display name becomes
// the full name, or the e-mail local part when both names are empty.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req models.ProfileRequest) (*models.User, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	user, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("user", userID)
	}
	if err != nil {
		return nil, apperr.Store("get user", err)
	}

	user.UserProfile = models.UserProfile{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Phone:      strings.TrimSpace(req.Phone),
		Department: strings.TrimSpace(req.Department),
		Position:   strings.TrimSpace(req.Position),
		EmployeeID: strings.TrimSpace(req.EmployeeID),
	}
	user.DisplayName = user.FullName()
	if user.DisplayName == "" {
		user.DisplayName, _, _ = strings.Cut(user.Email, "@")
	}

	fields := user.UserProfile.Fields()
	fields["displayName"] = user.DisplayName
	if err := s.repo.UpdateUser(ctx, userID, fields); err != nil {
		return nil, apperr.Store("update user", err)
	}
	s.repo.LogAudit(ctx, userID, models.AuditProfileUpdated, user.Email)
	return user, nil
}

// AuditLog returns the newest audit entries.
func (s *UserService) AuditLog(ctx context.Context, limit int) ([]models.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}
