package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
)

const minPasswordLength = 8

// Register creates an account and signs the user in.
func (s *Service) Register(ctx context.Context, req models.UserRegisterRequest) (*models.UserLoginResponse, error) {
	email := models.NormalizeEmail(req.Email)
	if email == "" {
		return nil, BadRequest("Email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, BadRequest("Password must be at least 8 characters")
	}
	if _, err := s.db.GetUserByEmail(ctx, email); err == nil {
		return nil, Conflict("Email is already registered")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, Internal(err)
	}
	now := s.now()
	user := &models.User{
		ID:        newID(),
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Password:  string(hash),
		Role:      models.UserRoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, Conflict("Email is already registered")
		}
		return nil, Internal(err)
	}
	return s.issueTokens(user)
}

// Login checks credentials and returns a fresh token pair.
func (s *Service) Login(ctx context.Context, req models.UserLoginRequest) (*models.UserLoginResponse, error) {
	user, err := s.db.GetUserByEmail(ctx, models.NormalizeEmail(req.Email))
	if errors.Is(err, database.ErrNotFound) {
		return nil, Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, Unauthorized("Invalid email or password")
	}
	return s.issueTokens(user)
}

// Refresh exchanges a refresh token for a new token pair. The user is
// re-read so role changes take effect.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.UserLoginResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, Unauthorized("Invalid or expired refresh token")
	}
	user, err := s.db.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, Unauthorized("Invalid or expired refresh token")
	}
	if err != nil {
		return nil, Internal(err)
	}
	return s.issueTokens(user)
}

func (s *Service) issueTokens(user *models.User) (*models.UserLoginResponse, error) {
	pair, err := s.jwt.GenerateTokenPair(user)
	if err != nil {
		return nil, Internal(err)
	}
	return &models.UserLoginResponse{
		User:         *user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Me returns the stored account of userID.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "User not found")
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "User not found")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, BadRequest("Name is required")
	}
	user.Name = name
	user.UpdatedAt = s.now()
	if err := s.db.UpdateUser(ctx, user); err != nil {
		return nil, fromStore(err, "User not found")
	}
	return user, nil
}

// requireGlobalRole re-reads the caller's global role from the store.
func (s *Service) requireGlobalRole(ctx context.Context, userID string, allowed ...models.UserRole) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, Unauthorized("User not found")
	}
	if err != nil {
		return nil, Internal(err)
	}
	for _, r := range allowed {
		if user.Role == r {
			return user, nil
		}
	}
	return nil, Forbidden("Insufficient privileges")
}

func (s *Service) ListUsers(ctx context.Context, actorID string) ([]models.User, error) {
	if _, err := s.requireGlobalRole(ctx, actorID, models.UserRoleAdmin, models.UserRoleSuperAdmin); err != nil {
		return nil, err
	}
	users, err := s.db.ListUsers(ctx)
	if err != nil {
		return nil, Internal(err)
	}
	return users, nil
}

// ChangeUserRole sets another user's global role. Super-admins only.
func (s *Service) ChangeUserRole(ctx context.Context, actorID, targetID string, role models.UserRole) (*models.User, error) {
	if _, err := s.requireGlobalRole(ctx, actorID, models.UserRoleSuperAdmin); err != nil {
		return nil, err
	}
	if actorID == targetID {
		return nil, BadRequest("You cannot change your own role")
	}
	if !role.IsValid() {
		return nil, BadRequest("Role must be user, admin or super-admin")
	}
	if err := s.db.UpdateUserRole(ctx, targetID, role); err != nil {
		return nil, fromStore(err, "User not found")
	}
	return s.Me(ctx, targetID)
}

func (s *Service) Stats(ctx context.Context, actorID string) (*models.SystemStats, error) {
	if _, err := s.requireGlobalRole(ctx, actorID, models.UserRoleAdmin, models.UserRoleSuperAdmin); err != nil {
		return nil, err
	}
	stats, err := s.db.Stats(ctx)
	if err != nil {
		return nil, Internal(err)
	}
	return stats, nil
}
