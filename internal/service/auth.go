package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/secret-share/internal/apperror"
	"github.com/sakif/secret-share/internal/auth"
	"github.com/sakif/secret-share/internal/model"
	"github.com/sakif/secret-share/internal/repository"
)

// AuthService handles owner identity: GitHub login, the /api/me profile,
// user-agent tracking and account removal.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                                 ↘ TokenService (JWT)
//
// Visitors never reach this service. They prove access with an item
// password, which ItemService checks.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresIn time.Duration
}

// LoginOrRegisterGitHub upserts the GitHub user and issues an access token.
//
// UPSERT ON github_id:
// GitHub IDs are stable, so first login inserts and later logins refresh
// login/email/avatar. The internal ID (and therefore item ownership) never
// changes.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID:  ghUser.ID,
		Login:     ghUser.Login,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{
		User:      user,
		Token:     token,
		ExpiresIn: s.tokens.TTL(),
	}, nil
}

// GetUserByID returns the user for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

// UpdateUserAgent records the client string of an authenticated request.
// An empty user agent is ignored.
func (s *AuthService) UpdateUserAgent(ctx context.Context, userID, userAgent string) error {
	if userID == "" || userAgent == "" {
		return nil
	}
	if err := s.users.UpdateUserAgent(ctx, userID, userAgent); err != nil {
		return fmt.Errorf("service/auth: updating user agent for %s: %w", userID, err)
	}
	return nil
}

// DeleteAccount removes the user. Owners of items cannot be removed: items
// are kept for statistics and reference their owner, so the store answers
// with apperror.ErrConflict, which is rewrapped with a readable message.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.Unauthorized("not authenticated")
	}

	err := s.users.DeleteUser(ctx, userID)
	switch {
	case err == nil:
		s.logger.Info("user deleted", slog.String("userID", userID))
		return nil
	case errors.Is(err, apperror.ErrConflict):
		return &apperror.AppError{
			Err:     apperror.ErrConflict,
			Message: "account still owns items and cannot be deleted",
		}
	case errors.Is(err, apperror.ErrNotFound):
		return err
	default:
		return apperror.Storage("deleting user", err)
	}
}

// ValidateToken returns the user ID encoded in tokenStr.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}
