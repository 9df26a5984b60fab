// Package service holds the business rules of the tracker. Services sit
// between the HTTP handlers and the stores:
//
//	handler (HTTP) → service (rules) → repository (SQL)
//	                              ↘ storage (image bytes), auth (tokens)
//
// Nothing in here knows about requests, cookies or status codes. Errors are
// apperror values so the handler layer can map them.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/auth"
	"github.com/sakif/sneaker-rotation/internal/model"
	"github.com/sakif/sneaker-rotation/internal/repository"
	"github.com/sakif/sneaker-rotation/internal/validation"
)

// errBadCredentials is deliberately the same for "no such email" and
// "wrong password".
var errBadCredentials = apperror.Unauthorized("invalid email or password")

// SignUpInput is the email + password registration form.
type SignUpInput struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,min=2,max=40"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SignInInput is the email + password login form.
type SignInInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult bundles the user with a freshly signed session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// AuthService is the identity service: accounts, profiles created
// alongside them, and session tokens.
type AuthService struct {
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validate  *validation.Validator
	logger    *zap.Logger
}

// NewAuthService wires an AuthService.
func NewAuthService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	validate *validation.Validator,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		profiles:  profiles,
		tokens:    tokens,
		passwords: passwords,
		validate:  validate,
		logger:    logger,
	}
}

// SignUp creates an account and its public profile, then signs the user in.
//
// The two inserts are not wrapped in a transaction. If the profile insert
// fails the account still exists and the profile is created on the next
// GitHub login, or the user is simply absent from /users.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Email: in.Email, Username: in.Username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "an account with this email already exists",
				Field:   "email",
			}
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	if err := s.profiles.CreateProfile(ctx, &model.Profile{ID: user.ID, Username: user.Username}); err != nil {
		s.logger.Error("profile creation failed after sign up",
			zap.String("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("service/auth: creating profile: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return s.issue(user)
}

// SignIn checks an email + password pair.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", in.Email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Warn("password verification error", zap.String("user_id", user.ID), zap.Error(err))
		}
		return nil, errBadCredentials
	}

	s.logger.Info("user signed in", zap.String("user_id", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub handles the OAuth callback once the provider has
// resolved the GitHub user. First login creates the account and profile;
// later logins refresh the email and keep everything else.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.ID == 0 {
		return nil, fmt.Errorf("service/auth: GitHub user must not be empty")
	}

	user := &model.User{
		GitHubID: gh.ID,
		Email:    gitHubEmail(gh),
		Username: gh.Login,
	}
	created, err := s.users.UpsertGitHub(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", gh.ID, err)
	}

	if err := s.ensureProfile(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated via GitHub",
		zap.String("user_id", user.ID),
		zap.String("login", gh.Login),
		zap.Bool("created", created),
	)
	return s.issue(user)
}

// Session returns the signed-in user's summary. A token whose user has
// been deleted is reported as unauthorized, the same as no session.
func (s *AuthService) Session(ctx context.Context, userID string) (*model.Session, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	return &model.Session{UserID: user.ID, Email: user.Email, Username: user.Username}, nil
}

// ValidateToken returns the user ID inside a session token.
func (s *AuthService) ValidateToken(token string) (string, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// TokenTTL is the session lifetime, for the cookie's Max-Age.
func (s *AuthService) TokenTTL() time.Duration { return s.tokens.TTL() }

func (s *AuthService) ensureProfile(ctx context.Context, user *model.User) error {
	_, err := s.profiles.GetProfile(ctx, user.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/auth: reading profile %s: %w", user.ID, err)
	}
	err = s.profiles.CreateProfile(ctx, &model.Profile{ID: user.ID, Username: user.Username})
	if err != nil && !errors.Is(err, apperror.ErrConflict) {
		return fmt.Errorf("service/auth: creating profile %s: %w", user.ID, err)
	}
	return nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// gitHubEmail falls back to GitHub's noreply address when the user keeps
// every email private. The users table requires a unique email.
func gitHubEmail(gh *auth.GitHubUser) string {
	if gh.Email != "" {
		return normalizeEmail(gh.Email)
	}
	return strconv.FormatInt(gh.ID, 10) + "+" + strings.ToLower(gh.Login) + "@users.noreply.github.com"
}
