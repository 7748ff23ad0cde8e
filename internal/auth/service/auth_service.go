package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/identity"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/repository"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/metrics"
)

// Role resolution outcomes, used as metric labels.
const (
	OutcomeFound          = "found"
	OutcomeBootstrapAdmin = "bootstrap_admin"
	OutcomeCreatedAdmin   = "created_admin"
	OutcomeError          = "error"
)

type AuthService struct {
	users    repository.UserDirectory
	accounts identity.AccountCreator
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewAuthService(users repository.UserDirectory, accounts identity.AccountCreator, log *slog.Logger, m *metrics.Metrics) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{
		users:    users,
		accounts: accounts,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// IsFirstUser reports whether the directory currently holds zero profiles.
//
// This is a plain read: two signups racing on an empty directory can both see
// true and both become admin. There is no transaction around the check.
func (s *AuthService) IsFirstUser(ctx context.Context) (bool, error) {
	return s.users.IsEmpty(ctx)
}

// ResolveRole answers which role principal p holds.
//
// An empty directory yields admin without writing anything. A principal with no
// profile gets one created with the admin role (setup fallback). Any directory
// failure yields RoleUnknown and a *domain.RoleResolutionError; callers must not
// grant access on RoleUnknown unless they document otherwise.
func (s *AuthService) ResolveRole(ctx context.Context, p *domain.Principal) (domain.Role, error) {
	log := logging.FromContext(ctx, s.log)
	if p == nil || p.ID == "" {
		return domain.RoleUnknown, domain.ErrMissingPrincipal
	}

	first, err := s.IsFirstUser(ctx)
	if err != nil {
		return s.resolutionFailed(log, p.ID, "is_first_user", err)
	}
	if first {
		s.metrics.RoleResolved(OutcomeBootstrapAdmin)
		return domain.RoleAdmin, nil
	}

	profile, err := s.users.Get(ctx, p.ID)
	if err == nil {
		s.metrics.RoleResolved(OutcomeFound)
		return profile.Role, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return s.resolutionFailed(log, p.ID, "get_profile", err)
	}

	profile = &domain.UserProfile{
		ID:        p.ID,
		Email:     p.Email,
		Role:      domain.RoleAdmin,
		CreatedAt: s.now().UTC(),
	}
	err = s.users.Create(ctx, profile)
	if errors.Is(err, domain.ErrUserExists) {
		// Someone else created it between our read and write; use theirs.
		existing, getErr := s.users.Get(ctx, p.ID)
		if getErr != nil {
			return s.resolutionFailed(log, p.ID, "get_profile", getErr)
		}
		s.metrics.RoleResolved(OutcomeFound)
		return existing.Role, nil
	}
	if err != nil {
		return s.resolutionFailed(log, p.ID, "create_profile", err)
	}

	log.Warn("created missing profile with admin role",
		slog.String("user_id", p.ID), slog.String("email", p.Email))
	s.metrics.RoleResolved(OutcomeCreatedAdmin)
	return domain.RoleAdmin, nil
}

func (s *AuthService) resolutionFailed(log *slog.Logger, id, op string, err error) (domain.Role, error) {
	rerr := &domain.RoleResolutionError{PrincipalID: id, Op: op, Err: err}
	log.Error("role resolution failed", slog.String("user_id", id), slog.String("op", op), logging.Err(err))
	s.metrics.RoleResolved(OutcomeError)
	return domain.RoleUnknown, rerr
}

// Signup creates the credential and the profile for a new principal.
//
// The first-user check runs before the credential exists. If the profile write
// fails after the credential was created, the principal is left without a profile;
// ResolveRole creates one on its next access.
func (s *AuthService) Signup(ctx context.Context, req domain.SignupRequest) (*domain.UserProfile, error) {
	log := logging.FromContext(ctx, s.log)
	email := strings.TrimSpace(req.Email)

	if err := validateSignup(email, req); err != nil {
		s.metrics.Signup("rejected", "")
		return nil, &domain.SignupError{Stage: domain.StageCredential, Email: email, Err: err}
	}

	first, err := s.IsFirstUser(ctx)
	if err != nil {
		s.metrics.Signup("failed", "")
		return nil, &domain.SignupError{Stage: domain.StageCredential, Email: email, Err: fmt.Errorf("check first user: %w", err)}
	}

	principal, err := s.accounts.CreateAccount(ctx, email, req.Password)
	if err != nil {
		s.metrics.Signup("failed", "")
		return nil, &domain.SignupError{Stage: domain.StageCredential, Email: email, Err: err}
	}

	role := req.Extra.Role
	if first {
		role = domain.RoleAdmin
	} else if !role.Known() {
		role = domain.RoleStudent
	}

	profile := &domain.UserProfile{
		ID:          principal.ID,
		Email:       email,
		Role:        role,
		DisplayName: req.Extra.DisplayName,
		PlanID:      req.Extra.PlanID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.users.Create(ctx, profile); err != nil {
		log.Error("profile write failed after credential creation",
			slog.String("user_id", principal.ID), logging.Err(err))
		s.metrics.Signup("partial", string(role))
		return nil, &domain.SignupError{Stage: domain.StageProfile, Email: email, Err: err}
	}

	log.Info("user signed up",
		slog.String("user_id", profile.ID), slog.String("role", string(role)), slog.Bool("first_user", first))
	s.metrics.Signup("ok", string(role))
	return profile, nil
}

func validateSignup(email string, req domain.SignupRequest) error {
	if email == "" || req.Password == "" {
		return fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: email: %v", domain.ErrInvalidInput, err)
	}
	if req.Extra.Role.Known() && !req.Extra.Role.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, req.Extra.Role)
	}
	return nil
}

// GetProfile retrieves a profile by principal ID
func (s *AuthService) GetProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	return s.users.Get(ctx, id)
}

// Profile satisfies session.ProfileSource for in-process sessions.
func (s *AuthService) Profile(ctx context.Context, p *domain.Principal) (*domain.UserProfile, error) {
	return s.users.Get(ctx, p.ID)
}

func (s *AuthService) ListUsers(ctx context.Context, limit int) ([]domain.UserProfile, error) {
	return s.users.List(ctx, limit)
}

// SetRole is the administrative path for changing a role. It must only be
// reachable behind an admin-only guard.
func (s *AuthService) SetRole(ctx context.Context, id string, role domain.Role) (*domain.UserProfile, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	profile, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	profile.Role = role
	if err := s.users.Update(ctx, profile); err != nil {
		return nil, err
	}

	logging.FromContext(ctx, s.log).Info("role changed",
		slog.String("user_id", id), slog.String("role", string(role)))
	return profile, nil
}

// SetAccess updates payment and access flags.
func (s *AuthService) SetAccess(ctx context.Context, id string, upd domain.AccessUpdate) (*domain.UserProfile, error) {
	profile, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	upd.Apply(profile)
	if err := s.users.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
