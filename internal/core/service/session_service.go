package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/familycircle/circle-api/internal/core/domain"
	"github.com/familycircle/circle-api/internal/core/ports"
	"github.com/familycircle/circle-api/internal/pkg/metrics"
)

const minPasswordLength = 6

var tracer = otel.Tracer("github.com/familycircle/circle-api/internal/core/service")

// SessionService coordinates the identity backend with the profile and family
// stores. It holds no per-user state; each call drives its own SessionMachine.
type SessionService struct {
	identities ports.IdentityService
	users      ports.UserService
	families   ports.FamilyService
	cache      ports.SessionCache
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

func NewSessionService(
	identities ports.IdentityService,
	users ports.UserService,
	families ports.FamilyService,
	cache ports.SessionCache,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) *SessionService {
	return &SessionService{
		identities: identities,
		users:      users,
		families:   families,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

func (s *SessionService) machine(op string, from domain.SessionStatus) *domain.SessionMachine {
	return domain.NewSessionMachine(from, func(prev, next domain.SessionStatus) {
		metrics.SessionTransitionsTotal.WithLabelValues(string(prev), string(next)).Inc()
		s.logger.Debug().Str("op", op).Str("from", string(prev)).Str("to", string(next)).Msg("session transition")
	})
}

// Register creates the identity, the optional family and the profile, then
// opens a session. Writes made before a failure are undone in reverse order.
func (s *SessionService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	ctx, span := tracer.Start(ctx, "session.register")
	defer span.End()

	mode := registrationMode(in)
	span.SetAttributes(attribute.String("family.mode", mode))

	res, err := s.register(ctx, in)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(mode, "error").Inc()
		recordSpanError(span, err)
		return nil, err
	}
	metrics.RegistrationsTotal.WithLabelValues(mode, "ok").Inc()
	return res, nil
}

func (s *SessionService) register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.FamilyName = strings.TrimSpace(in.FamilyName)
	in.FamilyCode = domain.NormalizeInviteCode(in.FamilyCode)

	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	m := s.machine("register", domain.StatusUnauthenticated)
	if err := m.Move(domain.StatusAuthenticating); err != nil {
		return nil, err
	}

	tx := newSaga(s.logger.With().Str("email", in.Email).Logger())

	identity, err := s.identities.CreateIdentity(ctx, in.Email, in.Password)
	if err != nil {
		return nil, m.Fail(err)
	}
	tx.add("delete_identity", func(ctx context.Context) error {
		return s.identities.DeleteIdentity(ctx, identity.ID)
	})

	var family *domain.Family
	switch {
	case in.FamilyName != "":
		family, err = s.families.CreateFamily(ctx, identity.ID, in.FamilyName)
		if err != nil {
			tx.rollback(ctx)
			return nil, m.Fail(err)
		}
		familyID := family.ID
		tx.add("delete_family", func(ctx context.Context) error {
			return s.families.DeleteFamily(ctx, familyID)
		})
	case in.FamilyCode != "":
		family, err = s.families.GetFamilyByInviteCode(ctx, in.FamilyCode)
		if err == nil && family == nil {
			err = domain.ErrInvalidInviteCode
		}
		if err != nil {
			tx.rollback(ctx)
			return nil, m.Fail(err)
		}
	}

	fields := domain.NewUser{Name: in.Name, Email: in.Email}
	if in.ProfileImage != "" {
		img := in.ProfileImage
		fields.ProfileImage = &img
	}
	if family != nil {
		familyID := family.ID
		fields.FamilyID = &familyID
		fields.CreatesFamily = in.FamilyName != ""
	}

	user, err := s.users.CreateUser(ctx, identity.ID, fields)
	if err != nil {
		tx.rollback(ctx)
		return nil, m.Fail(err)
	}
	tx.add("delete_profile", func(ctx context.Context) error {
		return s.users.DeleteUser(ctx, user.ID)
	})

	session, err := s.identities.IssueToken(ctx, user)
	if err != nil {
		tx.rollback(ctx)
		return nil, m.Fail(err)
	}

	s.afterSignIn(ctx, user, session.Token)
	if err := m.Move(domain.StatusAuthenticated); err != nil {
		return nil, err
	}

	s.logger.Info().Ctx(ctx).Str("user_id", user.ID).Bool("is_admin", user.IsAdmin).Msg("user registered")
	return &ports.AuthResult{
		User:      user,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Family:    family,
		Status:    m.Status(),
	}, nil
}

// Login authenticates the identity and loads its profile. An identity with
// no profile is reported as domain.ErrUserNotFound.
func (s *SessionService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	ctx, span := tracer.Start(ctx, "session.login")
	defer span.End()

	res, err := s.login(ctx, email, password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		recordSpanError(span, err)
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (s *SessionService) login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	m := s.machine("login", domain.StatusUnauthenticated)
	if err := m.Move(domain.StatusAuthenticating); err != nil {
		return nil, err
	}

	identity, err := s.identities.Authenticate(ctx, email, password)
	if err != nil {
		return nil, m.Fail(err)
	}

	user, err := s.users.GetUserByID(ctx, identity.ID)
	if err != nil {
		return nil, m.Fail(err)
	}
	if user == nil {
		s.logger.Warn().Ctx(ctx).Str("identity_id", identity.ID).Msg("identity has no profile")
		return nil, m.Fail(domain.ErrUserNotFound)
	}

	var family *domain.Family
	if user.FamilyID != nil {
		family, err = s.families.GetFamilyByID(ctx, *user.FamilyID)
		if err != nil {
			return nil, m.Fail(err)
		}
	}

	session, err := s.identities.IssueToken(ctx, user)
	if err != nil {
		return nil, m.Fail(err)
	}

	s.afterSignIn(ctx, user, session.Token)
	if err := m.Move(domain.StatusAuthenticated); err != nil {
		return nil, err
	}

	s.logger.Info().Ctx(ctx).Str("user_id", user.ID).Msg("user logged in")
	return &ports.AuthResult{
		User:      user,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Family:    family,
		Status:    m.Status(),
	}, nil
}

// Logout revokes the token and drops the cached session.
func (s *SessionService) Logout(ctx context.Context, in ports.LogoutInput) error {
	ctx, span := tracer.Start(ctx, "session.logout", trace.WithAttributes(attribute.String("identity.id", in.IdentityID)))
	defer span.End()

	m := s.machine("logout", domain.StatusAuthenticated)

	if err := s.identities.SignOut(ctx, in.IdentityID, in.TokenID, in.ExpiresAt); err != nil {
		recordSpanError(span, err)
		return err
	}
	if err := s.cache.Clear(ctx, in.IdentityID); err != nil {
		s.logger.Warn().Err(err).Str("identity_id", in.IdentityID).Msg("failed to clear session cache")
	}
	if err := m.Move(domain.StatusUnauthenticated); err != nil {
		return err
	}

	s.logger.Info().Ctx(ctx).Str("identity_id", in.IdentityID).Msg("user logged out")
	return nil
}

// CurrentSession returns the profile of a signed-in identity, preferring the
// session cache.
func (s *SessionService) CurrentSession(ctx context.Context, identityID string) (*domain.User, error) {
	if u, err := s.cache.CachedUser(ctx, identityID); err != nil {
		s.logger.Warn().Err(err).Str("identity_id", identityID).Msg("session cache read failed")
	} else if u != nil {
		return u, nil
	}

	user, err := s.users.GetUserByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// ProfileChanged keeps the cached session and auth-state observers in step
// with a profile edit. Failures are logged only.
func (s *SessionService) ProfileChanged(ctx context.Context, user *domain.User) {
	if err := s.cache.Refresh(ctx, user.ID, user); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to refresh cached profile")
	}
	if err := s.identities.NotifySignedIn(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to publish profile change")
	}
}

// afterSignIn caches the session and announces the sign-in. Neither step can
// fail the sign-in itself.
func (s *SessionService) afterSignIn(ctx context.Context, user *domain.User, token string) {
	if err := s.cache.Store(ctx, user.ID, token, user, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to cache session")
	}
	if err := s.identities.NotifySignedIn(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to publish sign-in")
	}
}

func validateRegistration(in ports.RegisterInput) error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	case in.Email == "":
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	case !validEmail(in.Email):
		return fmt.Errorf("%w: email is not valid", domain.ErrValidation)
	case len(in.Password) < minPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	case in.ConfirmPassword != "" && in.ConfirmPassword != in.Password:
		return domain.ErrPasswordMismatch
	case in.FamilyName != "" && in.FamilyCode != "":
		return domain.ErrFamilyChoiceConflict
	case in.FamilyCode != "" && !domain.IsInviteCode(in.FamilyCode):
		return domain.ErrInvalidInviteCode
	}
	return nil
}

func registrationMode(in ports.RegisterInput) string {
	switch {
	case strings.TrimSpace(in.FamilyName) != "":
		return "create"
	case strings.TrimSpace(in.FamilyCode) != "":
		return "join"
	default:
		return "none"
	}
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrUserNotFound):
		return "orphaned_identity"
	default:
		return "error"
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
