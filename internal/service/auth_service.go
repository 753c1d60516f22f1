package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shreelaxmi/site/internal/config"
	"shreelaxmi/site/internal/ids"
	"shreelaxmi/site/internal/metrics"
	"shreelaxmi/site/internal/models"
	"shreelaxmi/site/internal/repository"
	"shreelaxmi/site/internal/security"
)

const (
	MethodCredentials = "credentials"
	MethodSignUp      = "signup"
	MethodRefresh     = "refresh"

	defaultStoreTimeout = 3 * time.Second
)

// AuthService turns credentials and provider assertions into sessions. It
// never trusts a role from anywhere but the identity store.
type AuthService struct {
	identities   repository.IdentityStore
	issuer       *security.TokenIssuer
	metrics      metrics.Recorder
	storeTimeout time.Duration
	linkPolicy   string
	log          zerolog.Logger
}

func NewAuthService(
	identities repository.IdentityStore,
	issuer *security.TokenIssuer,
	recorder metrics.Recorder,
	cfg config.SecurityConfig,
	log zerolog.Logger,
) *AuthService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	policy := cfg.ProviderLinkPolicy
	if policy == "" {
		policy = config.LinkPolicyAllow
	}
	return &AuthService{
		identities:   identities,
		issuer:       issuer,
		metrics:      recorder,
		storeTimeout: timeout,
		linkPolicy:   policy,
		log:          log,
	}
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	Claims    security.SessionClaims
	Identity  models.Identity
}

type SignUpInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (identity models.Identity, err error) {
	defer func() { s.record(MethodSignUp, err) }()

	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return models.Identity{}, err
	}

	if _, err := s.findByEmail(ctx, input.Email); err == nil {
		return models.Identity{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrIdentityNotFound) {
		return models.Identity{}, err
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.Identity{}, infrastructure("hash password", err)
	}

	identity = models.NewCredentialIdentity(ids.New(), input.Name, input.Email, hash, models.RoleUser)
	if err := s.create(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.Identity{}, ErrEmailTaken
		}
		return models.Identity{}, err
	}

	s.log.Info().Str("user_id", identity.ID).Str("email", identity.Email).Msg("credential identity created")
	return identity, nil
}

type CredentialsInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn authenticates an email and password. Unknown emails, provider-only
// identities and wrong passwords all fail with ErrInvalidCredentials after the
// same amount of hashing work.
func (s *AuthService) SignIn(ctx context.Context, input CredentialsInput) (session Session, err error) {
	defer func() { s.record(MethodCredentials, err) }()

	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return Session{}, validationError("email and password are required", nil)
	}

	identity, err := s.findByEmail(ctx, email)
	if errors.Is(err, repository.ErrIdentityNotFound) {
		security.BurnVerify(input.Password)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	hash, ok := identity.PasswordHash()
	if !ok {
		security.BurnVerify(input.Password)
		return Session{}, ErrInvalidCredentials
	}

	match, err := security.VerifyPassword(input.Password, hash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", identity.ID).Msg("stored password digest unreadable")
		return Session{}, ErrInvalidCredentials
	}
	if !match {
		return Session{}, ErrInvalidCredentials
	}

	if security.NeedsRehash(hash) {
		s.rehash(ctx, identity.ID, input.Password)
	}

	return s.issue(identity)
}

// SignInWithProvider signs in a person whose email an external provider has
// verified, creating a provider identity on first sight.
func (s *AuthService) SignInWithProvider(ctx context.Context, assertion models.ProviderIdentity) (session Session, err error) {
	method := assertion.Provider
	if method == "" {
		method = "provider"
	}
	defer func() { s.record(method, err) }()

	assertion.Email = normalizeEmail(assertion.Email)
	if assertion.Provider == "" || assertion.ExternalID == "" || assertion.Email == "" || !assertion.EmailVerified {
		return Session{}, ErrInvalidCredentials
	}

	identity, err := s.findByEmail(ctx, assertion.Email)
	switch {
	case errors.Is(err, repository.ErrIdentityNotFound):
		identity, err = s.createProviderIdentity(ctx, assertion)
		if err != nil {
			return Session{}, err
		}
	case err != nil:
		return Session{}, err
	}

	if _, credentialOnly := identity.PasswordHash(); credentialOnly && s.linkPolicy == config.LinkPolicyReject {
		return Session{}, ErrAccountLinkRequired
	}

	return s.materialize(ctx, identity.Email)
}

func (s *AuthService) createProviderIdentity(ctx context.Context, assertion models.ProviderIdentity) (models.Identity, error) {
	name := strings.TrimSpace(assertion.Name)
	if name == "" {
		name, _, _ = strings.Cut(assertion.Email, "@")
	}

	identity := models.NewProviderIdentity(ids.New(), name, assertion.Email, assertion.Provider, assertion.ExternalID, assertion.AvatarURL)
	err := s.create(ctx, identity)
	if err == nil {
		s.log.Info().
			Str("user_id", identity.ID).
			Str("email", identity.Email).
			Str("provider", assertion.Provider).
			Msg("provider identity created")
		return identity, nil
	}
	if errors.Is(err, repository.ErrProviderIdentityTaken) {
		// The provider account is already linked under another email, which
		// happens when the address changed at the provider. The linked
		// record stands.
		return s.findByProvider(ctx, assertion.Provider, assertion.ExternalID)
	}
	if !errors.Is(err, repository.ErrEmailTaken) {
		return models.Identity{}, err
	}

	// Lost a creation race for this email; the winner's record stands.
	existing, err := s.findByEmail(ctx, assertion.Email)
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return models.Identity{}, infrastructure("find identity after conflict", err)
		}
		return models.Identity{}, err
	}
	return existing, nil
}

// Refresh re-issues a session from the identity's current stored state.
func (s *AuthService) Refresh(ctx context.Context, claims security.SessionClaims) (session Session, err error) {
	defer func() { s.record(MethodRefresh, err) }()

	if claims.Email == "" {
		return Session{}, ErrUnauthorized
	}
	return s.materialize(ctx, claims.Email)
}

// Authenticate validates a session token.
func (s *AuthService) Authenticate(_ context.Context, token string) (security.SessionClaims, error) {
	claims, err := s.issuer.Validate(token)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, security.ErrTokenExpired):
		return security.SessionClaims{}, ErrTokenExpired
	default:
		return security.SessionClaims{}, &DomainError{Kind: KindTokenMalformed, Message: ErrTokenMalformed.Message, Err: err}
	}
}

// IdentityCount reports how many identities exist, for the admin dashboard.
func (s *AuthService) IdentityCount(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	count, err := s.identities.Count(ctx)
	if err != nil {
		return 0, infrastructure("count identities", err)
	}
	return count, nil
}

// EnsureAdmin creates the bootstrap admin identity when it does not exist. An
// existing identity with that email is left untouched.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, nil
	}

	existing, err := s.findByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			s.log.Warn().Str("user_id", existing.ID).Msg("bootstrap admin email belongs to a non-admin identity; not elevating")
		}
		return false, nil
	}
	if !errors.Is(err, repository.ErrIdentityNotFound) {
		return false, err
	}

	if len(password) < 6 {
		return false, validationError("admin password must be at least 6 characters", nil)
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return false, infrastructure("hash password", err)
	}

	identity := models.NewCredentialIdentity(ids.New(), strings.TrimSpace(name), email, hash, models.RoleAdmin)
	if err := s.create(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return false, nil
		}
		return false, err
	}

	s.log.Info().Str("user_id", identity.ID).Str("email", email).Msg("bootstrap admin created")
	return true, nil
}

// materialize reads the identity by email and issues a token stamped with its
// current id, name and role.
func (s *AuthService) materialize(ctx context.Context, email string) (Session, error) {
	identity, err := s.findByEmail(ctx, email)
	if errors.Is(err, repository.ErrIdentityNotFound) {
		return Session{}, ErrUnauthorized
	}
	if err != nil {
		return Session{}, err
	}
	return s.issue(identity)
}

func (s *AuthService) issue(identity models.Identity) (Session, error) {
	claims := security.ClaimsFor(identity)
	token, expiresAt, err := s.issuer.Issue(claims)
	if err != nil {
		return Session{}, infrastructure("issue token", err)
	}

	validated, err := s.issuer.Validate(token)
	if err != nil {
		return Session{}, infrastructure("issue token", err)
	}

	return Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Claims:    validated,
		Identity:  identity,
	}, nil
}

func (s *AuthService) rehash(ctx context.Context, id, password string) {
	hash, err := security.HashPassword(password)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", id).Msg("password rehash failed")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.identities.UpdatePasswordHash(ctx, id, hash); err != nil {
		s.log.Warn().Err(err).Str("user_id", id).Msg("password rehash not stored")
		return
	}
	s.log.Info().Str("user_id", id).Msg("password digest upgraded")
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	identity, err := s.identities.FindByEmail(ctx, email)
	if err == nil || errors.Is(err, repository.ErrIdentityNotFound) {
		return identity, err
	}
	return models.Identity{}, infrastructure("find identity", err)
}

func (s *AuthService) findByProvider(ctx context.Context, provider, externalID string) (models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	identity, err := s.identities.FindByProvider(ctx, provider, externalID)
	if errors.Is(err, repository.ErrIdentityNotFound) {
		return models.Identity{}, infrastructure("find identity after conflict", err)
	}
	if err != nil {
		return models.Identity{}, infrastructure("find identity", err)
	}
	return identity, nil
}

func (s *AuthService) create(ctx context.Context, identity models.Identity) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.identities.Create(ctx, identity)
	if err == nil || errors.Is(err, repository.ErrEmailTaken) || errors.Is(err, repository.ErrProviderIdentityTaken) {
		return err
	}
	return infrastructure("create identity", err)
}

func (s *AuthService) record(method string, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	s.metrics.RecordAuthAttempt(method, outcome)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
