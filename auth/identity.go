package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"plantmaint/apperr"
	"plantmaint/db"
	"plantmaint/models"
)

// Identity is the sign-up, sign-in and session surface the handlers use.
// Every failure is an *apperr.AuthError, except store outages which are
// *apperr.StoreError.
type Identity interface {
	Register(ctx context.Context, email, password string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	CurrentSession(ctx context.Context, token string) (*models.User, error)
	OnSessionChange(fn func(SessionEvent)) (unsubscribe func())
	Reauthenticate(ctx context.Context, userID, currentPassword string) error
	ChangePassword(ctx context.Context, userID, newPassword string) error
}

// Session is an authenticated session.
type Session struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *models.User `json:"user"`
}

// Session event kinds.
const (
	EventSignedIn  = "signed_in"
	EventSignedOut = "signed_out"
)

// SessionEvent is delivered to OnSessionChange observers.
type SessionEvent struct {
	Kind string
	User *models.User
}

// ServiceOptions tunes the identity service.
type ServiceOptions struct {
	BcryptCost    int
	LoginAttempts int
	LoginWindow   time.Duration
	Now           func() time.Time
}

// Service implements Identity over the record store, with bcrypt password
// hashes and JWT sessions.
type Service struct {
	repo     *db.Repository
	jwt      *JWTManager
	cost     int
	attempts *attemptLimiter
	now      func() time.Time
	validate *validator.Validate

	mu        sync.Mutex
	revoked   map[string]time.Time
	observers map[int]func(SessionEvent)
	nextObs   int
}

var _ Identity = (*Service)(nil)

// NewService builds the identity service.
func NewService(repo *db.Repository, jwtManager *JWTManager, opts ServiceOptions) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = BcryptCost
	}
	if opts.LoginAttempts <= 0 {
		opts.LoginAttempts = 5
	}
	if opts.LoginWindow <= 0 {
		opts.LoginWindow = 15 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	jwtManager.now = opts.Now
	return &Service{
		repo:      repo,
		jwt:       jwtManager,
		cost:      opts.BcryptCost,
		attempts:  newAttemptLimiter(opts.LoginAttempts, opts.LoginWindow),
		now:       opts.Now,
		validate:  validator.New(),
		revoked:   make(map[string]time.Time),
		observers: make(map[int]func(SessionEvent)),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func authErr(code string, err error) error {
	return &apperr.AuthError{Code: code, Err: err}
}

// Register creates an account and signs it in. The first account becomes
// an administrator; later ones are technicians.
func (s *Service) Register(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, authErr(apperr.CodeInvalidEmail, err)
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, authErr(apperr.CodeWeakPassword, err)
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}

	// The first account becomes ADMIN. Concurrent first registrations race
	// for a single claim record; losers register as technicians.
	existing, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	role := models.RoleTechnician
	var claim string
	if len(existing) == 0 {
		id, ok, err := s.repo.ClaimFirstAdmin(ctx, email)
		if err != nil {
			return nil, err
		}
		if ok {
			role, claim = models.RoleAdmin, id
		}
	}

	user := models.User{
		Email:       email,
		DisplayName: email[:strings.Index(email, "@")],
		Role:        role,
	}
	id, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		s.abandonRegistration(ctx, "", claim)
		if errors.Is(err, db.ErrAlreadyExists) {
			return nil, authErr(apperr.CodeEmailInUse, nil)
		}
		return nil, apperr.Store("create user", err)
	}
	user.ID = id

	if err := s.repo.StorePasswordHash(ctx, id, hash); err != nil {
		s.abandonRegistration(ctx, id, claim)
		return nil, apperr.Store("store password", err)
	}

	log.WithFields(log.Fields{"user": email, "role": role}).Info("👤 User registered")
	return s.startSession(ctx, &user)
}

// abandonRegistration undoes the records a failed Register left behind, so
// the e-mail can be registered again.
func (s *Service) abandonRegistration(ctx context.Context, userID, claim string) {
	ctx = context.WithoutCancel(ctx)
	if userID != "" {
		if err := s.repo.DeleteUser(ctx, userID); err != nil {
			log.WithError(err).WithField("user_id", userID).Error("❌ Failed to remove user without password")
		}
	}
	if claim != "" {
		if err := s.repo.ReleaseFirstAdmin(ctx, claim); err != nil {
			log.WithError(err).Error("❌ Failed to release first admin claim")
		}
	}
}

// Login signs a user in with e-mail and password.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, authErr(apperr.CodeInvalidEmail, err)
	}
	if !s.attempts.allow(email) {
		return nil, authErr(apperr.CodeTooManyRequests, nil)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		log.WithField("user", email).Info("Login failed: user not found")
		return nil, authErr(apperr.CodeUserNotFound, nil)
	}
	if err != nil {
		return nil, apperr.Store("get user", err)
	}

	if err := s.checkPassword(ctx, user.ID, password); err != nil {
		log.WithField("user", email).Info("Login failed: invalid password")
		return nil, err
	}

	s.attempts.reset(email)

	now := s.now()
	user.LastLogin = &now
	if err := s.repo.UpdateUser(ctx, user.ID, map[string]interface{}{"lastLogin": now}); err != nil {
		log.WithError(err).WithField("user", email).Warn("failed to update last login")
	}

	return s.startSession(ctx, user)
}

func (s *Service) checkPassword(ctx context.Context, userID, password string) error {
	hash, err := s.repo.GetPasswordHash(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return authErr(apperr.CodeWrongPassword, err)
	}
	if err != nil {
		return apperr.Store("get password", err)
	}
	if err := CheckPassword(password, hash); err != nil {
		return authErr(apperr.CodeWrongPassword, err)
	}
	return nil
}

func (s *Service) startSession(ctx context.Context, user *models.User) (*Session, error) {
	token, claims, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user": user.Email, "role": user.Role}).Info("✅ User signed in")
	s.notify(SessionEvent{Kind: EventSignedIn, User: user})

	return &Session{
		Token:        token,
		RefreshToken: refresh,
		ExpiresAt:    claims.ExpiresAt.Time,
		User:         user,
	}, nil
}

func (s *Service) claims(token, wantType string) (*Claims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, authErr(apperr.CodeInvalidSession, err)
	}
	if claims.Type != wantType {
		return nil, authErr(apperr.CodeInvalidSession, nil)
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, authErr(apperr.CodeInvalidSession, nil)
	}
	return claims, nil
}

func (s *Service) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, authErr(apperr.CodeUserNotFound, err)
	}
	if err != nil {
		return nil, apperr.Store("get user", err)
	}
	return user, nil
}

// CurrentSession resolves an access token to its user.
func (s *Service) CurrentSession(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.claims(token, TokenAccess)
	if err != nil {
		return nil, err
	}
	return s.loadUser(ctx, claims.UserID)
}

// Refresh issues a new access token for a valid refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.claims(refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	token, access, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: access.ExpiresAt.Time, User: user}, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.claims(token, TokenAccess)
	if err != nil {
		return err
	}

	now := s.now()
	s.mu.Lock()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	s.mu.Unlock()

	user := &models.User{ID: claims.UserID, Email: claims.Email, Role: claims.Role}
	log.WithField("user", claims.Email).Info("👋 User signed out")
	s.notify(SessionEvent{Kind: EventSignedOut, User: user})
	return nil
}

// OnSessionChange registers fn for sign-in and sign-out events.
func (s *Service) OnSessionChange(fn func(SessionEvent)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Service) notify(ev SessionEvent) {
	s.mu.Lock()
	fns := make([]func(SessionEvent), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Reauthenticate confirms the user's current password.
func (s *Service) Reauthenticate(ctx context.Context, userID, currentPassword string) error {
	return s.checkPassword(ctx, userID, currentPassword)
}

// ChangePassword replaces the user's password. Callers reauthenticate first.
func (s *Service) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return authErr(apperr.CodeWeakPassword, err)
	}
	if _, err := s.loadUser(ctx, userID); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword, s.cost)
	if err != nil {
		return err
	}
	if err := s.repo.StorePasswordHash(ctx, userID, hash); err != nil {
		return apperr.Store("store password", err)
	}
	return nil
}

// attemptLimiter throttles sign-in attempts per e-mail.
type attemptLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	attempts int
	window   time.Duration
}

func newAttemptLimiter(attempts int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		limiters: make(map[string]*rate.Limiter),
		attempts: attempts,
		window:   window,
	}
}

func (l *attemptLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.window/time.Duration(l.attempts)), l.attempts)
		l.limiters[key] = lim
	}
	return lim.Allow()
}

func (l *attemptLimiter) reset(key string) {
	l.mu.Lock()
	delete(l.limiters, key)
	l.mu.Unlock()
}
