package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"college-erp/internal/account"
	"college-erp/internal/metrics"
	"college-erp/internal/profile"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountDisabled     = errors.New("account is disabled")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

type Service struct {
	authRepo   *Repository
	accounts   account.Repository
	profiles   profile.Repository
	tokens     *TokenManager
	refreshTTL time.Duration
	events     EventPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics

	bcryptCost int
	// dummyHash is compared against on unknown emails so both paths pay for bcrypt.
	dummyHash []byte
	compare   func(hash, password []byte) error
}

type Option func(*Service)

// WithEvents publishes sign-in and logout events to p.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithBcryptCost matches the unknown-email comparison to the cost used for stored hashes.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost != 0 {
			s.bcryptCost = cost
		}
	}
}

func NewService(authRepo *Repository, accounts account.Repository, profiles profile.Repository, tokens *TokenManager, refreshTTL time.Duration, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		authRepo:   authRepo,
		accounts:   accounts,
		profiles:   profiles,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
		compare:    bcrypt.CompareHashAndPassword,
	}
	for _, opt := range opts {
		opt(s)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("college-erp unknown account"), s.bcryptCost)
	if err != nil {
		hash, _ = bcrypt.GenerateFromPassword([]byte("college-erp unknown account"), bcrypt.DefaultCost)
	}
	s.dummyHash = hash
	return s
}

// Login authenticates an account and returns a token pair
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	acct, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			_ = s.compare(s.dummyHash, []byte(req.Password))
			s.metrics.RecordSignIn(ctx, false)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.compare([]byte(acct.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.RecordSignIn(ctx, false)
		return nil, ErrInvalidCredentials
	}
	if !acct.Status {
		s.metrics.RecordSignIn(ctx, false)
		return nil, ErrAccountDisabled
	}

	resp, err := s.generateTokenPair(ctx, acct)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSignIn(ctx, true)
	s.publish(ctx, EventSignedIn, acct)
	return resp, nil
}

// Refresh exchanges a refresh token for a new pair. The old token is single use.
func (s *Service) Refresh(ctx context.Context, token string) (*AuthResponse, error) {
	rt, err := s.authRepo.GetRefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	deleted, err := s.authRepo.DeleteRefreshToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrInvalidRefreshToken
	}

	acct, err := s.accounts.GetByID(ctx, rt.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !acct.Status {
		return nil, ErrAccountDisabled
	}

	return s.generateTokenPair(ctx, acct)
}

// Logout invalidates the refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	rt, err := s.authRepo.GetRefreshToken(ctx, token)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if _, err := s.authRepo.DeleteRefreshToken(ctx, token); err != nil {
		return err
	}

	if rt != nil {
		if acct, err := s.accounts.GetByID(ctx, rt.AccountID); err == nil {
			s.publish(ctx, EventSignedOut, acct)
		}
	}
	return nil
}

// Session returns the account behind claims together with its profile.
func (s *Service) Session(ctx context.Context, claims *Claims) (*SessionResponse, error) {
	id, err := claims.AccountID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &SessionResponse{User: acct.Summary()}
	p, err := s.profiles.Get(ctx, acct.Role, acct.ProfileID())
	switch {
	case err == nil:
		resp.Profile = p
	case errors.Is(err, profile.ErrProfileNotFound):
		s.logger.WarnContext(ctx, "account has no profile row", "account_id", acct.ID, "role", acct.Role)
	default:
		return nil, err
	}
	return resp, nil
}

// CleanupExpiredTokens deletes expired refresh tokens every interval until ctx is done.
func (s *Service) CleanupExpiredTokens(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.authRepo.DeleteExpiredTokens(ctx)
			if err != nil {
				s.logger.WarnContext(ctx, "failed to delete expired refresh tokens", "error", err)
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "deleted expired refresh tokens", "count", n)
			}
		}
	}
}

// generateTokenPair creates access and refresh tokens
func (s *Service) generateTokenPair(ctx context.Context, acct *account.Account) (*AuthResponse, error) {
	accessToken, err := s.tokens.Generate(acct)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.refreshTTL)
	if err := s.authRepo.CreateRefreshToken(ctx, acct.ID, refreshToken, expiresAt); err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         acct.Summary(),
	}, nil
}

// publish is best effort; a broker outage must not fail the request.
func (s *Service) publish(ctx context.Context, eventType string, acct *account.Account) {
	if s.events == nil {
		return
	}
	event := Event{
		Type:       eventType,
		AccountID:  acct.ID,
		Email:      acct.Email,
		Role:       acct.Role,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, acct.ID.String(), event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish auth event", "type", eventType, "error", err)
	}
}
