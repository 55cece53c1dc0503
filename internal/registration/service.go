package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"college-erp/internal/account"
	"college-erp/internal/metrics"
	"college-erp/internal/profile"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	// Register validates req and atomically creates the account together with
	// its role profile, reusing the profile when its identifier already exists.
	Register(ctx context.Context, req Request) (*account.Summary, error)
}

type service struct {
	store      Store
	validate   *validator.Validate
	logger     *slog.Logger
	metrics    *metrics.Metrics
	bcryptCost int
	now        func() time.Time
}

type Option func(*service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *service) { s.metrics = m }
}

func WithBcryptCost(cost int) Option {
	return func(s *service) {
		if cost != 0 {
			s.bcryptCost = cost
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) Service {
	s := &service{
		store:      store,
		validate:   newValidator(),
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func (s *service) Register(ctx context.Context, req Request) (*account.Summary, error) {
	req.normalize()

	missing, invalid := s.check(&req)
	if len(missing) > 0 {
		return nil, s.reject(ctx, "missing_field", fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", ")))
	}

	taken, err := s.store.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: check email: %w", ErrPersistence, err)
	}
	if taken {
		return nil, s.reject(ctx, "duplicate_email", ErrDuplicateEmail)
	}

	role, err := account.ParseRole(req.Role)
	if err != nil {
		return nil, s.reject(ctx, "invalid_role", ErrInvalidRole)
	}
	key := req.roleID(role)
	if key == "" {
		return nil, s.reject(ctx, "missing_role_id", &MissingRoleIDError{Role: role})
	}

	if len(invalid) > 0 {
		return nil, s.reject(ctx, "invalid_field", fmt.Errorf("%w: %s", ErrInvalidField, strings.Join(invalid, ", ")))
	}
	details, err := req.details()
	if err != nil {
		return nil, s.reject(ctx, "invalid_field", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, s.reject(ctx, "invalid_field", fmt.Errorf("%w: password", ErrInvalidField))
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	p, err := profile.New(role, key, req.Username, req.Email, details, now)
	if err != nil {
		return nil, err
	}

	acct := &account.Account{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Avatar:       optional(req.Avatar),
		Status:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	acct.LinkProfile(role, key)

	var profileCreated bool
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		created, err := tx.EnsureProfile(ctx, p)
		if err != nil {
			return fmt.Errorf("ensure %s profile: %w", role, err)
		}
		profileCreated = created

		if err := tx.CreateAccount(ctx, acct); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			return nil, s.reject(ctx, "duplicate_email", ErrDuplicateEmail)
		}
		s.logger.ErrorContext(ctx, "registration transaction rolled back", "role", role, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.metrics.RecordRegistration(ctx, role.String(), profileCreated)
	s.logger.InfoContext(ctx, "account registered",
		"account_id", acct.ID,
		"role", role,
		"profile_id", key,
		"profile_created", profileCreated,
	)

	summary := acct.Summary()
	return &summary, nil
}

// check splits struct validation failures into blank required fields and malformed optional ones.
func (s *service) check(req *Request) (missing, invalid []string) {
	err := s.validate.Struct(req)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, []string{err.Error()}
	}
	for _, fe := range verrs {
		if fe.Tag() == "notblank" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}
	return missing, invalid
}

func (s *service) reject(ctx context.Context, reason string, err error) error {
	s.metrics.RecordRegistrationRejected(ctx, reason)
	s.logger.InfoContext(ctx, "signup rejected", "reason", reason)
	return err
}
