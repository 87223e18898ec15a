package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vashistbar27/Gudage-hospital/cmd/identity/ids"
	"github.com/vashistbar27/Gudage-hospital/cmd/security/password"
	"github.com/vashistbar27/Gudage-hospital/cmd/security/token"
)

const defaultMaxIDAttempts = 3

// Service is the identity store. It is safe for concurrent use.
type Service struct {
	backend   Backend
	newID     ids.Generator
	passwords password.Config
	now       func() time.Time

	maxIDAttempts int
	locks         *keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator overrides the default ULID generator.
func WithIDGenerator(g ids.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.newID = g
		}
	}
}

// WithPasswordConfig overrides the default password policy.
func WithPasswordConfig(cfg password.Config) Option {
	return func(s *Service) { s.passwords = cfg }
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxIDAttempts bounds how often Register regenerates an id that is
// already taken.
func WithMaxIDAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxIDAttempts = n
		}
	}
}

// NewService constructs a Service over backend.
func NewService(backend Backend, opts ...Option) (*Service, error) {
	if backend == nil {
		return nil, errors.New("identity: nil backend")
	}
	s := &Service{
		backend:       backend,
		newID:         ids.NewULID,
		passwords:     password.DefaultConfig(),
		now:           func() time.Time { return time.Now().UTC() },
		maxIDAttempts: defaultMaxIDAttempts,
		locks:         newKeyedMutex(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// PasswordPolicy returns the policy enforced at registration.
func (s *Service) PasswordPolicy() password.Policy { return s.passwords.Policy }

// RegisterInput describes a registration request. Name is optional.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  User
	Token string
}

// Register creates a user keyed by email and returns it with its token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	const op = "identity.Register"

	if err := ctx.Err(); err != nil {
		return AuthResult{}, err
	}
	if in.Email == "" || in.Password == "" {
		return AuthResult{}, invalid(op, "email and password are required")
	}
	if err := s.passwords.Validate(in.Password); err != nil {
		return AuthResult{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password rejected by policy", Cause: err}
	}

	unlock := s.locks.Lock(emailLockKey(in.Email))
	defer unlock()

	switch _, err := s.backend.GetByEmail(ctx, in.Email); {
	case err == nil:
		return AuthResult{}, ConflictError{Op: op, Field: "email"}
	case !IsNotFound(err):
		return AuthResult{}, err
	}

	name := in.Name
	if name == "" {
		name = DefaultName(in.Email)
	}

	now := s.now()
	for attempt := 1; ; attempt++ {
		id, err := s.newID(now)
		if err != nil {
			return AuthResult{}, fmt.Errorf("%s: new id: %w", op, err)
		}
		if id == "" || strings.Contains(id, token.Delimiter) {
			return AuthResult{}, fmt.Errorf("%s: generator produced unusable id %q", op, id)
		}

		u := User{
			ID:        id,
			Email:     in.Email,
			Password:  in.Password,
			Name:      name,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.backend.Insert(ctx, u)
		if err == nil {
			tok, err := TokenFor(u)
			if err != nil {
				return AuthResult{}, err
			}
			return AuthResult{User: u, Token: tok}, nil
		}

		field, isConflict := ConflictField(err)
		switch {
		case !isConflict:
			return AuthResult{}, err
		case field != "id":
			return AuthResult{}, ConflictError{Op: op, Field: field}
		case attempt >= s.maxIDAttempts:
			return AuthResult{}, fmt.Errorf("%s: id still taken after %d attempts: %v", op, attempt, err)
		}

		// Time-derived generators repeat within one tick; step past it.
		now = now.Add(time.Millisecond)
	}
}

// Login checks credentials and returns the user with its token. It never
// mutates the store.
func (s *Service) Login(ctx context.Context, email, pw string) (AuthResult, error) {
	const op = "identity.Login"

	if err := ctx.Err(); err != nil {
		return AuthResult{}, err
	}
	if email == "" || pw == "" {
		return AuthResult{}, invalid(op, "email and password are required")
	}

	u, err := s.backend.GetByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return AuthResult{}, invalidCredentials()
		}
		return AuthResult{}, err
	}
	if !password.Matches(u.Password, pw) {
		return AuthResult{}, invalidCredentials()
	}

	tok, err := TokenFor(u)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, Token: tok}, nil
}

// ResolveToken returns the user a bearer token names.
//
// An empty token is ErrUnauthorized. A malformed token or an id with no user
// is NotFoundError.
func (s *Service) ResolveToken(ctx context.Context, tok string) (User, error) {
	const op = "identity.ResolveToken"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	id, err := userIDFromToken(op, tok)
	if err != nil {
		return User{}, err
	}
	u, err := s.backend.GetByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return u, nil
}

// UpdateProfile applies patch to the user named by tok and returns the
// result. Changing the email re-keys the record atomically and keeps its id.
// A ConflictError leaves every record untouched.
func (s *Service) UpdateProfile(ctx context.Context, tok string, patch ProfilePatch) (User, error) {
	const op = "identity.UpdateProfile"

	caller, err := s.ResolveToken(ctx, tok)
	if err != nil {
		return User{}, err
	}

	unlock := s.locks.Lock(userLockKey(caller.ID))
	defer unlock()

	// Re-read under the lock so concurrent updates never drop fields.
	current, err := s.backend.GetByID(ctx, caller.ID)
	if err != nil {
		if IsNotFound(err) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}

	next := patch.apply(current)
	next.UpdatedAt = s.now()

	if next.Email != current.Email {
		unlockEmail := s.locks.Lock(emailLockKey(next.Email))
		defer unlockEmail()
	}

	if err := s.backend.Update(ctx, current.Email, next); err != nil {
		switch {
		case IsConflict(err):
			return User{}, ConflictError{Op: op, Field: "email"}
		case IsNotFound(err):
			return User{}, NotFoundError{Op: op, Resource: "user"}
		default:
			return User{}, err
		}
	}
	return next, nil
}

// ForgotPassword checks that email belongs to a user. No reset token is
// issued and nothing is sent.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	const op = "identity.ForgotPassword"

	if err := ctx.Err(); err != nil {
		return err
	}
	if email == "" {
		return invalid(op, "email is required")
	}
	if _, err := s.backend.GetByEmail(ctx, email); err != nil {
		if IsNotFound(err) {
			return NotFoundError{Op: op, Resource: "user"}
		}
		return err
	}
	return nil
}

// Ping reports whether the backend is reachable.
func (s *Service) Ping(ctx context.Context) error { return s.backend.Ping(ctx) }

func emailLockKey(email string) string { return "email:" + email }
func userLockKey(id string) string     { return "user:" + id }
