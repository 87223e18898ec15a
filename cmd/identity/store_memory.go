package identity

import (
	"context"
	"sync"
)

// MemoryStore is the default Backend. Records live for the process lifetime.
// A single mutex guards both indexes, so every mutation (including a re-key)
// is one critical section.
type MemoryStore struct {
	mu        sync.RWMutex
	byEmail   map[string]User
	emailByID map[string]string
}

// NewMemoryStore constructs an empty in-memory Backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byEmail:   make(map[string]User),
		emailByID: make(map[string]string),
	}
}

// GetByEmail returns the user stored under email.
func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[email]
	if !ok {
		return User{}, NotFoundError{Op: "identity.MemoryStore.GetByEmail", Resource: "user"}
	}
	return u.clone(), nil
}

// GetByID returns the user with id.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.emailByID[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.MemoryStore.GetByID", Resource: "user"}
	}
	return s.byEmail[email].clone(), nil
}

// Insert stores u if neither its email nor its id is taken.
func (s *MemoryStore) Insert(ctx context.Context, u User) error {
	const op = "identity.MemoryStore.Insert"

	if err := ctx.Err(); err != nil {
		return err
	}
	if u.ID == "" || u.Email == "" {
		return invalid(op, "missing id or email")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return ConflictError{Op: op, Field: "email"}
	}
	if _, ok := s.emailByID[u.ID]; ok {
		return ConflictError{Op: op, Field: "id"}
	}

	s.byEmail[u.Email] = u.clone()
	s.emailByID[u.ID] = u.Email
	return nil
}

// Update overwrites the record under currentEmail, re-keying when u.Email differs.
func (s *MemoryStore) Update(ctx context.Context, currentEmail string, u User) error {
	const op = "identity.MemoryStore.Update"

	if err := ctx.Err(); err != nil {
		return err
	}
	if u.Email == "" {
		return invalid(op, "missing email")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byEmail[currentEmail]
	if !ok || existing.ID != u.ID {
		return NotFoundError{Op: op, Resource: "user"}
	}

	if u.Email != currentEmail {
		if _, taken := s.byEmail[u.Email]; taken {
			return ConflictError{Op: op, Field: "email"}
		}
		delete(s.byEmail, currentEmail)
	}

	s.byEmail[u.Email] = u.clone()
	s.emailByID[u.ID] = u.Email
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// Len returns the number of stored users.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail)
}
