package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Backend over Redis.
//
// Layout (prefix defaults to "{gudage}:identity:"):
//
//	<prefix>user:<email> -> JSON user record
//	<prefix>id:<id>      -> email
//
// Writes run inside WATCH/MULTI/EXEC over every key they read, so a re-key
// moves the record and the id index in one transaction. The braces in the
// prefix are a cluster hash tag that keeps every key in one slot; a custom
// prefix needs one too when the client talks to a Redis Cluster. The client
// is owned by the caller.
type RedisStore struct {
	rdb     redis.UniversalClient
	prefix  string
	retries int
}

// RedisOption configures the store.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

const (
	defaultRedisPrefix    = "{gudage}:identity:"
	defaultRedisTxRetries = 8
)

// NewRedisStore constructs a RedisStore over rdb.
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("identity: nil redis client")
	}
	s := &RedisStore{
		rdb:     rdb,
		prefix:  defaultRedisPrefix,
		retries: defaultRedisTxRetries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

type redisUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`

	MobileNumber      *string `json:"mobileNumber"`
	AlternativeNumber *string `json:"alternativeNumber"`
	AadharNumber      *string `json:"aadharNumber"`
	Avatar            *string `json:"avatar"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *RedisStore) userKey(email string) string { return s.prefix + "user:" + email }
func (s *RedisStore) idKey(id string) string       { return s.prefix + "id:" + id }

func encodeRedisUser(u User) ([]byte, error) {
	return json.Marshal(redisUser{
		ID:                u.ID,
		Email:             u.Email,
		Password:          u.Password,
		Name:              u.Name,
		MobileNumber:      u.MobileNumber,
		AlternativeNumber: u.AlternativeNumber,
		AadharNumber:      u.AadharNumber,
		Avatar:            u.Avatar,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	})
}

func decodeRedisUser(b []byte) (User, error) {
	var r redisUser
	if err := json.Unmarshal(b, &r); err != nil {
		return User{}, fmt.Errorf("identity: decode redis user: %w", err)
	}
	return User{
		ID:                r.ID,
		Email:             r.Email,
		Password:          r.Password,
		Name:              r.Name,
		MobileNumber:      r.MobileNumber,
		AlternativeNumber: r.AlternativeNumber,
		AadharNumber:      r.AadharNumber,
		Avatar:            r.Avatar,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}, nil
}

// GetByEmail returns the user stored under email.
func (s *RedisStore) GetByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.RedisStore.GetByEmail"

	b, err := s.rdb.Get(ctx, s.userKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return decodeRedisUser(b)
}

// GetByID resolves id through the id index. A re-key can commit between the
// index read and the record read; when the record is missing and the index
// has moved, the lookup starts over instead of reporting not found.
func (s *RedisStore) GetByID(ctx context.Context, id string) (User, error) {
	const op = "identity.RedisStore.GetByID"

	idKey := s.idKey(id)
	for i := 0; i < s.retries; i++ {
		email, err := s.rdb.Get(ctx, idKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return User{}, NotFoundError{Op: op, Resource: "user"}
			}
			return User{}, err
		}

		b, err := s.rdb.Get(ctx, s.userKey(email)).Bytes()
		switch {
		case err == nil:
			u, err := decodeRedisUser(b)
			if err != nil {
				return User{}, err
			}
			if u.ID == id {
				return u, nil
			}
		case !errors.Is(err, redis.Nil):
			return User{}, err
		}

		again, err := s.rdb.Get(ctx, idKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return User{}, NotFoundError{Op: op, Resource: "user"}
			}
			return User{}, err
		}
		if again == email {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
	}
	return User{}, fmt.Errorf("identity: redis id lookup contended after %d attempts: %w", s.retries, redis.TxFailedErr)
}

// Insert stores u if neither key is taken.
func (s *RedisStore) Insert(ctx context.Context, u User) error {
	const op = "identity.RedisStore.Insert"

	if u.ID == "" || u.Email == "" {
		return invalid(op, "missing id or email")
	}
	payload, err := encodeRedisUser(u)
	if err != nil {
		return err
	}

	userKey, idKey := s.userKey(u.Email), s.idKey(u.ID)

	return s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, userKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ConflictError{Op: op, Field: "email"}
		}
		n, err = tx.Exists(ctx, idKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ConflictError{Op: op, Field: "id"}
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, userKey, payload, 0)
			p.Set(ctx, idKey, u.Email, 0)
			return nil
		})
		return err
	}, userKey, idKey)
}

// Update overwrites the record under currentEmail, moving it when u.Email differs.
func (s *RedisStore) Update(ctx context.Context, currentEmail string, u User) error {
	const op = "identity.RedisStore.Update"

	if u.Email == "" {
		return invalid(op, "missing email")
	}
	payload, err := encodeRedisUser(u)
	if err != nil {
		return err
	}

	oldKey, newKey, idKey := s.userKey(currentEmail), s.userKey(u.Email), s.idKey(u.ID)
	rekey := oldKey != newKey

	keys := []string{oldKey, idKey}
	if rekey {
		keys = append(keys, newKey)
	}

	return s.watch(ctx, func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, oldKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return NotFoundError{Op: op, Resource: "user"}
			}
			return err
		}
		existing, err := decodeRedisUser(b)
		if err != nil {
			return err
		}
		if existing.ID != u.ID {
			return NotFoundError{Op: op, Resource: "user"}
		}

		if rekey {
			n, err := tx.Exists(ctx, newKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return ConflictError{Op: op, Field: "email"}
			}
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if rekey {
				p.Del(ctx, oldKey)
			}
			p.Set(ctx, newKey, payload, 0)
			p.Set(ctx, idKey, u.Email, 0)
			return nil
		})
		return err
	}, keys...)
}

// Ping checks the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

// watch runs fn under WATCH keys and retries when another client touched
// them before EXEC.
func (s *RedisStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < s.retries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("identity: redis transaction contended after %d attempts: %w", s.retries, redis.TxFailedErr)
}
