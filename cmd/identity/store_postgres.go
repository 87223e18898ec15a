package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Backend over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Schema/table identifiers are safely quoted.
//   - Email uniqueness is a table constraint; a re-key is a single UPDATE of
//     the email column, so it is atomic without an explicit transaction.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// DefaultSchema is the schema created by the bundled migrations.
const DefaultSchema = "gudage"

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "gudage").
// The schema name is validated to be a legal PostgreSQL identifier.
//
// The bundled migrations only create DefaultSchema. Any other schema must
// already hold a users table with the same columns and constraints.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const pgUserColumns = `id, email, password, name, mobile_number, alternative_number, aadhar_number, avatar, created_at, updated_at`

// GetByEmail returns the user stored under email.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.getOne(ctx, "identity.PostgresStore.GetByEmail", "email", email)
}

// GetByID returns the user with id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	return s.getOne(ctx, "identity.PostgresStore.GetByID", "id", id)
}

func (s *PostgresStore) getOne(ctx context.Context, op, column, value string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")

	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT `+pgUserColumns+`
		   FROM `+users+`
		  WHERE `+pgx.Identifier{column}.Sanitize()+` = $1`,
		value,
	).Scan(
		&u.ID,
		&u.Email,
		&u.Password,
		&u.Name,
		&u.MobileNumber,
		&u.AlternativeNumber,
		&u.AadharNumber,
		&u.Avatar,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return u, nil
}

// Insert stores u; unique violations map to ConflictError.
func (s *PostgresStore) Insert(ctx context.Context, u User) error {
	const op = "identity.PostgresStore.Insert"

	if err := ctx.Err(); err != nil {
		return err
	}
	if u.ID == "" || u.Email == "" {
		return invalid(op, "missing id or email")
	}

	users := pgIdent(s.schema, "users")

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+users+` (`+pgUserColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID,
		u.Email,
		u.Password,
		u.Name,
		u.MobileNumber,
		u.AlternativeNumber,
		u.AadharNumber,
		u.Avatar,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return ConflictError{Op: op, Field: field}
		}
		return err
	}
	return nil
}

// Update overwrites the row keyed by currentEmail. The email column is
// rewritten in the same statement, so a re-key is atomic.
func (s *PostgresStore) Update(ctx context.Context, currentEmail string, u User) error {
	const op = "identity.PostgresStore.Update"

	if err := ctx.Err(); err != nil {
		return err
	}
	if u.Email == "" {
		return invalid(op, "missing email")
	}

	users := pgIdent(s.schema, "users")

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+users+`
		    SET email = $1,
		        password = $2,
		        name = $3,
		        mobile_number = $4,
		        alternative_number = $5,
		        aadhar_number = $6,
		        avatar = $7,
		        updated_at = $8
		  WHERE email = $9
		    AND id = $10`,
		u.Email,
		u.Password,
		u.Name,
		u.MobileNumber,
		u.AlternativeNumber,
		u.AadharNumber,
		u.Avatar,
		u.UpdatedAt,
		currentEmail,
		u.ID,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return ConflictError{Op: op, Field: field}
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// Ping checks that a connection can be acquired and used.
func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// ---- helpers ----

// pgIdentIsValid checks if a string is a safe Postgres identifier.
func pgIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names. Fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch c {
	case "uq_users_email":
		return "email", true
	case "users_pkey":
		return "id", true
	default:
		switch {
		case strings.Contains(c, "email"):
			return "email", true
		case strings.Contains(c, "pkey"), strings.Contains(c, "id"):
			return "id", true
		default:
			return "unique", true
		}
	}
}
