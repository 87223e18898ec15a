package identity

import (
	"context"
	"time"
)

// User is a registered account.
//
// Password is stored exactly as supplied. The optional profile fields are
// nullable so that an explicit null in an update survives a round trip.
type User struct {
	ID       string
	Email    string
	Password string
	Name     string

	MobileNumber      *string
	AlternativeNumber *string
	AadharNumber      *string
	Avatar            *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) clone() User {
	out := u
	out.MobileNumber = clonePtr(u.MobileNumber)
	out.AlternativeNumber = clonePtr(u.AlternativeNumber)
	out.AadharNumber = clonePtr(u.AadharNumber)
	out.Avatar = clonePtr(u.Avatar)
	return out
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Backend is the identity persistence boundary: a map from email to User with
// a secondary lookup by id.
//
// Contract:
//   - GetByEmail / GetByID return NotFoundError when absent.
//   - Insert fails with ConflictError{Field: "email"} or {Field: "id"} when
//     either key is taken; the check and the write are one atomic step.
//   - Update overwrites the record stored under currentEmail with u (same id).
//     When u.Email differs from currentEmail the record is re-keyed atomically:
//     afterwards it is reachable under u.Email only, and at no instant under
//     both or neither key. A taken target email yields ConflictError{Field:
//     "email"} and leaves both records unchanged.
//   - Ping reports backend reachability for readiness probes.
type Backend interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	Insert(ctx context.Context, u User) error
	Update(ctx context.Context, currentEmail string, u User) error
	Ping(ctx context.Context) error
}
