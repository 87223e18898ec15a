package identity

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Optional is a nullable string that remembers whether it was present in a
// decoded JSON document. An absent key leaves Set false; an explicit null sets
// Set with a nil Value. JSON numbers are kept as their literal text.
type Optional struct {
	Set   bool
	Value *string
}

// Some returns a present Optional holding v.
func Some(v string) Optional { return Optional{Set: true, Value: &v} }

// Null returns a present Optional holding null.
func Null() Optional { return Optional{Set: true} }

var errOptionalType = errors.New("identity: expected string, number or null")

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Value = nil

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		o.Value = &s
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		s := n.String()
		o.Value = &s
		return nil
	default:
		return errOptionalType
	}
}

// nonEmpty reports whether the field was supplied with a non-empty string.
func (o Optional) nonEmpty() bool {
	return o.Set && o.Value != nil && *o.Value != ""
}

// ProfilePatch is a partial profile update.
//
// Name and Email are applied only when supplied non-empty. The remaining
// fields overwrite whenever supplied, including with "" or null.
type ProfilePatch struct {
	Name              Optional `json:"name"`
	Email             Optional `json:"email"`
	MobileNumber      Optional `json:"mobileNumber"`
	AlternativeNumber Optional `json:"alternativeNumber"`
	AadharNumber      Optional `json:"aadharNumber"`
	Avatar            Optional `json:"avatar"`
}

// targetEmail returns the email u should end up with.
func (p ProfilePatch) targetEmail(u User) string {
	if p.Email.nonEmpty() {
		return *p.Email.Value
	}
	return u.Email
}

func (p ProfilePatch) apply(u User) User {
	out := u.clone()
	if p.Name.nonEmpty() {
		out.Name = *p.Name.Value
	}
	out.Email = p.targetEmail(u)
	if p.MobileNumber.Set {
		out.MobileNumber = clonePtr(p.MobileNumber.Value)
	}
	if p.AlternativeNumber.Set {
		out.AlternativeNumber = clonePtr(p.AlternativeNumber.Value)
	}
	if p.AadharNumber.Set {
		out.AadharNumber = clonePtr(p.AadharNumber.Value)
	}
	if p.Avatar.Set {
		out.Avatar = clonePtr(p.Avatar.Value)
	}
	return out
}
