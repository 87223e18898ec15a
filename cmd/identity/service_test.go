package identity

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vashistbar27/Gudage-hospital/cmd/identity/ids"
	"github.com/vashistbar27/Gudage-hospital/cmd/security/password"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	svc, err := NewService(store, opts...)
	require.NoError(t, err)
	return svc, store
}

func mustRegister(t *testing.T, svc *Service, email, pw string) AuthResult {
	t.Helper()
	res, err := svc.Register(context.Background(), RegisterInput{Email: email, Password: pw})
	require.NoError(t, err)
	return res
}

func TestNewService_NilBackend(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}

func TestRegister_DefaultsAndToken(t *testing.T) {
	svc, store := newTestService(t)

	res, err := svc.Register(context.Background(), RegisterInput{Email: "asha.k@example.com", Password: "secret1"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.User.ID)
	assert.NotContains(t, res.User.ID, "-")
	assert.Equal(t, "token-"+res.User.ID, res.Token)
	assert.Equal(t, "asha.k", res.User.Name)
	assert.Equal(t, "asha.k@example.com", res.User.Email)
	assert.Nil(t, res.User.MobileNumber)
	assert.Nil(t, res.User.Avatar)
	assert.Equal(t, 1, store.Len())
}

func TestRegister_KeepsSuppliedName(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "secret1", Name: "Dr. Asha"})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Asha", res.User.Name)
}

func TestRegister_Validation(t *testing.T) {
	svc, store := newTestService(t)

	cases := []struct {
		name  string
		in    RegisterInput
		cause error
	}{
		{name: "missing email", in: RegisterInput{Password: "secret1"}},
		{name: "missing password", in: RegisterInput{Email: "a@x.com"}},
		{name: "short password", in: RegisterInput{Email: "a@x.com", Password: "12345"}, cause: password.ErrPasswordTooShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.in)
			require.Error(t, err)
			assert.True(t, IsInvalidInput(err), "got %v", err)
			if tc.cause != nil {
				assert.ErrorIs(t, err, tc.cause)
			}
		})
	}
	assert.Equal(t, 0, store.Len())
}

func TestRegister_SixCharPasswordAccepted(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "123456"})
	assert.NoError(t, err)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc, store := newTestService(t)
	first := mustRegister(t, svc, "a@x.com", "secret1")

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "another-password", Name: "Other"})
	require.Error(t, err)
	assert.True(t, IsConflict(err), "got %v", err)

	got, err := store.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, got.ID)
	assert.Equal(t, "secret1", got.Password)
}

func TestRegister_TimeIDsRetryPastCollisions(t *testing.T) {
	fixed := time.UnixMilli(1727784000000).UTC()
	svc, _ := newTestService(t,
		WithIDGenerator(ids.NewTimeID),
		WithClock(func() time.Time { return fixed }),
	)

	a := mustRegister(t, svc, "a@x.com", "secret1")
	b := mustRegister(t, svc, "b@x.com", "secret1")

	assert.Equal(t, "1727784000000", a.User.ID)
	assert.Equal(t, "1727784000001", b.User.ID)
}

func TestRegister_GivesUpAfterMaxIDAttempts(t *testing.T) {
	svc, _ := newTestService(t,
		WithIDGenerator(func(time.Time) (string, error) { return "SAMEID", nil }),
		WithMaxIDAttempts(2),
	)
	mustRegister(t, svc, "a@x.com", "secret1")

	_, err := svc.Register(context.Background(), RegisterInput{Email: "b@x.com", Password: "secret1"})
	require.Error(t, err)
	assert.False(t, IsConflict(err), "exhausted ids must not read as an email conflict")
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestRegister_RejectsDelimiterInID(t *testing.T) {
	svc, store := newTestService(t,
		WithIDGenerator(func(time.Time) (string, error) { return "abc-def", nil }),
	)
	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	svc, store := newTestService(t)

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), RegisterInput{Email: "race@x.com", Password: "secret1"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 0, svc.locks.size())
}

func TestLogin_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "secret1")

	res, err := svc.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.Equal(t, reg.Token, res.Token)
}

func TestLogin_FailuresAreUniform(t *testing.T) {
	svc, store := newTestService(t)
	mustRegister(t, svc, "a@x.com", "secret1")

	_, wrongPw := svc.Login(context.Background(), "a@x.com", "secret2")
	_, unknown := svc.Login(context.Background(), "nobody@x.com", "secret1")

	require.Error(t, wrongPw)
	require.Error(t, unknown)
	assert.True(t, IsUnauthorized(wrongPw))
	assert.True(t, IsUnauthorized(unknown))
	assert.Equal(t, wrongPw.Error(), unknown.Error())
	assert.Equal(t, 1, store.Len())
}

func TestLogin_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	for _, in := range [][2]string{{"", "secret1"}, {"a@x.com", ""}, {"", ""}} {
		_, err := svc.Login(context.Background(), in[0], in[1])
		assert.True(t, IsInvalidInput(err), "login(%q,%q) = %v", in[0], in[1], err)
	}
}

func TestLogin_PasswordIsExact(t *testing.T) {
	svc, _ := newTestService(t)
	mustRegister(t, svc, "a@x.com", "Secret1")

	_, err := svc.Login(context.Background(), "a@x.com", "secret1")
	assert.True(t, IsUnauthorized(err))
	_, err = svc.Login(context.Background(), "a@x.com", "Secret1 ")
	assert.True(t, IsUnauthorized(err))
}

func TestResolveToken(t *testing.T) {
	svc, _ := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "secret1")

	u, err := svc.ResolveToken(context.Background(), reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, u.ID)

	_, err = svc.ResolveToken(context.Background(), "")
	assert.True(t, IsUnauthorized(err), "empty token: %v", err)

	for _, tok := range []string{"token-UNKNOWN", "garbage", "token-", reg.User.ID, "token-a-b"} {
		_, err = svc.ResolveToken(context.Background(), tok)
		assert.True(t, IsNotFound(err), "token %q: %v", tok, err)
	}
}

func TestUpdateProfile_FieldSemantics(t *testing.T) {
	svc, _ := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "secret1")
	ctx := context.Background()

	u, err := svc.UpdateProfile(ctx, reg.Token, ProfilePatch{
		Name:              Some("Asha"),
		MobileNumber:      Some("9876543210"),
		AlternativeNumber: Some("0123"),
		AadharNumber:      Some("1234 5678 9012"),
		Avatar:            Some("https://cdn/a.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)
	assert.Equal(t, "9876543210", *u.MobileNumber)

	// Empty name is ignored; empty and null profile fields overwrite.
	u, err = svc.UpdateProfile(ctx, reg.Token, ProfilePatch{
		Name:         Some(""),
		MobileNumber: Some(""),
		Avatar:       Null(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)
	require.NotNil(t, u.MobileNumber)
	assert.Equal(t, "", *u.MobileNumber)
	assert.Nil(t, u.Avatar)

	// Absent fields are untouched.
	require.NotNil(t, u.AlternativeNumber)
	assert.Equal(t, "0123", *u.AlternativeNumber)
	require.NotNil(t, u.AadharNumber)
	assert.Equal(t, "1234 5678 9012", *u.AadharNumber)

	// Null name is ignored too.
	u, err = svc.UpdateProfile(ctx, reg.Token, ProfilePatch{Name: Null()})
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)

	// Persisted.
	stored, err := svc.ResolveToken(ctx, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, u.Name, stored.Name)
	assert.Nil(t, stored.Avatar)
	assert.Equal(t, "secret1", stored.Password)
}

func TestUpdateProfile_EmailChangeKeepsID(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	reg := mustRegister(t, svc, "a@x.com", "secret1")

	_, err := svc.UpdateProfile(ctx, reg.Token, ProfilePatch{MobileNumber: Some("555")})
	require.NoError(t, err)

	u, err := svc.UpdateProfile(ctx, reg.Token, ProfilePatch{Email: Some("c@x.com")})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, u.ID)
	assert.Equal(t, "c@x.com", u.Email)
	assert.Equal(t, "555", *u.MobileNumber)

	// The old token still resolves.
	same, err := svc.ResolveToken(ctx, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, "c@x.com", same.Email)

	_, err = svc.Login(ctx, "a@x.com", "secret1")
	assert.True(t, IsUnauthorized(err))
	_, err = svc.Login(ctx, "c@x.com", "secret1")
	assert.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestUpdateProfile_SameEmailIsNoRekey(t *testing.T) {
	svc, _ := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "secret1")

	u, err := svc.UpdateProfile(context.Background(), reg.Token, ProfilePatch{Email: Some("a@x.com"), Name: Some("A")})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, "A", u.Name)
}

func TestUpdateProfile_ConflictLeavesBothUnchanged(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	a := mustRegister(t, svc, "a@x.com", "secret1")
	b := mustRegister(t, svc, "b@x.com", "secret2")

	_, err := svc.UpdateProfile(ctx, a.Token, ProfilePatch{
		Email:        Some("b@x.com"),
		Name:         Some("Renamed"),
		MobileNumber: Some("111"),
	})
	require.Error(t, err)
	assert.True(t, IsConflict(err), "got %v", err)

	gotA, err := store.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, a.User.ID, gotA.ID)
	assert.Equal(t, "a", gotA.Name)
	assert.Nil(t, gotA.MobileNumber)

	gotB, err := store.GetByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, b.User.ID, gotB.ID)
	assert.Equal(t, "secret2", gotB.Password)
}

func TestUpdateProfile_Unresolved(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateProfile(context.Background(), "", ProfilePatch{})
	assert.True(t, IsUnauthorized(err))

	_, err = svc.UpdateProfile(context.Background(), "token-NOPE", ProfilePatch{Name: Some("x")})
	assert.True(t, IsNotFound(err))
}

func TestUpdateProfile_ConcurrentFieldsAreNotLost(t *testing.T) {
	svc, _ := newTestService(t)
	reg := mustRegister(t, svc, "a@x.com", "secret1")

	var wg sync.WaitGroup
	patches := []ProfilePatch{
		{MobileNumber: Some("1")},
		{AlternativeNumber: Some("2")},
		{AadharNumber: Some("3")},
		{Avatar: Some("4")},
		{Name: Some("5")},
	}
	for _, p := range patches {
		wg.Add(1)
		go func(p ProfilePatch) {
			defer wg.Done()
			_, err := svc.UpdateProfile(context.Background(), reg.Token, p)
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()

	u, err := svc.ResolveToken(context.Background(), reg.Token)
	require.NoError(t, err)
	assert.Equal(t, "1", *u.MobileNumber)
	assert.Equal(t, "2", *u.AlternativeNumber)
	assert.Equal(t, "3", *u.AadharNumber)
	assert.Equal(t, "4", *u.Avatar)
	assert.Equal(t, "5", u.Name)
}

func TestForgotPassword(t *testing.T) {
	svc, _ := newTestService(t)
	mustRegister(t, svc, "a@x.com", "secret1")

	assert.NoError(t, svc.ForgotPassword(context.Background(), "a@x.com"))
	assert.True(t, IsInvalidInput(svc.ForgotPassword(context.Background(), "")))
	assert.True(t, IsNotFound(svc.ForgotPassword(context.Background(), "A@x.com")))
}

// The register/rename/register scenario, with the second registration
// attempted both before and after the rename.
func TestScenario_RenameOrdering(t *testing.T) {
	t.Run("second register before rename", func(t *testing.T) {
		svc, _ := newTestService(t)
		ctx := context.Background()

		a := mustRegister(t, svc, "a@x.com", "secret1")
		b := mustRegister(t, svc, "b@x.com", "secret1")

		_, err := svc.UpdateProfile(ctx, a.Token, ProfilePatch{Email: Some("b@x.com")})
		assert.True(t, IsConflict(err), "got %v", err)

		moved, err := svc.UpdateProfile(ctx, a.Token, ProfilePatch{Email: Some("c@x.com")})
		require.NoError(t, err)
		assert.Equal(t, a.User.ID, moved.ID)

		_, err = svc.Login(ctx, "a@x.com", "secret1")
		assert.True(t, IsUnauthorized(err))

		res, err := svc.Login(ctx, "c@x.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, a.User.ID, res.User.ID)

		res, err = svc.Login(ctx, "b@x.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, b.User.ID, res.User.ID)
	})

	t.Run("rename onto b then register b conflicts", func(t *testing.T) {
		svc, _ := newTestService(t)
		ctx := context.Background()

		a := mustRegister(t, svc, "a@x.com", "secret1")

		moved, err := svc.UpdateProfile(ctx, a.Token, ProfilePatch{Email: Some("b@x.com")})
		require.NoError(t, err)
		assert.Equal(t, a.User.ID, moved.ID)
		assert.Equal(t, "b@x.com", moved.Email)

		_, err = svc.Register(ctx, RegisterInput{Email: "b@x.com", Password: "secret2"})
		assert.True(t, IsConflict(err), "got %v", err)

		got, err := svc.ResolveToken(ctx, a.Token)
		require.NoError(t, err)
		assert.Equal(t, "b@x.com", got.Email)

		res, err := svc.Login(ctx, "b@x.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, a.User.ID, res.User.ID)
	})

	t.Run("second register after rename", func(t *testing.T) {
		svc, _ := newTestService(t)
		ctx := context.Background()

		a := mustRegister(t, svc, "a@x.com", "secret1")

		moved, err := svc.UpdateProfile(ctx, a.Token, ProfilePatch{Email: Some("c@x.com")})
		require.NoError(t, err)
		assert.Equal(t, a.User.ID, moved.ID)

		b := mustRegister(t, svc, "b@x.com", "secret1")

		_, err = svc.UpdateProfile(ctx, a.Token, ProfilePatch{Email: Some("b@x.com")})
		assert.True(t, IsConflict(err), "got %v", err)

		// The freed key can be registered again as a different user.
		again := mustRegister(t, svc, "a@x.com", "secret1")
		assert.NotEqual(t, a.User.ID, again.User.ID)

		res, err := svc.Login(ctx, "c@x.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, a.User.ID, res.User.ID)

		res, err = svc.Login(ctx, "b@x.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, b.User.ID, res.User.ID)
	})
}

func TestProfilePatch_DecodeJSON(t *testing.T) {
	var p ProfilePatch
	body := `{"name":"","mobileNumber":null,"aadharNumber":123456789012,"avatar":"x"}`
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.True(t, p.Name.Set)
	require.NotNil(t, p.Name.Value)
	assert.Equal(t, "", *p.Name.Value)

	assert.True(t, p.MobileNumber.Set)
	assert.Nil(t, p.MobileNumber.Value)

	assert.True(t, p.AadharNumber.Set)
	assert.Equal(t, "123456789012", *p.AadharNumber.Value)

	assert.False(t, p.Email.Set)
	assert.False(t, p.AlternativeNumber.Set)

	var bad ProfilePatch
	assert.Error(t, json.Unmarshal([]byte(`{"avatar":true}`), &bad))
}

func TestDefaultName(t *testing.T) {
	cases := map[string]string{
		"asha@example.com": "asha",
		"a@b@c":            "a",
		"no-at-sign":       "no-at-sign",
		"@x.com":           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, DefaultName(in), in)
	}
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())
	unlockA()
	unlockB()
	assert.Equal(t, 0, k.size())
}
