package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBackendSuite checks the Backend contract against a fresh backend per subtest.
func runBackendSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Helper()

	now := time.Date(2024, 10, 1, 9, 30, 0, 0, time.UTC)
	user := func(id, email string) User {
		return User{
			ID:        id,
			Email:     email,
			Password:  "secret1",
			Name:      DefaultName(email),
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	ctx := func(t *testing.T) context.Context {
		c, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		t.Cleanup(cancel)
		return c
	}

	t.Run("insert then get by email and id", func(t *testing.T) {
		b := newBackend(t)
		c := ctx(t)

		u := user("01J9A", "a@x.com")
		u.Avatar = ptr("https://cdn/a.png")
		require.NoError(t, b.Insert(c, u))

		got, err := b.GetByEmail(c, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, u.Name, got.Name)
		assert.Equal(t, "secret1", got.Password)
		require.NotNil(t, got.Avatar)
		assert.Equal(t, "https://cdn/a.png", *got.Avatar)
		assert.Nil(t, got.MobileNumber)
		assert.True(t, now.Equal(got.CreatedAt))

		byID, err := b.GetByID(c, "01J9A")
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", byID.Email)
	})

	t.Run("missing records are not found", func(t *testing.T) {
		b := newBackend(t)
		c := ctx(t)

		_, err := b.GetByEmail(c, "nobody@x.com")
		assert.True(t, IsNotFound(err), "got %v", err)
		_, err = b.GetByID(c, "nope")
		assert.True(t, IsNotFound(err), "got %v", err)
	})

	t.Run("emails are case sensitive keys", func(t *testing.T) {
		b := newBackend(t)
		c := ctx(t)

		require.NoError(t, b.Insert(c, user("01J9A", "a@x.com")))
		require.NoError(t, b.Insert(c, user("01J9B", "A@x.com")))
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		b := newBackend(t)
		c := ctx(t)

		require.NoError(t, b.Insert(c, user("01J9A", "a@x.com")))
		err := b.Insert(c, user("01J9B", "a@x.com"))
		field, ok := ConflictField(err)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, "email", field)

		_, err = b.GetByID(c, "01J9B")
		assert.True(t, IsNotFound(err))
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		b := newBackend(t)
		c := ctx(t)

		require.NoError(t, b.Insert(c, user("01J9A", "a@x.com")))
		err := b.Insert(c, user("01J9A", "b@x.com"))
		field, ok := ConflictField(err)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, "id", field)

		_, err = b.GetByEmail(c, "b@x.com")
		assert.True(t, IsNotFound(err))
	})

	t.Run("update in place", func(t *testing.T) {
		b := newBackend(t)
		c := ctx(t)

		u := user("01J9A", "a@x.com")
		u.MobileNumber = ptr("9999")
		require.NoError(t, b.Insert(c, u))

		u.Name = "Asha"
		u.MobileNumber = nil
		u.AadharNumber = ptr("")
		require.NoError(t, b.Update(c, "a@x.com", u))

		got, err := b.GetByEmail(c, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "Asha", got.Name)
		assert.Nil(t, got.MobileNumber)
		require.NotNil(t, got.AadharNumber)
		assert.Equal(t, "", *got.AadharNumber)
	})

	t.Run("re-key moves record and keeps id", func(t *testing.T) {
		b := newBackend(t)
		c := ctx(t)

		u := user("01J9A", "a@x.com")
		require.NoError(t, b.Insert(c, u))

		u.Email = "c@x.com"
		require.NoError(t, b.Update(c, "a@x.com", u))

		_, err := b.GetByEmail(c, "a@x.com")
		assert.True(t, IsNotFound(err), "old key must be gone, got %v", err)

		got, err := b.GetByEmail(c, "c@x.com")
		require.NoError(t, err)
		assert.Equal(t, "01J9A", got.ID)

		byID, err := b.GetByID(c, "01J9A")
		require.NoError(t, err)
		assert.Equal(t, "c@x.com", byID.Email)

		// The new key is taken, the old one is free again.
		err = b.Insert(c, user("01J9C", "c@x.com"))
		field, ok := ConflictField(err)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, "email", field)

		require.NoError(t, b.Insert(c, user("01J9B", "a@x.com")))
	})

	t.Run("re-key onto taken email conflicts without mutation", func(t *testing.T) {
		b := newBackend(t)
		c := ctx(t)

		require.NoError(t, b.Insert(c, user("01J9A", "a@x.com")))
		require.NoError(t, b.Insert(c, user("01J9B", "b@x.com")))

		moved := user("01J9A", "b@x.com")
		moved.Name = "changed"
		err := b.Update(c, "a@x.com", moved)
		assert.True(t, IsConflict(err), "got %v", err)

		a, err := b.GetByEmail(c, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "01J9A", a.ID)
		assert.Equal(t, "a", a.Name)

		bb, err := b.GetByEmail(c, "b@x.com")
		require.NoError(t, err)
		assert.Equal(t, "01J9B", bb.ID)
	})

	t.Run("update of missing record is not found", func(t *testing.T) {
		b := newBackend(t)
		c := ctx(t)

		err := b.Update(c, "ghost@x.com", user("01J9Z", "ghost@x.com"))
		assert.True(t, IsNotFound(err), "got %v", err)
	})

	t.Run("concurrent inserts of one email admit exactly one", func(t *testing.T) {
		b := newBackend(t)
		c := ctx(t)

		const n = 16
		ids := []string{"01J9A", "01J9B", "01J9C", "01J9D", "01J9E", "01J9F", "01J9G", "01J9H",
			"01J9J", "01J9K", "01J9M", "01J9N", "01J9P", "01J9Q", "01J9R", "01J9S"}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok       int
			conflict int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				err := b.Insert(c, user(id, "race@x.com"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case IsConflict(err):
					conflict++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(ids[i])
		}
		wg.Wait()

		assert.Equal(t, 1, ok)
		assert.Equal(t, n-1, conflict)
	})

	t.Run("ping", func(t *testing.T) {
		b := newBackend(t)
		assert.NoError(t, b.Ping(ctx(t)))
	})
}

func ptr(s string) *string { return &s }
