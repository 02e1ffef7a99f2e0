package im

import (
	"Portal/internal/im/imtest"
	"Portal/internal/model"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSession(connID, userID, role string) *Session {
	return NewSession(imtest.NewFakeConn(connID), Identity{UserID: userID, Role: role, Name: userID})
}

func connIDs(sessions []*Session) []string {
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID())
	}
	return ids
}

func TestRegistry(t *testing.T) {
	t.Run("register and lookup", func(t *testing.T) {
		r := NewRegistry()
		r.Register(newTestSession("c1", "u1", model.RoleClient))
		r.Register(newTestSession("c2", "u1", model.RoleClient))

		require.ElementsMatch(t, []string{"c1", "c2"}, connIDs(r.ConnectionsFor("u1")))
		s, ok := r.Lookup("c2")
		require.True(t, ok)
		require.Equal(t, "u1", s.UserID)
		require.Equal(t, 2, r.Count())
	})

	t.Run("unknown user has empty set", func(t *testing.T) {
		r := NewRegistry()
		got := r.ConnectionsFor("nobody")
		require.NotNil(t, got)
		require.Empty(t, got)
	})

	t.Run("unregister is idempotent", func(t *testing.T) {
		r := NewRegistry()
		r.Register(newTestSession("c1", "u1", model.RoleClient))

		_, ok := r.Unregister("c1")
		require.True(t, ok)
		_, ok = r.Unregister("c1")
		require.False(t, ok)
		_, ok = r.Unregister("never-seen")
		require.False(t, ok)

		require.Empty(t, r.ConnectionsFor("u1"))
		require.Empty(t, r.Identities(""))
	})

	t.Run("re-register moves connection between users", func(t *testing.T) {
		r := NewRegistry()
		r.Register(newTestSession("c1", "u1", model.RoleClient))
		r.Register(newTestSession("c1", "u2", model.RoleClient))

		require.Empty(t, r.ConnectionsFor("u1"))
		require.Equal(t, []string{"c1"}, connIDs(r.ConnectionsFor("u2")))
		require.Equal(t, 1, r.Count())
	})

	t.Run("identities filters by role", func(t *testing.T) {
		r := NewRegistry()
		r.Register(newTestSession("c1", "admin-1", model.RoleAdmin))
		r.Register(newTestSession("c2", "admin-1", model.RoleAdmin))
		r.Register(newTestSession("c3", "client-1", model.RoleClient))

		require.Equal(t, []string{"admin-1"}, r.Identities(model.RoleAdmin))
		require.Equal(t, []string{"client-1"}, r.Identities(model.RoleClient))
		require.ElementsMatch(t, []string{"admin-1", "client-1"}, r.Identities(""))
	})

	t.Run("concurrent register and unregister", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := "c" + string(rune('A'+i%26)) + string(rune('a'+i/26))
				r.Register(newTestSession(id, "u1", model.RoleClient))
				_ = r.ConnectionsFor("u1")
				r.Unregister(id)
			}(i)
		}
		wg.Wait()
		require.Zero(t, r.Count())
		require.Empty(t, r.ConnectionsFor("u1"))
	})
}
