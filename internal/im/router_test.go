package im

import (
	"Portal/internal/im/imtest"
	"Portal/internal/model"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	setup := func() (*Router, map[string]*imtest.FakeConn) {
		reg := NewRegistry()
		conns := map[string]*imtest.FakeConn{}
		for _, c := range []struct{ conn, user string }{
			{"c1", "u1"}, {"c2", "u1"}, {"c3", "u2"},
		} {
			fc := imtest.NewFakeConn(c.conn)
			conns[c.conn] = fc
			reg.Register(NewSession(fc, Identity{UserID: c.user, Role: model.RoleClient}))
		}
		return NewRouter(reg), conns
	}

	t.Run("emit reaches every member once", func(t *testing.T) {
		r, conns := setup()
		r.Join("c1", "conv-1")
		r.Join("c1", "conv-1")
		r.Join("c3", "conv-1")

		n := r.EmitToChannel("conv-1", ErrorEvent{Message: "x"})
		require.Equal(t, 2, n)
		require.Len(t, conns["c1"].Frames(), 1)
		require.Len(t, conns["c3"].Frames(), 1)
		require.Empty(t, conns["c2"].Frames())
	})

	t.Run("empty channel is a no-op", func(t *testing.T) {
		r, _ := setup()
		require.Zero(t, r.EmitToChannel("nobody-here", ErrorEvent{Message: "x"}))
	})

	t.Run("leave and purge", func(t *testing.T) {
		r, _ := setup()
		r.Join("c1", "a")
		r.Join("c1", "b")
		r.Join("c2", "a")

		r.Leave("c1", "a")
		r.Leave("c1", "never-joined")
		require.Equal(t, []string{"c2"}, r.Members("a"))
		require.Equal(t, []string{"b"}, r.ChannelsOf("c1"))

		r.Purge("c1")
		require.Empty(t, r.ChannelsOf("c1"))
		require.Empty(t, r.Members("b"))
	})

	t.Run("failed delivery does not stop fan-out", func(t *testing.T) {
		r, conns := setup()
		r.Join("c1", "conv-1")
		r.Join("c3", "conv-1")
		conns["c1"].SendErr = errors.New("broken pipe")

		require.Equal(t, 1, r.EmitToChannel("conv-1", ErrorEvent{Message: "x"}))
		require.Len(t, conns["c3"].Frames(), 1)
	})

	t.Run("unregistered connection cannot join", func(t *testing.T) {
		r, _ := setup()
		require.False(t, r.Join("ghost", "conv-1"))
		require.Empty(t, r.Members("conv-1"))
		require.Empty(t, r.ChannelsOf("ghost"))

		require.True(t, r.Join("c1", "conv-1"))
	})

	t.Run("emit to stale connection", func(t *testing.T) {
		r, _ := setup()
		require.False(t, r.EmitToConnection("gone", ErrorEvent{Message: "x"}))
		require.True(t, r.EmitToConnection("c2", ErrorEvent{Message: "x"}))
	})
}
