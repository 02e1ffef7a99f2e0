package im_test

import (
	"Portal/internal/api/dto"
	"Portal/internal/im"
	"Portal/internal/im/imtest"
	"Portal/internal/model"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *imtest.MemStore
	engine *im.Engine
}

// newFixture client-1 与 admin-1 共享 conv-1
func newFixture(t *testing.T, opts ...im.Option) *fixture {
	t.Helper()
	store := imtest.NewMemStore()
	store.AddUser("client-1", model.RoleClient, "Alice")
	store.AddUser("admin-1", model.RoleAdmin, "Admin")
	store.AddConversation("conv-1", "client-1", "admin-1")
	return &fixture{store: store, engine: im.NewEngine(store, opts...)}
}

func (f *fixture) connect(t *testing.T, connID, userID string) (*im.Session, *imtest.FakeConn) {
	t.Helper()
	conn := imtest.NewFakeConn(connID)
	s, err := f.engine.Connect(context.Background(), conn, userID)
	require.NoError(t, err)
	return s, conn
}

func (f *fixture) frame(t *testing.T, s *im.Session, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	require.NoError(t, err)
	f.engine.HandleFrame(context.Background(), s, raw)
}

func decode[T any](t *testing.T, f imtest.Frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Data, &v))
	return v
}

func TestEngine_Connect(t *testing.T) {
	t.Run("unknown identity is closed", func(t *testing.T) {
		f := newFixture(t)
		conn := imtest.NewFakeConn("c1")
		_, err := f.engine.Connect(context.Background(), conn, "ghost")
		require.ErrorIs(t, err, im.ErrUnknownIdentity)
		require.True(t, conn.Closed())
		require.Empty(t, conn.Frames())
		require.Zero(t, f.engine.Registry().Count())
	})

	t.Run("empty identity is closed", func(t *testing.T) {
		f := newFixture(t)
		conn := imtest.NewFakeConn("c1")
		_, err := f.engine.Connect(context.Background(), conn, "")
		require.ErrorIs(t, err, im.ErrUnknownIdentity)
		require.True(t, conn.Closed())
	})

	t.Run("lookup failure is closed", func(t *testing.T) {
		f := newFixture(t)
		f.store.UserErr = errors.New("db down")
		conn := imtest.NewFakeConn("c1")
		_, err := f.engine.Connect(context.Background(), conn, "client-1")
		require.Error(t, err)
		require.True(t, conn.Closed())
	})

	t.Run("admin gets totals on its own connection only", func(t *testing.T) {
		f := newFixture(t)
		f.store.AddMessage("conv-1", "client-1", "a", false)
		f.store.AddMessage("conv-1", "client-1", "b", false)

		_, first := f.connect(t, "a1", "admin-1")
		first.Reset()
		s, second := f.connect(t, "a2", "admin-1")

		require.Empty(t, first.Frames())
		frames := second.Named(im.EventAdminUnreadCount)
		require.Len(t, frames, 1)
		totals := decode[dto.UnreadTotalsDTO](t, frames[0])
		require.EqualValues(t, 2, totals.TotalUnreadCount)
		require.Len(t, totals.Conversations, 1)
		require.Equal(t, "conv-1", totals.Conversations[0].ConversationID)

		require.True(t, s.IsAdmin())
		require.ElementsMatch(t, []string{"a1", "a2"}, f.engine.Router().Members(im.AdminsRoom))
	})

	t.Run("client does not join admins room", func(t *testing.T) {
		f := newFixture(t)
		_, conn := f.connect(t, "c1", "client-1")
		require.Empty(t, conn.Frames())
		require.Empty(t, f.engine.Router().Members(im.AdminsRoom))
	})
}

func TestEngine_SendMessage(t *testing.T) {
	t.Run("client message reaches room and every admin connection", func(t *testing.T) {
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		f := newFixture(t, im.WithClock(func() time.Time { return now }))
		client, clientConn := f.connect(t, "c1", "client-1")
		admin1, adminConn1 := f.connect(t, "a1", "admin-1")
		_, adminConn2 := f.connect(t, "a2", "admin-1")
		f.frame(t, client, im.EventJoinConversation, "conv-1")
		f.frame(t, admin1, im.EventJoinConversation, "conv-1")
		adminConn1.Reset()
		adminConn2.Reset()

		f.frame(t, client, im.EventSendMessage, map[string]string{"conversationId": "conv-1", "content": "hello"})

		for _, c := range []*imtest.FakeConn{clientConn, adminConn1} {
			frames := c.Named(im.EventNewMessage)
			require.Len(t, frames, 1)
			msg := decode[dto.MessageDTO](t, frames[0])
			require.Equal(t, "client-1", msg.SenderID)
			require.Equal(t, "hello", msg.Content)
			require.False(t, msg.Read)
			require.Equal(t, "Alice", msg.Sender.Name)
		}
		require.Empty(t, adminConn2.Named(im.EventNewMessage))

		for _, c := range []*imtest.FakeConn{adminConn1, adminConn2} {
			frames := c.Named(im.EventAdminNewMessage)
			require.Len(t, frames, 1)
			ev := decode[im.AdminNewMessage](t, frames[0])
			require.Equal(t, "conv-1", ev.ConversationID)
			require.EqualValues(t, 1, ev.UnreadCount)
			require.Equal(t, "client-1", ev.ClientID)
			require.Equal(t, "Alice", ev.ClientName)
			require.Equal(t, "hello", ev.Message.Content)
		}
		require.Empty(t, clientConn.Named(im.EventAdminNewMessage))

		touched, ok := f.store.Touched("conv-1")
		require.True(t, ok)
		require.Equal(t, now, touched)
	})

	t.Run("unread counts grow per message", func(t *testing.T) {
		f := newFixture(t)
		client, _ := f.connect(t, "c1", "client-1")
		_, adminConn := f.connect(t, "a1", "admin-1")

		for _, content := range []string{"one", "two", "three"} {
			f.frame(t, client, im.EventSendMessage, map[string]string{"conversationId": "conv-1", "content": content})
		}

		frames := adminConn.Named(im.EventAdminNewMessage)
		require.Len(t, frames, 3)
		for i, fr := range frames {
			require.EqualValues(t, i+1, decode[im.AdminNewMessage](t, fr).UnreadCount)
		}
	})

	t.Run("admin message does not notify admins", func(t *testing.T) {
		f := newFixture(t)
		admin, adminConn := f.connect(t, "a1", "admin-1")
		_, clientConn := f.connect(t, "c1", "client-1")
		f.frame(t, admin, im.EventJoinConversation, "conv-1")
		f.engine.Router().Join("c1", "conv-1")
		adminConn.Reset()

		f.frame(t, admin, im.EventSendMessage, map[string]string{"conversationId": "conv-1", "content": "hi there"})

		require.Len(t, clientConn.Named(im.EventNewMessage), 1)
		require.Len(t, adminConn.Named(im.EventNewMessage), 1)
		require.Empty(t, adminConn.Named(im.EventAdminNewMessage))
	})

	t.Run("empty content is rejected on the sender only", func(t *testing.T) {
		f := newFixture(t)
		client, clientConn := f.connect(t, "c1", "client-1")
		_, adminConn := f.connect(t, "a1", "admin-1")
		f.frame(t, client, im.EventJoinConversation, "conv-1")
		adminConn.Reset()

		f.frame(t, client, im.EventSendMessage, map[string]string{"conversationId": "conv-1", "content": "   "})

		errs := clientConn.Named(im.EventError)
		require.Len(t, errs, 1)
		require.Equal(t, im.ErrEmptyContent.Error(), decode[im.ErrorEvent](t, errs[0]).Message)
		require.Empty(t, clientConn.Named(im.EventNewMessage))
		require.Empty(t, adminConn.Frames())
		require.Empty(t, f.store.Messages("conv-1"))
		require.False(t, clientConn.Closed())
	})

	t.Run("persistence failure emits nothing", func(t *testing.T) {
		f := newFixture(t)
		f.store.CreateErr = errors.New("insert failed")
		client, clientConn := f.connect(t, "c1", "client-1")
		_, adminConn := f.connect(t, "a1", "admin-1")
		f.frame(t, client, im.EventJoinConversation, "conv-1")
		adminConn.Reset()

		f.frame(t, client, im.EventSendMessage, map[string]string{"conversationId": "conv-1", "content": "hello"})

		require.Len(t, clientConn.Named(im.EventError), 1)
		require.Empty(t, clientConn.Named(im.EventNewMessage))
		require.Empty(t, adminConn.Frames())
	})

	t.Run("timestamp failure emits nothing", func(t *testing.T) {
		f := newFixture(t)
		f.store.TouchErr = errors.New("update failed")
		client, clientConn := f.connect(t, "c1", "client-1")
		f.frame(t, client, im.EventJoinConversation, "conv-1")

		_, err := f.engine.SendMessage(context.Background(), client.Identity, "conv-1", "hello")
		require.ErrorIs(t, err, im.ErrSendFailed)
		require.Empty(t, clientConn.Named(im.EventNewMessage))
	})

	t.Run("unread count failure still delivers the message", func(t *testing.T) {
		f := newFixture(t)
		f.store.CountErr = errors.New("count failed")
		client, clientConn := f.connect(t, "c1", "client-1")
		_, adminConn := f.connect(t, "a1", "admin-1")
		f.frame(t, client, im.EventJoinConversation, "conv-1")

		f.frame(t, client, im.EventSendMessage, map[string]string{"conversationId": "conv-1", "content": "hello"})

		require.Len(t, clientConn.Named(im.EventNewMessage), 1)
		require.Empty(t, clientConn.Named(im.EventError))
		require.Empty(t, adminConn.Named(im.EventAdminNewMessage))
	})

	t.Run("archiver sees persisted message", func(t *testing.T) {
		archived := &recordingArchiver{}
		f := newFixture(t, im.WithArchiver(archived))
		client, _ := f.connect(t, "c1", "client-1")

		msg, err := f.engine.SendMessage(context.Background(), client.Identity, "conv-1", "hello")
		require.NoError(t, err)
		require.Len(t, archived.msgs, 1)
		require.Equal(t, msg.ID, archived.msgs[0].ID)
	})
}

func TestEngine_MarkAsRead(t *testing.T) {
	t.Run("marks and is idempotent", func(t *testing.T) {
		f := newFixture(t)
		f.store.AddMessage("conv-1", "client-1", "a", false)
		f.store.AddMessage("conv-1", "client-1", "b", false)
		f.store.AddMessage("conv-1", "admin-1", "c", false)

		admin, adminConn := f.connect(t, "a1", "admin-1")
		f.frame(t, admin, im.EventJoinConversation, "conv-1")
		adminConn.Reset()

		f.frame(t, admin, im.EventMarkAsRead, map[string]string{"conversationId": "conv-1", "userId": "admin-1"})
		f.frame(t, admin, im.EventMarkAsRead, map[string]string{"conversationId": "conv-1"})

		reads := adminConn.Named(im.EventMessagesRead)
		require.Len(t, reads, 2)
		first := decode[im.MessagesRead](t, reads[0])
		require.Equal(t, "admin-1", first.UserID)
		require.EqualValues(t, 2, first.Count)
		require.EqualValues(t, 0, decode[im.MessagesRead](t, reads[1]).Count)

		for _, m := range f.store.Messages("conv-1") {
			require.Equal(t, m.SenderID == "client-1", m.Read, m.Content)
		}

		totals := adminConn.Named(im.EventAdminUnreadCount)
		require.Len(t, totals, 1)
		require.EqualValues(t, 0, decode[dto.UnreadTotalsDTO](t, totals[0]).TotalUnreadCount)
	})

	t.Run("read by client syncs every admin device", func(t *testing.T) {
		f := newFixture(t)
		f.store.AddMessage("conv-1", "admin-1", "reply", false)
		f.store.AddMessage("conv-1", "client-1", "pending", false)

		client, _ := f.connect(t, "c1", "client-1")
		_, adminConn1 := f.connect(t, "a1", "admin-1")
		_, adminConn2 := f.connect(t, "a2", "admin-1")
		adminConn1.Reset()
		adminConn2.Reset()

		count, err := f.engine.MarkAsRead(context.Background(), "conv-1", client.UserID)
		require.NoError(t, err)
		require.EqualValues(t, 1, count)

		for _, c := range []*imtest.FakeConn{adminConn1, adminConn2} {
			frames := c.Named(im.EventAdminUnreadCount)
			require.Len(t, frames, 1)
			require.EqualValues(t, 1, decode[dto.UnreadTotalsDTO](t, frames[0]).TotalUnreadCount)
		}
	})

	t.Run("reader mismatch is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.store.AddMessage("conv-1", "admin-1", "x", false)
		client, clientConn := f.connect(t, "c1", "client-1")

		f.frame(t, client, im.EventMarkAsRead, map[string]string{"conversationId": "conv-1", "userId": "admin-1"})

		require.Len(t, clientConn.Named(im.EventError), 1)
		require.False(t, f.store.Messages("conv-1")[0].Read)
	})

	t.Run("persistence failure reports error", func(t *testing.T) {
		f := newFixture(t)
		f.store.MarkErr = errors.New("update failed")
		admin, adminConn := f.connect(t, "a1", "admin-1")
		f.frame(t, admin, im.EventJoinConversation, "conv-1")

		f.frame(t, admin, im.EventMarkAsRead, map[string]string{"conversationId": "conv-1"})

		require.Len(t, adminConn.Named(im.EventError), 1)
		require.Empty(t, adminConn.Named(im.EventMessagesRead))
	})

	t.Run("totals failure still broadcasts messagesRead", func(t *testing.T) {
		f := newFixture(t)
		f.store.AddMessage("conv-1", "client-1", "a", false)
		admin, adminConn := f.connect(t, "a1", "admin-1")
		f.frame(t, admin, im.EventJoinConversation, "conv-1")
		adminConn.Reset()
		f.store.ConversationsErr = errors.New("list failed")

		count, err := f.engine.MarkAsRead(context.Background(), "conv-1", "admin-1")
		require.NoError(t, err)
		require.EqualValues(t, 1, count)
		require.Len(t, adminConn.Named(im.EventMessagesRead), 1)
		require.Empty(t, adminConn.Named(im.EventAdminUnreadCount))
	})
}

func TestEngine_Membership(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *im.Session, *imtest.FakeConn, *imtest.FakeConn) {
		f := newFixture(t)
		f.store.AddUser("client-2", model.RoleClient, "Bob")
		f.store.AddConversation("conv-2", "client-2", "admin-1")
		f.store.AddMessage("conv-2", "client-2", "for admin only", false)

		outsider, outsiderConn := f.connect(t, "c1", "client-1")
		_, adminConn := f.connect(t, "a1", "admin-1")
		adminConn.Reset()
		return f, outsider, outsiderConn, adminConn
	}

	t.Run("join is refused and nothing leaks", func(t *testing.T) {
		f, outsider, outsiderConn, _ := setup(t)
		owner, _ := f.connect(t, "c2", "client-2")
		f.frame(t, owner, im.EventJoinConversation, "conv-2")

		f.frame(t, outsider, im.EventJoinConversation, "conv-2")

		errs := outsiderConn.Named(im.EventError)
		require.Len(t, errs, 1)
		require.Equal(t, im.ErrNotMember.Error(), decode[im.ErrorEvent](t, errs[0]).Message)
		require.Empty(t, f.engine.Router().ChannelsOf("c1"))
		require.Equal(t, []string{"c2"}, f.engine.Router().Members("conv-2"))

		f.frame(t, owner, im.EventSendMessage, map[string]string{"conversationId": "conv-2", "content": "private"})
		require.Empty(t, outsiderConn.Named(im.EventNewMessage))
		require.False(t, outsiderConn.Closed())
	})

	t.Run("send is refused without persisting", func(t *testing.T) {
		f, outsider, outsiderConn, adminConn := setup(t)

		f.frame(t, outsider, im.EventSendMessage, map[string]string{"conversationId": "conv-2", "content": "hi"})

		require.Len(t, outsiderConn.Named(im.EventError), 1)
		require.Len(t, f.store.Messages("conv-2"), 1)
		_, touched := f.store.Touched("conv-2")
		require.False(t, touched)
		require.Empty(t, adminConn.Frames())
	})

	t.Run("mark read leaves the admin count intact", func(t *testing.T) {
		f, outsider, outsiderConn, adminConn := setup(t)

		f.frame(t, outsider, im.EventMarkAsRead, map[string]string{"conversationId": "conv-2"})

		require.Len(t, outsiderConn.Named(im.EventError), 1)
		require.False(t, f.store.Messages("conv-2")[0].Read)
		require.Empty(t, adminConn.Frames())

		totals, err := f.engine.Unread().TotalsForAdmin(context.Background(), "admin-1")
		require.NoError(t, err)
		require.EqualValues(t, 1, totals.TotalUnreadCount)
	})

	t.Run("lookup failure is reported without joining", func(t *testing.T) {
		f, outsider, outsiderConn, _ := setup(t)
		f.store.MemberErr = errors.New("db down")

		f.frame(t, outsider, im.EventJoinConversation, "conv-1")

		errs := outsiderConn.Named(im.EventError)
		require.Len(t, errs, 1)
		require.NotEqual(t, im.ErrNotMember.Error(), decode[im.ErrorEvent](t, errs[0]).Message)
		require.Empty(t, f.engine.Router().ChannelsOf("c1"))
	})
}

func TestEngine_Frames(t *testing.T) {
	t.Run("malformed frame gets error event", func(t *testing.T) {
		f := newFixture(t)
		client, conn := f.connect(t, "c1", "client-1")

		f.engine.HandleFrame(context.Background(), client, []byte(`{"event":"typing"}`))
		f.engine.HandleFrame(context.Background(), client, []byte(`not json`))

		require.Len(t, conn.Named(im.EventError), 2)
		require.False(t, conn.Closed())
	})

	t.Run("leave stops delivery", func(t *testing.T) {
		f := newFixture(t)
		client, clientConn := f.connect(t, "c1", "client-1")
		admin, _ := f.connect(t, "a1", "admin-1")
		f.frame(t, client, im.EventJoinConversation, "conv-1")
		f.frame(t, client, im.EventJoinConversation, map[string]string{"conversationId": "conv-1"})
		f.frame(t, client, im.EventLeaveConversation, "conv-1")

		_, err := f.engine.SendMessage(context.Background(), admin.Identity, "conv-1", "anyone?")
		require.NoError(t, err)
		require.Empty(t, clientConn.Named(im.EventNewMessage))
	})
}

func TestEngine_Disconnect(t *testing.T) {
	f := newFixture(t)
	client, conn := f.connect(t, "c1", "client-1")
	f.frame(t, client, im.EventJoinConversation, "conv-1")

	f.engine.Disconnect(context.Background(), client)
	f.engine.Disconnect(context.Background(), client)

	require.True(t, conn.Closed())
	require.Empty(t, f.engine.Registry().ConnectionsFor("client-1"))
	require.Empty(t, f.engine.Router().Members("conv-1"))
	require.Empty(t, f.engine.Router().ChannelsOf("c1"))
}

func TestEngine_Announce(t *testing.T) {
	f := newFixture(t)
	_, clientConn := f.connect(t, "c1", "client-1")
	_, adminConn := f.connect(t, "a1", "admin-1")
	f.engine.Router().Join("c1", "conv-1")

	msg := f.store.AddMessage("conv-1", "client-1", "from http", false)
	user, err := f.store.FindUserByID(context.Background(), "client-1")
	require.NoError(t, err)
	f.engine.Announce(context.Background(), msg, im.IdentityOf(user))

	require.Len(t, clientConn.Named(im.EventNewMessage), 1)
	frames := adminConn.Named(im.EventAdminNewMessage)
	require.Len(t, frames, 1)
	require.EqualValues(t, 1, decode[im.AdminNewMessage](t, frames[0]).UnreadCount)
}

func TestEngine_ReconcileAdmins(t *testing.T) {
	f := newFixture(t)
	_, adminConn := f.connect(t, "a1", "admin-1")
	f.connect(t, "c1", "client-1")
	adminConn.Reset()
	f.store.AddMessage("conv-1", "client-1", "missed", false)

	require.Equal(t, 1, f.engine.ReconcileAdmins(context.Background()))

	frames := adminConn.Named(im.EventAdminUnreadCount)
	require.Len(t, frames, 1)
	require.EqualValues(t, 1, decode[dto.UnreadTotalsDTO](t, frames[0]).TotalUnreadCount)
}

func TestEngine_Notify(t *testing.T) {
	f := newFixture(t)
	f.store.AddUser("admin-2", model.RoleAdmin, "")
	_, c1 := f.connect(t, "c1", "client-1")
	_, c2 := f.connect(t, "c2", "client-1")
	_, a1 := f.connect(t, "a1", "admin-1")
	_, a2 := f.connect(t, "a2", "admin-2")
	for _, c := range []*imtest.FakeConn{c1, c2, a1, a2} {
		c.Reset()
	}

	t.Run("notify user reaches every device", func(t *testing.T) {
		n := f.engine.NotifyUser("client-1", im.ErrorEvent{Message: "ping"})
		require.Equal(t, 2, n)
		require.Len(t, c1.Named(im.EventError), 1)
		require.Len(t, c2.Named(im.EventError), 1)
		require.Empty(t, a1.Frames())

		require.Zero(t, f.engine.NotifyUser("nobody", im.ErrorEvent{Message: "ping"}))
	})

	t.Run("broadcast reaches admins only", func(t *testing.T) {
		n := f.engine.BroadcastToAdmins(im.AdminUnreadCount{Totals: &dto.UnreadTotalsDTO{}})
		require.Equal(t, 2, n)
		require.Len(t, a1.Named(im.EventAdminUnreadCount), 1)
		require.Len(t, a2.Named(im.EventAdminUnreadCount), 1)
		require.Empty(t, c1.Named(im.EventAdminUnreadCount))
	})
}

func TestEngine_Shutdown(t *testing.T) {
	f := newFixture(t)
	_, c1 := f.connect(t, "c1", "client-1")
	_, a1 := f.connect(t, "a1", "admin-1")

	f.engine.Shutdown()

	require.True(t, c1.Closed())
	require.True(t, a1.Closed())
}

type recordingArchiver struct {
	msgs []*model.Message
}

func (r *recordingArchiver) Archive(msg *model.Message) {
	r.msgs = append(r.msgs, msg)
}
