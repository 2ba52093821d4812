package conversation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ffm-club/internal/db"
	svcErr "github.com/oggyb/ffm-club/internal/errors"
	"github.com/oggyb/ffm-club/internal/service/conversation"
	"github.com/oggyb/ffm-club/internal/service/profile"
	"github.com/oggyb/ffm-club/internal/testutil"
)

// setupService seeds profiles u1..u3 and wires a Conversation service.
func setupService(t *testing.T) (*conversation.Service, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	testutil.SeedProfiles(t, env.App.DB, "u1", "u2", "u3")
	return conversation.NewConversationService(env.App, profile.NewProfileService(env.App)), env
}

func open(t *testing.T, svc *conversation.Service, a, b string) string {
	t.Helper()
	resp, err := svc.GetOrCreateConversation(context.Background(), &conversation.PairRequest{UserA: a, UserB: b})
	require.NoError(t, err)
	return resp.ConversationID
}

func send(t *testing.T, svc *conversation.Service, convID, from, to, text string) *db.Message {
	t.Helper()
	msg, err := svc.SendMessage(context.Background(), &conversation.SendMessageRequest{
		ConversationID: convID, SenderID: from, RecipientID: to, Text: text,
	})
	require.NoError(t, err)
	return msg
}

func TestConversationIDIsOrderIndependent(t *testing.T) {
	svc, env := setupService(t)

	c1 := open(t, svc, "u2", "u1")
	c2 := open(t, svc, "u1", "u2")
	assert.Equal(t, c1, c2)
	assert.Equal(t, "u1_u2", c1)
	assert.Equal(t, conversation.ConversationID("u2", "u1"), c1)

	var count int64
	require.NoError(t, env.App.DB.Model(&db.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreateConversationConcurrent(t *testing.T) {
	svc, env := setupService(t)

	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, b := "u1", "u3"
			if i%2 == 1 {
				a, b = b, a
			}
			resp, err := svc.GetOrCreateConversation(context.Background(), &conversation.PairRequest{UserA: a, UserB: b})
			if assert.NoError(t, err) {
				ids[i] = resp.ConversationID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, "u1_u3", id)
	}
	var count int64
	require.NoError(t, env.App.DB.Model(&db.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreateConversationErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.GetOrCreateConversation(ctx, &conversation.PairRequest{UserA: "u1", UserB: "u1"})
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidOperation), "got %v", err)

	_, err = svc.GetOrCreateConversation(ctx, &conversation.PairRequest{UserA: "u1", UserB: "ghost"})
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound), "got %v", err)

	_, err = svc.GetOrCreateConversation(ctx, &conversation.PairRequest{UserA: "u1"})
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidArgument), "got %v", err)
}

// TestMessagingScenario covers send, list, unread count and mark-as-read.
func TestMessagingScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	c := open(t, svc, "u1", "u2")
	send(t, svc, c, "u1", "u2", "hi")

	convs, err := svc.ListConversationsForUser(ctx, &conversation.UserRequest{UserID: "u2"})
	require.NoError(t, err)
	require.Len(t, convs.Conversations, 1)
	require.NotNil(t, convs.Conversations[0].LastMessage)
	assert.Equal(t, "hi", *convs.Conversations[0].LastMessage)
	assert.Equal(t, []string{"u1", "u2"}, convs.Conversations[0].Participants)

	unread, err := svc.CountUnreadForUser(ctx, &conversation.UserRequest{UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread.Count)

	marked, err := svc.MarkMessagesAsRead(ctx, &conversation.MarkReadRequest{ConversationID: c, UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked.Updated)

	unread, err = svc.CountUnreadForUser(ctx, &conversation.UserRequest{UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread.Count)
}

func TestSendMessageErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	c := open(t, svc, "u1", "u2")

	cases := []struct {
		name string
		req  conversation.SendMessageRequest
		kind svcErr.Kind
	}{
		{"missing conversation", conversation.SendMessageRequest{ConversationID: "u1_u9", SenderID: "u1", RecipientID: "u9", Text: "x"}, svcErr.KindNotFound},
		{"outsider", conversation.SendMessageRequest{ConversationID: c, SenderID: "u3", RecipientID: "u2", Text: "x"}, svcErr.KindInvalidOperation},
		{"to self", conversation.SendMessageRequest{ConversationID: c, SenderID: "u1", RecipientID: "u1", Text: "x"}, svcErr.KindInvalidOperation},
		{"blank", conversation.SendMessageRequest{ConversationID: c, SenderID: "u1", RecipientID: "u2", Text: "  "}, svcErr.KindInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, &tc.req)
			assert.True(t, svcErr.Is(err, tc.kind), "got %v", err)
		})
	}
}

func TestMessagesAreOrderedAndReadOnlyFlips(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	c := open(t, svc, "u1", "u2")

	for _, text := range []string{"one", "two", "three"} {
		send(t, svc, c, "u1", "u2", text)
	}
	send(t, svc, c, "u2", "u1", "reply")

	before, err := svc.ListMessages(ctx, &conversation.ConversationRequest{ConversationID: c})
	require.NoError(t, err)
	require.Len(t, before.Messages, 4)
	for i := 1; i < len(before.Messages); i++ {
		assert.False(t, before.Messages[i].SentAt.Before(before.Messages[i-1].SentAt))
	}
	assert.Equal(t, []string{"one", "two", "three", "reply"}, texts(before.Messages))

	_, err = svc.MarkMessagesAsRead(ctx, &conversation.MarkReadRequest{ConversationID: c, UserID: "u2"})
	require.NoError(t, err)
	// a second pass never flips anything back
	again, err := svc.MarkMessagesAsRead(ctx, &conversation.MarkReadRequest{ConversationID: c, UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Updated)

	after, err := svc.ListMessages(ctx, &conversation.ConversationRequest{ConversationID: c})
	require.NoError(t, err)
	for i, m := range after.Messages {
		b := before.Messages[i]
		assert.Equal(t, b.SenderID, m.SenderID)
		assert.Equal(t, b.RecipientID, m.RecipientID)
		assert.Equal(t, b.Text, m.Text)
		assert.Equal(t, m.RecipientID == "u2", m.Read, "message %q", m.Text)
	}

	_, err = svc.MarkMessagesAsRead(ctx, &conversation.MarkReadRequest{ConversationID: c, UserID: "u3"})
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidOperation))

	_, err = svc.ListMessages(ctx, &conversation.ConversationRequest{ConversationID: c, ViewerID: "u3"})
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidOperation))
}

func TestListConversationsOrdering(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	open(t, svc, "u1", "u3")
	busy := open(t, svc, "u1", "u2")
	send(t, svc, busy, "u2", "u1", "ping")

	convs, err := svc.ListConversationsForUser(ctx, &conversation.UserRequest{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, convs.Conversations, 2)
	assert.Equal(t, busy, convs.Conversations[0].ID)
	assert.Nil(t, convs.Conversations[1].LastMessage)
}

func TestCountUnreadUsesCache(t *testing.T) {
	ctx := context.Background()
	svc, env := setupService(t)
	c := open(t, svc, "u1", "u2")
	send(t, svc, c, "u1", "u2", "a")

	first, err := svc.CountUnreadForUser(ctx, &conversation.UserRequest{UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Count)
	assert.True(t, env.Redis.Exists(env.App.RedisCache.KeyForUnreadCount("u2")))

	// a new message drops the cached value
	send(t, svc, c, "u1", "u2", "b")
	assert.False(t, env.Redis.Exists(env.App.RedisCache.KeyForUnreadCount("u2")))

	second, err := svc.CountUnreadForUser(ctx, &conversation.UserRequest{UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Count)
}

func TestSubscribeToMessages(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	c := open(t, svc, "u1", "u2")
	send(t, svc, c, "u1", "u2", "before")

	var (
		mu        sync.Mutex
		snapshots [][]string
	)
	sub, err := svc.SubscribeToMessages(ctx, &conversation.ConversationRequest{ConversationID: c}, func(msgs []db.Message) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, texts(msgs))
	})
	require.NoError(t, err)

	latest := func() (int, []string) {
		mu.Lock()
		defer mu.Unlock()
		if len(snapshots) == 0 {
			return 0, nil
		}
		return len(snapshots), snapshots[len(snapshots)-1]
	}

	require.Eventually(t, func() bool {
		n, last := latest()
		return n >= 1 && len(last) == 1
	}, 2*time.Second, 10*time.Millisecond)

	send(t, svc, c, "u2", "u1", "after")
	require.Eventually(t, func() bool {
		_, last := latest()
		return assert.ObjectsAreEqual([]string{"before", "after"}, last)
	}, 2*time.Second, 10*time.Millisecond)

	sub.Cancel()
	n, _ := latest()
	send(t, svc, c, "u1", "u2", "ignored")
	time.Sleep(100 * time.Millisecond)
	after, _ := latest()
	assert.Equal(t, n, after, "no callbacks after cancel")

	_, err = svc.SubscribeToMessages(ctx, &conversation.ConversationRequest{ConversationID: "nope"}, func([]db.Message) {})
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
}

func texts(msgs []db.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}
