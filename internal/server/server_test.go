package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oggyb/ffm-club/internal/config"
	"github.com/oggyb/ffm-club/internal/db"
	"github.com/oggyb/ffm-club/internal/rpc"
	"github.com/oggyb/ffm-club/internal/service/account"
	"github.com/oggyb/ffm-club/internal/service/conversation"
	"github.com/oggyb/ffm-club/internal/service/interaction"
	"github.com/oggyb/ffm-club/internal/service/profile"
	"github.com/oggyb/ffm-club/internal/testutil"
)

// startServer runs the full service set over bufconn with sessions required.
func startServer(t *testing.T) (*grpc.ClientConn, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t, func(c *config.Config) { c.Auth.Required = true })

	accounts := account.NewRegistrar(env.App)
	srv := NewGRPCServer(env.App.Config, env.App.Logger, accounts.Service(),
		accounts,
		profile.NewRegistrar(env.App),
		interaction.NewRegistrar(env.App),
		conversation.NewRegistrar(env.App),
	)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, env
}

// signUp registers and logs in, returning a context carrying the token.
func signUp(t *testing.T, conn *grpc.ClientConn, email string) (context.Context, string) {
	t.Helper()
	ctx := context.Background()
	_, err := rpc.Invoke[account.RegisterResponse](ctx, conn, rpc.FullMethod(account.ServiceName, "Register"),
		account.RegisterRequest{Email: email, Password: "secret1", Username: email[:2]})
	require.NoError(t, err)

	session, err := rpc.Invoke[account.Session](ctx, conn, rpc.FullMethod(account.ServiceName, "Login"),
		account.LoginRequest{Email: email, Password: "secret1"})
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+session.Token), session.UserID
}

func TestRequiresSession(t *testing.T) {
	conn, _ := startServer(t)

	_, err := rpc.Invoke[db.Profile](context.Background(), conn, rpc.FullMethod(profile.ServiceName, "GetProfile"),
		profile.GetProfileRequest{ID: "u1"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer nope")
	_, err = rpc.Invoke[db.Profile](bad, conn, rpc.FullMethod(profile.ServiceName, "GetProfile"),
		profile.GetProfileRequest{ID: "u1"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestMatchAndMessageOverGRPC(t *testing.T) {
	conn, _ := startServer(t)
	ana, anaID := signUp(t, conn, "ana@ffm.club")
	bo, boID := signUp(t, conn, "bo@ffm.club")

	// source defaults to the caller
	liked, err := rpc.Invoke[interaction.LikeResponse](ana, conn, rpc.FullMethod(interaction.ServiceName, "Like"),
		interaction.EdgeRequest{TargetID: boID})
	require.NoError(t, err)
	assert.False(t, liked.Matched)

	admirers, err := rpc.Invoke[interaction.CountAdmirersResponse](bo, conn, rpc.FullMethod(interaction.ServiceName, "CountAdmirers"),
		interaction.UserRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), admirers.Count)

	liked, err = rpc.Invoke[interaction.LikeResponse](bo, conn, rpc.FullMethod(interaction.ServiceName, "Like"),
		interaction.EdgeRequest{TargetID: anaID})
	require.NoError(t, err)
	assert.True(t, liked.Matched)

	// acting for someone else is refused
	_, err = rpc.Invoke[interaction.LikeResponse](bo, conn, rpc.FullMethod(interaction.ServiceName, "Unlike"),
		interaction.EdgeRequest{SourceID: anaID, TargetID: boID})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	conv, err := rpc.Invoke[conversation.ConversationIDResponse](ana, conn, rpc.FullMethod(conversation.ServiceName, "GetOrCreateConversation"),
		conversation.PairRequest{UserA: anaID, UserB: boID})
	require.NoError(t, err)
	assert.Equal(t, conversation.ConversationID(anaID, boID), conv.ConversationID)

	streamCtx, cancel := context.WithCancel(bo)
	defer cancel()
	recv, err := rpc.Stream[conversation.MessagesResponse](streamCtx, conn, rpc.FullMethod(conversation.ServiceName, "SubscribeToMessages"),
		conversation.ConversationRequest{ConversationID: conv.ConversationID})
	require.NoError(t, err)

	first, err := recv()
	require.NoError(t, err)
	assert.Empty(t, first.Messages)

	msg, err := rpc.Invoke[db.Message](ana, conn, rpc.FullMethod(conversation.ServiceName, "SendMessage"),
		conversation.SendMessageRequest{ConversationID: conv.ConversationID, RecipientID: boID, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, anaID, msg.SenderID)
	assert.False(t, msg.Read)

	pushed, err := recv()
	require.NoError(t, err)
	require.Len(t, pushed.Messages, 1)
	assert.Equal(t, "hi", pushed.Messages[0].Text)

	unread, err := rpc.Invoke[conversation.CountUnreadResponse](bo, conn, rpc.FullMethod(conversation.ServiceName, "CountUnread"),
		conversation.UserRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread.Count)
}

func TestLogoutRevokesSession(t *testing.T) {
	conn, _ := startServer(t)
	ana, anaID := signUp(t, conn, "ana@ffm.club")

	_, err := rpc.Invoke[db.Profile](ana, conn, rpc.FullMethod(profile.ServiceName, "GetProfile"),
		profile.GetProfileRequest{ID: anaID})
	require.NoError(t, err)

	_, err = rpc.Invoke[account.Ack](ana, conn, rpc.FullMethod(account.ServiceName, "Logout"), account.LogoutRequest{})
	require.NoError(t, err)

	_, err = rpc.Invoke[db.Profile](ana, conn, rpc.FullMethod(profile.ServiceName, "GetProfile"),
		profile.GetProfileRequest{ID: anaID})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHTTPHandler(t *testing.T) {
	env := testutil.NewEnv(t)
	_, err := env.App.Store.Upload(context.Background(), "profile-photos/u1/1_a.png", []byte("png"), "image/png")
	require.NoError(t, err)

	ts := httptest.NewServer(NewHTTPHandler(env.App))
	t.Cleanup(ts.Close)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/uploads/profile-photos/u1/1_a.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env.Redis.Close()
	resp, err = client.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestShortMethod(t *testing.T) {
	assert.Equal(t, "ProfileService/GetProfile", shortMethod("/ffmclub.ProfileService/GetProfile"))
	assert.Equal(t, "plain", shortMethod("plain"))
}
