package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	svcErr "github.com/oggyb/ffm-club/internal/errors"
)

type echoIn struct {
	Text  string `json:"text"`
	Times int    `json:"times"`
}

type echoOut struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

const echoService = "test.Echo"

func echoDesc() *grpc.ServiceDesc {
	return Service{
		Name: echoService,
		Methods: []grpc.MethodDesc{
			Unary(echoService, "Say", func(_ context.Context, in *echoIn) (*echoOut, error) {
				if in.Text == "" {
					return nil, svcErr.InvalidArgument("text is required")
				}
				return &echoOut{Text: in.Text, At: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}, nil
			}),
		},
		Streams: []grpc.StreamDesc{
			ServerStream("Repeat", func(_ context.Context, in *echoIn, send func(*echoOut) error) error {
				for i := 0; i < in.Times; i++ {
					if err := send(&echoOut{Text: in.Text}); err != nil {
						return err
					}
				}
				return nil
			}),
		},
	}.Desc()
}

func dial(t *testing.T, opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(opts...)
	srv.RegisterService(echoDesc(), struct{}{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestEncodeDecode(t *testing.T) {
	s, err := Encode(echoIn{Text: "hi", Times: 3})
	require.NoError(t, err)
	assert.Equal(t, "hi", s.Fields["text"].GetStringValue())

	var back echoIn
	require.NoError(t, Decode(s, &back))
	assert.Equal(t, echoIn{Text: "hi", Times: 3}, back)

	var empty echoIn
	require.NoError(t, Decode(nil, &empty))
	assert.Zero(t, empty)
}

func TestUnaryRoundTrip(t *testing.T) {
	var seen string
	conn := dial(t, grpc.UnaryInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		seen = info.FullMethod
		return h(ctx, req)
	}))

	out, err := Invoke[echoOut](context.Background(), conn, FullMethod(echoService, "Say"), echoIn{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Text)
	assert.True(t, out.At.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, "/test.Echo/Say", seen)
}

func TestUnaryMapsErrors(t *testing.T) {
	conn := dial(t)

	_, err := Invoke[echoOut](context.Background(), conn, FullMethod(echoService, "Say"), echoIn{})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServerStream(t *testing.T) {
	conn := dial(t)

	recv, err := Stream[echoOut](context.Background(), conn, FullMethod(echoService, "Repeat"), echoIn{Text: "x", Times: 3})
	require.NoError(t, err)

	var got []string
	for {
		out, err := recv()
		if err != nil {
			break
		}
		got = append(got, out.Text)
	}
	assert.Equal(t, []string{"x", "x", "x"}, got)
}
