package conversation

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/ffm-club/internal/app"
	"github.com/oggyb/ffm-club/internal/auth"
	"github.com/oggyb/ffm-club/internal/db"
	svcErr "github.com/oggyb/ffm-club/internal/errors"
	"github.com/oggyb/ffm-club/internal/rpc"
	"github.com/oggyb/ffm-club/internal/service/profile"
)

const ServiceName = "ffmclub.ConversationService"

// Registrar ties the Conversation service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) Register(s *grpc.Server) {
	service := NewConversationService(r.appCtx, profile.NewProfileService(r.appCtx))
	s.RegisterService(Desc(service), service)
}

// withViewer scopes conversation reads to the caller when a session is present.
func withViewer(ctx context.Context, in *ConversationRequest) {
	if c, ok := auth.ClaimsFrom(ctx); ok {
		in.ViewerID = c.UserID
	}
}

// Desc describes ffmclub.ConversationService backed by svc.
func Desc(svc *Service) *grpc.ServiceDesc {
	return rpc.Service{
		Name: ServiceName,
		Methods: []grpc.MethodDesc{
			rpc.Unary(ServiceName, "GetOrCreateConversation", func(ctx context.Context, in *PairRequest) (*ConversationIDResponse, error) {
				if c, ok := auth.ClaimsFrom(ctx); ok && in.UserA != c.UserID && in.UserB != c.UserID {
					return nil, svcErr.InvalidOperation("caller must be a participant")
				}
				return svc.GetOrCreateConversation(ctx, in)
			}),
			rpc.Unary(ServiceName, "SendMessage", func(ctx context.Context, in *SendMessageRequest) (*db.Message, error) {
				id, err := auth.Actor(ctx, in.SenderID)
				if err != nil {
					return nil, err
				}
				in.SenderID = id
				return svc.SendMessage(ctx, in)
			}),
			rpc.Unary(ServiceName, "ListMessages", func(ctx context.Context, in *ConversationRequest) (*MessagesResponse, error) {
				withViewer(ctx, in)
				return svc.ListMessages(ctx, in)
			}),
			rpc.Unary(ServiceName, "ListConversations", func(ctx context.Context, in *UserRequest) (*ConversationsResponse, error) {
				id, err := auth.Actor(ctx, in.UserID)
				if err != nil {
					return nil, err
				}
				in.UserID = id
				return svc.ListConversationsForUser(ctx, in)
			}),
			rpc.Unary(ServiceName, "MarkMessagesAsRead", func(ctx context.Context, in *MarkReadRequest) (*MarkReadResponse, error) {
				id, err := auth.Actor(ctx, in.UserID)
				if err != nil {
					return nil, err
				}
				in.UserID = id
				return svc.MarkMessagesAsRead(ctx, in)
			}),
			rpc.Unary(ServiceName, "CountUnread", func(ctx context.Context, in *UserRequest) (*CountUnreadResponse, error) {
				id, err := auth.Actor(ctx, in.UserID)
				if err != nil {
					return nil, err
				}
				in.UserID = id
				return svc.CountUnreadForUser(ctx, in)
			}),
		},
		Streams: []grpc.StreamDesc{
			rpc.ServerStream("SubscribeToMessages", func(ctx context.Context, in *ConversationRequest, send func(*MessagesResponse) error) error {
				withViewer(ctx, in)
				box := rpc.NewMailbox[*MessagesResponse](1)
				sub, err := svc.SubscribeToMessages(ctx, in, func(msgs []db.Message) {
					box.Put(&MessagesResponse{Messages: msgs})
				})
				if err != nil {
					return err
				}
				defer sub.Cancel()
				return box.Forward(ctx, send)
			}),
		},
	}.Desc()
}
