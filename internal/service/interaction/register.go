package interaction

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/ffm-club/internal/app"
	"github.com/oggyb/ffm-club/internal/auth"
	"github.com/oggyb/ffm-club/internal/rpc"
	"github.com/oggyb/ffm-club/internal/service/profile"
)

const ServiceName = "ffmclub.InteractionService"

// Registrar ties the Interaction service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) Register(s *grpc.Server) {
	service := NewInteractionService(r.appCtx, profile.NewProfileService(r.appCtx))
	s.RegisterService(Desc(service), service)
}

// asSource pins the edge source to the caller when a session is present.
func asSource[Out any](fn func(context.Context, *EdgeRequest) (*Out, error)) func(context.Context, *EdgeRequest) (*Out, error) {
	return func(ctx context.Context, in *EdgeRequest) (*Out, error) {
		id, err := auth.Actor(ctx, in.SourceID)
		if err != nil {
			return nil, err
		}
		in.SourceID = id
		return fn(ctx, in)
	}
}

func asUser[Out any](fn func(context.Context, *UserRequest) (*Out, error)) func(context.Context, *UserRequest) (*Out, error) {
	return func(ctx context.Context, in *UserRequest) (*Out, error) {
		id, err := auth.Actor(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		in.UserID = id
		return fn(ctx, in)
	}
}

// Desc describes ffmclub.InteractionService backed by svc.
func Desc(svc *Service) *grpc.ServiceDesc {
	return rpc.Service{
		Name: ServiceName,
		Methods: []grpc.MethodDesc{
			rpc.Unary(ServiceName, "Like", asSource(svc.Like)),
			rpc.Unary(ServiceName, "Unlike", asSource(svc.Unlike)),
			rpc.Unary(ServiceName, "Favorite", asSource(svc.Favorite)),
			rpc.Unary(ServiceName, "Unfavorite", asSource(svc.Unfavorite)),
			rpc.Unary(ServiceName, "ListLikedProfiles", asUser(svc.ListLikedProfiles)),
			rpc.Unary(ServiceName, "ListFavoriteProfiles", asUser(svc.ListFavoriteProfiles)),
			rpc.Unary(ServiceName, "ListMatches", asUser(svc.ListMatches)),
			rpc.Unary(ServiceName, "ListAdmirers", func(ctx context.Context, in *ListAdmirersRequest) (*ListAdmirersResponse, error) {
				id, err := auth.Actor(ctx, in.UserID)
				if err != nil {
					return nil, err
				}
				in.UserID = id
				return svc.ListAdmirers(ctx, in)
			}),
			rpc.Unary(ServiceName, "CountAdmirers", asUser(svc.CountAdmirers)),
		},
	}.Desc()
}
