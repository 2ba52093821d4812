package profile

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/ffm-club/internal/app"
	"github.com/oggyb/ffm-club/internal/auth"
	"github.com/oggyb/ffm-club/internal/db"
	"github.com/oggyb/ffm-club/internal/rpc"
)

const ServiceName = "ffmclub.ProfileService"

// Registrar ties the Profile service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Profile service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Profile service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	service := NewProfileService(r.appCtx)
	s.RegisterService(Desc(service), service)
}

// Desc describes ffmclub.ProfileService backed by svc.
func Desc(svc *Service) *grpc.ServiceDesc {
	return rpc.Service{
		Name: ServiceName,
		Methods: []grpc.MethodDesc{
			rpc.Unary(ServiceName, "CreateProfile", func(ctx context.Context, in *CreateProfileRequest) (*db.Profile, error) {
				id, err := auth.Actor(ctx, in.ID)
				if err != nil {
					return nil, err
				}
				in.ID = id
				return svc.CreateProfile(ctx, in)
			}),
			rpc.Unary(ServiceName, "GetProfile", svc.GetProfile),
			rpc.Unary(ServiceName, "UpdateProfile", func(ctx context.Context, in *UpdateProfileRequest) (*db.Profile, error) {
				id, err := auth.Actor(ctx, in.ID)
				if err != nil {
					return nil, err
				}
				in.ID = id
				return svc.UpdateProfile(ctx, in)
			}),
			rpc.Unary(ServiceName, "ListProfiles", svc.ListProfiles),
			rpc.Unary(ServiceName, "IncrementProfileViews", func(ctx context.Context, in *GetProfileRequest) (*rpc.Empty, error) {
				svc.IncrementProfileViews(ctx, in.ID)
				return &rpc.Empty{}, nil
			}),
			rpc.Unary(ServiceName, "UploadProfilePhoto", func(ctx context.Context, in *UploadProfilePhotoRequest) (*UploadProfilePhotoResponse, error) {
				id, err := auth.Actor(ctx, in.ID)
				if err != nil {
					return nil, err
				}
				in.ID = id
				return svc.UploadProfilePhoto(ctx, in)
			}),
		},
		Streams: []grpc.StreamDesc{
			rpc.ServerStream("WatchProfile", func(ctx context.Context, in *WatchProfileRequest, send func(*db.Profile) error) error {
				box := rpc.NewMailbox[*db.Profile](1)
				sub, err := svc.SubscribeToProfile(ctx, in.ID, box.Put)
				if err != nil {
					return err
				}
				defer sub.Cancel()
				return box.Forward(ctx, send)
			}),
		},
	}.Desc()
}
