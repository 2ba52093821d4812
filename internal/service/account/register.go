package account

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/ffm-club/internal/app"
	"github.com/oggyb/ffm-club/internal/auth"
	"github.com/oggyb/ffm-club/internal/rpc"
	"github.com/oggyb/ffm-club/internal/service/profile"
)

const ServiceName = "ffmclub.AccountService"

// Registrar ties the Account service into the gRPC server. It also exposes
// the service so the server can use it to authenticate callers.
type Registrar struct {
	service *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{service: NewAccountService(appCtx, profile.NewProfileService(appCtx))}
}

func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(Desc(r.service), r.service)
}

// Service returns the account service behind the registrar.
func (r *Registrar) Service() *Service { return r.service }

// PublicMethods lists the calls allowed without a session.
func (r *Registrar) PublicMethods() []string {
	return []string{
		rpc.FullMethod(ServiceName, "Register"),
		rpc.FullMethod(ServiceName, "Login"),
		rpc.FullMethod(ServiceName, "SendPasswordReset"),
		rpc.FullMethod(ServiceName, "ConfirmPasswordReset"),
	}
}

// Desc describes ffmclub.AccountService backed by svc.
func Desc(svc *Service) *grpc.ServiceDesc {
	return rpc.Service{
		Name: ServiceName,
		Methods: []grpc.MethodDesc{
			rpc.Unary(ServiceName, "Register", svc.Register),
			rpc.Unary(ServiceName, "Login", svc.Login),
			rpc.Unary(ServiceName, "Logout", func(ctx context.Context, in *LogoutRequest) (*Ack, error) {
				if in.Token == "" {
					in.Token = auth.TokenFromMetadata(ctx)
				}
				return svc.Logout(ctx, in)
			}),
			rpc.Unary(ServiceName, "SendPasswordReset", svc.SendPasswordReset),
			rpc.Unary(ServiceName, "ConfirmPasswordReset", svc.ConfirmPasswordReset),
		},
		Streams: []grpc.StreamDesc{
			// signed-in callers only see their own events
			rpc.ServerStream("WatchAuthState", func(ctx context.Context, _ *WatchAuthStateRequest, send func(*AuthEvent) error) error {
				self := ""
				if c, ok := auth.ClaimsFrom(ctx); ok {
					self = c.UserID
				}
				box := rpc.NewMailbox[*AuthEvent](16)
				sub, err := svc.OnAuthStateChange(ctx, func(ev AuthEvent) {
					if self == "" || ev.UserID == self {
						box.Put(&ev)
					}
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
