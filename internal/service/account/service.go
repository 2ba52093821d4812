package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/ffm-club/internal/app"
	"github.com/oggyb/ffm-club/internal/auth"
	"github.com/oggyb/ffm-club/internal/db"
	svcErr "github.com/oggyb/ffm-club/internal/errors"
	"github.com/oggyb/ffm-club/internal/mail"
	"github.com/oggyb/ffm-club/internal/metrics"
	"github.com/oggyb/ffm-club/internal/realtime"
	"github.com/oggyb/ffm-club/internal/repository"
	"github.com/oggyb/ffm-club/internal/service/profile"
	"github.com/oggyb/ffm-club/internal/utils/validate"
)

// AuthTopic carries AuthEvent payloads for every user.
const AuthTopic = "auth:state"

// Service is the local identity adapter: credentials, sessions and
// password resets. Profiles are created through the Profile service.
type Service struct {
	appCtx      *app.AppContext
	profiles    *profile.Service
	profileRepo *repository.ProfileRepository
	credentials *repository.CredentialRepository
	now         func() time.Time
}

func NewAccountService(appCtx *app.AppContext, profiles *profile.Service) *Service {
	return &Service{
		appCtx:      appCtx,
		profiles:    profiles,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		credentials: repository.NewCredentialRepository(appCtx.DB),
		now:         time.Now,
	}
}

// Register creates the credential and the profile in one transaction and
// signs the new user in.
//
// Behavior:
//   - Email is case-insensitive and must be unused (AlreadyExists).
//   - Password needs at least 6 characters.
//   - The user id is a random UUID.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	s.appCtx.Logger.Debug("Register called", "email", req.Email)

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.appCtx.Config.Auth.BCryptCost)
	if err != nil {
		return nil, svcErr.Backend("failed to hash password", err)
	}
	userID := uuid.NewString()

	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.credentials.WithTx(tx).Create(ctx, &db.Credential{
			UserID:       userID,
			Email:        email,
			PasswordHash: string(hash),
		}); err != nil {
			return err
		}
		_, err := s.profiles.Create(ctx, s.profileRepo.WithTx(tx), &profile.CreateProfileRequest{
			ID:          userID,
			Email:       email,
			Username:    req.Username,
			AccountType: req.AccountType,
			Age:         req.Age,
			City:        req.City,
			About:       req.About,
			Interests:   req.Interests,
		})
		return err
	})
	if err != nil {
		translated := svcErr.Translate(err, "failed to register")
		if svcErr.Is(translated, svcErr.KindAlreadyExists) {
			return nil, svcErr.AlreadyExists("email " + email + " is already registered")
		}
		s.appCtx.Logger.Error("register failed", "email", email, "err", err)
		return nil, translated
	}

	s.publish(ctx, userID, StateSignedIn)
	return &RegisterResponse{UserID: userID}, nil
}

// Login checks the password and issues a session token. The profile's last
// login time is updated best-effort.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*Session, error) {
	s.appCtx.Logger.Debug("Login called", "email", req.Email)

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	cred, err := s.credentials.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, svcErr.Translate(err, "failed to load credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)) != nil {
		return nil, svcErr.Unauthenticated("invalid email or password")
	}

	token, claims, err := s.appCtx.Tokens.Issue(cred.UserID, cred.Email)
	if err != nil {
		return nil, svcErr.Backend("failed to issue token", err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	if _, err := s.profiles.UpdateProfile(ctx, &profile.UpdateProfileRequest{ID: cred.UserID, LastLoginAt: &now}); err != nil {
		s.appCtx.Logger.Warn("record last login failed", "user", cred.UserID, "err", err)
	}

	s.publish(ctx, cred.UserID, StateSignedIn)
	return &Session{UserID: cred.UserID, Token: token, ExpiresAt: claims.ExpiresAt.Time.UTC()}, nil
}

// Logout revokes the token until it would have expired.
func (s *Service) Logout(ctx context.Context, req *LogoutRequest) (*Ack, error) {
	s.appCtx.Logger.Debug("Logout called")

	claims, err := s.Authenticate(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if err := s.appCtx.RedisCache.RevokeToken(ctx, claims.TokenID(), claims.Remaining(s.now())); err != nil {
		return nil, svcErr.Backend("failed to revoke token", err)
	}
	s.publish(ctx, claims.UserID, StateSignedOut)
	return &Ack{}, nil
}

// Authenticate verifies signature, expiry and revocation of token.
func (s *Service) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, svcErr.Unauthenticated("missing token")
	}
	claims, err := s.appCtx.Tokens.Parse(token)
	if err != nil {
		return nil, svcErr.Unauthenticated("invalid or expired token")
	}
	revoked, err := s.appCtx.RedisCache.IsTokenRevoked(ctx, claims.TokenID())
	if err != nil {
		return nil, svcErr.Backend("failed to check token", err)
	}
	if revoked {
		return nil, svcErr.Unauthenticated("token has been revoked")
	}
	return claims, nil
}

// SendPasswordReset stores a one-time reset token and mails the link.
// Unknown emails are NotFound.
func (s *Service) SendPasswordReset(ctx context.Context, req *PasswordResetRequest) (*Ack, error) {
	s.appCtx.Logger.Debug("SendPasswordReset called", "email", req.Email)

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	cred, err := s.credentials.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		translated := svcErr.Translate(err, "failed to load credentials")
		if svcErr.Is(translated, svcErr.KindNotFound) {
			return nil, svcErr.NotFound("no account for " + req.Email)
		}
		return nil, translated
	}

	ttl := s.appCtx.Config.Auth.ResetTokenTTL
	token := uuid.NewString()
	if err := s.appCtx.RedisCache.PutResetToken(ctx, token, cred.UserID, ttl); err != nil {
		return nil, svcErr.Backend("failed to store reset token", err)
	}

	link := s.appCtx.Config.Mail.ResetURL + "?token=" + url.QueryEscape(token)
	msg, err := mail.PasswordReset(cred.Email, link, ttl)
	if err != nil {
		return nil, svcErr.Backend("failed to render reset email", err)
	}
	if err := s.appCtx.Mailer.Send(ctx, msg); err != nil {
		s.appCtx.Logger.Error("reset email failed", "user", cred.UserID, "err", err)
		return nil, svcErr.Backend("failed to send reset email", err)
	}
	return &Ack{}, nil
}

// ConfirmPasswordReset consumes the token and stores the new password.
// A token works once.
func (s *Service) ConfirmPasswordReset(ctx context.Context, req *ConfirmPasswordResetRequest) (*Ack, error) {
	s.appCtx.Logger.Debug("ConfirmPasswordReset called")

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	userID, err := s.appCtx.RedisCache.TakeResetToken(ctx, req.Token)
	if err != nil {
		return nil, svcErr.Backend("failed to read reset token", err)
	}
	if userID == "" {
		return nil, svcErr.InvalidArgument("reset token is invalid or expired")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.appCtx.Config.Auth.BCryptCost)
	if err != nil {
		return nil, svcErr.Backend("failed to hash password", err)
	}
	if err := s.credentials.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return nil, svcErr.Translate(err, "failed to update password")
	}
	return &Ack{}, nil
}

// OnAuthStateChange calls onEvent for every sign-in and sign-out until the
// subscription is cancelled. Malformed events are dropped.
func (s *Service) OnAuthStateChange(ctx context.Context, onEvent func(AuthEvent)) (*realtime.Subscription, error) {
	sub, err := s.appCtx.Broker.Subscribe(ctx, AuthTopic, func(_ context.Context, payload []byte) {
		var ev AuthEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			s.appCtx.Logger.Warn("dropping malformed auth event", "err", err)
			return
		}
		onEvent(ev)
	})
	if err != nil {
		return nil, svcErr.Backend("failed to subscribe to auth state", err)
	}
	return sub, nil
}

func (s *Service) publish(ctx context.Context, userID string, state AuthState) {
	metrics.RecordAuthEvent(string(state))
	payload, err := json.Marshal(AuthEvent{UserID: userID, State: state, Time: s.now().UTC()})
	if err != nil {
		s.appCtx.Logger.Warn("encode auth event failed", "err", err)
		return
	}
	s.appCtx.Broker.Notify(ctx, AuthTopic, payload)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
