package conversation

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/ffm-club/internal/app"
	"github.com/oggyb/ffm-club/internal/db"
	svcErr "github.com/oggyb/ffm-club/internal/errors"
	"github.com/oggyb/ffm-club/internal/metrics"
	"github.com/oggyb/ffm-club/internal/realtime"
	"github.com/oggyb/ffm-club/internal/repository"
	"github.com/oggyb/ffm-club/internal/service/profile"
)

const maxMessageLength = 4000

// Service manages two-party conversations and their messages.
type Service struct {
	appCtx        *app.AppContext
	profiles      *profile.Service
	conversations *repository.ConversationRepository
	now           func() time.Time
}

func NewConversationService(appCtx *app.AppContext, profiles *profile.Service) *Service {
	return &Service{
		appCtx:        appCtx,
		profiles:      profiles,
		conversations: repository.NewConversationRepository(appCtx.DB),
		now:           time.Now,
	}
}

// ConversationID is the two ids sorted ascending and joined with "_", so
// both participants derive the same id. Profile ids never contain "_",
// which keeps the split unambiguous.
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}

// Topic is the realtime topic carrying changes of one conversation.
func Topic(conversationID string) string { return "conversation:" + conversationID }

// GetOrCreateConversation returns the deterministic id for the pair,
// creating the conversation on first use.
//
// Behavior:
//   - Creation is a conditional insert that ignores an existing row, so
//     concurrent calls for the same pair converge on one conversation.
//   - Both participants need a profile, otherwise NotFound.
//
// Example:
//
//	svc.GetOrCreateConversation(ctx, &PairRequest{UserA: "u2", UserB: "u1"}) // -> "u1_u2"
func (s *Service) GetOrCreateConversation(ctx context.Context, req *PairRequest) (*ConversationIDResponse, error) {
	s.appCtx.Logger.Debug("GetOrCreateConversation called", "a", req.UserA, "b", req.UserB)

	if req.UserA == "" || req.UserB == "" {
		return nil, svcErr.InvalidArgument("both participants are required")
	}
	if req.UserA == req.UserB {
		return nil, svcErr.InvalidOperation("cannot start a conversation with yourself")
	}
	ok, err := s.profiles.Exists(ctx, req.UserA, req.UserB)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, svcErr.NotFound("participant profile not found")
	}

	pair := []string{req.UserA, req.UserB}
	sort.Strings(pair)
	c := &db.Conversation{
		ID:           ConversationID(req.UserA, req.UserB),
		ParticipantA: pair[0],
		ParticipantB: pair[1],
	}
	if err := s.conversations.CreateIfAbsent(ctx, c); err != nil {
		s.appCtx.Logger.Error("create conversation failed", "id", c.ID, "err", err)
		return nil, svcErr.Translate(err, "failed to create conversation")
	}
	return &ConversationIDResponse{ConversationID: c.ID}, nil
}

// SendMessage appends an unread message and makes it the conversation's
// last message.
//
// Behavior:
//   - Unknown conversation is NotFound.
//   - Sender and recipient must be the two participants (InvalidOperation).
//   - The recipient's cached unread count is dropped and subscribers are
//     notified; both are best-effort.
func (s *Service) SendMessage(ctx context.Context, req *SendMessageRequest) (*db.Message, error) {
	s.appCtx.Logger.Debug("SendMessage called", "conversation", req.ConversationID, "sender", req.SenderID)

	if strings.TrimSpace(req.Text) == "" {
		return nil, svcErr.InvalidArgument("text is required")
	}
	if len(req.Text) > maxMessageLength {
		return nil, svcErr.InvalidArgument("text is too long")
	}

	conv, err := s.getConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if req.SenderID == req.RecipientID || !isParticipant(conv, req.SenderID) || !isParticipant(conv, req.RecipientID) {
		return nil, svcErr.InvalidOperation("sender and recipient must be the conversation's participants")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, svcErr.Backend("failed to generate message id", err)
	}
	msg := &db.Message{
		ID:             id.String(),
		ConversationID: conv.ID,
		SenderID:       req.SenderID,
		RecipientID:    req.RecipientID,
		Text:           req.Text,
		SentAt:         s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.conversations.AppendMessage(ctx, msg); err != nil {
		s.appCtx.Logger.Error("append message failed", "conversation", conv.ID, "err", err)
		return nil, svcErr.Translate(err, "failed to send message")
	}
	metrics.RecordMessageSent()

	s.dropUnreadCache(ctx, req.RecipientID)
	s.appCtx.Broker.Notify(ctx, Topic(conv.ID), []byte(msg.ID))
	return msg, nil
}

// ListMessages returns the conversation's messages in ascending time order.
func (s *Service) ListMessages(ctx context.Context, req *ConversationRequest) (*MessagesResponse, error) {
	s.appCtx.Logger.Debug("ListMessages called", "conversation", req.ConversationID)

	conv, err := s.getConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if req.ViewerID != "" && !isParticipant(conv, req.ViewerID) {
		return nil, svcErr.InvalidOperation("not a participant of this conversation")
	}
	msgs, err := s.conversations.Messages(ctx, conv.ID)
	if err != nil {
		return nil, svcErr.Translate(err, "failed to load messages")
	}
	return &MessagesResponse{Messages: msgs}, nil
}

// SubscribeToMessages calls onUpdate with the full ordered message list
// right away and after every change to the conversation. Calls are
// serialized and none happen after Cancel returns.
func (s *Service) SubscribeToMessages(ctx context.Context, req *ConversationRequest, onUpdate func([]db.Message)) (*realtime.Subscription, error) {
	s.appCtx.Logger.Debug("SubscribeToMessages called", "conversation", req.ConversationID)

	conv, err := s.getConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if req.ViewerID != "" && !isParticipant(conv, req.ViewerID) {
		return nil, svcErr.InvalidOperation("not a participant of this conversation")
	}

	sub, err := s.appCtx.Broker.Subscribe(ctx, Topic(conv.ID), func(ctx context.Context, _ []byte) {
		msgs, err := s.conversations.Messages(ctx, conv.ID)
		if err != nil {
			s.appCtx.Logger.Warn("message snapshot failed", "conversation", conv.ID, "err", err)
			return
		}
		onUpdate(msgs)
	}, realtime.WithInitialDelivery())
	if err != nil {
		return nil, svcErr.Backend("failed to subscribe to conversation", err)
	}
	return sub, nil
}

// ListConversationsForUser returns the user's conversations, latest
// message first; conversations without messages come last.
func (s *Service) ListConversationsForUser(ctx context.Context, req *UserRequest) (*ConversationsResponse, error) {
	s.appCtx.Logger.Debug("ListConversationsForUser called", "user", req.UserID)

	if req.UserID == "" {
		return nil, svcErr.InvalidArgument("user id is required")
	}
	convs, err := s.conversations.ListForUser(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Translate(err, "failed to list conversations")
	}
	if convs == nil {
		convs = []db.Conversation{}
	}
	return &ConversationsResponse{Conversations: convs}, nil
}

// MarkMessagesAsRead flips every unread message addressed to the user.
// Only the read flag and read time change; read messages stay read.
func (s *Service) MarkMessagesAsRead(ctx context.Context, req *MarkReadRequest) (*MarkReadResponse, error) {
	s.appCtx.Logger.Debug("MarkMessagesAsRead called", "conversation", req.ConversationID, "user", req.UserID)

	conv, err := s.getConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(conv, req.UserID) {
		return nil, svcErr.InvalidOperation("not a participant of this conversation")
	}

	n, err := s.conversations.MarkRead(ctx, conv.ID, req.UserID, s.now().UTC().Truncate(time.Millisecond))
	if err != nil {
		s.appCtx.Logger.Error("mark read failed", "conversation", conv.ID, "user", req.UserID, "err", err)
		return nil, svcErr.Translate(err, "failed to mark messages as read")
	}
	if n > 0 {
		metrics.RecordMessagesRead(n)
		s.dropUnreadCache(ctx, req.UserID)
		s.appCtx.Broker.Notify(ctx, Topic(conv.ID), nil)
	}
	return &MarkReadResponse{Updated: n}, nil
}

// CountUnreadForUser sums unread messages addressed to the user across all
// their conversations.
// Cache-first strategy:
//  1. Attempts to read from Redis (unread:count:userID).
//  2. On miss or Redis failure, falls back to the DB.
//  3. On DB fetch, stores the count with Social.CountCacheTTL.
func (s *Service) CountUnreadForUser(ctx context.Context, req *UserRequest) (*CountUnreadResponse, error) {
	s.appCtx.Logger.Debug("CountUnreadForUser called", "user", req.UserID)

	if req.UserID == "" {
		return nil, svcErr.InvalidArgument("user id is required")
	}
	ttl := s.appCtx.Config.Social.CountCacheTTL

	n, hit, err := s.appCtx.RedisCache.GetUnreadCount(ctx, req.UserID, ttl)
	if err != nil {
		s.appCtx.Logger.Warn("unread cache read failed", "user", req.UserID, "err", err)
	}
	if hit {
		return &CountUnreadResponse{Count: n}, nil
	}

	n, err = s.conversations.CountUnread(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Translate(err, "failed to count unread messages")
	}
	if err := s.appCtx.RedisCache.SetUnreadCount(ctx, req.UserID, n, ttl); err != nil {
		s.appCtx.Logger.Warn("unread cache write failed", "user", req.UserID, "err", err)
	}
	return &CountUnreadResponse{Count: n}, nil
}

func (s *Service) getConversation(ctx context.Context, id string) (*db.Conversation, error) {
	if id == "" {
		return nil, svcErr.InvalidArgument("conversation id is required")
	}
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		translated := svcErr.Translate(err, "failed to load conversation")
		if svcErr.Is(translated, svcErr.KindNotFound) {
			return nil, svcErr.NotFound("conversation " + id + " not found")
		}
		return nil, translated
	}
	return conv, nil
}

func (s *Service) dropUnreadCache(ctx context.Context, userID string) {
	if err := s.appCtx.RedisCache.InvalidateUnreadCount(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("unread cache invalidation failed", "user", userID, "err", err)
	}
}

func isParticipant(c *db.Conversation, userID string) bool {
	return userID != "" && (c.ParticipantA == userID || c.ParticipantB == userID)
}
