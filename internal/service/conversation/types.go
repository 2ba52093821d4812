package conversation

import "github.com/oggyb/ffm-club/internal/db"

type PairRequest struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
}

type ConversationIDResponse struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	RecipientID    string `json:"recipient_id"`
	Text           string `json:"text"`
}

// ConversationRequest addresses one conversation. ViewerID, when set, must
// be a participant; it is filled from the caller's session, never the wire.
type ConversationRequest struct {
	ConversationID string `json:"conversation_id"`
	ViewerID       string `json:"-"`
}

type MessagesResponse struct {
	Messages []db.Message `json:"messages"`
}

type UserRequest struct {
	UserID string `json:"user_id"`
}

type ConversationsResponse struct {
	Conversations []db.Conversation `json:"conversations"`
}

type MarkReadRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

type CountUnreadResponse struct {
	Count int64 `json:"count"`
}
