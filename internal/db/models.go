package db

import (
	"time"

	"gorm.io/gorm"
)

// Profile is the canonical user record.
//
// Likes and Favorites are not columns: they are read from the
// profile_likes / profile_favorites edge tables whenever a profile is loaded.
type Profile struct {
	ID           string     `gorm:"primaryKey;size:128" json:"id"`
	Email        string     `gorm:"size:255;index" json:"email"`
	Username     string     `gorm:"size:64;not null" json:"username"`
	AccountType  string     `gorm:"size:32;index" json:"account_type"`
	Age          *int       `json:"age"`
	City         string     `gorm:"size:128;index" json:"city"`
	About        string     `gorm:"type:text" json:"about"`
	Interests    string     `gorm:"type:text" json:"interests"`
	ProfileImage string     `gorm:"size:1024" json:"profile_image"`
	Verified     bool       `gorm:"not null;default:false;index" json:"verified"`
	ProfileViews int64      `gorm:"not null;default:0" json:"profile_views"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index:idx_profiles_created,sort:desc" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Likes     []string `gorm:"-" json:"likes"`
	Favorites []string `gorm:"-" json:"favorites"`
}

// Like is a directed "like" edge. The composite PK gives set semantics.
//
// Indexes:
//   - PK (owner_id, target_id): membership checks and "who do I like".
//   - idx_likes_target_owner(target_id, owner_id): reverse lookups for
//     mutual-like checks and admirer lists.
type Like struct {
	OwnerID   string    `gorm:"primaryKey;size:128;index:idx_likes_target_owner,priority:2"`
	TargetID  string    `gorm:"primaryKey;size:128;index:idx_likes_target_owner,priority:1"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Like) TableName() string { return "profile_likes" }

// Favorite is a directed bookmark edge, independent of likes.
type Favorite struct {
	OwnerID   string    `gorm:"primaryKey;size:128;index:idx_favorites_target_owner,priority:2"`
	TargetID  string    `gorm:"primaryKey;size:128;index:idx_favorites_target_owner,priority:1"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Favorite) TableName() string { return "profile_favorites" }

// Conversation is a two-party thread. ID is the sorted participant pair
// joined with "_", and ParticipantA < ParticipantB always holds.
type Conversation struct {
	ID            string     `gorm:"primaryKey;size:300" json:"id"`
	ParticipantA  string     `gorm:"size:128;not null;index" json:"-"`
	ParticipantB  string     `gorm:"size:128;not null;index" json:"-"`
	LastMessage   *string    `gorm:"type:text" json:"last_message"`
	LastMessageAt *time.Time `gorm:"index" json:"last_message_time"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Participants []string `gorm:"-" json:"participants"`
}

// AfterFind fills the participants view after every load.
func (c *Conversation) AfterFind(*gorm.DB) error {
	c.Participants = []string{c.ParticipantA, c.ParticipantB}
	return nil
}

// Message belongs to a conversation. IDs are UUIDv7, so (sent_at, id) is a
// stable ascending order.
type Message struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string     `gorm:"size:300;not null;index:idx_messages_conv_sent,priority:1;index:idx_messages_conv_recipient_read,priority:1" json:"conversation_id"`
	SenderID       string     `gorm:"size:128;not null" json:"sender_id"`
	RecipientID    string     `gorm:"size:128;not null;index:idx_messages_conv_recipient_read,priority:2" json:"recipient_id"`
	Text           string     `gorm:"type:text;not null" json:"text"`
	SentAt         time.Time  `gorm:"not null;index:idx_messages_conv_sent,priority:2" json:"timestamp"`
	Read           bool       `gorm:"column:is_read;not null;default:false;index:idx_messages_conv_recipient_read,priority:3" json:"read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// Credential backs the local identity adapter.
type Credential struct {
	UserID       string    `gorm:"primaryKey;size:128"`
	Email        string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{&Profile{}, &Like{}, &Favorite{}, &Conversation{}, &Message{}, &Credential{}}
}
