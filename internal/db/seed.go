package db

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password"

var demoCities = []string{"Berlin", "Hamburg", "Munich", "Cologne"}

// SeedTestData resets the database and populates it with demo accounts,
// likes and one conversation.
//
// Behavior:
//  1. Clears every table, children first.
//  2. Creates 20 accounts (10 "single", 10 "couple") with credentials
//     user{i}@example.com / DemoPassword.
//  3. Generates ~150 likes across account types with ~70% probability;
//     every 3rd pair is made mutual.
//  4. Opens a conversation for the first mutual pair with a short exchange.
func SeedTestData(db *gorm.DB, bcryptCost int) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"messages", "conversations", "profile_favorites", "profile_likes", "credentials", "profiles"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// --- Seed accounts ---
	profiles := make([]Profile, 0, 20)
	for i := 1; i <= 20; i++ {
		accountType := "single"
		if i > 10 {
			accountType = "couple"
		}
		age := 21 + r.Intn(30)
		lastLogin := time.Now().UTC().Add(-time.Duration(r.Intn(500)) * time.Hour).Truncate(time.Millisecond)

		p := Profile{
			ID:          uuid.NewString(),
			Email:       fmt.Sprintf("user%d@example.com", i),
			Username:    fmt.Sprintf("user%d", i),
			AccountType: accountType,
			Age:         &age,
			City:        demoCities[r.Intn(len(demoCities))],
			Verified:    i%4 == 0,
			LastLoginAt: &lastLogin,
		}
		cred := Credential{UserID: p.ID, Email: p.Email, PasswordHash: string(hash)}

		if err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&cred).Error; err != nil {
				return err
			}
			return tx.Create(&p).Error
		}); err != nil {
			return fmt.Errorf("failed to seed account: %w", err)
		}
		profiles = append(profiles, p)
	}
	log.Println("Seeded 20 accounts.")

	// --- Seed likes ---
	var mutual [][2]string
	counter := 0
	for _, owner := range profiles {
		for j := 0; j < 10; j++ { // each account considers ~10 others
			target := profiles[r.Intn(len(profiles))]
			if target.ID == owner.ID || target.AccountType == owner.AccountType {
				continue
			}

			// like probability 70%, every 3rd pair mutual
			liked := r.Intn(100) < 70
			if counter%3 == 0 {
				liked = true
				if err := seedLike(db, target.ID, owner.ID); err != nil {
					return err
				}
				mutual = append(mutual, [2]string{owner.ID, target.ID})
			}
			if liked {
				if err := seedLike(db, owner.ID, target.ID); err != nil {
					return err
				}
			}
			counter++
		}
	}
	log.Printf("Seeded likes (%d mutual pairs).", len(mutual))

	if len(mutual) == 0 {
		return nil
	}
	return seedConversation(db, mutual[0][0], mutual[0][1])
}

func seedLike(db *gorm.DB, owner, target string) error {
	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Like{OwnerID: owner, TargetID: target}).Error
	if err != nil {
		return fmt.Errorf("failed to seed like: %w", err)
	}
	return nil
}

// seedConversation opens a thread between a and b with three messages, the
// first two already read.
func seedConversation(db *gorm.DB, a, b string) error {
	pair := []string{a, b}
	sort.Strings(pair)
	conv := Conversation{ID: pair[0] + "_" + pair[1], ParticipantA: pair[0], ParticipantB: pair[1]}
	if err := db.Create(&conv).Error; err != nil {
		return fmt.Errorf("failed to seed conversation: %w", err)
	}

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	lines := []struct {
		from, to, text string
		read           bool
	}{
		{a, b, "Hey! We matched 🎉", true},
		{b, a, "Hi! Up for a drink this weekend?", true},
		{a, b, "Sounds great, Saturday?", false},
	}
	for i, l := range lines {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		sentAt := base.Add(time.Duration(i) * time.Minute)
		msg := Message{
			ID:             id.String(),
			ConversationID: conv.ID,
			SenderID:       l.from,
			RecipientID:    l.to,
			Text:           l.text,
			SentAt:         sentAt,
			Read:           l.read,
		}
		if l.read {
			readAt := sentAt.Add(30 * time.Second)
			msg.ReadAt = &readAt
		}
		if err := db.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to seed message: %w", err)
		}
		text := l.text
		conv.LastMessage, conv.LastMessageAt = &text, &sentAt
	}
	return db.Model(&conv).UpdateColumns(map[string]any{
		"last_message":    conv.LastMessage,
		"last_message_at": conv.LastMessageAt,
	}).Error
}
