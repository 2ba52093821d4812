package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidToken = errors.New("invalid pagination token")

// Cursor is the opaque pagination state we encode/decode.
// ID + CreatedNano establish a stable cursor over "newest first, id
// descending" listings. The timestamp keeps full precision so it compares
// equal to the stored value on every driver.
type Cursor struct {
	ID          string `json:"id"`
	CreatedNano int64  `json:"created_nano,omitempty"`
}

// At builds the cursor for a row created at createdAt.
func At(id string, createdAt time.Time) Cursor {
	return Cursor{ID: id, CreatedNano: createdAt.UnixNano()}
}

// IsZero reports whether the cursor points at the first page.
func (c Cursor) IsZero() bool {
	return c.ID == "" || c.CreatedNano == 0
}

// Time returns the cursor position as a UTC time.
func (c Cursor) Time() time.Time {
	return time.Unix(0, c.CreatedNano).UTC()
}

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}

// ClampLimit applies the default for non-positive limits and caps the rest.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
