package interaction

import "github.com/oggyb/ffm-club/internal/db"

// EdgeRequest names a directed edge source -> target.
type EdgeRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

type LikeResponse struct {
	Matched bool `json:"matched"`
}

type Ack struct{}

type UserRequest struct {
	UserID string `json:"user_id"`
}

type ProfilesResponse struct {
	Profiles []db.Profile `json:"profiles"`
}

type ListAdmirersRequest struct {
	UserID          string  `json:"user_id"`
	Limit           int     `json:"limit"`
	PaginationToken *string `json:"pagination_token"`
}

type Admirer struct {
	UserID        string `json:"user_id"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

type ListAdmirersResponse struct {
	Admirers            []Admirer `json:"admirers"`
	NextPaginationToken *string   `json:"next_pagination_token,omitempty"`
}

type CountAdmirersResponse struct {
	Count int64 `json:"count"`
}
