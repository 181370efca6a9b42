package models

import "time"

const (
	RoleUser = "user"

	TierFree = "free"
	TierPlus = "plus"
)

// User is a local account mirrored from the external identity provider.
type User struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	ExternalID       string `gorm:"size:191;uniqueIndex;not null" json:"-"`
	Username         string `gorm:"size:30;uniqueIndex;not null" json:"username"`
	DisplayName      string `gorm:"size:50" json:"display_name"`
	Bio              string `gorm:"size:160" json:"bio"`
	AvatarURL        string `json:"avatar_url"`
	CoverImageURL    string `json:"cover_image_url"`
	Role             string `gorm:"size:16;not null;default:user" json:"role"`
	IsBanned         bool   `gorm:"not null;default:false;index" json:"is_banned"`
	SubscriptionTier string `gorm:"size:16;not null;default:free" json:"subscription_tier"`
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserSummary is the author block embedded in post and listing responses.
type UserSummary struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// UserListItem is one row of a follower, following or block listing.
type UserListItem struct {
	UserSummary
	Bio        string     `json:"bio"`
	FollowedAt *time.Time `json:"followed_at,omitempty"`
	BlockedAt  *time.Time `json:"blocked_at,omitempty"`
}

// Profile is the public view of a user as seen by a viewer.
type Profile struct {
	User
	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`
	IsFollowing    bool  `json:"is_following"`
	IsBlocked      bool  `json:"is_blocked"`
}
