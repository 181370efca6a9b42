package models

import "time"

const (
	CommunityRoleOwner  = "owner"
	CommunityRoleMember = "member"
)

// Community groups posts outside the general feed.
type Community struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Slug        string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	IsPrivate   bool   `gorm:"not null;default:false" json:"is_private"`
	CreatorID   uint   `gorm:"not null;index" json:"creator_id"`
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Community) TableName() string {
	return "communities"
}

type CommunityMember struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	CommunityID uint   `gorm:"not null;index:idx_community_members_pair" json:"community_id"`
	UserID      uint   `gorm:"not null;index:idx_community_members_pair;index" json:"user_id"`
	Role        string `gorm:"size:16;not null;default:member" json:"role"`
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
}

func (CommunityMember) TableName() string {
	return "community_members"
}

// CommunityPost links a post to the single community it was published in.
type CommunityPost struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CommunityID uint      `gorm:"not null;index" json:"community_id"`
	PostID      uint      `gorm:"not null;uniqueIndex" json:"post_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (CommunityPost) TableName() string {
	return "community_posts"
}
