package models

import "time"

// Like, Bookmark, Follow and Block are toggle relations: a pair is active
// while a row with IsDeleted=false exists. Removing a relation soft-deletes
// the row and re-creating it inserts a new one, so history is kept.

type Like struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	UserID    uint `gorm:"not null;index:idx_likes_user_post" json:"user_id"`
	PostID    uint `gorm:"not null;index:idx_likes_user_post;index" json:"post_id"`
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
}

func (Like) TableName() string {
	return "likes"
}

type Bookmark struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	UserID    uint `gorm:"not null;index:idx_bookmarks_user_post" json:"user_id"`
	PostID    uint `gorm:"not null;index:idx_bookmarks_user_post;index" json:"post_id"`
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
}

func (Bookmark) TableName() string {
	return "bookmarks"
}

type Follow struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	FollowerID  uint `gorm:"not null;index:idx_follows_pair" json:"follower_id"`
	FollowingID uint `gorm:"not null;index:idx_follows_pair;index" json:"following_id"`
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
}

func (Follow) TableName() string {
	return "follows"
}

type Block struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	BlockerID uint `gorm:"not null;index:idx_blocks_pair" json:"blocker_id"`
	BlockedID uint `gorm:"not null;index:idx_blocks_pair;index" json:"blocked_id"`
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
}

func (Block) TableName() string {
	return "blocks"
}
