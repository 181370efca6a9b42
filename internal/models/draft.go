package models

import "time"

// Draft is unpublished content owned by its author.
type Draft struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	UserID          uint         `gorm:"not null;index" json:"user_id"`
	Content         string       `gorm:"type:text;not null" json:"content"`
	InReplyToPostID *uint        `json:"in_reply_to_post_id"`
	MediaCount      int          `gorm:"not null;default:0" json:"media_count"`
	Media           []DraftMedia `gorm:"-" json:"media"`
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Draft) TableName() string {
	return "drafts"
}
