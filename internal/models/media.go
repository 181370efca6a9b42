package models

import "time"

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaFields is the attachment shape shared by post and draft media.
type MediaFields struct {
	MediaType   MediaType `gorm:"size:8;not null" json:"media_type"`
	URL         string    `gorm:"type:text;not null" json:"url"`
	Width       *int      `json:"width,omitempty"`
	Height      *int      `json:"height,omitempty"`
	DurationSec *float64  `json:"duration_sec,omitempty"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
}

type PostMedia struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	PostID uint `gorm:"not null;index" json:"-"`
	MediaFields
	SoftDelete
	CreatedAt time.Time `json:"-"`
}

func (PostMedia) TableName() string {
	return "post_media"
}

type DraftMedia struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	DraftID uint `gorm:"not null;index" json:"-"`
	MediaFields
	SoftDelete
	CreatedAt time.Time `json:"-"`
}

func (DraftMedia) TableName() string {
	return "draft_media"
}
