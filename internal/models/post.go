package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PostType names the variant a post row was written as.
type PostType string

const (
	PostOriginal PostType = "original"
	PostReply    PostType = "reply"
	PostQuote    PostType = "quote"
	PostRepost   PostType = "repost"
)

// Post is a unit of published content.
//
// The three parent columns are mutually exclusive. They are written through
// SetKind only, and BeforeSave rejects rows whose columns disagree with
// PostType.
type Post struct {
	ID              uint     `gorm:"primaryKey" json:"id"`
	UserID          uint     `gorm:"not null;index" json:"user_id"`
	User            User     `gorm:"foreignKey:UserID" json:"-"`
	Content         string   `gorm:"type:text;not null" json:"content"`
	PostType        PostType `gorm:"size:16;not null;default:original;index" json:"post_type"`
	InReplyToPostID *uint    `gorm:"index" json:"in_reply_to_post_id"`
	QuoteOfPostID   *uint    `gorm:"index" json:"quote_of_post_id"`
	RepostOfPostID  *uint    `gorm:"index" json:"repost_of_post_id"`
	MediaCount      int      `gorm:"not null;default:0" json:"media_count"`
	IsHidden        bool     `gorm:"not null;default:false" json:"-"`
	HiddenReason    string   `gorm:"size:255" json:"-"`
	ReportCount     int      `gorm:"not null;default:0" json:"-"`
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Post) TableName() string {
	return "posts"
}

// Kind reads the tagged variant back out of the row.
func (p *Post) Kind() PostKind {
	switch {
	case p.InReplyToPostID != nil:
		return ReplyTo(*p.InReplyToPostID)
	case p.QuoteOfPostID != nil:
		return QuoteOf(*p.QuoteOfPostID)
	case p.RepostOfPostID != nil:
		return RepostOf(*p.RepostOfPostID)
	default:
		return Original()
	}
}

// SetKind writes the variant onto the row, clearing the other parent columns.
func (p *Post) SetKind(k PostKind) {
	p.PostType = k.Type()
	p.InReplyToPostID, p.QuoteOfPostID, p.RepostOfPostID = nil, nil, nil
	target, ok := k.Target()
	if !ok {
		return
	}
	switch k.Type() {
	case PostReply:
		p.InReplyToPostID = &target
	case PostQuote:
		p.QuoteOfPostID = &target
	case PostRepost:
		p.RepostOfPostID = &target
	}
}

// ParentID returns the referenced post, if any.
func (p *Post) ParentID() (uint, bool) {
	return p.Kind().Target()
}

func (p *Post) BeforeSave(tx *gorm.DB) error {
	return p.checkKind()
}

func (p *Post) checkKind() error {
	set := 0
	for _, ref := range []*uint{p.InReplyToPostID, p.QuoteOfPostID, p.RepostOfPostID} {
		if ref != nil {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("post %d references more than one parent", p.ID)
	}

	want := PostOriginal
	switch {
	case p.InReplyToPostID != nil:
		want = PostReply
	case p.QuoteOfPostID != nil:
		want = PostQuote
	case p.RepostOfPostID != nil:
		want = PostRepost
	}
	// A zero-value model used only as a query target carries no type.
	if p.PostType == "" && set == 0 {
		return nil
	}
	if p.PostType != want {
		return fmt.Errorf("post %d has type %q but parent columns imply %q", p.ID, p.PostType, want)
	}
	return nil
}
