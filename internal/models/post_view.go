package models

import "time"

// Engagement holds per-post counters and the viewer's own reactions.
type Engagement struct {
	LikeCount     int64 `json:"like_count"`
	IsLiked       bool  `json:"is_liked"`
	BookmarkCount int64 `json:"bookmark_count"`
	IsBookmarked  bool  `json:"is_bookmarked"`
	ReplyCount    int64 `json:"reply_count"`
	RepostCount   int64 `json:"repost_count"`
	IsReposted    bool  `json:"is_reposted"`
}

// PostView is a post as returned to a viewer: author, media, engagement and
// at most one level of related posts.
type PostView struct {
	ID              uint        `json:"id"`
	UserID          uint        `json:"user_id"`
	Author          UserSummary `json:"author"`
	Content         string      `json:"content"`
	PostType        PostType    `json:"post_type"`
	InReplyToPostID *uint       `json:"in_reply_to_post_id"`
	QuoteOfPostID   *uint       `json:"quote_of_post_id"`
	RepostOfPostID  *uint       `json:"repost_of_post_id"`
	MediaCount      int         `json:"media_count"`
	Media           []PostMedia `json:"media"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Engagement

	ReplyTo  *PostView `json:"reply_to,omitempty"`
	QuoteOf  *PostView `json:"quote_of,omitempty"`
	RepostOf *PostView `json:"repost_of,omitempty"`
}

func NewPostView(p Post) PostView {
	return PostView{
		ID:              p.ID,
		UserID:          p.UserID,
		Author:          p.User.Summary(),
		Content:         p.Content,
		PostType:        p.Kind().Type(),
		InReplyToPostID: p.InReplyToPostID,
		QuoteOfPostID:   p.QuoteOfPostID,
		RepostOfPostID:  p.RepostOfPostID,
		MediaCount:      p.MediaCount,
		Media:           []PostMedia{},
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// AttachRelated sets the related view on the field matching the post type.
func (v *PostView) AttachRelated(related *PostView) {
	switch v.PostType {
	case PostReply:
		v.ReplyTo = related
	case PostQuote:
		v.QuoteOf = related
	case PostRepost:
		v.RepostOf = related
	}
}
