package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"murmur/internal/media"
	"murmur/internal/middleware"
	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/pagination"
	"murmur/internal/repository"
	"murmur/internal/storage"
)

// ContentLimits bounds post and draft bodies.
type ContentLimits struct {
	MaxContentLength int
	MaxMediaPerPost  int
}

type PostService struct {
	posts         repository.PostRepository
	relationships repository.RelationshipRepository
	communities   repository.CommunityRepository
	aggregator    *Aggregator
	blobs         storage.BlobStore
	limits        ContentLimits
}

type CreatePostInput struct {
	UserID          uint
	Content         string
	PostType        string
	InReplyToPostID *uint
	QuoteOfPostID   *uint
	RepostOfPostID  *uint
	CommunityID     *uint
	Media           []media.Input
}

type FeedInput struct {
	Page           pagination.Params
	IncludeRelated bool
	IncludeTotal   bool
	AuthorID       *uint
	PostType       *models.PostType
}

func NewPostService(
	posts repository.PostRepository,
	relationships repository.RelationshipRepository,
	communities repository.CommunityRepository,
	aggregator *Aggregator,
	blobs storage.BlobStore,
	limits ContentLimits,
) *PostService {
	return &PostService{
		posts:         posts,
		relationships: relationships,
		communities:   communities,
		aggregator:    aggregator,
		blobs:         blobs,
		limits:        limits,
	}
}

// checkContentLength measures content as it will be stored.
func checkContentLength(content string, max int) error {
	if utf8.RuneCountInString(strings.TrimSpace(content)) > max {
		return models.NewValidationError(fmt.Sprintf("content must be at most %d characters", max))
	}
	return nil
}

// visiblePost loads a post the viewer may see. Deleted, hidden and
// filtered posts are all reported as not found.
func (s *PostService) visiblePost(ctx context.Context, viewerID, id uint) (*models.Post, *repository.Exclusions, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if post.IsHidden {
		return nil, nil, models.NewNotFoundError("Post", id)
	}
	ex, err := s.relationships.Exclusions(ctx, viewerID, false)
	if err != nil {
		return nil, nil, err
	}
	if ex.Excludes(post.UserID) {
		return nil, nil, models.NewNotFoundError("Post", id)
	}
	return post, ex, nil
}

// CreatePost publishes a post. created is false when the request repeats
// an active repost, in which case the existing repost is returned.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (view *models.PostView, created bool, err error) {
	kind, err := models.ParsePostKind(in.PostType, in.InReplyToPostID, in.QuoteOfPostID, in.RepostOfPostID)
	if err != nil {
		return nil, false, err
	}
	if err := checkContentLength(in.Content, s.limits.MaxContentLength); err != nil {
		return nil, false, err
	}
	if kind.Type() == models.PostRepost {
		err = media.ValidateItems(in.Media, s.limits.MaxMediaPerPost)
	} else {
		err = media.Validate(in.Content, in.Media, s.limits.MaxMediaPerPost)
	}
	if err != nil {
		return nil, false, err
	}

	if target, ok := kind.Target(); ok {
		parent, _, err := s.visiblePost(ctx, in.UserID, target)
		if err != nil {
			return nil, false, err
		}
		if kind.Type() == models.PostRepost {
			if original, ok := parent.Kind().Target(); ok && parent.PostType == models.PostRepost {
				if _, _, err := s.visiblePost(ctx, in.UserID, original); err != nil {
					return nil, false, err
				}
				kind = models.RepostOf(original)
				target = original
			}
			existing, err := s.posts.ActiveRepost(ctx, in.UserID, target)
			if err != nil {
				return nil, false, err
			}
			if existing != nil {
				v, err := s.enrichOne(ctx, in.UserID, *existing, true)
				return v, false, err
			}
		}
	}

	if in.CommunityID != nil {
		if _, err := s.communities.Get(ctx, *in.CommunityID); err != nil {
			return nil, false, err
		}
		member, err := s.communities.Members().IsActive(ctx, in.UserID, *in.CommunityID)
		if err != nil {
			return nil, false, err
		}
		if !member {
			return nil, false, models.NewForbiddenError("You must be a member of this community to post in it")
		}
	}

	post := &models.Post{
		UserID:  in.UserID,
		Content: strings.TrimSpace(in.Content),
	}
	post.SetKind(kind)
	if err := s.posts.Create(ctx, post, media.Build(in.Media), in.CommunityID); err != nil {
		return nil, false, err
	}

	stored, err := s.posts.Get(ctx, post.ID)
	if err != nil {
		return nil, false, err
	}
	v, err := s.enrichOne(ctx, in.UserID, *stored, true)
	return v, true, err
}

func (s *PostService) enrichOne(ctx context.Context, viewerID uint, post models.Post, includeRelated bool) (*models.PostView, error) {
	views, err := s.aggregator.Enrich(ctx, viewerID, []models.Post{post}, EnrichOptions{IncludeRelated: includeRelated})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Feed lists the general feed, which never contains community posts.
func (s *PostService) Feed(ctx context.Context, viewerID uint, in FeedInput) ([]models.PostView, pagination.Info, error) {
	ex, err := s.relationships.Exclusions(ctx, viewerID, true)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	q := repository.FeedQuery{Exclusions: ex, Page: in.Page, AuthorID: in.AuthorID, PostType: in.PostType}
	rows, err := s.posts.Feed(ctx, q)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	rows, info := pagination.Trim(rows, in.Page, func(p models.Post) uint { return p.ID })

	if in.IncludeTotal {
		total, err := s.posts.CountFeed(ctx, q)
		if err != nil {
			return nil, pagination.Info{}, err
		}
		info.Total = &total
	}

	views, err := s.aggregator.Enrich(ctx, viewerID, rows, EnrichOptions{IncludeRelated: in.IncludeRelated, Exclusions: ex})
	if err != nil {
		return nil, pagination.Info{}, err
	}
	return views, info, nil
}

func (s *PostService) GetPost(ctx context.Context, viewerID, id uint, includeRelated bool) (*models.PostView, error) {
	post, ex, err := s.visiblePost(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	views, err := s.aggregator.Enrich(ctx, viewerID, []models.Post{*post}, EnrichOptions{IncludeRelated: includeRelated, Exclusions: ex})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeletePost soft-deletes an owned post and its media, then removes the
// media blobs this deployment stores.
func (s *PostService) DeletePost(ctx context.Context, viewerID, id uint) error {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return err
	}
	if post.UserID != viewerID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	urls, err := s.posts.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	s.deleteBlobs(ctx, urls)
	return nil
}

func (s *PostService) deleteBlobs(ctx context.Context, urls []string) {
	if s.blobs == nil {
		return
	}
	for _, u := range urls {
		key, ok := s.blobs.KeyFromURL(u)
		if !ok {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			observability.BlobDeleteFailures.Inc()
			middleware.Logger.WarnContext(ctx, "media blob delete failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}
