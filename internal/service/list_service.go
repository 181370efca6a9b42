package service

import (
	"context"

	"murmur/internal/models"
	"murmur/internal/pagination"
	"murmur/internal/repository"
)

// EngagementType selects the viewer's engagement listing.
type EngagementType string

const (
	EngagementLikes    EngagementType = "likes"
	EngagementComments EngagementType = "comments"
)

func ParseEngagementType(s string) (EngagementType, error) {
	switch EngagementType(s) {
	case EngagementLikes, EngagementComments:
		return EngagementType(s), nil
	default:
		return "", models.NewValidationError("type must be likes or comments")
	}
}

// ListService serves the relation-keyed listings.
type ListService struct {
	lists         repository.ListRepository
	posts         repository.PostRepository
	users         repository.UserRepository
	relationships repository.RelationshipRepository
	aggregator    *Aggregator
}

func NewListService(
	lists repository.ListRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	relationships repository.RelationshipRepository,
	aggregator *Aggregator,
) *ListService {
	return &ListService{
		lists:         lists,
		posts:         posts,
		users:         users,
		relationships: relationships,
		aggregator:    aggregator,
	}
}

func (s *ListService) Bookmarks(ctx context.Context, viewerID uint, page pagination.Params, includeRelated bool) ([]models.PostView, pagination.Info, error) {
	ex, err := s.relationships.Exclusions(ctx, viewerID, false)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	refs, err := s.lists.Bookmarked(ctx, viewerID, ex, page)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	return s.hydrate(ctx, viewerID, refs, page, includeRelated, ex)
}

func (s *ListService) Engagement(ctx context.Context, viewerID uint, kind EngagementType, page pagination.Params, includeRelated bool) ([]models.PostView, pagination.Info, error) {
	ex, err := s.relationships.Exclusions(ctx, viewerID, false)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	switch kind {
	case EngagementLikes:
		refs, err := s.lists.Liked(ctx, viewerID, ex, page)
		if err != nil {
			return nil, pagination.Info{}, err
		}
		return s.hydrate(ctx, viewerID, refs, page, includeRelated, ex)
	case EngagementComments:
		rows, err := s.posts.RepliesBy(ctx, viewerID, ex, page)
		if err != nil {
			return nil, pagination.Info{}, err
		}
		rows, info := pagination.Trim(rows, page, func(p models.Post) uint { return p.ID })
		views, err := s.aggregator.Enrich(ctx, viewerID, rows, EnrichOptions{IncludeRelated: includeRelated, Exclusions: ex})
		if err != nil {
			return nil, pagination.Info{}, err
		}
		return views, info, nil
	default:
		return nil, pagination.Info{}, models.NewValidationError("type must be likes or comments")
	}
}

// hydrate trims a page of relation rows and resolves their posts in page
// order. Repeated post ids keep their first position.
func (s *ListService) hydrate(ctx context.Context, viewerID uint, refs []repository.PostRef, page pagination.Params, includeRelated bool, ex *repository.Exclusions) ([]models.PostView, pagination.Info, error) {
	refs, info := pagination.Trim(refs, page, func(r repository.PostRef) uint { return r.CursorID })

	seen := make(map[uint]struct{}, len(refs))
	ids := make([]uint, 0, len(refs))
	for _, r := range refs {
		if _, dup := seen[r.PostID]; dup {
			continue
		}
		seen[r.PostID] = struct{}{}
		ids = append(ids, r.PostID)
	}

	byID, err := s.lists.PostsByIDs(ctx, ids)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	posts := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}

	views, err := s.aggregator.Enrich(ctx, viewerID, posts, EnrichOptions{IncludeRelated: includeRelated, Exclusions: ex})
	if err != nil {
		return nil, pagination.Info{}, err
	}
	return views, info, nil
}

// Followers lists the users following userID, as seen by the viewer.
func (s *ListService) Followers(ctx context.Context, viewerID, userID uint, page pagination.Params) ([]models.UserListItem, pagination.Info, error) {
	return s.userList(ctx, viewerID, userID, page, s.lists.Followers)
}

// Following lists the users userID follows, as seen by the viewer.
func (s *ListService) Following(ctx context.Context, viewerID, userID uint, page pagination.Params) ([]models.UserListItem, pagination.Info, error) {
	return s.userList(ctx, viewerID, userID, page, s.lists.Following)
}

type userListQuery func(context.Context, uint, *repository.Exclusions, pagination.Params) ([]repository.UserRef, error)

func (s *ListService) userList(ctx context.Context, viewerID, userID uint, page pagination.Params, query userListQuery) ([]models.UserListItem, pagination.Info, error) {
	ex, err := s.relationships.Exclusions(ctx, viewerID, false)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	if userID != viewerID {
		if ex.Excludes(userID) {
			return nil, pagination.Info{}, models.NewNotFoundError("User", userID)
		}
		if _, err := s.users.GetByID(ctx, userID); err != nil {
			return nil, pagination.Info{}, err
		}
	}
	refs, err := query(ctx, userID, ex, page)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	refs, info := pagination.Trim(refs, page, func(r repository.UserRef) uint { return r.CursorID })

	items := make([]models.UserListItem, len(refs))
	for i, r := range refs {
		at := r.CreatedAt
		items[i] = models.UserListItem{UserSummary: r.User.Summary(), Bio: r.User.Bio, FollowedAt: &at}
	}
	return items, info, nil
}

// Blocks lists the viewer's own active blocks.
func (s *ListService) Blocks(ctx context.Context, viewerID uint, page pagination.Params) ([]models.UserListItem, pagination.Info, error) {
	refs, err := s.lists.Blocked(ctx, viewerID, page)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	refs, info := pagination.Trim(refs, page, func(r repository.UserRef) uint { return r.CursorID })

	items := make([]models.UserListItem, len(refs))
	for i, r := range refs {
		at := r.CreatedAt
		items[i] = models.UserListItem{UserSummary: r.User.Summary(), Bio: r.User.Bio, BlockedAt: &at}
	}
	return items, info, nil
}
