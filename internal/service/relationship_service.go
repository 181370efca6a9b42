package service

import (
	"context"

	"murmur/internal/models"
	"murmur/internal/repository"
)

// RelationshipService applies the follow, block, like and bookmark rules
// on top of the toggle relations.
type RelationshipService struct {
	users         repository.UserRepository
	posts         repository.PostRepository
	relationships repository.RelationshipRepository
	follows       *repository.Toggle[models.Follow]
	blocks        *repository.Toggle[models.Block]
	likes         *repository.Toggle[models.Like]
	bookmarks     *repository.Toggle[models.Bookmark]
}

// Toggles groups the relation toggles a RelationshipService drives.
type Toggles struct {
	Follows   *repository.Toggle[models.Follow]
	Blocks    *repository.Toggle[models.Block]
	Likes     *repository.Toggle[models.Like]
	Bookmarks *repository.Toggle[models.Bookmark]
}

func NewRelationshipService(
	users repository.UserRepository,
	posts repository.PostRepository,
	relationships repository.RelationshipRepository,
	toggles Toggles,
) *RelationshipService {
	return &RelationshipService{
		users:         users,
		posts:         posts,
		relationships: relationships,
		follows:       toggles.Follows,
		blocks:        toggles.Blocks,
		likes:         toggles.Likes,
		bookmarks:     toggles.Bookmarks,
	}
}

// FollowStatus is the pair state between a viewer and another user.
type FollowStatus struct {
	IsFollowing  bool `json:"is_following"`
	IsFollowedBy bool `json:"is_followed_by"`
}

// LikeState is the response to a like toggle.
type LikeState struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

func (s *RelationshipService) blockedEitherWay(ctx context.Context, a, b uint) (bool, error) {
	on, err := s.blocks.IsActive(ctx, a, b)
	if err != nil || on {
		return on, err
	}
	return s.blocks.IsActive(ctx, b, a)
}

func (s *RelationshipService) Follow(ctx context.Context, viewerID, targetID uint) error {
	if viewerID == targetID {
		return models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}
	blocked, err := s.blockedEitherWay(ctx, viewerID, targetID)
	if err != nil {
		return err
	}
	if blocked {
		return models.NewForbiddenError("You cannot follow this user")
	}
	_, err = s.follows.Activate(ctx, viewerID, targetID)
	return err
}

func (s *RelationshipService) Unfollow(ctx context.Context, viewerID, targetID uint) error {
	_, err := s.follows.Deactivate(ctx, viewerID, targetID)
	return err
}

func (s *RelationshipService) FollowStatus(ctx context.Context, viewerID, targetID uint) (*FollowStatus, error) {
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return nil, err
	}
	following, err := s.follows.IsActive(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	followedBy, err := s.follows.IsActive(ctx, targetID, viewerID)
	if err != nil {
		return nil, err
	}
	return &FollowStatus{IsFollowing: following, IsFollowedBy: followedBy}, nil
}

func (s *RelationshipService) Block(ctx context.Context, viewerID, targetID uint) error {
	if viewerID == targetID {
		return models.NewValidationError("You cannot block yourself")
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.IsBanned {
		return models.NewValidationError("Cannot block a banned user")
	}
	_, err = s.relationships.BlockAndUnfollow(ctx, viewerID, targetID)
	return err
}

func (s *RelationshipService) Unblock(ctx context.Context, viewerID, targetID uint) error {
	_, err := s.blocks.Deactivate(ctx, viewerID, targetID)
	return err
}

func (s *RelationshipService) IsBlocked(ctx context.Context, viewerID, targetID uint) (bool, error) {
	return s.blocks.IsActive(ctx, viewerID, targetID)
}

// reactablePost checks that the viewer can see the post.
func (s *RelationshipService) reactablePost(ctx context.Context, viewerID, postID uint) error {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post.IsHidden {
		return models.NewNotFoundError("Post", postID)
	}
	ex, err := s.relationships.Exclusions(ctx, viewerID, false)
	if err != nil {
		return err
	}
	if ex.Excludes(post.UserID) {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

func (s *RelationshipService) likeState(ctx context.Context, viewerID, postID uint) (*LikeState, error) {
	liked, err := s.likes.IsActive(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}
	n, err := s.likes.CountTarget(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &LikeState{Liked: liked, LikeCount: n}, nil
}

func (s *RelationshipService) Like(ctx context.Context, viewerID, postID uint) (*LikeState, error) {
	if err := s.reactablePost(ctx, viewerID, postID); err != nil {
		return nil, err
	}
	if _, err := s.likes.Activate(ctx, viewerID, postID); err != nil {
		return nil, err
	}
	return s.likeState(ctx, viewerID, postID)
}

func (s *RelationshipService) Unlike(ctx context.Context, viewerID, postID uint) (*LikeState, error) {
	if err := s.reactablePost(ctx, viewerID, postID); err != nil {
		return nil, err
	}
	if _, err := s.likes.Deactivate(ctx, viewerID, postID); err != nil {
		return nil, err
	}
	return s.likeState(ctx, viewerID, postID)
}

func (s *RelationshipService) Bookmark(ctx context.Context, viewerID, postID uint) error {
	if err := s.reactablePost(ctx, viewerID, postID); err != nil {
		return err
	}
	_, err := s.bookmarks.Activate(ctx, viewerID, postID)
	return err
}

// Unbookmark removes a bookmark. It does not require the post to still be
// visible, so stale bookmarks can always be cleared.
func (s *RelationshipService) Unbookmark(ctx context.Context, viewerID, postID uint) error {
	_, err := s.bookmarks.Deactivate(ctx, viewerID, postID)
	return err
}
