package service

import (
	"context"
	"regexp"
	"strings"

	"murmur/internal/models"
	"murmur/internal/pagination"
	"murmur/internal/repository"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

type CommunityService struct {
	communities   repository.CommunityRepository
	posts         repository.PostRepository
	relationships repository.RelationshipRepository
	aggregator    *Aggregator
}

type CreateCommunityInput struct {
	CreatorID   uint   `validate:"-"`
	Name        string `validate:"required,min=3,max=100"`
	Slug        string `validate:"omitempty,max=100"`
	Description string `validate:"max=1000"`
	IsPrivate   bool
}

func NewCommunityService(
	communities repository.CommunityRepository,
	posts repository.PostRepository,
	relationships repository.RelationshipRepository,
	aggregator *Aggregator,
) *CommunityService {
	return &CommunityService{
		communities:   communities,
		posts:         posts,
		relationships: relationships,
		aggregator:    aggregator,
	}
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func (s *CommunityService) Create(ctx context.Context, in CreateCommunityInput) (*models.Community, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(in.Name)
	}
	if slug == "" {
		return nil, models.NewValidationError("slug must contain letters or digits")
	}
	c := &models.Community{
		Name:        in.Name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		IsPrivate:   in.IsPrivate,
		CreatorID:   in.CreatorID,
	}
	if err := s.communities.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CommunityDetail is a community with the viewer's membership.
type CommunityDetail struct {
	models.Community
	MemberCount int64 `json:"member_count"`
	IsMember    bool  `json:"is_member"`
}

func (s *CommunityService) Get(ctx context.Context, viewerID, communityID uint) (*CommunityDetail, error) {
	c, err := s.communities.Get(ctx, communityID)
	if err != nil {
		return nil, err
	}
	members := s.communities.Members()
	count, err := members.CountTarget(ctx, communityID)
	if err != nil {
		return nil, err
	}
	isMember, err := members.IsActive(ctx, viewerID, communityID)
	if err != nil {
		return nil, err
	}
	return &CommunityDetail{Community: *c, MemberCount: count, IsMember: isMember}, nil
}

func (s *CommunityService) Join(ctx context.Context, userID, communityID uint) error {
	if _, err := s.communities.Get(ctx, communityID); err != nil {
		return err
	}
	_, err := s.communities.Members().Activate(ctx, userID, communityID)
	return err
}

func (s *CommunityService) Leave(ctx context.Context, userID, communityID uint) error {
	c, err := s.communities.Get(ctx, communityID)
	if err != nil {
		return err
	}
	if c.CreatorID == userID {
		return models.NewValidationError("The owner cannot leave their own community")
	}
	_, err = s.communities.Members().Deactivate(ctx, userID, communityID)
	return err
}

// Posts lists a community's posts. Private communities are visible to
// members only.
func (s *CommunityService) Posts(ctx context.Context, viewerID, communityID uint, page pagination.Params, includeRelated bool) ([]models.PostView, pagination.Info, error) {
	c, err := s.communities.Get(ctx, communityID)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	if c.IsPrivate {
		member, err := s.communities.Members().IsActive(ctx, viewerID, communityID)
		if err != nil {
			return nil, pagination.Info{}, err
		}
		if !member {
			return nil, pagination.Info{}, models.NewForbiddenError("This community is private")
		}
	}
	ex, err := s.relationships.Exclusions(ctx, viewerID, false)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	rows, err := s.posts.CommunityFeed(ctx, communityID, ex, page)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	rows, info := pagination.Trim(rows, page, func(p models.Post) uint { return p.ID })
	views, err := s.aggregator.Enrich(ctx, viewerID, rows, EnrichOptions{IncludeRelated: includeRelated, Exclusions: ex})
	if err != nil {
		return nil, pagination.Info{}, err
	}
	return views, info, nil
}
