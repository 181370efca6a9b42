package service

import (
	"context"
	"strings"

	"murmur/internal/media"
	"murmur/internal/models"
	"murmur/internal/pagination"
	"murmur/internal/repository"
)

// DraftService manages unpublished posts. Every operation is owner-only.
type DraftService struct {
	drafts repository.DraftRepository
	posts  repository.PostRepository
	limits ContentLimits
}

type DraftInput struct {
	Content         string
	InReplyToPostID *uint
	Media           []media.Input
}

func NewDraftService(drafts repository.DraftRepository, posts repository.PostRepository, limits ContentLimits) *DraftService {
	return &DraftService{drafts: drafts, posts: posts, limits: limits}
}

func (s *DraftService) validate(ctx context.Context, in DraftInput) error {
	if err := checkContentLength(in.Content, s.limits.MaxContentLength); err != nil {
		return err
	}
	if err := media.Validate(in.Content, in.Media, s.limits.MaxMediaPerPost); err != nil {
		return err
	}
	if in.InReplyToPostID != nil {
		if *in.InReplyToPostID == 0 {
			return models.NewValidationError("in_reply_to_post_id must be a positive id")
		}
		if _, err := s.posts.Get(ctx, *in.InReplyToPostID); err != nil {
			return err
		}
	}
	return nil
}

func (s *DraftService) Create(ctx context.Context, userID uint, in DraftInput) (*models.Draft, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	draft := &models.Draft{
		UserID:          userID,
		Content:         strings.TrimSpace(in.Content),
		InReplyToPostID: in.InReplyToPostID,
	}
	if err := s.drafts.Create(ctx, draft, media.Build(in.Media)); err != nil {
		return nil, err
	}
	return draft, nil
}

// owned loads a draft and checks the viewer owns it.
func (s *DraftService) owned(ctx context.Context, userID, id uint) (*models.Draft, error) {
	draft, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft.UserID != userID {
		return nil, models.NewForbiddenError("You can only access your own drafts")
	}
	return draft, nil
}

func (s *DraftService) Get(ctx context.Context, userID, id uint) (*models.Draft, error) {
	return s.owned(ctx, userID, id)
}

func (s *DraftService) List(ctx context.Context, userID uint, page pagination.Params) ([]models.Draft, pagination.Info, error) {
	rows, err := s.drafts.List(ctx, userID, page)
	if err != nil {
		return nil, pagination.Info{}, err
	}
	rows, info := pagination.Trim(rows, page, func(d models.Draft) uint { return d.ID })
	return rows, info, nil
}

func (s *DraftService) Update(ctx context.Context, userID, id uint, in DraftInput) (*models.Draft, error) {
	draft, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	draft.Content = strings.TrimSpace(in.Content)
	draft.InReplyToPostID = in.InReplyToPostID
	if err := s.drafts.Replace(ctx, draft, media.Build(in.Media)); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *DraftService) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.drafts.SoftDelete(ctx, id)
}
