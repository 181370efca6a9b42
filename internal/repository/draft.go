package repository

import (
	"context"
	"errors"
	"time"

	"murmur/internal/models"
	"murmur/internal/pagination"

	"gorm.io/gorm"
)

// DraftRepository persists drafts and their media.
type DraftRepository interface {
	Create(ctx context.Context, draft *models.Draft, media []models.MediaFields) error
	// Get returns a non-deleted draft with its media, regardless of owner.
	Get(ctx context.Context, id uint) (*models.Draft, error)
	List(ctx context.Context, userID uint, page pagination.Params) ([]models.Draft, error)
	// Replace swaps content, reply target and the media set atomically.
	Replace(ctx context.Context, draft *models.Draft, media []models.MediaFields) error
	SoftDelete(ctx context.Context, id uint) error
}

type draftRepository struct {
	db *gorm.DB
}

func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepository{db: db}
}

func insertDraftMedia(tx *gorm.DB, draftID uint, media []models.MediaFields) ([]models.DraftMedia, error) {
	rows := make([]models.DraftMedia, len(media))
	if len(media) == 0 {
		return rows, nil
	}
	for i, m := range media {
		rows[i] = models.DraftMedia{DraftID: draftID, MediaFields: m}
	}
	if err := tx.Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *draftRepository) Create(ctx context.Context, draft *models.Draft, media []models.MediaFields) error {
	draft.MediaCount = len(media)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(draft).Error; err != nil {
			return err
		}
		rows, err := insertDraftMedia(tx, draft.ID, media)
		draft.Media = rows
		return err
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *draftRepository) Get(ctx context.Context, id uint) (*models.Draft, error) {
	var draft models.Draft
	db := r.db.WithContext(ctx)
	if err := db.Where("id = ?", id).Where("is_deleted = ?", false).First(&draft).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Draft", id)
		}
		return nil, models.NewInternalError(err)
	}
	media, err := r.mediaFor(ctx, []uint{id})
	if err != nil {
		return nil, err
	}
	draft.Media = media[id]
	if draft.Media == nil {
		draft.Media = []models.DraftMedia{}
	}
	return &draft, nil
}

func (r *draftRepository) List(ctx context.Context, userID uint, page pagination.Params) ([]models.Draft, error) {
	var drafts []models.Draft
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Scopes(active("drafts"), page.Scope("drafts.id")).
		Find(&drafts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	ids := make([]uint, len(drafts))
	for i, d := range drafts {
		ids[i] = d.ID
	}
	media, err := r.mediaFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range drafts {
		drafts[i].Media = media[drafts[i].ID]
		if drafts[i].Media == nil {
			drafts[i].Media = []models.DraftMedia{}
		}
	}
	return drafts, nil
}

func (r *draftRepository) mediaFor(ctx context.Context, ids []uint) (map[uint][]models.DraftMedia, error) {
	out := make(map[uint][]models.DraftMedia)
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.DraftMedia
	err := r.db.WithContext(ctx).
		Where("draft_id IN ?", ids).
		Scopes(active("draft_media")).
		Order("draft_id").Order("sort_order").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, m := range rows {
		out[m.DraftID] = append(out[m.DraftID], m)
	}
	return out, nil
}

func (r *draftRepository) Replace(ctx context.Context, draft *models.Draft, media []models.MediaFields) error {
	now := time.Now().UTC()
	draft.MediaCount = len(media)
	draft.UpdatedAt = now

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Draft{}).
			Where("id = ?", draft.ID).Where("is_deleted = ?", false).
			UpdateColumns(map[string]any{
				"content":             draft.Content,
				"in_reply_to_post_id": draft.InReplyToPostID,
				"media_count":         draft.MediaCount,
				"updated_at":          now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Draft", draft.ID)
		}
		if err := tx.Model(&models.DraftMedia{}).
			Where("draft_id = ?", draft.ID).Where("is_deleted = ?", false).
			UpdateColumns(map[string]any{"is_deleted": true, "deleted_at": now}).Error; err != nil {
			return err
		}
		rows, err := insertDraftMedia(tx, draft.ID, media)
		draft.Media = rows
		return err
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *draftRepository) SoftDelete(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	gone := map[string]any{"is_deleted": true, "deleted_at": now}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Draft{}).Where("id = ?", id).Where("is_deleted = ?", false).UpdateColumns(gone)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Draft", id)
		}
		return tx.Model(&models.DraftMedia{}).Where("draft_id = ?", id).Where("is_deleted = ?", false).UpdateColumns(gone).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return models.NewInternalError(err)
	}
	return nil
}
