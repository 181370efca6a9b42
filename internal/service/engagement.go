package service

import (
	"context"

	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/repository"
)

// EnrichOptions controls one aggregation pass.
type EnrichOptions struct {
	IncludeRelated bool
	// Exclusions hides related posts by filtered authors. When nil and
	// related posts are requested, the viewer's exclusions are loaded.
	Exclusions *repository.Exclusions
}

// Aggregator attaches engagement counts, viewer flags, media and related
// posts to a page of posts. The number of queries depends on the number of
// metrics, not on the page size.
type Aggregator struct {
	engagement    repository.EngagementRepository
	relationships repository.RelationshipRepository
}

func NewAggregator(engagement repository.EngagementRepository, relationships repository.RelationshipRepository) *Aggregator {
	return &Aggregator{engagement: engagement, relationships: relationships}
}

// Enrich returns one view per post, in input order.
func (a *Aggregator) Enrich(ctx context.Context, viewerID uint, posts []models.Post, opts EnrichOptions) ([]models.PostView, error) {
	views := make([]models.PostView, len(posts))
	if len(posts) == 0 {
		return views, nil
	}
	observability.EngagementBatchSize.Observe(float64(len(posts)))

	ids := make([]uint, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}

	likeCounts, err := a.engagement.Counts(ctx, repository.MetricLikes, ids)
	if err != nil {
		return nil, err
	}
	bookmarkCounts, err := a.engagement.Counts(ctx, repository.MetricBookmarks, ids)
	if err != nil {
		return nil, err
	}
	replyCounts, err := a.engagement.Counts(ctx, repository.MetricReplies, ids)
	if err != nil {
		return nil, err
	}
	repostCounts, err := a.engagement.Counts(ctx, repository.MetricReposts, ids)
	if err != nil {
		return nil, err
	}
	liked, err := a.engagement.ViewerSet(ctx, repository.MetricLikes, viewerID, ids)
	if err != nil {
		return nil, err
	}
	bookmarked, err := a.engagement.ViewerSet(ctx, repository.MetricBookmarks, viewerID, ids)
	if err != nil {
		return nil, err
	}
	reposted, err := a.engagement.ViewerSet(ctx, repository.MetricReposts, viewerID, ids)
	if err != nil {
		return nil, err
	}
	media, err := a.engagement.MediaFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i, p := range posts {
		v := models.NewPostView(p)
		v.Engagement = models.Engagement{
			LikeCount:     likeCounts[p.ID],
			IsLiked:       liked[p.ID],
			BookmarkCount: bookmarkCounts[p.ID],
			IsBookmarked:  bookmarked[p.ID],
			ReplyCount:    replyCounts[p.ID],
			RepostCount:   repostCounts[p.ID],
			IsReposted:    reposted[p.ID],
		}
		if m := media[p.ID]; len(m) > 0 {
			v.Media = m
		}
		views[i] = v
	}

	if opts.IncludeRelated {
		if err := a.attachRelated(ctx, viewerID, posts, views, opts.Exclusions); err != nil {
			return nil, err
		}
	}
	return views, nil
}

func (a *Aggregator) attachRelated(ctx context.Context, viewerID uint, posts []models.Post, views []models.PostView, ex *repository.Exclusions) error {
	var parentIDs []uint
	seen := make(map[uint]bool)
	for i := range posts {
		if id, ok := posts[i].ParentID(); ok && !seen[id] {
			seen[id] = true
			parentIDs = append(parentIDs, id)
		}
	}
	if len(parentIDs) == 0 {
		return nil
	}

	if ex == nil {
		var err error
		if ex, err = a.relationships.Exclusions(ctx, viewerID, false); err != nil {
			return err
		}
	}

	loaded, err := a.engagement.PostsByIDs(ctx, parentIDs)
	if err != nil {
		return err
	}
	parents := make([]models.Post, 0, len(loaded))
	for _, id := range parentIDs {
		if p, ok := loaded[id]; ok && !ex.Excludes(p.UserID) {
			parents = append(parents, p)
		}
	}

	parentViews, err := a.Enrich(ctx, viewerID, parents, EnrichOptions{})
	if err != nil {
		return err
	}
	byID := make(map[uint]*models.PostView, len(parentViews))
	for i := range parentViews {
		byID[parentViews[i].ID] = &parentViews[i]
	}

	for i := range posts {
		id, ok := posts[i].ParentID()
		if !ok {
			continue
		}
		if pv, ok := byID[id]; ok {
			views[i].AttachRelated(pv)
		}
	}
	return nil
}
