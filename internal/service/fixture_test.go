package service

import (
	"testing"

	"murmur/internal/models"
	"murmur/internal/pagination"
	"murmur/internal/repository"
	"murmur/internal/storage"
	"murmur/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testBlobBase = "http://blobs.test"

var testLimits = ContentLimits{MaxContentLength: 500, MaxMediaPerPost: 2}

// fixture wires every service onto one in-memory database.
type fixture struct {
	db            *gorm.DB
	blobs         *storage.MemoryStore
	posts         *PostService
	relationships *RelationshipService
	lists         *ListService
	drafts        *DraftService
	users         *UserService
	uploads       *UploadService
	communities   *CommunityService
	toggles       Toggles
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	blobs := storage.NewMemoryStore(testBlobBase)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	relRepo := repository.NewRelationshipRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	toggles := Toggles{
		Follows:   repository.NewFollowToggle(db),
		Blocks:    repository.NewBlockToggle(db),
		Likes:     repository.NewLikeToggle(db),
		Bookmarks: repository.NewBookmarkToggle(db),
	}
	agg := NewAggregator(repository.NewEngagementRepository(db), relRepo)

	return &fixture{
		db:            db,
		blobs:         blobs,
		posts:         NewPostService(postRepo, relRepo, communityRepo, agg, blobs, testLimits),
		relationships: NewRelationshipService(userRepo, postRepo, relRepo, toggles),
		lists:         NewListService(repository.NewListRepository(db), postRepo, userRepo, relRepo, agg),
		drafts:        NewDraftService(repository.NewDraftRepository(db), postRepo, testLimits),
		users:         NewUserService(userRepo, relRepo, toggles.Follows, toggles.Blocks),
		uploads:       NewUploadService(blobs, userRepo, nil),
		communities:   NewCommunityService(communityRepo, postRepo, relRepo, agg),
		toggles:       toggles,
	}
}

func page(limit int) pagination.Params {
	return pagination.Params{Limit: limit, Sort: pagination.SortDesc}
}

func uintPtr(v uint) *uint { return &v }

func strPtr(s string) *string { return &s }

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func viewIDs(views []models.PostView) []uint {
	ids := make([]uint, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}
