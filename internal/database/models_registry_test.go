package database

import (
	"testing"

	"murmur/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPersistentModels_IncludesRelationTables(t *testing.T) {
	var like, bookmark, follow, block bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.Like:
			like = true
		case *models.Bookmark:
			bookmark = true
		case *models.Follow:
			follow = true
		case *models.Block:
			block = true
		}
	}
	assert.True(t, like && bookmark && follow && block)
}

func TestActiveUniqueIndexesCoverToggleTables(t *testing.T) {
	tables := map[string]bool{}
	for _, idx := range ActiveUniqueIndexes() {
		tables[idx.Table] = true
	}
	for _, table := range []string{"likes", "bookmarks", "follows", "blocks"} {
		assert.True(t, tables[table], table)
	}
}
