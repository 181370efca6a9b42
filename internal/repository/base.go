// Package repository implements the data access layer for the application.
package repository

import (
	"context"

	"murmur/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// active restricts a query to rows of table that are not soft-deleted.
func active(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: clause.Column{Table: table, Name: "is_deleted"}, Value: false})
	}
}

// visiblePosts restricts a posts query to live, unmoderated rows.
func visiblePosts(db *gorm.DB) *gorm.DB {
	return db.
		Where(clause.Eq{Column: clause.Column{Table: "posts", Name: "is_deleted"}, Value: false}).
		Where(clause.Eq{Column: clause.Column{Table: "posts", Name: "is_hidden"}, Value: false})
}

// instrument starts a repository span and latency timer. Call the returned
// func with the final error.
func instrument(ctx context.Context, method, table string) (context.Context, func(error)) {
	ctx, end := observability.StartRepositorySpan(ctx, method, table)
	done := observability.TrackQuery(table + "." + method)
	return ctx, func(err error) {
		done()
		end(err)
	}
}

func uintsToAny(ids []uint) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
