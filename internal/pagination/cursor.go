// Package pagination implements id-keyed cursor windows shared by every
// listing endpoint.
//
// Rows are always ordered by their numeric primary key, never by a
// timestamp, so the order is total even when timestamps collide. A page
// fetches limit+1 rows; the extra row only signals that another page exists.
package pagination

import (
	"strconv"
	"strings"

	"murmur/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Sort string

const (
	SortDesc Sort = "desc"
	SortAsc  Sort = "asc"
)

// Defaults bounds the page size.
type Defaults struct {
	Limit    int
	MaxLimit int
}

// Params is one requested window.
type Params struct {
	Limit  int
	Cursor *uint
	Sort   Sort
}

// Info is the pagination block of a listing response.
type Info struct {
	HasNextPage bool   `json:"hasNextPage"`
	NextCursor  *uint  `json:"nextCursor"`
	Total       *int64 `json:"total,omitempty"`
}

// FromQuery parses the raw limit, cursor and sort query values.
func FromQuery(limit, cursor, sort string, d Defaults) (Params, error) {
	p := Params{Limit: d.Limit, Sort: SortDesc}

	if s := strings.TrimSpace(limit); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Params{}, models.NewValidationError("limit must be a positive integer")
		}
		p.Limit = n
	}
	if d.MaxLimit > 0 && p.Limit > d.MaxLimit {
		p.Limit = d.MaxLimit
	}
	if p.Limit < 1 {
		p.Limit = 1
	}

	if s := strings.TrimSpace(cursor); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil || n == 0 {
			return Params{}, models.NewValidationError("cursor must be a positive integer id")
		}
		c := uint(n)
		p.Cursor = &c
	}

	switch Sort(strings.ToLower(strings.TrimSpace(sort))) {
	case "", SortDesc:
		p.Sort = SortDesc
	case SortAsc:
		p.Sort = SortAsc
	default:
		return Params{}, models.NewValidationError("sort must be asc or desc")
	}

	return p, nil
}

// Scope applies the cursor predicate, ordering and limit+1 on idColumn.
func (p Params) Scope(idColumn string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		desc := p.Sort != SortAsc
		if p.Cursor != nil {
			if desc {
				db = db.Where(clause.Lt{Column: clause.Column{Name: idColumn, Raw: true}, Value: *p.Cursor})
			} else {
				db = db.Where(clause.Gt{Column: clause.Column{Name: idColumn, Raw: true}, Value: *p.Cursor})
			}
		}
		return db.
			Order(clause.OrderByColumn{Column: clause.Column{Name: idColumn, Raw: true}, Desc: desc}).
			Limit(p.Limit + 1)
	}
}

// Trim cuts the look-ahead row and builds the Info block. idOf returns the
// cursor key of a row.
func Trim[T any](rows []T, p Params, idOf func(T) uint) ([]T, Info) {
	info := Info{}
	if len(rows) > p.Limit {
		rows = rows[:p.Limit]
		info.HasNextPage = true
	}
	if info.HasNextPage && len(rows) > 0 {
		next := idOf(rows[len(rows)-1])
		info.NextCursor = &next
	}
	return rows, info
}
