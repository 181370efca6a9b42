// Package models contains data structures for the application's domain models.
package models

import "time"

// SoftDelete marks a row as logically removed. Rows are never hard-deleted;
// every query that lists live data filters on IsDeleted.
type SoftDelete struct {
	IsDeleted bool       `gorm:"not null;default:false;index" json:"-"`
	DeletedAt *time.Time `json:"-"`
}

// MarkDeleted flags the row as deleted at the given instant.
func (s *SoftDelete) MarkDeleted(at time.Time) {
	s.IsDeleted = true
	s.DeletedAt = &at
}
