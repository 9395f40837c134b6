package models

import "time"

// Document represents a free-text family document
type Document struct {
	ID        int64      `json:"id" db:"id"`
	Family    string     `json:"family" db:"family"`
	Title     string     `json:"title" db:"title"`
	Content   string     `json:"content" db:"content"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsDeleted returns true once the document has been soft-deleted
func (d *Document) IsDeleted() bool {
	return d.DeletedAt != nil
}
