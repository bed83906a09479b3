package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Performance is a show that tickets can be sold against.
type Performance struct {
	bun.BaseModel `bun:"table:performances,alias:p"`

	ID          int64     `bun:",pk,autoincrement" json:"id"`
	Title       string    `bun:"title" json:"title"`
	CategoryID  int64     `bun:"category_id" json:"category_id"`
	CoverImage  string    `bun:"cover_image" json:"cover_image"`
	Description string    `bun:"description" json:"description"`
	Performer   string    `bun:"performer" json:"performer"`
	Venue       string    `bun:"venue" json:"venue"`
	StartTime   time.Time `bun:"start_time,nullzero" json:"start_time"`
	EndTime     time.Time `bun:"end_time,nullzero" json:"end_time"`
	Status      int       `bun:"status" json:"status"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}
