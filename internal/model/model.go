package model

import "time"

type URLMapping struct {
	ID         int64     `db:"id" json:"id"`
	LongURL    string    `db:"long_url" json:"long_url"`
	URLHash    string    `db:"url_hash" json:"-"`
	ShortCode  string    `db:"short_code" json:"short_code"`
	ClickCount int64     `db:"click_count" json:"click_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ClickEvent is one redirect hit waiting in the stream until the batch
// consumer folds it into URLMapping.ClickCount.
type ClickEvent struct {
	ShortCode string    `json:"short_code"`
	Timestamp time.Time `json:"timestamp"`
}
