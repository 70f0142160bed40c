package models

import "time"

// Schedule enqueues a batch evaluation on a cron cadence.
type Schedule struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"      validate:"required"`
	CronExpr  string       `json:"cron"      validate:"required"`
	Request   BatchRequest `json:"request"`
	Enabled   bool         `json:"enabled"`
	CreatedAt time.Time    `json:"created_at"`
}
