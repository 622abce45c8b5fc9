package models

import "time"

type RewardLedgerEntry struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	UserID     uint      `gorm:"index" json:"user_id"`
	Amount     int64     `json:"amount"`
	SourceType string    `gorm:"uniqueIndex:idx_reward_source;size:64" json:"source_type"`
	SourceID   uint      `gorm:"uniqueIndex:idx_reward_source" json:"source_id"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
