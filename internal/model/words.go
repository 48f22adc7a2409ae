package model

import "time"

// WordEntry records words written in one sitting.
type WordEntry struct {
	ID            uint `gorm:"primaryKey"`
	Words         int
	OutlineNodeID *uint     `gorm:"index"`
	LoggedAt      time.Time `gorm:"index"`
	CreatedAt     time.Time
}
