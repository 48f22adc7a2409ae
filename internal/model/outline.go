package model

import "time"

// OutlineNode is a section of the writing outline. Nodes form a tree through ParentID;
// OrderIndex is unique among siblings.
type OutlineNode struct {
	ID         uint  `gorm:"primaryKey"`
	ParentID   *uint `gorm:"index"`
	Title      string
	OrderIndex int
	Completed  bool `gorm:"default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
