package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"vespers/internal/model"
)

// WordRepository stores word-count entries.
type WordRepository struct {
	db *gorm.DB
}

func NewWordRepository(db *gorm.DB) *WordRepository {
	return &WordRepository{db: db}
}

func (r *WordRepository) Create(ctx context.Context, entry *model.WordEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create word entry: %w", err)
	}
	return nil
}

// ListAll returns every entry ordered by time.
func (r *WordRepository) ListAll(ctx context.Context) ([]model.WordEntry, error) {
	var entries []model.WordEntry
	if err := r.db.WithContext(ctx).Order("logged_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list word entries: %w", err)
	}
	return entries, nil
}
