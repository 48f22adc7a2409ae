package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"vespers/internal/model"
)

// OutlineRepository manages outline nodes.
type OutlineRepository struct {
	db *gorm.DB
}

func NewOutlineRepository(db *gorm.DB) *OutlineRepository {
	return &OutlineRepository{db: db}
}

// Append inserts node as the last child of node.ParentID inside one transaction.
// A missing parent yields gorm.ErrRecordNotFound and nothing is written.
func (r *OutlineRepository) Append(ctx context.Context, node *model.OutlineNode) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if node.ParentID != nil {
			var parent model.OutlineNode
			if err := tx.First(&parent, *node.ParentID).Error; err != nil {
				return err
			}
		}

		q := tx.Model(&model.OutlineNode{})
		if node.ParentID != nil {
			q = q.Where("parent_id = ?", *node.ParentID)
		} else {
			q = q.Where("parent_id IS NULL")
		}

		var next int
		if err := q.Select("COALESCE(MAX(order_index) + 1, 0)").Scan(&next).Error; err != nil {
			return fmt.Errorf("next order index: %w", err)
		}
		node.OrderIndex = next
		if err := tx.Create(node).Error; err != nil {
			return fmt.Errorf("create outline node: %w", err)
		}
		return nil
	})
}

func (r *OutlineRepository) Save(ctx context.Context, node *model.OutlineNode) error {
	if err := r.db.WithContext(ctx).Save(node).Error; err != nil {
		return fmt.Errorf("save outline node: %w", err)
	}
	return nil
}

func (r *OutlineRepository) FindByID(ctx context.Context, id uint) (*model.OutlineNode, error) {
	var node model.OutlineNode
	if err := r.db.WithContext(ctx).First(&node, id).Error; err != nil {
		return nil, err
	}
	return &node, nil
}

// ListChildren returns the children of parentID ordered by index. A nil parent lists
// the top-level nodes.
func (r *OutlineRepository) ListChildren(ctx context.Context, parentID *uint) ([]model.OutlineNode, error) {
	var nodes []model.OutlineNode
	q := r.db.WithContext(ctx).Order("order_index ASC")
	if parentID != nil {
		q = q.Where("parent_id = ?", *parentID)
	} else {
		q = q.Where("parent_id IS NULL")
	}
	if err := q.Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("list outline children: %w", err)
	}
	return nodes, nil
}

// ListAll returns every node ordered by index.
func (r *OutlineRepository) ListAll(ctx context.Context) ([]model.OutlineNode, error) {
	var nodes []model.OutlineNode
	if err := r.db.WithContext(ctx).Order("order_index ASC, id ASC").Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("list outline: %w", err)
	}
	return nodes, nil
}
