package service

import (
	"context"

	"vespers/internal/apperr"
	"vespers/internal/model"
	"vespers/internal/repository"
)

// OutlineTree is a node with its ordered children.
type OutlineTree struct {
	Node     model.OutlineNode
	Children []*OutlineTree
}

// OutlineService manages the writing outline. Nodes can only be attached to an
// existing parent when created and are never moved, so the tree cannot contain cycles.
type OutlineService struct {
	repo *repository.OutlineRepository
}

func NewOutlineService(repo *repository.OutlineRepository) *OutlineService {
	return &OutlineService{repo: repo}
}

// AddNode appends a node under parentID, or at the top level when parentID is nil.
func (s *OutlineService) AddNode(ctx context.Context, parentID *uint, title string) (*model.OutlineNode, error) {
	const op = "outline.add"
	title, err := normalizeTitle(op, title)
	if err != nil {
		return nil, err
	}
	node := model.OutlineNode{ParentID: parentID, Title: title}
	if err := s.repo.Append(ctx, &node); err != nil {
		if parentID != nil {
			return nil, lookupErr(op, err, "parent node %d not found", *parentID)
		}
		return nil, apperr.Internal(op, err)
	}
	return &node, nil
}

// GetNode returns one node.
func (s *OutlineService) GetNode(ctx context.Context, id uint) (*model.OutlineNode, error) {
	node, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("outline.get", err, "outline node %d not found", id)
	}
	return node, nil
}

// Rename changes a node's title.
func (s *OutlineService) Rename(ctx context.Context, id uint, title string) (*model.OutlineNode, error) {
	const op = "outline.rename"
	title, err := normalizeTitle(op, title)
	if err != nil {
		return nil, err
	}
	node, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(op, err, "outline node %d not found", id)
	}
	updated := *node
	updated.Title = title
	if err := s.repo.Save(ctx, &updated); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return &updated, nil
}

// SetCompleted marks a section as written (or not).
func (s *OutlineService) SetCompleted(ctx context.Context, id uint, completed bool) (*model.OutlineNode, error) {
	const op = "outline.set_completed"
	node, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(op, err, "outline node %d not found", id)
	}
	if node.Completed == completed {
		return node, nil
	}
	updated := *node
	updated.Completed = completed
	if err := s.repo.Save(ctx, &updated); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return &updated, nil
}

// Children lists the direct children of parentID in order.
func (s *OutlineService) Children(ctx context.Context, parentID *uint) ([]model.OutlineNode, error) {
	const op = "outline.children"
	if parentID != nil {
		if _, err := s.repo.FindByID(ctx, *parentID); err != nil {
			return nil, lookupErr(op, err, "outline node %d not found", *parentID)
		}
	}
	nodes, err := s.repo.ListChildren(ctx, parentID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return nodes, nil
}

// Nodes returns every node, ordered by sibling index.
func (s *OutlineService) Nodes(ctx context.Context) ([]model.OutlineNode, error) {
	nodes, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperr.Internal("outline.nodes", err)
	}
	return nodes, nil
}

// Tree returns the whole outline as a forest of top-level nodes.
func (s *OutlineService) Tree(ctx context.Context) ([]*OutlineTree, error) {
	nodes, err := s.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(nodes), nil
}

// BuildTree arranges nodes (already ordered by index) into a forest. Nodes whose
// parent is not in the slice are treated as roots.
func BuildTree(nodes []model.OutlineNode) []*OutlineTree {
	byID := make(map[uint]*OutlineTree, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = &OutlineTree{Node: node}
	}
	var roots []*OutlineTree
	for _, node := range nodes {
		tree := byID[node.ID]
		if node.ParentID != nil {
			if parent, ok := byID[*node.ParentID]; ok {
				parent.Children = append(parent.Children, tree)
				continue
			}
		}
		roots = append(roots, tree)
	}
	return roots
}
