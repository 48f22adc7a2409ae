package service

import (
	"context"

	"vespers/internal/apperr"
	"vespers/internal/model"
	"vespers/internal/repository"
)

// WordService records words written.
type WordService struct {
	words   *repository.WordRepository
	outline *repository.OutlineRepository
	clock   Clock
}

func NewWordService(words *repository.WordRepository, outline *repository.OutlineRepository, clock Clock) *WordService {
	if clock == nil {
		clock = SystemClock
	}
	return &WordService{words: words, outline: outline, clock: clock}
}

// Log stores a positive word count, optionally against an outline node.
func (s *WordService) Log(ctx context.Context, words int, outlineNodeID *uint) (*model.WordEntry, error) {
	const op = "words.log"
	if words <= 0 {
		return nil, apperr.MalformedInput(op, "word count must be positive, got %d", words)
	}
	if outlineNodeID != nil {
		if _, err := s.outline.FindByID(ctx, *outlineNodeID); err != nil {
			return nil, lookupErr(op, err, "outline node %d not found", *outlineNodeID)
		}
	}
	entry := model.WordEntry{Words: words, OutlineNodeID: outlineNodeID, LoggedAt: s.clock.Now()}
	if err := s.words.Create(ctx, &entry); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return &entry, nil
}

// List returns every entry in time order.
func (s *WordService) List(ctx context.Context) ([]model.WordEntry, error) {
	entries, err := s.words.ListAll(ctx)
	if err != nil {
		return nil, apperr.Internal("words.list", err)
	}
	return entries, nil
}
