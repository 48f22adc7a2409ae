package service

import (
	"context"
	"errors"
	"testing"

	"vespers/internal/apperr"
)

func TestWordLog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name  string
		words int
		node  *uint
		want  error
	}{
		{"zero", 0, nil, apperr.ErrMalformedInput},
		{"negative", -20, nil, apperr.ErrMalformedInput},
		{"unknown node", 100, uintPtr(42), apperr.ErrNotFound},
		{"ok", 350, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := f.words.Log(ctx, tt.words, tt.node)
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Fatalf("Log = %v, want %v", err, tt.want)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if entry.Words != tt.words || !entry.LoggedAt.Equal(f.clock.now) {
				t.Fatalf("entry = %+v", entry)
			}
		})
	}

	entries, err := f.words.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("stored %d entries, want 1", len(entries))
	}
}

func TestWordLogAgainstNode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	node, _ := f.outline.AddNode(ctx, nil, "Chapter 1")
	entry, err := f.words.Log(ctx, 800, &node.ID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.OutlineNodeID == nil || *entry.OutlineNodeID != node.ID {
		t.Fatalf("entry node = %v", entry.OutlineNodeID)
	}
}
