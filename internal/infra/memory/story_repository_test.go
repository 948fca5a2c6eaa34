package memory

import (
	"context"
	"testing"
	"time"

	"chess-story-service/internal/domain"
)

func TestStoryRepositoryCaches(t *testing.T) {
	static, err := NewStaticStoryLoader([]string{sampleStoryDoc})
	if err != nil {
		t.Fatalf("build loader: %v", err)
	}
	loader := &countingLoader{StoryLoader: static}
	repo := NewStoryRepository(loader, time.Minute)

	story, err := repo.GetStory(context.Background(), "01-introduction")
	if err != nil {
		t.Fatalf("get story: %v", err)
	}
	if story.ID != "01-introduction" || len(story.Chapters) != 2 {
		t.Fatalf("unexpected story: %+v", story)
	}
	if loader.docCalls != 1 {
		t.Fatalf("expected loader once, got %d", loader.docCalls)
	}

	if _, err := repo.GetStory(context.Background(), "01-introduction"); err != nil {
		t.Fatalf("get story 2: %v", err)
	}
	if loader.docCalls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.docCalls)
	}
}

func TestStoryRepositoryCachesIndex(t *testing.T) {
	static, err := NewStaticStoryLoader([]string{sampleStoryDoc})
	if err != nil {
		t.Fatalf("build loader: %v", err)
	}
	loader := &countingLoader{StoryLoader: static}
	repo := NewStoryRepository(loader, time.Minute)

	index, err := repo.GetIndex(context.Background())
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	if len(index) != 1 || index[0].ID != "01-introduction" {
		t.Fatalf("unexpected index: %+v", index)
	}

	if _, err := repo.GetIndex(context.Background()); err != nil {
		t.Fatalf("get index 2: %v", err)
	}
	if loader.indexCalls != 1 {
		t.Fatalf("expected cache hit, index calls %d", loader.indexCalls)
	}
}

type countingLoader struct {
	StoryLoader
	docCalls   int
	indexCalls int
}

func (l *countingLoader) LoadStoryDocument(ctx context.Context, storyID string) (string, error) {
	l.docCalls++
	return l.StoryLoader.LoadStoryDocument(ctx, storyID)
}

func (l *countingLoader) LoadIndex(ctx context.Context) (domain.StoryIndex, error) {
	l.indexCalls++
	return l.StoryLoader.LoadIndex(ctx)
}

const sampleStoryDoc = `---
id: 01-introduction
title: Welcome to Chess
chapters:
  - id: 01-the-board
  - id: 02-first-moves
---

## The Board

Sixty-four squares.

## First Moves

White moves first.
`
