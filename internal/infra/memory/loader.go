package memory

import (
	"context"

	"chess-story-service/internal/domain"
	"chess-story-service/internal/markdown"
)

// StoryLoader fetches raw story documents and the navigation index from a
// backing store (filesystem, database, bundled content).
type StoryLoader interface {
	LoadStoryDocument(ctx context.Context, storyID string) (string, error)
	LoadIndex(ctx context.Context) (domain.StoryIndex, error)
}

// ChapterLoader is implemented by loaders whose backing store keeps chapters
// split out into their own files (the one-file-per-chapter layout).
type ChapterLoader interface {
	LoadChapter(ctx context.Context, storyID, chapterID string) (domain.ChapterData, error)
}

// StaticStoryLoader serves documents from memory (useful for tests/demos).
// The index is derived from the documents in the order they were given;
// authored order is semantic and never re-sorted.
type StaticStoryLoader struct {
	docs  map[string]string
	index domain.StoryIndex
}

func NewStaticStoryLoader(docs []string) (*StaticStoryLoader, error) {
	loader := &StaticStoryLoader{docs: make(map[string]string, len(docs))}
	for _, doc := range docs {
		story, err := markdown.ParseStory(doc)
		if err != nil {
			return nil, err
		}
		loader.docs[story.ID] = doc
		loader.index = append(loader.index, story.IndexEntry())
	}
	return loader, nil
}

func (l *StaticStoryLoader) LoadStoryDocument(_ context.Context, storyID string) (string, error) {
	if doc, ok := l.docs[storyID]; ok {
		return doc, nil
	}
	return "", domain.ErrStoryNotFound
}

func (l *StaticStoryLoader) LoadIndex(_ context.Context) (domain.StoryIndex, error) {
	return append(domain.StoryIndex{}, l.index...), nil
}
