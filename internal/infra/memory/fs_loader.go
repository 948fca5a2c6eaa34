package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"chess-story-service/internal/domain"
	"chess-story-service/internal/markdown"
)

// FSStoryLoader reads story documents and the index from a file tree:
// one "<storyID>.md" file per story, chapters optionally split out under
// "<storyID>/<chapterID>.md", and the catalog in "index.json".
type FSStoryLoader struct {
	fsys fs.FS
}

func NewFSStoryLoader(fsys fs.FS) *FSStoryLoader {
	return &FSStoryLoader{fsys: fsys}
}

// NewDirStoryLoader serves content from a directory on disk.
func NewDirStoryLoader(dir string) *FSStoryLoader {
	return NewFSStoryLoader(os.DirFS(dir))
}

func (l *FSStoryLoader) LoadStoryDocument(_ context.Context, storyID string) (string, error) {
	data, err := fs.ReadFile(l.fsys, storyID+".md")
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", storyID, domain.ErrStoryNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read story %s: %w", storyID, err)
	}
	return string(data), nil
}

func (l *FSStoryLoader) LoadIndex(_ context.Context) (domain.StoryIndex, error) {
	data, err := fs.ReadFile(l.fsys, "index.json")
	if err != nil {
		return nil, fmt.Errorf("read story index: %w", err)
	}
	var index domain.StoryIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("decode story index: %w", err)
	}
	return index, nil
}

// LoadChapter reads a single-chapter document in the one-file-per-chapter
// layout and resolves it with the ids the caller navigated with.
func (l *FSStoryLoader) LoadChapter(_ context.Context, storyID, chapterID string) (domain.ChapterData, error) {
	data, err := fs.ReadFile(l.fsys, path.Join(storyID, chapterID+".md"))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ChapterData{}, fmt.Errorf("%s/%s: %w", storyID, chapterID, domain.ErrChapterNotFound)
	}
	if err != nil {
		return domain.ChapterData{}, fmt.Errorf("read chapter %s/%s: %w", storyID, chapterID, err)
	}
	return markdown.ParseChapter(string(data), storyID, chapterID), nil
}
