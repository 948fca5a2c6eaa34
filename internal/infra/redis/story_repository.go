package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"chess-story-service/internal/domain"
	"chess-story-service/internal/infra/memory"
	"chess-story-service/internal/markdown"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// StoryRepository caches raw story documents and the serialized index in
// Redis and falls back to a loader on cache miss. Documents are cached as
// authored markdown and re-parsed on read, so every instance sees the same
// source text:
//
//	SET story:{storyID}:doc {markdown}
//	SET story:index         {json}
type StoryRepository struct {
	client *redis.Client
	loader memory.StoryLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewStoryRepository(client *redis.Client, loader memory.StoryLoader, ttl time.Duration) *StoryRepository {
	return &StoryRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *StoryRepository) GetStory(ctx context.Context, storyID string) (domain.Story, error) {
	key := r.docKey(storyID)

	if doc, err := r.client.Get(ctx, key).Result(); err == nil && doc != "" {
		return markdown.ParseStory(doc)
	}

	result, err, _ := r.sf.Do("story:"+storyID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if doc, err := r.client.Get(ctx, key).Result(); err == nil && doc != "" {
			return markdown.ParseStory(doc)
		}

		doc, err := r.loader.LoadStoryDocument(ctx, storyID)
		if err != nil {
			return domain.Story{}, err
		}
		story, err := markdown.ParseStory(doc)
		if err != nil {
			return domain.Story{}, err
		}

		_ = r.client.Set(ctx, key, doc, r.ttlWithJitter()).Err()
		return story, nil
	})
	if err != nil {
		return domain.Story{}, err
	}
	return result.(domain.Story), nil
}

func (r *StoryRepository) GetIndex(ctx context.Context) (domain.StoryIndex, error) {
	key := "story:index"

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		var index domain.StoryIndex
		if err := json.Unmarshal(raw, &index); err == nil {
			return index, nil
		}
		// Corrupt cache entry falls through to the loader.
	}

	result, err, _ := r.sf.Do("index", func() (interface{}, error) {
		index, err := r.loader.LoadIndex(ctx)
		if err != nil {
			return domain.StoryIndex(nil), err
		}
		if raw, err := json.Marshal(index); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return index, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.StoryIndex), nil
}

// GetChapter serves a chapter from the one-file-per-chapter layout. Loaders
// without that layout report the chapter as missing.
func (r *StoryRepository) GetChapter(ctx context.Context, storyID, chapterID string) (domain.ChapterData, error) {
	if loader, ok := r.loader.(memory.ChapterLoader); ok {
		return loader.LoadChapter(ctx, storyID, chapterID)
	}
	return domain.ChapterData{}, domain.ErrChapterNotFound
}

func (r *StoryRepository) docKey(storyID string) string {
	return "story:" + storyID + ":doc"
}

func (r *StoryRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
