package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"chess-story-service/internal/domain"
	"chess-story-service/internal/markdown"
	"golang.org/x/sync/singleflight"
)

// StoryRepository caches parsed stories and the index with TTL to avoid
// re-reading and re-parsing documents on every chapter view.
type StoryRepository struct {
	loader StoryLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu      sync.RWMutex
	stories map[string]cachedStory
	index   *cachedIndex
}

type cachedStory struct {
	story     domain.Story
	expiresAt time.Time
}

type cachedIndex struct {
	index     domain.StoryIndex
	expiresAt time.Time
}

func NewStoryRepository(loader StoryLoader, ttl time.Duration) *StoryRepository {
	return &StoryRepository{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		stories: make(map[string]cachedStory),
	}
}

func (r *StoryRepository) GetStory(ctx context.Context, storyID string) (domain.Story, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.stories[storyID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.story, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("story:"+storyID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.stories[storyID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.story, nil
		}
		r.mu.RUnlock()

		doc, err := r.loader.LoadStoryDocument(ctx, storyID)
		if err != nil {
			return domain.Story{}, err
		}
		story, err := markdown.ParseStory(doc)
		if err != nil {
			return domain.Story{}, err
		}

		r.mu.Lock()
		r.stories[storyID] = cachedStory{
			story:     story,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return story, nil
	})
	if err != nil {
		return domain.Story{}, err
	}
	return result.(domain.Story), nil
}

func (r *StoryRepository) GetIndex(ctx context.Context) (domain.StoryIndex, error) {
	now := r.clock()

	r.mu.RLock()
	if r.index != nil && r.index.expiresAt.After(now) {
		index := r.index.index
		r.mu.RUnlock()
		return index, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("index", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.index != nil && r.index.expiresAt.After(now) {
			index := r.index.index
			r.mu.RUnlock()
			return index, nil
		}
		r.mu.RUnlock()

		index, err := r.loader.LoadIndex(ctx)
		if err != nil {
			return domain.StoryIndex(nil), err
		}

		r.mu.Lock()
		r.index = &cachedIndex{
			index:     index,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
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
	if loader, ok := r.loader.(ChapterLoader); ok {
		return loader.LoadChapter(ctx, storyID, chapterID)
	}
	return domain.ChapterData{}, domain.ErrChapterNotFound
}

func (r *StoryRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
