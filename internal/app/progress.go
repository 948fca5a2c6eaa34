package app

import (
	"sort"
	"sync"

	"chess-story-service/internal/domain"
)

// ProgressTracker is the observable learner-progress container: the set of
// completed chapters plus the current position. State is mutated only through
// its methods, and every logical change notifies subscribers with a full
// snapshot, so observers never see a partially updated state.
type ProgressTracker struct {
	mu             sync.RWMutex
	completed      map[string]struct{}
	currentStory   string
	currentChapter string
	subscribers    map[chan domain.ProgressSnapshot]struct{}
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		completed:   make(map[string]struct{}),
		subscribers: make(map[chan domain.ProgressSnapshot]struct{}),
	}
}

// completedKey builds the composite "<storyId>-<chapterId>" key. No
// normalization: membership is case-sensitive and exact.
func completedKey(storyID, chapterID string) string {
	return storyID + "-" + chapterID
}

// MarkChapterComplete records a chapter as completed. Idempotent: marking the
// same chapter twice neither grows the set nor re-notifies. Does not touch
// the current position.
func (t *ProgressTracker) MarkChapterComplete(storyID, chapterID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := completedKey(storyID, chapterID)
	if _, ok := t.completed[key]; ok {
		return
	}
	t.completed[key] = struct{}{}
	t.broadcastLocked()
}

// SetCurrentChapter unconditionally overwrites the current position. Does not
// touch the completed set.
func (t *ProgressTracker) SetCurrentChapter(storyID, chapterID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.currentStory = storyID
	t.currentChapter = chapterID
	t.broadcastLocked()
}

// IsChapterComplete reports membership in the completed set.
func (t *ProgressTracker) IsChapterComplete(storyID, chapterID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.completed[completedKey(storyID, chapterID)]
	return ok
}

// CompletedCount returns the size of the completed set.
func (t *ProgressTracker) CompletedCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.completed)
}

// Snapshot returns the current progress view. Completed keys are sorted for
// deterministic output; authored traversal order lives in the index, not here.
func (t *ProgressTracker) Snapshot() domain.ProgressSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// Subscribe registers an observer. The channel immediately receives the
// current snapshot; the caller must invoke cancel to avoid leaks.
func (t *ProgressTracker) Subscribe() (<-chan domain.ProgressSnapshot, func()) {
	ch := make(chan domain.ProgressSnapshot, 8)

	t.mu.Lock()
	t.subscribers[ch] = struct{}{}
	initial := t.snapshotLocked()
	t.mu.Unlock()

	ch <- initial

	cancel := func() {
		t.mu.Lock()
		if _, ok := t.subscribers[ch]; ok {
			delete(t.subscribers, ch)
			close(ch)
		}
		t.mu.Unlock()
	}
	return ch, cancel
}

func (t *ProgressTracker) broadcastLocked() {
	snapshot := t.snapshotLocked()
	for ch := range t.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot so a slow observer never blocks mutations.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (t *ProgressTracker) snapshotLocked() domain.ProgressSnapshot {
	keys := make([]string, 0, len(t.completed))
	for key := range t.completed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return domain.ProgressSnapshot{
		CompletedChapters: keys,
		CurrentStory:      t.currentStory,
		CurrentChapter:    t.currentChapter,
	}
}
