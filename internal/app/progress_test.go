package app

import (
	"testing"
	"time"

	"chess-story-service/internal/domain"
)

func TestMarkChapterCompleteIsIdempotent(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.MarkChapterComplete("01-introduction", "01-the-board")
	tracker.MarkChapterComplete("01-introduction", "01-the-board")
	tracker.MarkChapterComplete("01-introduction", "02-first-moves")

	if got := tracker.CompletedCount(); got != 2 {
		t.Fatalf("expected 2 completed chapters, got %d", got)
	}
	if !tracker.IsChapterComplete("01-introduction", "01-the-board") {
		t.Fatalf("expected chapter marked complete")
	}
}

func TestCompletionIsCaseSensitive(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.MarkChapterComplete("Story", "Chapter")

	if tracker.IsChapterComplete("story", "chapter") {
		t.Fatalf("completion keys must not be normalized")
	}
	tracker.MarkChapterComplete("story", "chapter")
	if got := tracker.CompletedCount(); got != 2 {
		t.Fatalf("differently cased keys are distinct, got %d", got)
	}
}

func TestSetCurrentChapterOverwrites(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.SetCurrentChapter("01-introduction", "01-the-board")
	tracker.SetCurrentChapter("01-introduction", "02-first-moves")

	snapshot := tracker.Snapshot()
	if snapshot.CurrentStory != "01-introduction" || snapshot.CurrentChapter != "02-first-moves" {
		t.Fatalf("unexpected position: %+v", snapshot)
	}
	if len(snapshot.CompletedChapters) != 0 {
		t.Fatalf("setting the position must not complete anything: %v", snapshot.CompletedChapters)
	}
}

func TestSnapshotKeysAreSorted(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.MarkChapterComplete("b-story", "c1")
	tracker.MarkChapterComplete("a-story", "c1")

	snapshot := tracker.Snapshot()
	if len(snapshot.CompletedChapters) != 2 {
		t.Fatalf("expected 2 keys, got %v", snapshot.CompletedChapters)
	}
	if snapshot.CompletedChapters[0] != "a-story-c1" || snapshot.CompletedChapters[1] != "b-story-c1" {
		t.Fatalf("expected sorted keys, got %v", snapshot.CompletedChapters)
	}
}

func TestProgressSubscribeDeliversUpdates(t *testing.T) {
	tracker := NewProgressTracker()
	updates, cancel := tracker.Subscribe()
	defer cancel()

	initial := receiveProgress(t, updates)
	if len(initial.CompletedChapters) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial)
	}

	tracker.MarkChapterComplete("01-introduction", "01-the-board")
	next := receiveProgress(t, updates)
	if len(next.CompletedChapters) != 1 {
		t.Fatalf("expected update after completion, got %+v", next)
	}

	// A repeated mark is a no-op and must not notify again.
	tracker.MarkChapterComplete("01-introduction", "01-the-board")
	select {
	case snapshot := <-updates:
		t.Fatalf("unexpected notification: %+v", snapshot)
	case <-time.After(50 * time.Millisecond):
	}
}

func receiveProgress(t *testing.T, ch <-chan domain.ProgressSnapshot) domain.ProgressSnapshot {
	t.Helper()
	select {
	case snapshot := <-ch:
		return snapshot
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for progress snapshot")
		return domain.ProgressSnapshot{}
	}
}
