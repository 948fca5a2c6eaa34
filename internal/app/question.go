package app

import (
	"regexp"
	"strings"
	"sync"

	"chess-story-service/internal/domain"
)

// QuestionTracker owns the transient state of the in-progress question and
// the per-story attempt counters. One question is in flight at a time; the
// state must be reset whenever a new question is shown, including on
// navigation into a different chapter, or a stale "submitted" flag leaks
// into the next question.
type QuestionTracker struct {
	mu          sync.RWMutex
	state       domain.QuestionState
	stats       map[string]domain.StoryStats
	subscribers map[chan domain.QuestionState]struct{}
}

func NewQuestionTracker() *QuestionTracker {
	return &QuestionTracker{
		stats:       make(map[string]domain.StoryStats),
		subscribers: make(map[chan domain.QuestionState]struct{}),
	}
}

// SetQuestionAnswer records a submission in one atomic update and notifies
// observers once.
func (t *QuestionTracker) SetQuestionAnswer(answer string, correct bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = domain.QuestionState{
		SelectedAnswer: &answer,
		IsCorrect:      &correct,
		Submitted:      true,
	}
	t.broadcastLocked()
}

// ResetQuestionState restores the initial nil/false state.
func (t *QuestionTracker) ResetQuestionState() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = domain.QuestionState{}
	t.broadcastLocked()
}

// State returns the current question state.
func (t *QuestionTracker) State() domain.QuestionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// RecordQuestionResult bumps the story's attempt counters, creating the
// record on first use.
func (t *QuestionTracker) RecordQuestionResult(storyID string, correct bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := t.stats[storyID]
	stats.TotalQuestions++
	if correct {
		stats.CorrectAnswers++
	}
	t.stats[storyID] = stats
}

// GetStoryStats returns the story's counters, or a zero-value record when the
// story has no recorded attempts. Never a missing value.
func (t *QuestionTracker) GetStoryStats(storyID string) domain.StoryStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats[storyID]
}

// ResetStoryStats deletes the story's record; other stories are untouched.
func (t *QuestionTracker) ResetStoryStats(storyID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.stats, storyID)
}

// Subscribe registers an observer of question-state changes. The channel
// immediately receives the current state; the caller must invoke cancel.
func (t *QuestionTracker) Subscribe() (<-chan domain.QuestionState, func()) {
	ch := make(chan domain.QuestionState, 8)

	t.mu.Lock()
	t.subscribers[ch] = struct{}{}
	initial := t.state
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

func (t *QuestionTracker) broadcastLocked() {
	state := t.state
	for ch := range t.subscribers {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}

// ValidateMove checks a submitted move string against the accepted answers:
// an exact match first, then wildcard candidates. A candidate is a pattern
// when it contains '*' or starts with '/'; '*' matches zero or more of any
// character. An invalid pattern is skipped as non-matching. The move is
// expected already normalized (lowercase, trimmed) by the caller; matching
// is case-sensitive.
func ValidateMove(move string, answers domain.AnswerSet) bool {
	if answers.Contains(move) {
		return true
	}

	for _, pattern := range answers {
		if !strings.Contains(pattern, "*") && !strings.HasPrefix(pattern, "/") {
			continue
		}
		re, err := regexp.Compile(strings.Replace(pattern, "*", ".*", 1))
		if err != nil {
			continue
		}
		if re.MatchString(move) {
			return true
		}
	}
	return false
}
